package clients

import (
	"context"
	"errors"
	"time"

	"catalog-harmonization-service/internal/models"
)

// StoreAdapter defines the interface that all platform adapters must implement
type StoreAdapter interface {
	// Platform returns the platform type
	Platform() models.PlatformType

	// TestConnection verifies credentials and reachability
	TestConnection(ctx context.Context) (*ConnectionTestResult, error)

	// FetchProducts retrieves one page of the remote catalog. Pages are
	// 1-based; an empty slice means the catalog is exhausted.
	FetchProducts(ctx context.Context, page, perPage int) ([]RemoteProduct, error)

	// FetchProductCount returns the remote catalog size, -1 when the
	// platform has no cheap count endpoint.
	FetchProductCount(ctx context.Context) (int, error)

	// PushProductUpdate writes one field of a remote product back to the
	// platform. Returns ErrPushUnsupported for read-only platforms.
	PushProductUpdate(ctx context.Context, remoteID, field string, value *string) error
}

// ErrPushUnsupported is returned by adapters for platforms without a write API
var ErrPushUnsupported = errors.New("push is not supported for this platform")

// Config carries the decrypted connection settings an adapter needs
type Config struct {
	BaseURL     string
	APIKey      string
	APISecret   string
	AccessToken string

	// CustomHeaders tunes the custom adapter (products_endpoint,
	// count_endpoint, field_map) and carries literal request headers.
	CustomHeaders map[string]interface{}

	Timeout   time.Duration
	RateLimit int // requests per second, 0 means adapter default
}

// RemoteProduct represents a product as seen on an external platform
type RemoteProduct struct {
	RemoteID     string                 `json:"remote_id"`
	Name         string                 `json:"name"`
	SKU          string                 `json:"sku"`
	Barcode      string                 `json:"barcode,omitempty"`
	Price        *float64               `json:"price"`
	Stock        *int                   `json:"stock"`
	Status       string                 `json:"status"`
	CanonicalURL string                 `json:"canonical_url"`
	Raw          map[string]interface{} `json:"-"`
}

// ConnectionTestResult reports the outcome of a connection test
type ConnectionTestResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ProductCount *int   `json:"product_count,omitempty"`
}

// UnsupportedPlatformError is returned when a platform type has no adapter
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return "unsupported platform: " + e.Platform
}
