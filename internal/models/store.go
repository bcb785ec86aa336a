package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlatformType identifies which adapter a store connection uses.
type PlatformType string

const (
	PlatformWooCommerce PlatformType = "woocommerce"
	PlatformShopify     PlatformType = "shopify"
	PlatformBsale       PlatformType = "bsale"
	PlatformCustom      PlatformType = "custom"
)

// ValidPlatform reports whether p names a supported adapter.
func ValidPlatform(p PlatformType) bool {
	switch p {
	case PlatformWooCommerce, PlatformShopify, PlatformBsale, PlatformCustom:
		return true
	}
	return false
}

// SyncDirection controls which way a store connection moves data.
type SyncDirection string

const (
	SyncPull          SyncDirection = "pull"
	SyncPush          SyncDirection = "push"
	SyncBidirectional SyncDirection = "bidirectional"
)

// ValidSyncDirection reports whether d is a known direction.
func ValidSyncDirection(d SyncDirection) bool {
	switch d {
	case SyncPull, SyncPush, SyncBidirectional:
		return true
	}
	return false
}

// StoreConnection holds the configuration of one external platform store.
// Credential columns are stored encrypted and never serialized; reads expose
// only the has_* presence flags through StoreDetail.
type StoreConnection struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	Name     string       `gorm:"type:varchar(128);not null;uniqueIndex" json:"name"`
	Platform PlatformType `gorm:"type:varchar(32);not null;index" json:"platform"`
	BaseURL  string       `gorm:"type:text;not null" json:"base_url"`

	APIKey      string `gorm:"type:text" json:"-"`
	APISecret   string `gorm:"type:text" json:"-"`
	AccessToken string `gorm:"type:text" json:"-"`

	// CustomHeaders carries adapter tuning for the custom platform:
	// products_endpoint, count_endpoint, field_map, plus literal headers.
	CustomHeaders datatypes.JSON `gorm:"type:jsonb" json:"custom_headers"`

	IsActive      bool          `gorm:"default:true" json:"is_active"`
	SyncDirection SyncDirection `gorm:"type:varchar(20);default:'pull'" json:"sync_direction"`
	Notes         string        `gorm:"type:text" json:"notes"`
	ProductCount  int           `gorm:"default:0" json:"product_count"`
	LastSyncAt    *time.Time    `json:"last_sync_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName specifies the table name for StoreConnection
func (StoreConnection) TableName() string {
	return "store_connections"
}

// StoreDetail is the read model of a store connection. Credentials are
// reduced to presence flags.
type StoreDetail struct {
	ID             uint           `json:"id"`
	Name           string         `json:"name"`
	Platform       PlatformType   `json:"platform"`
	BaseURL        string         `json:"base_url"`
	HasAPIKey      bool           `json:"has_api_key"`
	HasAPISecret   bool           `json:"has_api_secret"`
	HasAccessToken bool           `json:"has_access_token"`
	CustomHeaders  datatypes.JSON `json:"custom_headers"`
	IsActive       bool           `json:"is_active"`
	SyncDirection  SyncDirection  `json:"sync_direction"`
	Notes          string         `json:"notes"`
	ProductCount   int            `json:"product_count"`
	LastSyncAt     *time.Time     `json:"last_sync_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Detail projects the connection into its credential-safe read model.
func (s *StoreConnection) Detail() StoreDetail {
	return StoreDetail{
		ID:             s.ID,
		Name:           s.Name,
		Platform:       s.Platform,
		BaseURL:        s.BaseURL,
		HasAPIKey:      s.APIKey != "",
		HasAPISecret:   s.APISecret != "",
		HasAccessToken: s.AccessToken != "",
		CustomHeaders:  s.CustomHeaders,
		IsActive:       s.IsActive,
		SyncDirection:  s.SyncDirection,
		Notes:          s.Notes,
		ProductCount:   s.ProductCount,
		LastSyncAt:     s.LastSyncAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// MappingSyncStatus is the link state of a mapping.
type MappingSyncStatus string

const (
	MappingPending MappingSyncStatus = "pending"
	MappingSynced  MappingSyncStatus = "synced"
	MappingError   MappingSyncStatus = "error"
)

// ProductMapping links one remote product to at most one local record and
// carries the last remote snapshot used for diffing.
type ProductMapping struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	StoreID uint `gorm:"not null;uniqueIndex:idx_mapping_store_url" json:"store_id"`

	RemoteProductID string `gorm:"type:varchar(128);not null" json:"remote_product_id"`
	CanonicalURL    string `gorm:"type:text;not null;uniqueIndex:idx_mapping_store_url" json:"canonical_url"`

	LocalProductID *uint `gorm:"index" json:"local_product_id"`

	RemoteName   string         `gorm:"type:text" json:"remote_name"`
	RemoteSKU    string         `gorm:"column:remote_sku;type:text" json:"remote_sku"`
	RemotePrice  *float64       `json:"remote_price"`
	RemoteStock  *int           `json:"remote_stock"`
	RemoteStatus string         `gorm:"type:varchar(32)" json:"remote_status"`
	RemoteData   datatypes.JSON `gorm:"type:jsonb" json:"-"`

	SyncStatus   MappingSyncStatus `gorm:"type:varchar(20);default:'pending'" json:"sync_status"`
	LastSyncedAt time.Time         `json:"last_synced_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	Store *StoreConnection `gorm:"foreignKey:StoreID" json:"-"`
}

// TableName specifies the table name for ProductMapping
func (ProductMapping) TableName() string {
	return "store_sync_mappings"
}

// QueueStatus is the review state of one detected difference.
type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueApproved QueueStatus = "approved"
	QueueRejected QueueStatus = "rejected"
	QueueApplied  QueueStatus = "applied"
)

// SyncQueueItem is one field-level difference between a remote product and
// its local counterpart, awaiting review.
type SyncQueueItem struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	StoreID   uint  `gorm:"not null;index" json:"store_id"`
	MappingID *uint `gorm:"index:idx_queue_mapping_field" json:"mapping_id"`

	Direction    SyncDirection `gorm:"type:varchar(20);default:'pull'" json:"direction"`
	ProductName  string        `gorm:"type:text" json:"product_name"`
	CanonicalURL string        `gorm:"type:text" json:"canonical_url"`

	Field       string  `gorm:"type:varchar(64);not null;index:idx_queue_mapping_field" json:"field"`
	LocalValue  *string `gorm:"type:text" json:"local_value"`
	RemoteValue *string `gorm:"type:text" json:"remote_value"`

	Status     QueueStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at"`

	Mapping *ProductMapping `gorm:"foreignKey:MappingID" json:"mapping,omitempty"`
}

// TableName specifies the table name for SyncQueueItem
func (SyncQueueItem) TableName() string {
	return "sync_queue"
}

// SyncLog records one pull, test or queue action against a store.
type SyncLog struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	StoreID         uint           `gorm:"not null;index" json:"store_id"`
	Action          string         `gorm:"type:varchar(32);not null" json:"action"`
	Status          string         `gorm:"type:varchar(20);not null" json:"status"`
	RecordsAffected int            `gorm:"default:0" json:"records_affected"`
	Details         datatypes.JSON `gorm:"type:jsonb" json:"details"`
	ExecutedAt      time.Time      `gorm:"autoCreateTime" json:"executed_at"`
}

// TableName specifies the table name for SyncLog
func (SyncLog) TableName() string {
	return "sync_logs"
}

// Log status values
const (
	SyncLogSuccess = "success"
	SyncLogError   = "error"
	SyncLogPartial = "partial"
)
