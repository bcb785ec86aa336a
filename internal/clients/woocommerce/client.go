package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"catalog-harmonization-service/internal/clients"
	"catalog-harmonization-service/internal/models"
	"golang.org/x/time/rate"
)

const apiBase = "/wp-json/wc/v3"

// Client implements StoreAdapter for WooCommerce stores using the REST API
// v3 with consumer key/secret basic auth.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	rateLimiter    *rate.Limiter
	retrier        *clients.Retrier
}

// NewClient creates a new WooCommerce client
func NewClient(cfg clients.Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing base URL")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("missing consumer key or secret")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimit
	if rps == 0 {
		rps = 5
	}

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		consumerKey:    cfg.APIKey,
		consumerSecret: cfg.APISecret,
		rateLimiter:    rate.NewLimiter(rate.Limit(rps), 1),
		retrier:        clients.NewRetrier(nil),
	}, nil
}

// Platform returns the platform type
func (c *Client) Platform() models.PlatformType {
	return models.PlatformWooCommerce
}

// TestConnection verifies credentials by fetching a single product
func (c *Client) TestConnection(ctx context.Context) (*clients.ConnectionTestResult, error) {
	params := url.Values{}
	params.Set("per_page", "1")
	_, headers, err := c.doRequest(ctx, "GET", "/products", params, nil)
	if err != nil {
		return &clients.ConnectionTestResult{Success: false, Message: err.Error()}, nil
	}

	result := &clients.ConnectionTestResult{
		Success: true,
		Message: "WooCommerce connection OK",
	}
	if total := headers.Get("X-WP-Total"); total != "" {
		if n, err := strconv.Atoi(total); err == nil {
			result.ProductCount = &n
			result.Message = fmt.Sprintf("WooCommerce connection OK, %d products", n)
		}
	}
	return result, nil
}

// FetchProducts retrieves one page of the remote catalog
func (c *Client) FetchProducts(ctx context.Context, page, perPage int) ([]clients.RemoteProduct, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	body, _, err := c.doRequest(ctx, "GET", "/products", params, nil)
	if err != nil {
		return nil, err
	}

	var raw []wooProduct
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse products response: %w", err)
	}

	products := make([]clients.RemoteProduct, 0, len(raw))
	for _, p := range raw {
		products = append(products, convertProduct(p))
	}
	return products, nil
}

// FetchProductCount reads the catalog size from the X-WP-Total header
func (c *Client) FetchProductCount(ctx context.Context) (int, error) {
	params := url.Values{}
	params.Set("per_page", "1")
	_, headers, err := c.doRequest(ctx, "GET", "/products", params, nil)
	if err != nil {
		return -1, err
	}
	total := headers.Get("X-WP-Total")
	if total == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// PushProductUpdate writes one field of a remote product
func (c *Client) PushProductUpdate(ctx context.Context, remoteID, field string, value *string) error {
	payload, err := buildUpdatePayload(field, value)
	if err != nil {
		return err
	}
	_, _, err = c.doRequest(ctx, "PUT", "/products/"+remoteID, nil, payload)
	return err
}

func buildUpdatePayload(field string, value *string) (map[string]interface{}, error) {
	v := ""
	if value != nil {
		v = *value
	}
	switch field {
	case "name":
		return map[string]interface{}{"name": v}, nil
	case "sku":
		return map[string]interface{}{"sku": v}, nil
	case "price":
		return map[string]interface{}{"regular_price": v}, nil
	case "stock":
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid stock value %q", v)
		}
		return map[string]interface{}{"manage_stock": true, "stock_quantity": n}, nil
	case "status":
		status := "draft"
		if v == "active" {
			status = "publish"
		}
		return map[string]interface{}{"status": status}, nil
	}
	return nil, fmt.Errorf("unsupported push field %q", field)
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload map[string]interface{}) ([]byte, http.Header, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	endpoint := c.baseURL + apiBase + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
	}

	resp, err := c.retrier.DoHTTP(ctx, "woocommerce "+method+" "+path, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.consumerKey, c.consumerSecret)
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("woocommerce API error %d: %s", resp.StatusCode, truncate(respBody))
	}
	return respBody, resp.Header, nil
}

func truncate(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

type wooProduct struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	Price         string `json:"price"`
	StockQuantity *int   `json:"stock_quantity"`
	Status        string `json:"status"`
	Permalink     string `json:"permalink"`
}

func convertProduct(p wooProduct) clients.RemoteProduct {
	product := clients.RemoteProduct{
		RemoteID:     strconv.FormatInt(p.ID, 10),
		Name:         p.Name,
		SKU:          p.SKU,
		Stock:        p.StockQuantity,
		CanonicalURL: p.Permalink,
	}
	if price, err := strconv.ParseFloat(p.Price, 64); err == nil && p.Price != "" {
		product.Price = &price
	}
	if p.Status == "publish" {
		product.Status = "active"
	} else {
		product.Status = "inactive"
	}
	return product
}
