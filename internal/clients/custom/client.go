package custom

import (
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

// Reserved keys of the custom_headers config blob. Everything else is sent
// as a literal request header.
const (
	keyProductsEndpoint = "products_endpoint"
	keyCountEndpoint    = "count_endpoint"
	keyFieldMap         = "field_map"
)

// Client implements StoreAdapter for ad-hoc JSON APIs. The endpoint paths,
// field names and auth headers all come from the connection's custom_headers
// blob, so one adapter covers in-house catalogs and one-off platforms.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	apiKey           string
	productsEndpoint string
	countEndpoint    string
	fieldMap         map[string]string
	headers          map[string]string
	rateLimiter      *rate.Limiter
	retrier          *clients.Retrier
}

// NewClient creates a new custom API client
func NewClient(cfg clients.Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing base URL")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimit
	if rps == 0 {
		rps = 5
	}

	c := &Client{
		httpClient:       &http.Client{Timeout: timeout},
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:           cfg.APIKey,
		productsEndpoint: "/products",
		fieldMap:         map[string]string{},
		headers:          map[string]string{},
		rateLimiter:      rate.NewLimiter(rate.Limit(rps), 1),
		retrier:          clients.NewRetrier(nil),
	}

	for key, value := range cfg.CustomHeaders {
		switch key {
		case keyProductsEndpoint:
			if s, ok := value.(string); ok && s != "" {
				c.productsEndpoint = s
			}
		case keyCountEndpoint:
			if s, ok := value.(string); ok {
				c.countEndpoint = s
			}
		case keyFieldMap:
			if m, ok := value.(map[string]interface{}); ok {
				for local, remote := range m {
					if s, ok := remote.(string); ok {
						c.fieldMap[local] = s
					}
				}
			}
		default:
			if s, ok := value.(string); ok {
				c.headers[key] = s
			}
		}
	}

	return c, nil
}

// Platform returns the platform type
func (c *Client) Platform() models.PlatformType {
	return models.PlatformCustom
}

// TestConnection fetches the first product page
func (c *Client) TestConnection(ctx context.Context) (*clients.ConnectionTestResult, error) {
	products, err := c.FetchProducts(ctx, 1, 1)
	if err != nil {
		return &clients.ConnectionTestResult{Success: false, Message: err.Error()}, nil
	}

	result := &clients.ConnectionTestResult{
		Success: true,
		Message: "connection OK",
	}
	if count, err := c.FetchProductCount(ctx); err == nil && count >= 0 {
		result.ProductCount = &count
		result.Message = fmt.Sprintf("connection OK, %d products", count)
	} else if len(products) > 0 {
		result.Message = "connection OK, products endpoint reachable"
	}
	return result, nil
}

// FetchProducts retrieves one page of the remote catalog
func (c *Client) FetchProducts(ctx context.Context, page, perPage int) ([]clients.RemoteProduct, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	body, err := c.doRequest(ctx, c.productsEndpoint, params)
	if err != nil {
		return nil, err
	}

	items, err := extractItems(body)
	if err != nil {
		return nil, err
	}

	products := make([]clients.RemoteProduct, 0, len(items))
	for _, item := range items {
		products = append(products, c.convertItem(item))
	}
	return products, nil
}

// FetchProductCount queries the configured count endpoint, if any
func (c *Client) FetchProductCount(ctx context.Context) (int, error) {
	if c.countEndpoint == "" {
		return -1, nil
	}
	body, err := c.doRequest(ctx, c.countEndpoint, nil)
	if err != nil {
		return -1, err
	}
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return -1, fmt.Errorf("failed to parse count response: %w", err)
	}
	for _, key := range []string{"count", "total"} {
		if n, ok := response[key].(float64); ok {
			return int(n), nil
		}
	}
	return -1, nil
}

// PushProductUpdate is not supported for custom APIs
func (c *Client) PushProductUpdate(ctx context.Context, remoteID, field string, value *string) error {
	return clients.ErrPushUnsupported
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := c.retrier.DoHTTP(ctx, "custom GET "+path, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		for key, value := range c.headers {
			req.Header.Set(key, value)
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(respBody)
		if len(body) > 200 {
			body = body[:200]
		}
		return nil, fmt.Errorf("custom API error %d: %s", resp.StatusCode, body)
	}
	return respBody, nil
}

// extractItems accepts a bare JSON array or an object wrapping one under
// items/products/data.
func extractItems(body []byte) ([]map[string]interface{}, error) {
	var items []map[string]interface{}
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse products response: %w", err)
	}
	for _, key := range []string{"items", "products", "data", "results"} {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to parse products response: %w", err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("products response has no recognizable item list")
}

func (c *Client) lookup(item map[string]interface{}, field string) (interface{}, bool) {
	key := field
	if mapped, ok := c.fieldMap[field]; ok {
		key = mapped
	}
	value, ok := item[key]
	return value, ok
}

func (c *Client) convertItem(item map[string]interface{}) clients.RemoteProduct {
	product := clients.RemoteProduct{Raw: item}

	if v, ok := c.lookup(item, "id"); ok {
		product.RemoteID = asString(v)
	}
	if v, ok := c.lookup(item, "name"); ok {
		product.Name = asString(v)
	}
	if v, ok := c.lookup(item, "sku"); ok {
		product.SKU = asString(v)
	}
	if v, ok := c.lookup(item, "barcode"); ok {
		product.Barcode = asString(v)
	}
	if v, ok := c.lookup(item, "price"); ok {
		if f, ok := asFloat(v); ok {
			product.Price = &f
		}
	}
	if v, ok := c.lookup(item, "stock"); ok {
		if f, ok := asFloat(v); ok {
			n := int(f)
			product.Stock = &n
		}
	}
	if v, ok := c.lookup(item, "status"); ok {
		product.Status = asString(v)
	}
	if v, ok := c.lookup(item, "url"); ok {
		product.CanonicalURL = asString(v)
	}
	if product.CanonicalURL == "" && product.RemoteID != "" {
		product.CanonicalURL = c.baseURL + c.productsEndpoint + "/" + product.RemoteID
	}
	return product
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
