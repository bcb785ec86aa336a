package shopify

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
	"sync"
	"time"

	"catalog-harmonization-service/internal/clients"
	"catalog-harmonization-service/internal/models"
	"golang.org/x/time/rate"
)

const apiVersion = "2024-01"

// Client implements StoreAdapter for Shopify stores using the Admin REST API.
// Shopify paginates with page_info cursors, so pages beyond the first must be
// fetched in order; the client remembers the cursor between calls.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier

	mu         sync.Mutex
	nextCursor string
	nextPage   int
}

// NewClient creates a new Shopify Admin API client
func NewClient(cfg clients.Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing base URL")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("missing access token")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimit
	if rps == 0 {
		rps = 2 // Shopify REST allows 2 requests per second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		retrier:     clients.NewRetrier(nil),
	}, nil
}

// Platform returns the platform type
func (c *Client) Platform() models.PlatformType {
	return models.PlatformShopify
}

// TestConnection verifies credentials against the shop endpoint
func (c *Client) TestConnection(ctx context.Context) (*clients.ConnectionTestResult, error) {
	if _, _, err := c.doRequest(ctx, "GET", "/shop.json", nil, nil); err != nil {
		return &clients.ConnectionTestResult{Success: false, Message: err.Error()}, nil
	}

	result := &clients.ConnectionTestResult{
		Success: true,
		Message: "Shopify connection OK",
	}
	if count, err := c.FetchProductCount(ctx); err == nil && count >= 0 {
		result.ProductCount = &count
		result.Message = fmt.Sprintf("Shopify connection OK, %d products", count)
	}
	return result, nil
}

// FetchProducts retrieves one page of the remote catalog
func (c *Client) FetchProducts(ctx context.Context, page, perPage int) ([]clients.RemoteProduct, error) {
	c.mu.Lock()
	params := url.Values{}
	params.Set("limit", strconv.Itoa(perPage))
	switch {
	case page == 1:
		c.nextCursor = ""
		c.nextPage = 2
	case page == c.nextPage && c.nextCursor != "":
		params.Set("page_info", c.nextCursor)
		c.nextPage = page + 1
	default:
		c.mu.Unlock()
		return nil, fmt.Errorf("shopify pages must be fetched sequentially, got page %d", page)
	}
	c.mu.Unlock()

	body, headers, err := c.doRequest(ctx, "GET", "/products.json", params, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Products []shopifyProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse products response: %w", err)
	}

	c.mu.Lock()
	c.nextCursor = parseNextCursor(headers.Get("Link"))
	c.mu.Unlock()

	products := make([]clients.RemoteProduct, 0, len(response.Products))
	for _, p := range response.Products {
		products = append(products, c.convertProduct(p))
	}
	return products, nil
}

// FetchProductCount returns the remote catalog size
func (c *Client) FetchProductCount(ctx context.Context) (int, error) {
	body, _, err := c.doRequest(ctx, "GET", "/products/count.json", nil, nil)
	if err != nil {
		return -1, err
	}
	var response struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return -1, fmt.Errorf("failed to parse count response: %w", err)
	}
	return response.Count, nil
}

// PushProductUpdate writes one field of a remote product
func (c *Client) PushProductUpdate(ctx context.Context, remoteID, field string, value *string) error {
	v := ""
	if value != nil {
		v = *value
	}

	product := map[string]interface{}{"id": remoteID}
	switch field {
	case "name":
		product["title"] = v
	case "status":
		status := "draft"
		if v == "active" {
			status = "active"
		}
		product["status"] = status
	case "sku", "price", "stock":
		// Variant-level fields need the variant endpoint
		return c.pushVariantUpdate(ctx, remoteID, field, v)
	default:
		return fmt.Errorf("unsupported push field %q", field)
	}

	payload := map[string]interface{}{"product": product}
	_, _, err := c.doRequest(ctx, "PUT", "/products/"+remoteID+".json", nil, payload)
	return err
}

func (c *Client) pushVariantUpdate(ctx context.Context, remoteID, field, value string) error {
	// Look up the product's first variant, then update it.
	body, _, err := c.doRequest(ctx, "GET", "/products/"+remoteID+".json", nil, nil)
	if err != nil {
		return err
	}
	var response struct {
		Product shopifyProduct `json:"product"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("failed to parse product response: %w", err)
	}
	if len(response.Product.Variants) == 0 {
		return fmt.Errorf("product %s has no variants", remoteID)
	}
	variantID := response.Product.Variants[0].ID

	variant := map[string]interface{}{"id": variantID}
	switch field {
	case "sku":
		variant["sku"] = value
	case "price":
		variant["price"] = value
	case "stock":
		return clients.ErrPushUnsupported // inventory levels need the inventory API
	}

	payload := map[string]interface{}{"variant": variant}
	_, _, err = c.doRequest(ctx, "PUT", "/variants/"+strconv.FormatInt(variantID, 10)+".json", nil, payload)
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload map[string]interface{}) ([]byte, http.Header, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	endpoint := fmt.Sprintf("%s/admin/api/%s%s", c.baseURL, apiVersion, path)
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

	resp, err := c.retrier.DoHTTP(ctx, "shopify "+method+" "+path, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Shopify-Access-Token", c.accessToken)
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
		return nil, nil, fmt.Errorf("shopify API error %d: %s", resp.StatusCode, truncate(respBody))
	}
	return respBody, resp.Header, nil
}

// parseNextCursor extracts the page_info cursor of the rel="next" link
func parseNextCursor(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start == -1 || end == -1 || end <= start {
			continue
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}

func truncate(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

type shopifyProduct struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Handle   string `json:"handle"`
	Status   string `json:"status"`
	Variants []struct {
		ID                int64  `json:"id"`
		SKU               string `json:"sku"`
		Barcode           string `json:"barcode"`
		Price             string `json:"price"`
		InventoryQuantity int    `json:"inventory_quantity"`
	} `json:"variants"`
}

func (c *Client) convertProduct(p shopifyProduct) clients.RemoteProduct {
	product := clients.RemoteProduct{
		RemoteID:     strconv.FormatInt(p.ID, 10),
		Name:         p.Title,
		CanonicalURL: c.baseURL + "/products/" + p.Handle,
	}
	if p.Status == "active" {
		product.Status = "active"
	} else {
		product.Status = "inactive"
	}
	if len(p.Variants) > 0 {
		v := p.Variants[0]
		product.SKU = v.SKU
		product.Barcode = v.Barcode
		if price, err := strconv.ParseFloat(v.Price, 64); err == nil && v.Price != "" {
			product.Price = &price
		}
		stock := v.InventoryQuantity
		product.Stock = &stock
	}
	return product
}
