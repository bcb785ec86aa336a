package bsale

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

// Client implements StoreAdapter for Bsale using its v1 REST API. Bsale
// paginates with limit/offset and authenticates with an access_token header.
// The API is read-only for our purposes.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
}

// NewClient creates a new Bsale client
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
		rps = 5
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
	return models.PlatformBsale
}

// TestConnection verifies the token by fetching a single variant
func (c *Client) TestConnection(ctx context.Context) (*clients.ConnectionTestResult, error) {
	params := url.Values{}
	params.Set("limit", "1")
	body, err := c.doRequest(ctx, "GET", "/v1/variants.json", params)
	if err != nil {
		return &clients.ConnectionTestResult{Success: false, Message: err.Error()}, nil
	}

	var response variantList
	if err := json.Unmarshal(body, &response); err != nil {
		return &clients.ConnectionTestResult{Success: false, Message: "unexpected response from Bsale"}, nil
	}

	count := response.Count
	return &clients.ConnectionTestResult{
		Success:      true,
		Message:      fmt.Sprintf("Bsale connection OK, %d variants", count),
		ProductCount: &count,
	}, nil
}

// FetchProducts retrieves one page of variants. Bsale tracks stock and codes
// per variant, so variants are the sync unit.
func (c *Client) FetchProducts(ctx context.Context, page, perPage int) ([]clients.RemoteProduct, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(perPage))
	params.Set("offset", strconv.Itoa((page-1)*perPage))
	params.Set("expand", "[product]")

	body, err := c.doRequest(ctx, "GET", "/v1/variants.json", params)
	if err != nil {
		return nil, err
	}

	var response variantList
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse variants response: %w", err)
	}

	products := make([]clients.RemoteProduct, 0, len(response.Items))
	for _, v := range response.Items {
		products = append(products, c.convertVariant(v))
	}
	return products, nil
}

// FetchProductCount returns the remote variant count
func (c *Client) FetchProductCount(ctx context.Context) (int, error) {
	params := url.Values{}
	params.Set("limit", "1")
	body, err := c.doRequest(ctx, "GET", "/v1/variants.json", params)
	if err != nil {
		return -1, err
	}
	var response variantList
	if err := json.Unmarshal(body, &response); err != nil {
		return -1, fmt.Errorf("failed to parse variants response: %w", err)
	}
	return response.Count, nil
}

// PushProductUpdate is not supported; Bsale is treated as a read-only source
func (c *Client) PushProductUpdate(ctx context.Context, remoteID, field string, value *string) error {
	return clients.ErrPushUnsupported
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := c.retrier.DoHTTP(ctx, "bsale "+method+" "+path, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("access_token", c.accessToken)
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
		return nil, fmt.Errorf("bsale API error %d: %s", resp.StatusCode, body)
	}
	return respBody, nil
}

type variantList struct {
	Count int            `json:"count"`
	Items []bsaleVariant `json:"items"`
}

type bsaleVariant struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	BarCode     string `json:"barCode"`
	Description string `json:"description"`
	State       int    `json:"state"`
	Href        string `json:"href"`
	Product     *struct {
		Name  string `json:"name"`
		State int    `json:"state"`
	} `json:"product"`
}

func (c *Client) convertVariant(v bsaleVariant) clients.RemoteProduct {
	name := v.Description
	if v.Product != nil && v.Product.Name != "" {
		name = v.Product.Name
		if v.Description != "" && v.Description != v.Product.Name {
			name = v.Product.Name + " " + v.Description
		}
	}

	canonicalURL := v.Href
	if canonicalURL == "" {
		canonicalURL = fmt.Sprintf("%s/v1/variants/%d.json", c.baseURL, v.ID)
	}

	product := clients.RemoteProduct{
		RemoteID:     strconv.FormatInt(v.ID, 10),
		Name:         name,
		SKU:          v.Code,
		Barcode:      v.BarCode,
		CanonicalURL: canonicalURL,
	}
	// Bsale state 0 means active, 1 means inactive/deleted
	if v.State == 0 {
		product.Status = "active"
	} else {
		product.Status = "inactive"
	}
	return product
}
