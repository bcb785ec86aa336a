package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog-harmonization-service/internal/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(clients.Config{
		BaseURL:     serverURL,
		AccessToken: "shpat_test",
		RateLimit:   100,
	})
	require.NoError(t, err)
	return client
}

func strp(s string) *string { return &s }

func TestPushProductUpdate_Name(t *testing.T) {
	var gotMethod, gotPath, gotToken string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.PushProductUpdate(context.Background(), "99", "name", strp("Televisor LED 40"))

	assert.NoError(t, err)
	assert.Equal(t, "PUT", gotMethod)
	assert.Equal(t, "/admin/api/2024-01/products/99.json", gotPath)
	assert.Equal(t, "shpat_test", gotToken)
	assert.Equal(t, map[string]interface{}{
		"product": map[string]interface{}{"id": "99", "title": "Televisor LED 40"},
	}, gotBody)
}

func TestPushProductUpdate_PriceTargetsFirstVariant(t *testing.T) {
	var putPath string
	var putBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "GET":
			assert.Equal(t, "/admin/api/2024-01/products/99.json", r.URL.Path)
			w.Write([]byte(`{"product":{"id":99,"title":"Televisor","variants":[{"id":123,"sku":"TV-40","price":"39.9"}]}}`))
		case "PUT":
			putPath = r.URL.Path
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.PushProductUpdate(context.Background(), "99", "price", strp("49.9"))

	assert.NoError(t, err)
	assert.Equal(t, "/admin/api/2024-01/variants/123.json", putPath)
	assert.Equal(t, map[string]interface{}{
		"variant": map[string]interface{}{"id": float64(123), "price": "49.9"},
	}, putBody)
}

func TestPushProductUpdate_StockIsUnsupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		w.Write([]byte(`{"product":{"id":99,"variants":[{"id":123}]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.PushProductUpdate(context.Background(), "99", "stock", strp("5"))

	assert.ErrorIs(t, err, clients.ErrPushUnsupported)
}
