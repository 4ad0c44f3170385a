package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"storefront/internal/orders/ports"
	"storefront/pkg/errors"
)

// HTTPCatalogClient looks up trusted product prices from the catalog
// service over REST
type HTTPCatalogClient struct {
	baseURL string
	http    *http.Client
}

var _ ports.Catalog = (*HTTPCatalogClient)(nil)

// NewHTTPCatalogClient creates a new catalog client
func NewHTTPCatalogClient(baseURL string, timeout time.Duration) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// productResponse is the catalog service payload
type productResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Price int64  `json:"price"`
	Tax   int64  `json:"tax"`
}

// GetProduct retrieves the product snapshot for a product/size
func (c *HTTPCatalogClient) GetProduct(ctx context.Context, productID, size string) (*ports.ProductInfo, error) {
	endpoint := fmt.Sprintf("%s/api/products/%s?size=%s", c.baseURL, url.PathEscape(productID), url.QueryEscape(size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewInternal("failed to build catalog request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewInternal("catalog request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NewNotFound("product", productID)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.NewInternal(fmt.Sprintf("catalog returned %d", resp.StatusCode), nil)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.NewInternal("failed to decode catalog response", err)
	}

	return &ports.ProductInfo{
		ProductID: body.ID,
		Name:      body.Name,
		Image:     body.Image,
		Size:      size,
		Price:     body.Price,
		Tax:       body.Tax,
	}, nil
}
