package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/adoptipet/adoptipet-client/internal/httpapi"
	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
)

// Product is a shop catalog entry.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
}

// AdoptionListing is a browsable adoption profile.
type AdoptionListing struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Species     string `json:"species"`
	Age         int    `json:"age,omitempty"`
	City        string `json:"city,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// ProductFilter narrows a product listing. Zero values mean "no filter".
type ProductFilter struct {
	Category string
	MaxPrice *decimal.Decimal
	Page     int
	Limit    int
}

// AdoptionFilter narrows an adoption listing.
type AdoptionFilter struct {
	Species string
	City    string
	Page    int
	Limit   int
}

// Client is the read-side of the catalog: public endpoints, no session
// required.
type Client struct {
	api *httpapi.Client
}

func NewClient(api *httpapi.Client) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("http client required")
	}
	return &Client{api: api}, nil
}

func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.MaxPrice != nil {
		query.Set("maxPrice", filter.MaxPrice.String())
	}
	addPagination(query, filter.Page, filter.Limit)

	var products []Product
	if err := c.api.DoPublic(ctx, "catalog.products", http.MethodGet, withQuery("/produits", query), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	var product Product
	if err := c.api.DoPublic(ctx, "catalog.product", http.MethodGet, "/produits/"+productID, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ListAdoptions(ctx context.Context, filter AdoptionFilter) ([]AdoptionListing, error) {
	query := url.Values{}
	if filter.Species != "" {
		query.Set("species", filter.Species)
	}
	if filter.City != "" {
		query.Set("city", filter.City)
	}
	addPagination(query, filter.Page, filter.Limit)

	var listings []AdoptionListing
	if err := c.api.DoPublic(ctx, "catalog.adoptions", http.MethodGet, withQuery("/adoptions", query), nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func addPagination(query url.Values, page, limit int) {
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
