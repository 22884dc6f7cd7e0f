package annonces

import (
	"context"
	"fmt"
	"net/http"

	"github.com/adoptipet/adoptipet-client/internal/httpapi"
	"github.com/adoptipet/adoptipet-client/internal/validate"
	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
)

// Annonce is a user-submitted listing: an animal offered for adoption, a
// fostering request, or a lost-pet notice. New annonces await moderation
// before they appear publicly; that back-office flow is server-side.
type Annonce struct {
	ID          string   `json:"_id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	City        string   `json:"city,omitempty"`
	Photos      []string `json:"photos,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// CreateInput is the submission payload.
type CreateInput struct {
	Type        string   `json:"type" validate:"required,oneof=adoption garde perdu"`
	Title       string   `json:"title" validate:"required,min=3"`
	Description string   `json:"description" validate:"required,min=10"`
	City        string   `json:"city,omitempty"`
	Photos      []string `json:"photos,omitempty" validate:"max=5,dive,url"`
}

// Client drives the authenticated annonce endpoints.
type Client struct {
	api *httpapi.Client
}

func NewClient(api *httpapi.Client) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("http client required")
	}
	return &Client{api: api}, nil
}

// Create submits a new annonce.
func (c *Client) Create(ctx context.Context, input CreateInput) (*Annonce, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	var created Annonce
	if err := c.api.Do(ctx, "annonces.create", http.MethodPost, "/annonces", input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Mine lists the caller's own annonces, whatever their moderation status.
func (c *Client) Mine(ctx context.Context) ([]Annonce, error) {
	var list []Annonce
	if err := c.api.Do(ctx, "annonces.mine", http.MethodGet, "/annonces/mine", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete withdraws one of the caller's annonces.
func (c *Client) Delete(ctx context.Context, annonceID string) error {
	if annonceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "annonceId is required")
	}
	return c.api.Do(ctx, "annonces.delete", http.MethodDelete, "/annonces/"+annonceID, nil, nil)
}
