package cart

import (
	"context"
	"fmt"
	"net/http"

	"github.com/adoptipet/adoptipet-client/internal/httpapi"
	"github.com/adoptipet/adoptipet-client/internal/validate"
	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
)

// API is the cart surface of the backend. The store depends on this interface
// so tests can substitute the network.
type API interface {
	Fetch(ctx context.Context) (*Cart, error)
	Add(ctx context.Context, productID string, quantity int) (*Cart, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) (*Cart, error)
	Remove(ctx context.Context, productID string) (*Cart, error)
	Clear(ctx context.Context) error
}

// Binding translates cart operations into authenticated calls against the
// /panier endpoints.
type Binding struct {
	client *httpapi.Client
}

func NewBinding(client *httpapi.Client) (*Binding, error) {
	if client == nil {
		return nil, fmt.Errorf("http client required")
	}
	return &Binding{client: client}, nil
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=1"`
}

// Fetch returns the current cart. A missing cart surfaces as a NOT_FOUND
// error; the store normalizes that into an empty snapshot.
func (b *Binding) Fetch(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := b.client.Do(ctx, "cart.fetch", http.MethodGet, "/panier", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Add posts a line addition. The backend merges quantities with any existing
// line for the product and returns the full updated cart.
func (b *Binding) Add(ctx context.Context, productID string, quantity int) (*Cart, error) {
	payload := addItemRequest{ProductID: productID, Quantity: quantity}
	if err := validate.Struct(payload); err != nil {
		return nil, err
	}
	var cart Cart
	if err := b.client.Do(ctx, "cart.add", http.MethodPost, "/panier", payload, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateQuantity sets the quantity of an existing line.
func (b *Binding) UpdateQuantity(ctx context.Context, productID string, quantity int) (*Cart, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	payload := updateQuantityRequest{Quantity: quantity}
	if err := validate.Struct(payload); err != nil {
		return nil, err
	}
	var cart Cart
	if err := b.client.Do(ctx, "cart.update", http.MethodPatch, "/panier/"+productID, payload, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Remove deletes a line. A 404 is rewritten into the distinguished
// not-in-cart failure so the UI can tell absence apart from a generic error.
func (b *Binding) Remove(ctx context.Context, productID string) (*Cart, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	var cart Cart
	if err := b.client.Do(ctx, "cart.remove", http.MethodDelete, "/panier/"+productID, nil, &cart); err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotInCart, err, "ce produit n'est pas dans votre panier")
		}
		return nil, err
	}
	return &cart, nil
}

// Clear empties the cart server-side. Callers reset locally rather than
// relying on a returned body.
func (b *Binding) Clear(ctx context.Context) error {
	return b.client.Do(ctx, "cart.clear", http.MethodPost, "/panier/clear", nil, nil)
}

// IsEmptyCart reports whether a Fetch failure means "no cart yet" rather than
// a real error.
func IsEmptyCart(err error) bool {
	return pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound
}
