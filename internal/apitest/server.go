// Package apitest hosts an in-memory double of the AdoptiPet backend for
// integration tests. It speaks the same envelope shapes as the real API and
// implements the server-side cart semantics the client relies on (quantity
// merge on add, 404 for a missing cart or line).
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry joined into cart lines.
type Product struct {
	ID    string          `json:"_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

type cartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type cartPayload struct {
	Items      []cartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Server is the fake backend. One instance models one user's session.
type Server struct {
	HTTP *httptest.Server

	mu       sync.Mutex
	token    string
	email    string
	password string
	products map[string]Product
	order    []string
	lines    map[string]int
	hasCart  bool
	annonces  []Annonce
	adoptions []Adoption
	nextID    int
}

// Adoption is a browsable adoption listing.
type Adoption struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Species string `json:"species"`
	City    string `json:"city,omitempty"`
}

// Annonce is a user-submitted listing as stored by the fake backend.
type Annonce struct {
	ID          string `json:"_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	City        string `json:"city,omitempty"`
}

// New starts the fake backend. Callers own shutdown via Close.
func New() *Server {
	s := &Server{
		products: map[string]Product{},
		lines:    map[string]int{},
	}

	r := chi.NewRouter()
	r.Post("/auth/login", s.handleLogin)
	r.Get("/produits", s.handleListProducts)
	r.Get("/produits/{productID}", s.handleGetProduct)
	r.Get("/adoptions", s.handleListAdoptions)

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/panier", s.handleFetchCart)
		r.Post("/panier", s.handleAddItem)
		r.Post("/panier/clear", s.handleClearCart)
		r.Patch("/panier/{productID}", s.handleUpdateQuantity)
		r.Delete("/panier/{productID}", s.handleRemoveItem)
		r.Post("/annonces", s.handleCreateAnnonce)
		r.Get("/annonces/mine", s.handleMyAnnonces)
		r.Delete("/annonces/{annonceID}", s.handleDeleteAnnonce)
	})

	s.HTTP = httptest.NewServer(r)
	return s
}

func (s *Server) Close() {
	s.HTTP.Close()
}

func (s *Server) URL() string {
	return s.HTTP.URL
}

// SeedUser registers login credentials and the token the login handler mints.
func (s *Server) SeedUser(email, password, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = email
	s.password = password
	s.token = token
}

// SeedProduct adds a catalog entry.
func (s *Server) SeedProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// SeedCart pre-populates the user's cart.
func (s *Server) SeedCart(quantities map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasCart = true
	s.lines = map[string]int{}
	s.order = nil
	for id, qty := range quantities {
		s.lines[id] = qty
		s.order = append(s.order, id)
	}
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		expected := s.token
		s.mu.Unlock()

		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if expected == "" || got != expected {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentification requise")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "corps de requete invalide")
		return
	}

	s.mu.Lock()
	ok := payload.Email == s.email && payload.Password == s.password
	token := s.token
	email := s.email
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "email ou mot de passe incorrect")
		return
	}
	writeSuccess(w, map[string]any{
		"token": token,
		"user":  map[string]any{"_id": "u1", "email": email},
	})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	writeSuccess(w, list)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[chi.URLParam(r, "productID")]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "produit introuvable")
		return
	}
	writeSuccess(w, p)
}

// SeedAdoption adds a browsable adoption listing.
func (s *Server) SeedAdoption(a Adoption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adoptions = append(s.adoptions, a)
}

func (s *Server) handleListAdoptions(w http.ResponseWriter, r *http.Request) {
	species := r.URL.Query().Get("species")

	s.mu.Lock()
	defer s.mu.Unlock()
	list := []Adoption{}
	for _, a := range s.adoptions {
		if species != "" && a.Species != species {
			continue
		}
		list = append(list, a)
	}
	writeSuccess(w, list)
}

func (s *Server) handleFetchCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasCart {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "panier vide")
		return
	}
	writeSuccess(w, s.cartLocked())
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ProductID == "" || payload.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantite invalide")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[payload.ProductID]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "produit introuvable")
		return
	}
	s.hasCart = true
	if _, exists := s.lines[payload.ProductID]; !exists {
		s.order = append(s.order, payload.ProductID)
	}
	s.lines[payload.ProductID] += payload.Quantity
	writeSuccess(w, s.cartLocked())
}

func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantite invalide")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lines[productID]; !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "ligne introuvable")
		return
	}
	s.lines[productID] = payload.Quantity
	writeSuccess(w, s.cartLocked())
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lines[productID]; !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "ce produit n'est pas dans le panier")
		return
	}
	delete(s.lines, productID)
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	writeSuccess(w, s.cartLocked())
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = map[string]int{}
	s.order = nil
	s.hasCart = true
	writeSuccess(w, map[string]any{"cleared": true})
}

func (s *Server) handleCreateAnnonce(w http.ResponseWriter, r *http.Request) {
	var payload Annonce
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Title == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "annonce invalide")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	payload.ID = "a" + strconv.Itoa(s.nextID)
	s.annonces = append(s.annonces, payload)
	writeSuccess(w, payload)
}

func (s *Server) handleMyAnnonces(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Annonce, len(s.annonces))
	copy(list, s.annonces)
	writeSuccess(w, list)
}

func (s *Server) handleDeleteAnnonce(w http.ResponseWriter, r *http.Request) {
	annonceID := chi.URLParam(r, "annonceID")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.annonces {
		if a.ID == annonceID {
			s.annonces = append(s.annonces[:i], s.annonces[i+1:]...)
			writeSuccess(w, map[string]any{"deleted": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "annonce introuvable")
}

func (s *Server) cartLocked() cartPayload {
	payload := cartPayload{Items: []cartLine{}, TotalPrice: decimal.Zero}
	for _, id := range s.order {
		qty, ok := s.lines[id]
		if !ok {
			continue
		}
		product := s.products[id]
		payload.Items = append(payload.Items, cartLine{Product: product, Quantity: qty})
		payload.TotalPrice = payload.TotalPrice.Add(product.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return payload
}

func writeSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}
