// Package handler implements the JSON API of the POS service on top of chi.
package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/barista-pos/internal/domain/auth"
	"github.com/xenking/barista-pos/internal/domain/menu"
	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/domain/sales"
	"github.com/xenking/barista-pos/internal/wire"
)

// maxBodySize bounds request bodies.
const maxBodySize = 10 << 20

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// Development adds error details to failure responses.
	Development bool
	// CrossSiteCookie marks the session cookie Secure with SameSite=None,
	// for a frontend served from another HTTPS origin.
	CrossSiteCookie bool
}

// Handler serves the /api routes.
type Handler struct {
	auth    *auth.Service
	catalog *menu.Catalog
	orders  *order.Service
	sales   *sales.Service

	dev       bool
	crossSite bool
}

// New constructs a Handler with the required domain services.
func New(
	cfg Config,
	authService *auth.Service,
	catalog *menu.Catalog,
	orders *order.Service,
	salesService *sales.Service,
) *Handler {
	return &Handler{
		auth:      authService,
		catalog:   catalog,
		orders:    orders,
		sales:     salesService,
		dev:       cfg.Development,
		crossSite: cfg.CrossSiteCookie,
	}
}

// Register mounts the API on r, along with envelope-shaped 404 and 405
// responses for everything else.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth)
				r.Post("/logout", h.logout)
				r.Get("/me", h.me)
				r.Get("/check", h.check)
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Route("/menu", func(r chi.Router) {
				r.Get("/", h.listMenu)
				r.Get("/{id}", h.getMenuItem)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.createOrder)
				r.Get("/", h.listOrders)
				r.Get("/{id}", h.getOrder)
			})
			r.Route("/sales", func(r chi.Router) {
				r.Get("/daily", h.dailySales)
				r.Get("/user", h.userSales)
				r.Get("/analytics", h.analytics)
				r.Get("/top-items", h.topItems)
				r.Get("/receipt/{orderId}", h.receipt)
			})
		})
	})
	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, fail(http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", r.URL.RequestURI())))
}

// decodeObject reads a JSON object body, calling fn for every key.
// Malformed bodies yield a 400 and field-level problems a *wire.FieldError.
func decodeObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fail(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return errors.Wrap(err, "read body")
	}

	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return fail(http.StatusBadRequest, msgInvalidJSON)
	}
	if err := d.Obj(fn); err != nil {
		var fe *wire.FieldError
		if errors.As(err, &fe) {
			return fe
		}
		return fail(http.StatusBadRequest, msgInvalidJSON)
	}
	return nil
}

// requireFields reports the first of keys absent from seen.
func requireFields(seen map[string]bool, keys ...string) error {
	for _, k := range keys {
		if !seen[k] {
			return &wire.FieldError{Field: k, Message: "is required"}
		}
	}
	return nil
}
