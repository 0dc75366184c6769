package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/wire"
)

// decodeSubmission returns a body callback filling sub and marking the keys
// it saw.
func decodeSubmission(sub *order.Submission, seen map[string]bool) func(d *jx.Decoder, key string) error {
	return func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			sub.Lines, err = wire.DecodeLines(d, key)
		case "totalAmount":
			sub.TotalAmount, err = wire.DecodeInt64(d, key)
		case "itemCount":
			sub.ItemCount, err = wire.DecodeInt(d, key)
		default:
			return d.Skip()
		}
		seen[key] = true
		return err
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var (
		sub  order.Submission
		seen = make(map[string]bool, 3)
	)
	err := decodeObject(w, r, decodeSubmission(&sub, seen))
	if err == nil {
		err = requireFields(seen, "items", "totalAmount", "itemCount")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	u := currentUser(r)
	o, err := h.orders.Create(r.Context(), order.Owner{ID: u.ID, Name: u.Name, Email: u.Email}, sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Order created successfully", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
		})
	})
}

// queryInt parses an optional integer query parameter. Missing or malformed
// values read as zero, which the services treat as "use the default".
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.orders.List(r.Context(), currentUser(r).ID, order.PageRequest{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Orders retrieved successfully", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) { wire.EncodeOrders(e, page.Orders) })
			e.Field("pagination", func(e *jx.Encoder) { encodePagination(e, page) })
		})
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Order retrieved successfully", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
		})
	})
}

func encodePagination(e *jx.Encoder, p *order.Page) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("currentPage", func(e *jx.Encoder) { e.Int(p.CurrentPage) })
		e.Field("totalPages", func(e *jx.Encoder) { e.Int(p.TotalPages) })
		e.Field("totalOrders", func(e *jx.Encoder) { e.Int(p.TotalOrders) })
		e.Field("hasNextPage", func(e *jx.Encoder) { e.Bool(p.HasNextPage) })
		e.Field("hasPrevPage", func(e *jx.Encoder) { e.Bool(p.HasPrevPage) })
	})
}
