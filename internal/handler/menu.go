package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/barista-pos/internal/domain/menu"
)

func (h *Handler) listMenu(w http.ResponseWriter, _ *http.Request) {
	items := h.catalog.List()
	writeOK(w, http.StatusOK, "Menu retrieved successfully", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, it := range items {
				encodeMenuItem(e, it)
			}
		})
	})
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, fail(http.StatusBadRequest, msgInvalidMenuID))
		return
	}
	it, err := h.catalog.Get(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Menu item retrieved successfully", func(e *jx.Encoder) {
		encodeMenuItem(e, it)
	})
}

func encodeMenuItem(e *jx.Encoder, it menu.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(it.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Int64(it.Price) })
	})
}
