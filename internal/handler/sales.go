package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/barista-pos/internal/domain/sales"
	"github.com/xenking/barista-pos/internal/wire"
)

func salesQuery(r *http.Request) sales.Query {
	q := r.URL.Query()
	return sales.Query{
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Shift:     q.Get("shift"),
	}
}

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	rep, err := h.sales.Daily(r.Context(), salesQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Sales summary retrieved successfully", func(e *jx.Encoder) {
		encodeReport(e, rep)
	})
}

func (h *Handler) userSales(w http.ResponseWriter, r *http.Request) {
	rep, err := h.sales.User(r.Context(), currentUser(r).ID, salesQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "User sales summary retrieved successfully", func(e *jx.Encoder) {
		encodeReport(e, rep)
	})
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	q := salesQuery(r)
	a, err := h.sales.Analytics(r.Context(), q.StartDate, q.EndDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Sales analytics retrieved successfully", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("overview", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("totalOrders", func(e *jx.Encoder) { e.Int64(a.Overview.TotalOrders) })
					e.Field("totalRevenue", func(e *jx.Encoder) { encodeDecimal(e, a.Overview.TotalRevenue) })
					e.Field("totalItems", func(e *jx.Encoder) { e.Int64(a.Overview.TotalItems) })
					e.Field("averageOrderValue", func(e *jx.Encoder) { encodeDecimal(e, a.Overview.AvgOrderValue) })
				})
			})
			e.Field("dailyBreakdown", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, d := range a.Daily {
						e.Obj(func(e *jx.Encoder) {
							e.Field("date", func(e *jx.Encoder) { e.Str(d.Date) })
							e.Field("orders", func(e *jx.Encoder) { e.Int64(d.Orders) })
							e.Field("revenue", func(e *jx.Encoder) { encodeDecimal(e, d.Revenue) })
							e.Field("items", func(e *jx.Encoder) { e.Int64(d.Items) })
						})
					}
				})
			})
			e.Field("dateRange", func(e *jx.Encoder) { encodeWindow(e, a.Window) })
		})
	})
}

func (h *Handler) topItems(w http.ResponseWriter, r *http.Request) {
	q := salesQuery(r)
	top, err := h.sales.TopItems(r.Context(), q.StartDate, q.EndDate, queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Top selling items retrieved successfully", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) { encodeTopItems(e, top.Items) })
			e.Field("dateRange", func(e *jx.Encoder) { encodeWindow(e, top.Window) })
		})
	})
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	rc, err := h.sales.Receipt(r.Context(), currentUser(r).ID, chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Receipt data retrieved successfully", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("receipt", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("orderId", func(e *jx.Encoder) { e.Str(rc.OrderID) })
					e.Field("receiptNumber", func(e *jx.Encoder) { e.Str(rc.Number) })
					e.Field("items", func(e *jx.Encoder) { wire.EncodeLines(e, rc.Lines) })
					e.Field("totalAmount", func(e *jx.Encoder) { e.Int64(rc.TotalAmount) })
					e.Field("formattedTotal", func(e *jx.Encoder) { e.Str(rc.FormattedTotal) })
					e.Field("currency", func(e *jx.Encoder) { e.Str(rc.Currency) })
					e.Field("createdAt", func(e *jx.Encoder) { wire.EncodeTime(e, rc.CreatedAt) })
					e.Field("barista", func(e *jx.Encoder) {
						e.Obj(func(e *jx.Encoder) {
							e.Field("name", func(e *jx.Encoder) { e.Str(rc.Barista.Name) })
							e.Field("email", func(e *jx.Encoder) { e.Str(rc.Barista.Email) })
						})
					})
				})
			})
		})
	})
}

func encodeReport(e *jx.Encoder, rep *sales.Report) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("stats", func(e *jx.Encoder) { encodeStats(e, rep.Stats) })
		e.Field("orders", func(e *jx.Encoder) { wire.EncodeOrders(e, rep.Orders) })
		e.Field("dateRange", func(e *jx.Encoder) { encodeWindow(e, rep.Window) })
		if rep.Window.Shift != sales.ShiftAll {
			e.Field("shift", func(e *jx.Encoder) { e.Str(string(rep.Window.Shift)) })
		}
	})
}

func encodeStats(e *jx.Encoder, s sales.Stats) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("totalOrders", func(e *jx.Encoder) { e.Int(s.TotalOrders) })
		e.Field("totalRevenue", func(e *jx.Encoder) { e.Int64(s.TotalRevenue) })
		e.Field("totalItems", func(e *jx.Encoder) { e.Int(s.TotalItems) })
		e.Field("avgOrderValue", func(e *jx.Encoder) { encodeDecimal(e, s.AvgOrderValue) })
		e.Field("topItems", func(e *jx.Encoder) { encodeTopItems(e, s.TopItems) })
	})
}

func encodeTopItems(e *jx.Encoder, items []sales.TopItem) {
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Int(it.ID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
				e.Field("revenue", func(e *jx.Encoder) { e.Int64(it.Revenue) })
			})
		}
	})
}

// encodeWindow writes the effective range as {startDate, endDate}; endDate
// is exclusive.
func encodeWindow(e *jx.Encoder, w sales.Window) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("startDate", func(e *jx.Encoder) { wire.EncodeTime(e, w.From) })
		e.Field("endDate", func(e *jx.Encoder) { wire.EncodeTime(e, w.To) })
	})
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}
