package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/barista-pos/internal/domain/order"
)

// AnalyticsDays is the trailing window used when analytics and top items
// queries carry no dates.
const AnalyticsDays = 30

// Overview is the aggregate of all orders in a window, computed by the store.
type Overview struct {
	TotalOrders   int64
	TotalRevenue  decimal.Decimal
	TotalItems    int64
	AvgOrderValue decimal.Decimal
}

// Day is one calendar day of the analytics breakdown.
type Day struct {
	Date    string
	Orders  int64
	Revenue decimal.Decimal
	Items   int64
}

// Repository reads the order ledger for reporting.
type Repository interface {
	// ListOrders returns orders created in [from, to), newest first. An
	// empty ownerID selects every owner.
	ListOrders(ctx context.Context, from, to time.Time, ownerID string) ([]order.Order, error)
	// Overview aggregates orders created in [from, to).
	Overview(ctx context.Context, from, to time.Time) (Overview, error)
	// DailyBreakdown groups orders created in [from, to) by calendar day in
	// loc, newest day first.
	DailyBreakdown(ctx context.Context, from, to time.Time, loc *time.Location) ([]Day, error)
}

// OrderReader fetches a single order of an owner.
type OrderReader interface {
	Get(ctx context.Context, ownerID, id string) (*order.Order, error)
}

// Query selects the orders of a sales report.
type Query struct {
	StartDate string
	EndDate   string
	Shift     string
}

// Report is a sales summary together with the matching orders.
type Report struct {
	Window Window
	Stats  Stats
	Orders []order.Order
}

// Analytics is the overview of a trailing window plus its per-day breakdown.
type Analytics struct {
	Window   Window
	Overview Overview
	Daily    []Day
}

// TopItems is the best selling items of a window.
type TopItems struct {
	Window Window
	Items  []TopItem
}

// Receipt is the printable view of one order.
type Receipt struct {
	OrderID        string
	Number         string
	Lines          []order.Line
	TotalAmount    int64
	FormattedTotal string
	Currency       string
	CreatedAt      time.Time
	Barista        order.Owner
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider for report spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("github.com/xenking/barista-pos/internal/domain/sales") }
}

// WithClock overrides the time source used for default windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone of calendar days and shifts.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithCurrency sets the currency code printed on receipts.
func WithCurrency(code string) Option {
	return func(s *Service) { s.currency = code }
}

// Service computes sales reports from the order ledger.
type Service struct {
	repo     Repository
	orders   OrderReader
	tracer   trace.Tracer
	now      func() time.Time
	loc      *time.Location
	currency string
}

// NewService creates a sales Service.
func NewService(repo Repository, orders OrderReader, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		orders:   orders,
		tracer:   tracenoop.NewTracerProvider().Tracer(""),
		now:      time.Now,
		loc:      time.UTC,
		currency: "TZS",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Daily summarizes the orders of every owner.
func (s *Service) Daily(ctx context.Context, q Query) (*Report, error) {
	return s.report(ctx, "sales.Daily", q, "")
}

// User summarizes the orders placed by ownerID.
func (s *Service) User(ctx context.Context, ownerID string, q Query) (*Report, error) {
	return s.report(ctx, "sales.User", q, ownerID)
}

func (s *Service) report(ctx context.Context, name string, q Query, ownerID string) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()

	shift, err := ParseShift(q.Shift)
	if err != nil {
		return nil, err
	}
	w, err := DayWindow(q.StartDate, q.EndDate, shift, s.loc, s.now())
	if err != nil {
		return nil, err
	}

	all, err := s.repo.ListOrders(ctx, w.From, w.To, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	matched := make([]order.Order, 0, len(all))
	for _, o := range all {
		if w.Contains(o.CreatedAt) {
			matched = append(matched, o)
		}
	}
	span.SetAttributes(attribute.Int("sales.orders", len(matched)))

	return &Report{
		Window: w,
		Stats:  Summarize(matched, SummaryTopItems),
		Orders: matched,
	}, nil
}

// Analytics computes the overview and daily breakdown of a trailing window.
func (s *Service) Analytics(ctx context.Context, startDate, endDate string) (*Analytics, error) {
	ctx, span := s.tracer.Start(ctx, "sales.Analytics")
	defer span.End()

	w, err := TrailingWindow(startDate, endDate, AnalyticsDays, s.loc, s.now())
	if err != nil {
		return nil, err
	}

	var (
		overview Overview
		daily    []Day
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if overview, err = s.repo.Overview(gctx, w.From, w.To); err != nil {
			return errors.Wrap(err, "overview")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if daily, err = s.repo.DailyBreakdown(gctx, w.From, w.To, w.Location()); err != nil {
			return errors.Wrap(err, "daily breakdown")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overview.AvgOrderValue = decimal.Zero
	if overview.TotalOrders > 0 {
		overview.AvgOrderValue = overview.TotalRevenue.
			Div(decimal.NewFromInt(overview.TotalOrders)).
			Round(0)
	}
	if daily == nil {
		daily = []Day{}
	}
	return &Analytics{Window: w, Overview: overview, Daily: daily}, nil
}

// TopItems ranks the best selling items of a trailing window. A non-positive
// limit selects DefaultTopItems.
func (s *Service) TopItems(ctx context.Context, startDate, endDate string, limit int) (*TopItems, error) {
	ctx, span := s.tracer.Start(ctx, "sales.TopItems")
	defer span.End()

	if limit <= 0 {
		limit = DefaultTopItems
	}
	w, err := TrailingWindow(startDate, endDate, AnalyticsDays, s.loc, s.now())
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, w.From, w.To, "")
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return &TopItems{Window: w, Items: RankItems(orders, limit)}, nil
}

// Receipt builds the receipt of one of ownerID's orders.
func (s *Service) Receipt(ctx context.Context, ownerID, orderID string) (*Receipt, error) {
	o, err := s.orders.Get(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		OrderID:        o.ID,
		Number:         ReceiptNumber(o.CreatedAt),
		Lines:          o.Lines,
		TotalAmount:    o.TotalAmount,
		FormattedTotal: FormatAmount(o.TotalAmount),
		Currency:       s.currency,
		CreatedAt:      o.CreatedAt,
		Barista:        o.Owner,
	}, nil
}

// ReceiptNumber derives a receipt number from the UTC order date and the last
// five digits of its Unix millisecond timestamp.
func ReceiptNumber(createdAt time.Time) string {
	ms := createdAt.UnixMilli() % 100000
	return fmt.Sprintf("%s-%05d", createdAt.UTC().Format(DateLayout), ms)
}

// FormatAmount renders an amount in minor units with two decimal places.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
