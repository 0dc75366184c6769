package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/barista-pos/internal/domain/menu"
)

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the publisher notified after an order is stored.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMeterProvider sets the meter provider for order metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for order spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("github.com/xenking/barista-pos/internal/domain/order") }
}

// WithClock overrides the time source used to stamp new orders.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service places and reads orders.
type Service struct {
	catalog   *menu.Catalog
	orders    Repository
	publisher Publisher
	now       func() time.Time

	meterProvider metric.MeterProvider
	tracer        trace.Tracer
	created       metric.Int64Counter
	rejected      metric.Int64Counter
	amount        metric.Int64Histogram
}

// NewService creates an order Service backed by the catalog and repository.
func NewService(catalog *menu.Catalog, orders Repository, opts ...Option) (*Service, error) {
	s := &Service{
		catalog:       catalog,
		orders:        orders,
		publisher:     nopPublisher{},
		now:           time.Now,
		meterProvider: metricnoop.NewMeterProvider(),
		tracer:        tracenoop.NewTracerProvider().Tracer(""),
	}
	for _, o := range opts {
		o(s)
	}

	meter := s.meterProvider.Meter("github.com/xenking/barista-pos/internal/domain/order")
	var err error
	if s.created, err = meter.Int64Counter("pos.orders.created",
		metric.WithDescription("Orders stored in the ledger"),
	); err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	if s.rejected, err = meter.Int64Counter("pos.orders.rejected",
		metric.WithDescription("Order submissions rejected by the integrity check"),
	); err != nil {
		return nil, errors.Wrap(err, "orders rejected counter")
	}
	if s.amount, err = meter.Int64Histogram("pos.order.amount",
		metric.WithDescription("Total amount of stored orders in minor units"),
	); err != nil {
		return nil, errors.Wrap(err, "order amount histogram")
	}
	return s, nil
}

// Create validates the submission against the catalog and appends it to the
// ledger on behalf of owner. Nothing is stored when validation fails.
func (s *Service) Create(ctx context.Context, owner Owner, sub Submission) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Create",
		trace.WithAttributes(attribute.Int("order.lines", len(sub.Lines))),
	)
	defer span.End()

	lines, totals, err := Validate(s.catalog, sub)
	if err != nil {
		reason := rejectReason(err)
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		span.SetStatus(codes.Error, reason)
		return nil, err
	}

	o := &Order{
		ID:          uuid.New().String(),
		Owner:       owner,
		Lines:       lines,
		TotalAmount: totals.Amount,
		ItemCount:   totals.ItemCount,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store order")
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	s.created.Add(ctx, 1)
	s.amount.Record(ctx, o.TotalAmount)

	if err := s.publisher.OrderCreated(ctx, o); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
	return o, nil
}

// Get returns the order with the given id when it belongs to ownerID.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	o, err := s.orders.GetForOwner(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

// List returns a page of the owner's orders, newest first.
func (s *Service) List(ctx context.Context, ownerID string, req PageRequest) (*Page, error) {
	req = req.normalize()
	offset := (req.Page - 1) * req.Limit

	var (
		orders []Order
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if orders, err = s.orders.ListByOwner(gctx, ownerID, req.Limit, offset); err != nil {
			return errors.Wrap(err, "list orders")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if total, err = s.orders.CountByOwner(gctx, ownerID); err != nil {
			return errors.Wrap(err, "count orders")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalPages := (total + req.Limit - 1) / req.Limit
	return &Page{
		Orders:      orders,
		CurrentPage: req.Page,
		TotalPages:  totalPages,
		TotalOrders: total,
		HasNextPage: req.Page < totalPages,
		HasPrevPage: req.Page > 1,
	}, nil
}
