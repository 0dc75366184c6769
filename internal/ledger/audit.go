package ledger

import (
	"context"
	"io"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/barista-pos/internal/domain/menu"
	"github.com/xenking/barista-pos/internal/domain/order"
)

// Opener opens an archive by name.
type Opener func(name string) (io.ReadCloser, error)

// AuditConfig tunes an audit run.
type AuditConfig struct {
	// ExpectedOrders sizes the duplicate filter.
	ExpectedOrders uint
	// Workers bounds how many archives are read at once.
	Workers int
}

// Finding is an order whose stored data is inconsistent.
type Finding struct {
	Archive string
	OrderID string
	Reason  string
}

// Duplicate is an order id present more than once across archives.
type Duplicate struct {
	OrderID  string
	Archives []string
}

// Report is the outcome of an audit.
type Report struct {
	Orders     int
	Mismatches []Finding
	Drift      []Finding
	Duplicates []Duplicate
}

// OK reports whether the audit found no broken or duplicated orders. Catalog
// drift alone is not a failure since lines are snapshots.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0 && len(r.Duplicates) == 0
}

type record struct {
	archive string
	order   order.Order
}

// Audit reads every archive, checks the stored totals of each order against
// its lines, flags lines that no longer match the catalog and finds order ids
// stored more than once. A bloom filter picks candidate duplicates in a first
// pass; a second pass confirms them exactly.
func Audit(ctx context.Context, catalog *menu.Catalog, archives []string, open Opener, cfg AuditConfig) (*Report, error) {
	if cfg.ExpectedOrders == 0 {
		cfg.ExpectedOrders = 100_000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	report := &Report{}
	filter := bloom.NewWithEstimates(cfg.ExpectedOrders, 0.001)
	candidates := make(map[string]struct{})

	err := scanAll(ctx, archives, open, cfg.Workers, func(archive string, o order.Order) {
		report.Orders++
		if reason := checkTotals(o); reason != "" {
			report.Mismatches = append(report.Mismatches, Finding{Archive: archive, OrderID: o.ID, Reason: reason})
		}
		if reason := checkCatalog(catalog, o); reason != "" {
			report.Drift = append(report.Drift, Finding{Archive: archive, OrderID: o.ID, Reason: reason})
		}
		if filter.TestAndAddString(o.ID) {
			candidates[o.ID] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}

	if len(candidates) > 0 {
		found := make(map[string][]string, len(candidates))
		err := scanAll(ctx, archives, open, cfg.Workers, func(archive string, o order.Order) {
			if _, ok := candidates[o.ID]; ok {
				found[o.ID] = append(found[o.ID], archive)
			}
		})
		if err != nil {
			return nil, err
		}
		for id, in := range found {
			if len(in) > 1 {
				slices.Sort(in)
				report.Duplicates = append(report.Duplicates, Duplicate{OrderID: id, Archives: in})
			}
		}
	}

	byArchive := func(a, b Finding) int {
		if c := strings.Compare(a.Archive, b.Archive); c != 0 {
			return c
		}
		return strings.Compare(a.OrderID, b.OrderID)
	}
	slices.SortFunc(report.Mismatches, byArchive)
	slices.SortFunc(report.Drift, byArchive)
	slices.SortFunc(report.Duplicates, func(a, b Duplicate) int {
		return strings.Compare(a.OrderID, b.OrderID)
	})
	return report, nil
}

// scanAll reads archives concurrently and hands every order to visit from a
// single goroutine.
func scanAll(ctx context.Context, archives []string, open Opener, workers int, visit func(string, order.Order)) error {
	out := make(chan record)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for rec := range out {
			visit(rec.archive, rec.order)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range archives {
		g.Go(func() error {
			f, err := open(name)
			if err != nil {
				return errors.Wrapf(err, "open %s", name)
			}
			defer func() { _ = f.Close() }()

			err = Read(f, func(o order.Order) error {
				select {
				case out <- record{archive: name, order: o}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
			if err != nil {
				return errors.Wrapf(err, "read %s", name)
			}
			return nil
		})
	}
	err := g.Wait()
	close(out)
	<-done
	return err
}

func checkTotals(o order.Order) string {
	if len(o.Lines) == 0 {
		return "order has no lines"
	}
	for _, l := range o.Lines {
		if l.Quantity <= 0 {
			return "non-positive quantity for item " + l.Name
		}
		if l.Quantity > order.MaxQuantity {
			return "quantity above limit for item " + l.Name
		}
	}
	t, err := order.Recompute(o.Lines)
	switch {
	case err != nil:
		return "totals out of range"
	case t.Amount != o.TotalAmount:
		return "total amount does not match lines"
	case t.ItemCount != o.ItemCount:
		return "item count does not match lines"
	}
	return ""
}

func checkCatalog(c *menu.Catalog, o order.Order) string {
	_, _, err := order.Validate(c, order.Submission{
		Lines:       o.Lines,
		TotalAmount: o.TotalAmount,
		ItemCount:   o.ItemCount,
	})
	var (
		unknown *order.UnknownItemError
		integ   *order.IntegrityError
	)
	switch {
	case errors.As(err, &unknown):
		return unknown.Error()
	case errors.As(err, &integ) && (integ.Field == order.FieldName || integ.Field == order.FieldPrice):
		return integ.Error()
	}
	return ""
}
