package order

import (
	"fmt"
	"math"

	"github.com/go-faster/errors"

	"github.com/xenking/barista-pos/internal/domain/menu"
)

// ErrEmptyItems is returned for a submission without lines.
var ErrEmptyItems = errors.New("at least one item is required")

// ErrTotalsOverflow is returned by Recompute when the totals of the lines do
// not fit the amount or count types.
var ErrTotalsOverflow = errors.New("order totals are out of range")

// MaxQuantity bounds the quantity of a single line.
const MaxQuantity = 1000

// Submission is an order as sent by a client, including the totals the
// client computed on its side.
type Submission struct {
	Lines       []Line
	TotalAmount int64
	ItemCount   int
}

// Field names reported by IntegrityError.
const (
	FieldName        = "name"
	FieldPrice       = "price"
	FieldTotalAmount = "totalAmount"
	FieldItemCount   = "itemCount"
)

// UnknownItemError indicates a line referencing an id absent from the catalog.
type UnknownItemError struct {
	ItemID int
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("menu item with ID %d not found", e.ItemID)
}

// InvalidQuantityError indicates a line with a quantity outside
// [1, MaxQuantity].
type InvalidQuantityError struct {
	ItemID   int
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	if e.Quantity > MaxQuantity {
		return fmt.Sprintf("quantity must not exceed %d for item %d", MaxQuantity, e.ItemID)
	}
	return fmt.Sprintf("quantity must be greater than 0 for item %d", e.ItemID)
}

// IntegrityError indicates submitted data that disagrees with the catalog or
// with the server-side recomputation of the totals.
type IntegrityError struct {
	// ItemID and Item are set for line-level mismatches.
	ItemID int
	Item   string
	Field  string
	Want   int64
	Got    int64
}

func (e *IntegrityError) Error() string {
	switch e.Field {
	case FieldTotalAmount:
		return "total amount does not match calculated total"
	case FieldItemCount:
		return "item count does not match calculated count"
	default:
		return fmt.Sprintf("item details do not match menu for item: %s", e.Item)
	}
}

// Totals are the server-side recomputed order totals.
type Totals struct {
	Amount    int64
	ItemCount int
}

// Validate checks every line of s against the catalog and recomputes the
// totals from catalog prices. Any mismatch rejects the whole submission. The
// returned lines are copies of the catalog entries, safe to store.
func Validate(c *menu.Catalog, s Submission) ([]Line, Totals, error) {
	if len(s.Lines) == 0 {
		return nil, Totals{}, ErrEmptyItems
	}

	lines := make([]Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		item, err := c.Get(l.ID)
		if err != nil {
			return nil, Totals{}, &UnknownItemError{ItemID: l.ID}
		}
		if l.Name != item.Name {
			return nil, Totals{}, &IntegrityError{ItemID: l.ID, Item: l.Name, Field: FieldName}
		}
		if l.Price != item.Price {
			return nil, Totals{}, &IntegrityError{
				ItemID: l.ID, Item: l.Name, Field: FieldPrice,
				Want: item.Price, Got: l.Price,
			}
		}
		if l.Quantity <= 0 || l.Quantity > MaxQuantity {
			return nil, Totals{}, &InvalidQuantityError{ItemID: l.ID, Quantity: l.Quantity}
		}

		lines = append(lines, Line{ID: item.ID, Name: item.Name, Price: item.Price, Quantity: l.Quantity})
	}

	t, err := Recompute(lines)
	if err != nil {
		return nil, Totals{}, &IntegrityError{Field: FieldTotalAmount, Got: s.TotalAmount}
	}
	if t.Amount != s.TotalAmount {
		return nil, Totals{}, &IntegrityError{Field: FieldTotalAmount, Want: t.Amount, Got: s.TotalAmount}
	}
	if t.ItemCount != s.ItemCount {
		return nil, Totals{}, &IntegrityError{
			Field: FieldItemCount, Want: int64(t.ItemCount), Got: int64(s.ItemCount),
		}
	}
	return lines, t, nil
}

// Recompute sums the amounts and quantities of lines at their recorded
// prices. Negative values or sums that do not fit yield ErrTotalsOverflow.
func Recompute(lines []Line) (Totals, error) {
	var t Totals
	for _, l := range lines {
		if l.Price < 0 || l.Quantity < 0 {
			return Totals{}, ErrTotalsOverflow
		}
		if l.Quantity > math.MaxInt-t.ItemCount {
			return Totals{}, ErrTotalsOverflow
		}
		if l.Price > 0 && int64(l.Quantity) > (math.MaxInt64-t.Amount)/l.Price {
			return Totals{}, ErrTotalsOverflow
		}
		t.Amount += l.Amount()
		t.ItemCount += l.Quantity
	}
	return t, nil
}

// rejectReason classifies a validation failure for metrics.
func rejectReason(err error) string {
	var (
		unknown *UnknownItemError
		qty     *InvalidQuantityError
		integ   *IntegrityError
	)
	switch {
	case errors.Is(err, ErrEmptyItems):
		return "empty"
	case errors.As(err, &unknown):
		return "unknown_item"
	case errors.As(err, &qty):
		return "quantity"
	case errors.As(err, &integ):
		return integ.Field
	default:
		return "other"
	}
}
