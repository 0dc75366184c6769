package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an order does not exist or belongs to another owner.
var ErrNotFound = errors.New("order not found")

// Line is a snapshot of a catalog item taken when the order was placed.
// Later catalog changes never rewrite stored lines.
type Line struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Amount returns price times quantity.
func (l Line) Amount() int64 { return l.Price * int64(l.Quantity) }

// Owner identifies the user who placed an order.
type Owner struct {
	ID    string
	Name  string
	Email string
}

// Order is an entry of the append-only ledger.
type Order struct {
	ID          string
	Owner       Owner
	Lines       []Line
	TotalAmount int64
	ItemCount   int
	CreatedAt   time.Time
}

// PageRequest selects a page of an owner's orders. Page is 1-based.
type PageRequest struct {
	Page  int
	Limit int
}

const (
	// DefaultPageSize is used when the request carries no limit.
	DefaultPageSize = 10
	// MaxPageSize caps the page size a client may request.
	MaxPageSize = 100
)

func (r PageRequest) normalize() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 {
		r.Limit = DefaultPageSize
	}
	if r.Limit > MaxPageSize {
		r.Limit = MaxPageSize
	}
	return r
}

// Page is one page of an owner's orders, newest first.
type Page struct {
	Orders      []Order
	CurrentPage int
	TotalPages  int
	TotalOrders int
	HasNextPage bool
	HasPrevPage bool
}

// Repository persists ledger entries. There is no update or delete.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetForOwner(ctx context.Context, ownerID, id string) (*Order, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Order, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// Publisher is notified about orders that were stored successfully.
type Publisher interface {
	OrderCreated(ctx context.Context, o *Order) error
}

type nopPublisher struct{}

func (nopPublisher) OrderCreated(context.Context, *Order) error { return nil }
