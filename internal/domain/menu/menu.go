// Package menu holds the server-authoritative catalog of purchasable items.
package menu

import (
	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// Item is a single catalog entry. Price is expressed in minor currency units.
type Item struct {
	ID    int
	Name  string
	Price int64
}

// Catalog is an immutable lookup table of menu items. It is built once at
// process start and safe for concurrent reads.
type Catalog struct {
	items []Item
	byID  map[int]Item
}

// Default returns the coffee menu served by the station.
func Default() *Catalog {
	c, err := NewCatalog(
		Item{ID: 1, Name: "Espresso", Price: 2500},
		Item{ID: 2, Name: "Latte", Price: 3500},
		Item{ID: 3, Name: "Cappuccino", Price: 3000},
		Item{ID: 4, Name: "Mocha", Price: 4000},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog builds a catalog from the given items, preserving their order.
// Identifiers must be positive and unique, prices must be positive.
func NewCatalog(items ...Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[int]Item, len(items)),
	}
	for _, it := range items {
		switch {
		case it.ID <= 0:
			return nil, errors.Errorf("menu item %q: id must be positive", it.Name)
		case it.Name == "":
			return nil, errors.Errorf("menu item %d: name required", it.ID)
		case it.Price <= 0:
			return nil, errors.Errorf("menu item %d: price must be positive", it.ID)
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, errors.Errorf("menu item %d: duplicate id", it.ID)
		}
		c.items = append(c.items, it)
		c.byID[it.ID] = it
	}
	return c, nil
}

// List returns a copy of all items in catalog order.
func (c *Catalog) List() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the item with the given id, or ErrNotFound.
func (c *Catalog) Get(id int) (Item, error) {
	it, ok := c.byID[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

// Len reports the number of items in the catalog.
func (c *Catalog) Len() int { return len(c.items) }
