package order

import "github.com/xenking/barista-pos/internal/domain/menu"

// Cart is the order being assembled at a single POS session. It is not safe
// for concurrent use.
type Cart struct {
	lines []Line
}

// Add puts one unit of item into the cart.
func (c *Cart) Add(item menu.Item) {
	for i := range c.lines {
		if c.lines[i].ID == item.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{ID: item.ID, Name: item.Name, Price: item.Price, Quantity: 1})
}

// Remove drops the line for the given item id.
func (c *Cart) Remove(id int) {
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// SetQuantity changes the quantity of an existing line. A non-positive
// quantity removes the line.
func (c *Cart) SetQuantity(id, quantity int) {
	if quantity <= 0 {
		c.Remove(id)
		return
	}
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() { c.lines = nil }

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is the sum of line amounts.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Amount()
	}
	return total
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Submission builds the request body a client sends to place the order.
func (c *Cart) Submission() Submission {
	return Submission{
		Lines:       c.Lines(),
		TotalAmount: c.Total(),
		ItemCount:   c.ItemCount(),
	}
}
