package sales

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/barista-pos/internal/domain/order"
)

// Summary sizes and defaults.
const (
	SummaryTopItems = 5
	DefaultTopItems = 10
)

// TopItem is the aggregated sales of one catalog item.
type TopItem struct {
	ID       int
	Name     string
	Quantity int
	Revenue  int64
}

// Stats summarizes a set of orders.
type Stats struct {
	TotalOrders   int
	TotalRevenue  int64
	TotalItems    int
	AvgOrderValue decimal.Decimal
	TopItems      []TopItem
}

// Summarize computes order statistics and the topN best selling items.
// An empty input yields zero stats and an empty item list.
func Summarize(orders []order.Order, topN int) Stats {
	s := Stats{
		TotalOrders:   len(orders),
		AvgOrderValue: decimal.Zero,
		TopItems:      RankItems(orders, topN),
	}
	for _, o := range orders {
		s.TotalRevenue += o.TotalAmount
		s.TotalItems += o.ItemCount
	}
	if s.TotalOrders > 0 {
		s.AvgOrderValue = decimal.NewFromInt(s.TotalRevenue).
			Div(decimal.NewFromInt(int64(s.TotalOrders))).
			Round(2)
	}
	return s
}

// RankItems aggregates quantity and revenue per item id and returns at most
// limit items by descending quantity. Items with equal quantity keep the
// order in which they were first seen.
func RankItems(orders []order.Order, limit int) []TopItem {
	items := make([]TopItem, 0)
	index := make(map[int]int)
	for _, o := range orders {
		for _, l := range o.Lines {
			i, ok := index[l.ID]
			if !ok {
				i = len(items)
				index[l.ID] = i
				items = append(items, TopItem{ID: l.ID, Name: l.Name})
			}
			items[i].Quantity += l.Quantity
			items[i].Revenue += l.Amount()
		}
	}
	slices.SortStableFunc(items, func(a, b TopItem) int {
		return b.Quantity - a.Quantity
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
