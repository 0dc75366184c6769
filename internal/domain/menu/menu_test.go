package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, 4, c.Len())

	it, err := c.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "Latte", it.Name)
	assert.Equal(t, int64(3500), it.Price)
}

func TestGet_NotFound(t *testing.T) {
	_, err := Default().Get(99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_ReturnsCopy(t *testing.T) {
	c := Default()
	items := c.List()
	items[0].Price = 1

	it, err := c.Get(items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), it.Price)
}

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
	}{
		{"zero id", []Item{{ID: 0, Name: "X", Price: 1}}},
		{"empty name", []Item{{ID: 1, Price: 1}}},
		{"zero price", []Item{{ID: 1, Name: "X"}}},
		{"duplicate", []Item{{ID: 1, Name: "X", Price: 1}, {ID: 1, Name: "Y", Price: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.items...)
			require.Error(t, err)
		})
	}
}
