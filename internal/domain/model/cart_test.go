package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemFor(t *testing.T) {
	cart := &Cart{Items: []CartItem{
		{ProductID: "p1", Quantity: 1, Position: 1},
		{ProductID: "p2", Quantity: 2, Position: 2},
	}}

	item := cart.ItemFor("p2")
	require.NotNil(t, item)
	require.Equal(t, 2, item.Quantity)

	// the pointer aliases the slice element so callers can mutate in place
	item.Quantity = 5
	require.Equal(t, 5, cart.Items[1].Quantity)

	require.Nil(t, cart.ItemFor("missing"))
}

func TestNextPosition(t *testing.T) {
	cart := &Cart{}
	require.Equal(t, 1, cart.NextPosition())

	cart.Items = []CartItem{{Position: 3}, {Position: 1}}
	require.Equal(t, 4, cart.NextPosition())
}
