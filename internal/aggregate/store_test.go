package aggregate

import (
	"sync"
	"testing"

	"github.com/dwikikusuma/cartline/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var ten = decimal.NewFromInt(10)

func TestUpsertLastWriteWins(t *testing.T) {
	s := NewStore(logger.Discard())
	s.Upsert("Widget", 2, ten)
	s.Upsert("Widget", 5, ten)
	s.Upsert("Gadget", 1, decimal.NewFromInt(3))

	e, ok := s.Get("Widget")
	require.True(t, ok)
	assert.Equal(t, 5, e.Quantity)
	assert.Equal(t, "50", e.LineTotal().String())
	assert.Equal(t, 2, s.Len())

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Gadget", snap[0].Title)
	assert.Equal(t, "Widget", snap[1].Title)
}

func TestNegativeQuantityStoredAsGiven(t *testing.T) {
	s := NewStore(logger.Discard())
	s.Dispatch(SetQuantity{Title: "Widget", Quantity: -1, Price: ten})
	e, ok := s.Get("Widget")
	require.True(t, ok)
	assert.Equal(t, -1, e.Quantity)
}

func TestDelete(t *testing.T) {
	s := NewStore(logger.Discard())
	s.Upsert("Widget", 1, ten)
	assert.True(t, s.Delete("Widget"))
	assert.False(t, s.Delete("Widget"))
	_, ok := s.Get("Widget")
	assert.False(t, ok)
}

func TestSubscribe(t *testing.T) {
	s := NewStore(logger.Discard())
	a, cancelA := s.Subscribe(4)
	b, cancelB := s.Subscribe(4)
	defer cancelB()

	s.Dispatch(SetQuantity{Title: "Widget", Quantity: 3, Price: ten})
	assert.Equal(t, 3, (<-a).Quantity)
	assert.Equal(t, 3, (<-b).Quantity)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)

	s.Dispatch(SetQuantity{Title: "Widget", Quantity: 4, Price: ten})
	assert.Equal(t, 4, (<-b).Quantity)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	s := NewStore(logger.Discard())
	ch, cancel := s.Subscribe(1)
	defer cancel()

	s.Dispatch(SetQuantity{Title: "A", Quantity: 1})
	s.Dispatch(SetQuantity{Title: "A", Quantity: 2})

	assert.Equal(t, 1, (<-ch).Quantity)
	select {
	case a := <-ch:
		t.Fatalf("unexpected buffered action %+v", a)
	default:
	}
	e, _ := s.Get("A")
	assert.Equal(t, 2, e.Quantity, "store still applies dropped actions")
}

func TestConcurrentDispatch(t *testing.T) {
	s := NewStore(logger.Discard())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Dispatch(SetQuantity{Title: "Widget", Quantity: i, Price: ten})
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}
