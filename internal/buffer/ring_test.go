package buffer

import (
	"reflect"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNewRing(t *testing.T) {
	r := NewRing[int](100)
	if r.Cap() != 100 {
		t.Errorf("expected capacity 100, got %d", r.Cap())
	}
	if r.Len() != 0 {
		t.Errorf("expected length 0, got %d", r.Len())
	}

	// Zero and negative capacities default to 1
	if NewRing[int](0).Cap() != 1 {
		t.Errorf("expected capacity 1 for zero input")
	}
	if NewRing[int](-5).Cap() != 1 {
		t.Errorf("expected capacity 1 for negative input")
	}
}

func TestRing_Push(t *testing.T) {
	r := NewRing[string](3)

	r.Push("a")
	r.Push("b")
	if got := r.Items(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}

	r.Push("c")
	r.Push("d")
	if got := r.Items(); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("expected [b c d], got %v", got)
	}
	if r.Len() != 3 {
		t.Errorf("expected length 3, got %d", r.Len())
	}

	last, ok := r.Last()
	if !ok || last != "d" {
		t.Errorf("expected last 'd', got %q (ok=%v)", last, ok)
	}
}

func TestRing_ItemsReturnsCopy(t *testing.T) {
	r := NewRing[int](4)

	if r.Items() != nil {
		t.Errorf("expected nil for empty ring")
	}

	r.Push(1)
	items := r.Items()
	items[0] = 99

	if got := r.Items(); got[0] != 1 {
		t.Errorf("Items should return a copy, got %v", got)
	}
}

func TestRing_Clear(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	r.Push(2)
	r.Push(3)

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("expected length 0 after clear, got %d", r.Len())
	}
	if _, ok := r.Last(); ok {
		t.Errorf("expected no last item after clear")
	}

	r.Push(4)
	if got := r.Items(); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("expected [4], got %v", got)
	}
}

func TestRing_ConcurrentPush(t *testing.T) {
	r := NewRing[int](16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(base*100 + j)
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != 16 {
		t.Errorf("expected length 16, got %d", r.Len())
	}
}

// The ring always holds the newest min(n, capacity) items in push order.
func TestRingKeepsNewestProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("ring keeps the newest items in order", prop.ForAll(
		func(capacity int, values []int) bool {
			r := NewRing[int](capacity)
			for _, v := range values {
				r.Push(v)
			}

			want := values
			if len(want) > capacity {
				want = want[len(want)-capacity:]
			}
			got := r.Items()
			if len(want) == 0 {
				return got == nil
			}
			return reflect.DeepEqual(got, want)
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}
