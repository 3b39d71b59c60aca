package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_PublishInOrder(t *testing.T) {
	var hub Hub[int]
	var got []string

	hub.Subscribe(func(v int) { got = append(got, "a") })
	hub.Subscribe(func(v int) { got = append(got, "b") })
	hub.Publish(1)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestHub_Unsubscribe(t *testing.T) {
	var hub Hub[string]
	var got []string

	h := hub.Subscribe(func(v string) { got = append(got, v) })
	hub.Publish("first")
	h.Unsubscribe()
	h.Unsubscribe()
	hub.Publish("second")

	assert.Equal(t, []string{"first"}, got)
	assert.Equal(t, 0, hub.Len())
}

func TestHub_UnsubscribeFromCallback(t *testing.T) {
	var hub Hub[int]
	calls := 0
	var h *Handle
	h = hub.Subscribe(func(int) {
		calls++
		h.Unsubscribe()
	})

	hub.Publish(1)
	hub.Publish(2)
	assert.Equal(t, 1, calls)
}

func TestHub_ConcurrentPublish(t *testing.T) {
	var hub Hub[int]
	var mu sync.Mutex
	sum := 0
	hub.Subscribe(func(v int) {
		mu.Lock()
		sum += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			hub.Publish(v)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5050, sum)
}

func TestHandle_NilSafe(t *testing.T) {
	var h *Handle
	assert.NotPanics(t, h.Unsubscribe)
}
