package observe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_SetNotifiesInOrder(t *testing.T) {
	t.Parallel()

	v := NewValue(0)
	var seen []string

	v.Subscribe(func(n int) { seen = append(seen, "a") })
	v.Subscribe(func(n int) { seen = append(seen, "b") })

	v.Set(5)

	assert.Equal(t, 5, v.Get())
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestValue_CancelStopsNotifications(t *testing.T) {
	t.Parallel()

	v := NewValue("")
	calls := 0
	cancel := v.Subscribe(func(string) { calls++ })

	v.Set("x")
	cancel()
	cancel() // idempotent
	v.Set("y")

	assert.Equal(t, 1, calls)
	assert.Equal(t, "y", v.Get())
}

func TestValue_SubscriberMaySetWithoutDeadlock(t *testing.T) {
	t.Parallel()

	v := NewValue(0)
	v.Subscribe(func(n int) {
		if n < 3 {
			v.Set(n + 1)
		}
	})

	v.Set(1)
	assert.Equal(t, 3, v.Get())
}

func TestValue_Reset(t *testing.T) {
	t.Parallel()

	v := NewValue(0)
	calls := 0
	v.Subscribe(func(int) { calls++ })
	v.Reset()
	v.Set(1)

	assert.Zero(t, calls)
}

func TestValue_SlowSubscriberEndsOnNewest(t *testing.T) {
	t.Parallel()

	v := NewValue("")
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var first, second []string
	v.Subscribe(func(s string) {
		mu.Lock()
		first = append(first, s)
		mu.Unlock()
		if s == "A" {
			close(entered)
			<-release
		}
	})
	v.Subscribe(func(s string) {
		mu.Lock()
		second = append(second, s)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		v.Set("A")
		close(done)
	}()
	<-entered

	v.Set("B") // handed to the goroutine still delivering A
	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"A", "B"}, first)
	assert.Equal(t, []string{"B"}, second, "a superseded snapshot is not delivered further")
	assert.Equal(t, "B", v.Get())
}

func TestValue_PublishDropsOlderVersion(t *testing.T) {
	t.Parallel()

	v := NewValue("")
	var seen []string
	v.Subscribe(func(s string) { seen = append(seen, s) })

	assert.True(t, v.Publish(2, "new"))
	assert.False(t, v.Publish(1, "old"))
	assert.False(t, v.Publish(2, "same"))

	assert.Equal(t, "new", v.Get())
	assert.Equal(t, uint64(2), v.Version())
	assert.Equal(t, []string{"new"}, seen)
}
