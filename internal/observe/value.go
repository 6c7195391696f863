// Package observe provides a minimal observable value for pushing
// state snapshots to a presentation layer.
package observe

import "sync"

// Value holds the latest snapshot of T and notifies subscribers of it.
//
// Every snapshot carries a version. Subscribers run outside the lock, one
// at a time, in subscription order, and only ever see snapshots in version
// order: a snapshot superseded while it is being delivered is not handed to
// the remaining subscribers, and every subscriber ends on the newest one.
// When another goroutine is already delivering, Set hands its snapshot to
// that goroutine and returns.
type Value[T any] struct {
	mu         sync.Mutex
	value      T
	version    uint64
	delivered  uint64
	delivering bool
	nextID     int
	subs       map[int]func(T)
	order      []int
}

// NewValue creates a Value holding initial
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current snapshot
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Version returns the version of the current snapshot
func (v *Value[T]) Version() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version
}

// Set replaces the snapshot under the next version and notifies subscribers
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.version++
	v.value = value
	v.notifyLocked()
}

// Publish replaces the snapshot with value if version is newer than the
// current one, and reports whether it did. Owners that build snapshots
// under their own lock number them there, so a snapshot that loses the
// race to publish is dropped instead of overwriting a newer one.
// A Value is written either with Set or with Publish, not both.
func (v *Value[T]) Publish(version uint64, value T) bool {
	v.mu.Lock()
	if version <= v.version {
		v.mu.Unlock()
		return false
	}
	v.version = version
	v.value = value
	v.notifyLocked()
	return true
}

// notifyLocked delivers pending snapshots until none is left.
// It is called with v.mu held and returns with it released.
func (v *Value[T]) notifyLocked() {
	if v.delivering {
		v.mu.Unlock()
		return
	}
	v.delivering = true
	defer func() {
		if r := recover(); r != nil {
			v.mu.Lock()
			v.delivering = false
			v.mu.Unlock()
			panic(r)
		}
	}()

	for v.delivered != v.version {
		version, value, fns := v.version, v.value, v.snapshot()
		v.delivered = version
		v.mu.Unlock()

		for _, fn := range fns {
			if v.superseded(version) {
				break
			}
			fn(value)
		}

		v.mu.Lock()
	}
	v.delivering = false
	v.mu.Unlock()
}

func (v *Value[T]) superseded(version uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version != version
}

// Subscribe registers fn and returns a function that unregisters it.
// fn is not called with the current value; use Get for that.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.order = append(v.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subs, id)
			for i, sid := range v.order {
				if sid == id {
					v.order = append(v.order[:i], v.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Reset drops every subscriber
func (v *Value[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.subs = make(map[int]func(T))
	v.order = nil
}

func (v *Value[T]) snapshot() []func(T) {
	fns := make([]func(T), 0, len(v.order))
	for _, id := range v.order {
		if fn, ok := v.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}
