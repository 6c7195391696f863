// Package editor implements optimistic inline editing of entity fields.
//
// At most one field of an Editor is open at a time. A commit shows the
// submitted value while the request is in flight and restores the pre-edit
// value if the server rejects it.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/observe"
)

// CommitFunc sends a partial update of the entity, keyed by field name
type CommitFunc func(ctx context.Context, fields map[string]any) error

// Editor tracks the edit state of the fields of one entity
type Editor struct {
	commit CommitFunc
	logger *slog.Logger

	mu     sync.Mutex
	order  []string
	fields map[string]*FieldState
	active string // key of the field Editing or Committing, "" if none

	states  *observe.Value[FieldState]
	changes *observe.Value[domain.Change]
}

// New creates an editor over fields. Every field starts in Viewing.
func New(fields []Field, commit CommitFunc, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Editor{
		commit:  commit,
		logger:  logger,
		fields:  make(map[string]*FieldState, len(fields)),
		states:  observe.NewValue(FieldState{}),
		changes: observe.NewValue(domain.Change{}),
	}
	for _, f := range fields {
		if _, dup := e.fields[f.Key]; dup {
			continue
		}
		e.order = append(e.order, f.Key)
		e.fields[f.Key] = &FieldState{Field: f}
	}
	return e
}

// Begin opens key for editing with its current value in the buffer
func (e *Editor) Begin(key string) error {
	e.mu.Lock()
	f, ok := e.fields[key]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("begin %s: %w", key, domain.ErrUnknownField)
	}
	if e.active != "" {
		active := e.active
		e.mu.Unlock()
		e.logger.Warn("edit rejected while another field is open", "field", key, "active", active)
		return fmt.Errorf("begin %s: %w", key, domain.ErrEditInProgress)
	}
	e.active = key
	f.State = Editing
	f.Buffer = f.Value
	snap := *f
	e.mu.Unlock()

	e.states.Set(snap)
	return nil
}

// SetBuffer replaces the input of the open field.
// The value is converted to the field's type; text input is accepted for numbers.
func (e *Editor) SetBuffer(value any) error {
	e.mu.Lock()
	f, err := e.editingLocked()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	v, err := f.Type.normalize(value)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("set %s: %w", f.Key, err)
	}
	f.Buffer = v
	snap := *f
	e.mu.Unlock()

	e.states.Set(snap)
	return nil
}

// Cancel discards the buffer of the open field.
// It does nothing while a commit is in flight.
func (e *Editor) Cancel() {
	e.mu.Lock()
	f, err := e.editingLocked()
	if err != nil {
		e.mu.Unlock()
		return
	}
	f.State = Viewing
	f.Buffer = nil
	e.active = ""
	snap := *f
	e.mu.Unlock()

	e.states.Set(snap)
}

// Commit submits the open field. It reports whether a request was sent and
// accepted: an unchanged buffer closes the field without a request.
// On failure the field returns to its pre-edit value and the error is
// returned; nothing is retried.
func (e *Editor) Commit(ctx context.Context) (bool, error) {
	e.mu.Lock()
	f, err := e.editingLocked()
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	if f.Buffer == f.Value {
		f.State = Viewing
		f.Buffer = nil
		e.active = ""
		snap := *f
		e.mu.Unlock()

		e.states.Set(snap)
		e.logger.Debug("field unchanged, nothing to commit", "field", snap.Key)
		return false, nil
	}
	f.State = Committing
	f.Pending = f.Buffer
	f.Buffer = nil
	key, value := f.Key, f.Pending
	snap := *f
	e.mu.Unlock()

	e.states.Set(snap)

	err = e.commit(ctx, map[string]any{key: value})

	e.mu.Lock()
	f.Pending = nil
	e.active = ""
	if err != nil {
		f.State = RolledBack
		rolledBack := *f
		f.State = Viewing
		viewing := *f
		e.mu.Unlock()

		e.states.Set(rolledBack)
		e.states.Set(viewing)
		e.logger.Error("failed to commit field", "error", err, "field", key)
		return false, fmt.Errorf("commit %s: %w", key, err)
	}
	f.Value = value
	f.State = Viewing
	snap = *f
	e.mu.Unlock()

	e.states.Set(snap)
	e.changes.Set(domain.Change{Key: key, Value: value})
	e.logger.Info("committed field", "field", key)
	return true, nil
}

// Field returns the state of key
func (e *Editor) Field(key string) (FieldState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.fields[key]
	if !ok {
		return FieldState{}, false
	}
	return *f, true
}

// Fields returns every field in display order
func (e *Editor) Fields() []FieldState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]FieldState, 0, len(e.order))
	for _, key := range e.order {
		out = append(out, *e.fields[key])
	}
	return out
}

// Active returns the key of the field being edited or committed
func (e *Editor) Active() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active, e.active != ""
}

// SubscribeState registers fn for every field state transition
func (e *Editor) SubscribeState(fn func(FieldState)) (cancel func()) {
	return e.states.Subscribe(fn)
}

// SubscribeChanges registers fn for every value the server accepted
func (e *Editor) SubscribeChanges(fn func(domain.Change)) (cancel func()) {
	return e.changes.Subscribe(fn)
}

// Close drops all subscribers
func (e *Editor) Close() {
	e.states.Reset()
	e.changes.Reset()
}

func (e *Editor) editingLocked() (*FieldState, error) {
	if e.active == "" {
		return nil, domain.ErrNotEditing
	}
	f := e.fields[e.active]
	if f.State != Editing {
		return nil, domain.ErrNotEditing
	}
	return f, nil
}
