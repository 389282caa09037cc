// Package entity keeps local, view-facing copies of remote collections in sync with the
// API: filtered loads, debounced re-queries, validated creates, and optimistic updates
// that fall back to a full reload when the server disagrees.
package entity

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"freelanceflow/internal/api"
	"freelanceflow/internal/model"
)

// DefaultDebounce is the quiet period between the last filter change and the reload.
const DefaultDebounce = 300 * time.Millisecond

// Doer is the transport the controllers need; *api.Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, req api.Request, out any) error
}

// Confirm asks the user to approve a destructive action.
type Confirm func(prompt string) bool

// Yes approves everything (non-interactive callers that already confirmed).
func Yes(string) bool { return true }

type ListOption func(*listOptions)

type listOptions struct {
	debounce time.Duration
	filters  map[string]string
}

// WithDebounce overrides DefaultDebounce. Zero reloads on the next tick.
func WithDebounce(d time.Duration) ListOption {
	return func(o *listOptions) { o.debounce = d }
}

// WithFilters seeds the initial filter values.
func WithFilters(f map[string]string) ListOption {
	return func(o *listOptions) {
		for k, v := range f {
			o.filters[k] = v
		}
	}
}

// List is the controller for one filtered collection. It is safe for concurrent use;
// network I/O never runs under its lock.
type List[T model.Entity] struct {
	cfg Config
	api Doer

	ctx      context.Context
	cancel   context.CancelFunc
	debounce *Debouncer

	// reload is the full-refresh used after failed mutations (Load, or the owning
	// detail controller's Load for child lists).
	reload func(context.Context) error

	mu       sync.Mutex
	items    []T
	filters  map[string]string
	loading  bool
	loaded   bool
	errMsg   string
	seq      uint64
	closed   bool
	onChange []func()
}

func NewList[T model.Entity](d Doer, cfg Config, opts ...ListOption) *List[T] {
	o := listOptions{debounce: DefaultDebounce, filters: map[string]string{}}
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &List[T]{
		cfg:     cfg,
		api:     d,
		ctx:     ctx,
		cancel:  cancel,
		filters: o.filters,
		items:   []T{},
	}
	l.reload = l.Load
	l.debounce = NewDebouncer(o.debounce, func() {
		if err := l.reload(l.ctx); err != nil {
			log.Printf("entity: debounced %s load: %v", cfg.Plural, err)
		}
	})
	return l
}

func (l *List[T]) Config() Config { return l.cfg }

// OnChange registers fn to run after every state change (outside the lock).
func (l *List[T]) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = append(l.onChange, fn)
	l.mu.Unlock()
}

func (l *List[T]) notify() {
	l.mu.Lock()
	fns := append([]func(){}, l.onChange...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Close cancels any pending debounced load and in-flight background work.
func (l *List[T]) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.debounce.Close()
	l.cancel()
}

func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

func (l *List[T]) Get(id int64) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

func (l *List[T]) Filters() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.filters))
	for k, v := range l.filters {
		out[k] = v
	}
	return out
}

func (l *List[T]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Loaded reports whether at least one load has succeeded.
func (l *List[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Err is the display message of the last failure ("" when the last operation succeeded).
func (l *List[T]) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

func (l *List[T]) indexLocked(id int64) int {
	for i, it := range l.items {
		if it.EntityID() == id {
			return i
		}
	}
	return -1
}

func (l *List[T]) queryLocked() url.Values {
	q := url.Values{}
	for k, v := range l.filters {
		v = strings.TrimSpace(v)
		if v == "" || !l.cfg.isFilterKey(k) {
			continue
		}
		q.Set(k, v)
	}
	return q
}

// SetFilter updates one filter and schedules a debounced reload.
func (l *List[T]) SetFilter(key, value string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.filters[key] = value
	l.mu.Unlock()
	l.notify()
	l.debounce.Notify()
}

// Load fetches the collection for the current filters and replaces the local list.
// A response is dropped if a newer load was started meanwhile. On failure the previous
// list is kept.
func (l *List[T]) Load(ctx context.Context) error {
	seq, q, err := l.begin()
	if err != nil {
		return err
	}
	items, err := l.fetch(ctx, q)
	l.finish(seq, items, err)
	return err
}

func (l *List[T]) begin() (uint64, url.Values, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, nil, ErrClosed
	}
	l.seq++
	seq := l.seq
	q := l.queryLocked()
	l.loading = true
	l.mu.Unlock()
	l.notify()
	return seq, q, nil
}

func (l *List[T]) fetch(ctx context.Context, q url.Values) ([]T, error) {
	out := []T{}
	if err := l.api.Do(ctx, http.MethodGet, l.cfg.Path, api.Request{Query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// finish commits the result of load seq unless a newer load superseded it.
func (l *List[T]) finish(seq uint64, items []T, err error) {
	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		return
	}
	l.loading = false
	if err != nil {
		l.errMsg = api.Message(err, "Failed to load "+l.cfg.Plural)
	} else {
		if items == nil {
			items = []T{}
		}
		l.items = items
		l.loaded = true
		l.errMsg = ""
	}
	l.mu.Unlock()
	l.notify()
}

// abandon ends load seq without committing anything (the owner reports the error).
func (l *List[T]) abandon(seq uint64) {
	l.mu.Lock()
	if seq == l.seq {
		l.loading = false
	}
	l.mu.Unlock()
	l.notify()
}

func (l *List[T]) fail(err error, fallback string) {
	l.mu.Lock()
	l.errMsg = api.Message(err, fallback)
	l.mu.Unlock()
	l.notify()
}

func (l *List[T]) parentFields(fields Fields) map[string]any {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	if l.cfg.ParentKey == "" {
		return body
	}
	if _, ok := body[l.cfg.ParentKey]; ok {
		return body
	}
	l.mu.Lock()
	pinned := l.filters[l.cfg.ParentKey]
	l.mu.Unlock()
	if pinned != "" {
		body[l.cfg.ParentKey] = pinned
	}
	return body
}

// Create validates fields locally, posts them, and reloads so the new entry carries
// its server-assigned id. The local list is never extended by hand.
func (l *List[T]) Create(ctx context.Context, fields Fields) (int64, error) {
	body, err := l.cfg.normalize(l.parentFields(fields), false)
	if err != nil {
		return 0, err
	}
	var created api.Created
	if err := l.api.Do(ctx, http.MethodPost, l.cfg.Path, api.Request{Body: body}, &created); err != nil {
		l.fail(err, "Failed to create "+l.cfg.Noun)
		return 0, err
	}
	if err := l.reload(ctx); err != nil {
		log.Printf("entity: reload after create: %v", err)
	}
	return created.ID, nil
}

// UpdateField applies p to the local entry immediately, then sends it. When the server
// rejects it the list is reloaded; the local change is never reverted field by field.
func (l *List[T]) UpdateField(ctx context.Context, id int64, p api.Patch) error {
	body, err := l.cfg.normalize(p, true)
	if err != nil {
		return err
	}
	patch := api.Patch(body)

	l.mu.Lock()
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("%s %d: %w", l.cfg.Noun, id, ErrNotFound)
	}
	next, err := applyPatch(l.items[i], patch)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.items[i] = next
	l.mu.Unlock()
	l.notify()

	if err := l.api.Do(ctx, http.MethodPatch, api.ItemPath(l.cfg.Path, id), api.Request{Body: patch}, nil); err != nil {
		l.recover(ctx, err, "Failed to update "+l.cfg.Noun)
		return err
	}
	return nil
}

// DeletePrompt is the confirmation question Remove asks for id.
func (l *List[T]) DeletePrompt(id int64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return "", fmt.Errorf("%s %d: %w", l.cfg.Noun, id, ErrNotFound)
	}
	return fmt.Sprintf("Delete %s %q?", l.cfg.Noun, label(l.items[i], l.cfg.Required)), nil
}

// Remove asks confirm, drops the entry locally, then deletes it on the server.
func (l *List[T]) Remove(ctx context.Context, id int64, confirm Confirm) error {
	prompt, err := l.DeletePrompt(id)
	if err != nil {
		return err
	}
	if confirm == nil || !confirm(prompt) {
		return ErrCancelled
	}

	l.mu.Lock()
	if i := l.indexLocked(id); i >= 0 {
		l.items = append(l.items[:i:i], l.items[i+1:]...)
	}
	l.mu.Unlock()
	l.notify()

	if err := l.api.Do(ctx, http.MethodDelete, api.ItemPath(l.cfg.Path, id), api.Request{}, nil); err != nil {
		l.recover(ctx, err, "Failed to delete "+l.cfg.Noun)
		return err
	}
	return nil
}

// recover reloads after a failed mutation and leaves the mutation's message visible.
func (l *List[T]) recover(ctx context.Context, cause error, fallback string) {
	log.Printf("entity: %s; reloading %s: %v", strings.ToLower(fallback), l.cfg.Plural, cause)
	if err := l.reload(ctx); err != nil {
		log.Printf("entity: reload %s: %v", l.cfg.Plural, err)
	}
	l.fail(cause, fallback)
}

// pin fixes a filter value without scheduling a load (child lists).
func (l *List[T]) pin(key string, id int64) {
	l.mu.Lock()
	l.filters[key] = strconv.FormatInt(id, 10)
	l.mu.Unlock()
}
