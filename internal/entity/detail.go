package entity

import (
	"context"
	"log"
	"net/http"
	"sync"

	"freelanceflow/internal/api"
	"freelanceflow/internal/model"

	"golang.org/x/sync/errgroup"
)

// Detail holds one parent entity and the child collection pinned to it.
// Parent and children are always fetched together and committed together.
type Detail[P, C model.Entity] struct {
	id       int64
	cfg      Config
	api      Doer
	fetchOne func(ctx context.Context, id int64) (P, error)

	// Children delegates creates, updates and deletes; its reload is this detail's Load.
	Children *List[C]

	mu       sync.Mutex
	parent   P
	loaded   bool
	loading  bool
	errMsg   string
	seq      uint64
	onChange []func()
}

// NewDetail wires a parent fetcher to a child list filtered by childCfg.ParentKey = id.
func NewDetail[P, C model.Entity](d Doer, parentCfg Config, id int64, fetch func(context.Context, int64) (P, error), childCfg Config) *Detail[P, C] {
	det := &Detail[P, C]{
		id:       id,
		cfg:      parentCfg,
		api:      d,
		fetchOne: fetch,
	}
	det.Children = NewList[C](d, childCfg)
	det.Children.pin(childCfg.ParentKey, id)
	det.Children.reload = det.Load
	det.Children.OnChange(det.notify)
	return det
}

func NewClientDetail(c *api.Client, id int64) *Detail[model.Client, model.Project] {
	return NewDetail[model.Client, model.Project](c, ClientsConfig, id, c.GetClient, ProjectsConfig)
}

func NewProjectDetail(c *api.Client, id int64) *Detail[model.Project, model.Task] {
	return NewDetail[model.Project, model.Task](c, ProjectsConfig, id, c.GetProject, TasksConfig)
}

func (d *Detail[P, C]) ID() int64 { return d.id }

func (d *Detail[P, C]) OnChange(fn func()) {
	d.mu.Lock()
	d.onChange = append(d.onChange, fn)
	d.mu.Unlock()
}

func (d *Detail[P, C]) notify() {
	d.mu.Lock()
	fns := append([]func(){}, d.onChange...)
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Parent returns the loaded parent; ok is false until the first successful Load.
func (d *Detail[P, C]) Parent() (P, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parent, d.loaded
}

func (d *Detail[P, C]) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

func (d *Detail[P, C]) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errMsg
}

func (d *Detail[P, C]) Close() { d.Children.Close() }

// Load fetches the parent and its children concurrently and waits for both.
// Either both are committed or, on any failure, neither is.
func (d *Detail[P, C]) Load(ctx context.Context) error {
	seq, q, err := d.Children.begin()
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.seq++
	mySeq := d.seq
	d.loading = true
	d.mu.Unlock()
	d.notify()

	var (
		parent   P
		children []C
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		parent, err = d.fetchOne(gctx, d.id)
		return err
	})
	g.Go(func() error {
		var err error
		children, err = d.Children.fetch(gctx, q)
		return err
	})
	err = g.Wait()

	d.mu.Lock()
	if mySeq == d.seq {
		d.loading = false
		if err != nil {
			d.errMsg = api.Message(err, "Failed to load "+d.cfg.Noun)
		} else {
			d.parent = parent
			d.loaded = true
			d.errMsg = ""
		}
	}
	d.mu.Unlock()

	if err != nil {
		d.Children.abandon(seq)
		d.notify()
		return err
	}
	d.Children.finish(seq, children, nil)
	d.notify()
	return nil
}

// UpdateParent patches the parent optimistically; on failure the whole detail reloads.
func (d *Detail[P, C]) UpdateParent(ctx context.Context, p api.Patch) error {
	body, err := d.cfg.normalize(p, true)
	if err != nil {
		return err
	}
	patch := api.Patch(body)

	d.mu.Lock()
	if !d.loaded {
		d.mu.Unlock()
		return ErrNotFound
	}
	next, err := applyPatch(d.parent, patch)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.parent = next
	d.mu.Unlock()
	d.notify()

	if err := d.api.Do(ctx, http.MethodPatch, api.ItemPath(d.cfg.Path, d.id), api.Request{Body: patch}, nil); err != nil {
		log.Printf("entity: update %s %d failed; reloading: %v", d.cfg.Noun, d.id, err)
		if rerr := d.Load(ctx); rerr != nil {
			log.Printf("entity: reload %s: %v", d.cfg.Noun, rerr)
		}
		d.mu.Lock()
		d.errMsg = api.Message(err, "Failed to update "+d.cfg.Noun)
		d.mu.Unlock()
		d.notify()
		return err
	}
	return nil
}
