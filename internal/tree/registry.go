package tree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jmylchreest/kubetree/internal/shell"
)

// ErrNoActiveView is returned by Refresh when no view is active.
var ErrNoActiveView = errors.New("no active tree view")

// Treer produces tree output for a resource. *Runner satisfies it.
type Treer interface {
	Tree(ctx context.Context, kind, name string) (shell.Result, error)
}

// View is the last output shown for one resource.
type View struct {
	Kind      string
	Name      string
	Output    string
	Updated   time.Time
	Refreshes int
}

// Key returns the registry key, kind/name.
func (v View) Key() string {
	return Key(v.Kind, v.Name)
}

// Key builds the registry key for a resource.
func Key(kind, name string) string {
	return kind + "/" + name
}

// Registry holds at most one view per resource, bounded by least recent
// use, and remembers which one is active.
type Registry struct {
	mu     sync.Mutex
	runner Treer
	views  *lru.Cache[string, *View]
	active string
	now    func() time.Time
}

// NewRegistry creates a Registry holding up to capacity views.
func NewRegistry(runner Treer, capacity int) (*Registry, error) {
	r := &Registry{runner: runner, now: time.Now}
	views, err := lru.NewWithEvict[string, *View](capacity, func(key string, _ *View) {
		// Called from Add/Remove while r.mu is held.
		if key == r.active {
			r.active = ""
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create view registry: %w", err)
	}
	r.views = views
	return r, nil
}

// Open runs the tree for kind/name and shows it, reusing the existing view
// for that resource. The view becomes active.
func (r *Registry) Open(ctx context.Context, kind, name string) (View, error) {
	res, err := r.runner.Tree(ctx, kind, name)
	if err != nil {
		return View{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := Key(kind, name)
	v, ok := r.views.Get(key)
	if !ok {
		v = &View{Kind: kind, Name: name}
		r.views.Add(key, v)
	}
	v.Output = res.Stdout
	v.Updated = r.now()
	r.active = key
	return *v, nil
}

// Get returns the view for kind/name without changing its recency.
func (r *Registry) Get(kind, name string) (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views.Peek(Key(kind, name))
	if !ok {
		return View{}, false
	}
	return *v, true
}

// Activate makes an existing view the active one.
func (r *Registry) Activate(kind, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := Key(kind, name)
	if _, ok := r.views.Get(key); !ok {
		return false
	}
	r.active = key
	return true
}

// Active returns the active view.
func (r *Registry) Active() (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == "" {
		return View{}, false
	}
	v, ok := r.views.Peek(r.active)
	if !ok {
		return View{}, false
	}
	return *v, true
}

// Refresh re-runs the tree for the active view. A failed refresh leaves the
// previous output in place.
func (r *Registry) Refresh(ctx context.Context) (View, error) {
	r.mu.Lock()
	var kind, name string
	if v, ok := r.views.Peek(r.active); ok && r.active != "" {
		kind, name = v.Kind, v.Name
	}
	r.mu.Unlock()
	if kind == "" {
		return View{}, ErrNoActiveView
	}

	res, err := r.runner.Tree(ctx, kind, name)
	if err != nil {
		return View{}, fmt.Errorf("refresh %s: %w", Key(kind, name), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := Key(kind, name)
	v, ok := r.views.Get(key)
	if !ok {
		v = &View{Kind: kind, Name: name}
		r.views.Add(key, v)
	}
	v.Output = res.Stdout
	v.Updated = r.now()
	v.Refreshes++
	return *v, nil
}

// Evict closes the view for kind/name.
func (r *Registry) Evict(kind, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views.Remove(Key(kind, name))
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views.Len()
}

// Keys returns the open view keys, oldest first.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views.Keys()
}
