package auth

import (
	"context"
	"slices"
	"sync"

	"communities.ooo/internal/identity"
)

// Controllers is the externally managed list of principals allowed to
// administer the deployment. Calls may block.
type Controllers interface {
	IsController(ctx context.Context, principal identity.Principal) (bool, error)
	List(ctx context.Context) ([]identity.Principal, error)
	Add(ctx context.Context, principal identity.Principal) error
	Replace(ctx context.Context, old, next identity.Principal) error
	Remove(ctx context.Context, principal identity.Principal) error
}

// StaticControllers keeps the controller list in memory.
type StaticControllers struct {
	mu    sync.RWMutex
	set   map[identity.Principal]struct{}
	fixed map[identity.Principal]struct{}
}

// NewStaticControllers seeds the list with bootstrap principals. Bootstrap
// principals are never removed.
func NewStaticControllers(bootstrap ...identity.Principal) *StaticControllers {
	c := &StaticControllers{
		set:   make(map[identity.Principal]struct{}),
		fixed: make(map[identity.Principal]struct{}),
	}
	for _, p := range bootstrap {
		if p.IsAnonymous() {
			continue
		}
		c.set[p] = struct{}{}
		c.fixed[p] = struct{}{}
	}
	return c
}

func (c *StaticControllers) IsController(ctx context.Context, principal identity.Principal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.set[principal]
	return ok, nil
}

func (c *StaticControllers) List(ctx context.Context) ([]identity.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]identity.Principal, 0, len(c.set))
	for p := range c.set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func (c *StaticControllers) Add(ctx context.Context, principal identity.Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set[principal] = struct{}{}
	return nil
}

func (c *StaticControllers) Replace(ctx context.Context, old, next identity.Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, fixed := c.fixed[old]; !fixed {
		delete(c.set, old)
	}
	c.set[next] = struct{}{}
	return nil
}

func (c *StaticControllers) Remove(ctx context.Context, principal identity.Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, fixed := c.fixed[principal]; !fixed {
		delete(c.set, principal)
	}
	return nil
}
