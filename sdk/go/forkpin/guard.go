package forkpin

import "context"

// LoaderFunc loads the dependency from the selected source.
type LoaderFunc func(ctx context.Context, sel Selection) error

// Load resolves and, only on success, calls fn with the selection. fn is
// never called when resolution is refused.
func (c *Client) Load(ctx context.Context, fn LoaderFunc) error {
	sel, err := c.Resolve(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, sel)
}

// MustResolve is Resolve for main packages: it panics on refusal.
func (c *Client) MustResolve(ctx context.Context) Selection {
	sel, err := c.Resolve(ctx)
	if err != nil {
		panic(err)
	}
	return sel
}
