package forkpin

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/forkpin/internal/audit"
	"github.com/ppiankov/forkpin/internal/config"
	"github.com/ppiankov/forkpin/internal/gate"
	"github.com/ppiankov/forkpin/internal/history"
)

// Client resolves the dependency source. Safe for concurrent use.
type Client struct {
	gate    *gate.Gate
	audit   *audit.Log
	history *history.Store
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	var cc clientConfig
	for _, o := range opts {
		o(&cc)
	}

	cfg, hash, err := config.LoadConfigWithHash(cc.configPath)
	if err != nil {
		return nil, fmt.Errorf("forkpin: failed to load config: %w", err)
	}
	if cc.forkPath != "" {
		cfg.ForkPath = config.ExpandHome(cc.forkPath)
	}
	if cc.overrideEnv != "" {
		cfg.OverrideEnv = cc.overrideEnv
	}
	if len(cc.markers) > 0 {
		cfg.Markers = cc.markers
	}
	if cc.strict != nil {
		cfg.Strict = *cc.strict
	}

	c := &Client{}
	gopts := []gate.Option{gate.WithConfigHash(hash)}
	if cc.lookupEnv != nil {
		gopts = append(gopts, gate.WithLookupEnv(cc.lookupEnv))
	}
	if cc.logger != nil {
		gopts = append(gopts, gate.WithLogger(cc.logger))
	}
	if cc.record {
		if cfg.AuditLog != "" {
			if c.audit, err = audit.Open(cfg.AuditLog); err != nil {
				return nil, fmt.Errorf("forkpin: failed to open audit log: %w", err)
			}
			gopts = append(gopts, gate.WithAuditLog(c.audit))
		}
		if cfg.HistoryDB != "" {
			if c.history, err = history.Open(cfg.HistoryDB); err != nil {
				c.Close()
				return nil, fmt.Errorf("forkpin: failed to open history: %w", err)
			}
			gopts = append(gopts, gate.WithHistory(c.history))
		}
	}

	c.gate, err = gate.New(cfg, gopts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("forkpin: %w", err)
	}
	return c, nil
}

// Resolve decides where to load the dependency from. On error the caller
// must stop: there is no registry fallback.
func (c *Client) Resolve(ctx context.Context) (Selection, error) {
	out, err := c.gate.Check(ctx)
	if err != nil {
		return Selection{}, err
	}
	return toSelection(out.ID, out.Decision), nil
}

// Close releases the audit log and history database, if opened.
func (c *Client) Close() error {
	var errs []error
	if c.audit != nil {
		errs = append(errs, c.audit.Close())
	}
	if c.history != nil {
		errs = append(errs, c.history.Close())
	}
	return errors.Join(errs...)
}
