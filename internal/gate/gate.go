// Package gate gathers resolution inputs from the process environment and
// the filesystem, runs the resolver, and records the outcome.
//
// A tool embeds a Gate and calls Check before loading the dependency. The
// returned decision must be honored exactly.
package gate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/forkpin/internal/audit"
	"github.com/ppiankov/forkpin/internal/config"
	"github.com/ppiankov/forkpin/internal/history"
	"github.com/ppiankov/forkpin/internal/probe"
	"github.com/ppiankov/forkpin/internal/source"
)

// LookupEnvFunc matches os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// Recorder persists audit entries. *audit.Log implements it.
type Recorder interface {
	Record(entry audit.AuditEntry) error
}

// HistoryStore persists history rows. *history.Store implements it.
type HistoryStore interface {
	Record(ctx context.Context, r history.Row) error
}

// Option configures a Gate at creation time.
type Option func(*Gate)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn LookupEnvFunc) Option {
	return func(g *Gate) { g.lookupEnv = fn }
}

// WithProbe replaces probe.Check.
func WithProbe(fn probe.Func) Option {
	return func(g *Gate) { g.probe = fn }
}

// WithAuditLog records every outcome to rec.
func WithAuditLog(rec Recorder) Option {
	return func(g *Gate) { g.audit = rec }
}

// WithHistory records every outcome to store.
func WithHistory(store HistoryStore) Option {
	return func(g *Gate) { g.history = store }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithConfigHash stamps audit entries with the hash of the loaded config.
func WithConfigHash(hash string) Option {
	return func(g *Gate) { g.configHash = hash }
}

// Gate is immutable after New and safe for concurrent use.
type Gate struct {
	cfg        config.Config
	configHash string
	lookupEnv  LookupEnvFunc
	probe      probe.Func
	audit      Recorder
	history    HistoryStore
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a Gate for cfg. The config is copied.
func New(cfg *config.Config, opts ...Option) (*Gate, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Gate{
		cfg:       *cfg,
		lookupEnv: os.LookupEnv,
		probe:     probe.Check,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	g.cfg.Markers = append([]string(nil), cfg.Markers...)
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Config returns a copy of the gate's configuration.
func (g *Gate) Config() config.Config {
	c := g.cfg
	c.Markers = append([]string(nil), g.cfg.Markers...)
	return c
}

// Outcome is the full record of one Check.
type Outcome struct {
	ID       string
	Time     time.Time
	Context  source.Context
	Probe    probe.Result
	Decision source.Decision
	// Err is the resolution error, if any. Recorder failures are not included.
	Err error
}

// OK reports whether a decision was produced.
func (o Outcome) OK() bool { return o.Err == nil }

// Key identifies the outcome for change detection.
func (o Outcome) Key() string {
	if o.ID == "" {
		return ""
	}
	if o.Err != nil {
		if code := source.CodeOf(o.Err); code != "" {
			return string(code)
		}
		return "error"
	}
	return string(o.Decision.Kind) + "/" + string(o.Decision.Reason)
}

// Input overrides parts of the environment for a single Check.
type Input struct {
	// Override, when non-nil, replaces the environment lookup. An empty
	// string means "set to empty", not "unset".
	Override *string
	// Unset forces the override variable to be treated as absent.
	Unset bool
	// Strict, when non-nil, replaces the configured strict mode.
	Strict *bool
}

// Check resolves using the process environment.
func (g *Gate) Check(ctx context.Context) (Outcome, error) {
	return g.CheckWith(ctx, Input{})
}

// CheckWith resolves with per-call overrides. The returned error is the
// resolution error joined with any required recorder failures.
func (g *Gate) CheckWith(ctx context.Context, in Input) (Outcome, error) {
	out := Outcome{ID: uuid.NewString(), Time: g.now()}

	value, set := g.lookupEnv(g.cfg.OverrideEnv)
	switch {
	case in.Unset:
		value, set = "", false
	case in.Override != nil:
		value, set = *in.Override, true
	}

	out.Probe = g.probe(g.cfg.ForkPath, g.cfg.Markers)
	out.Context = source.Context{
		OverrideVar: g.cfg.OverrideEnv,
		Override:    value,
		OverrideSet: set,
		ForkPath:    g.cfg.ForkPath,
		ForkValid:   out.Probe.Valid,
	}

	strict := g.cfg.Strict
	if in.Strict != nil {
		strict = *in.Strict
	}
	out.Decision, out.Err = source.ResolveWithOptions(out.Context, source.Options{Strict: strict})

	g.log(out)
	recErr := g.record(ctx, out, strict)
	if recErr != nil {
		g.logger.Warn("recording decision failed", zap.String("decision_id", out.ID), zap.Error(recErr))
		if !g.cfg.AuditRequired {
			recErr = nil
		}
	}

	if recErr != nil {
		return out, errors.Join(out.Err, recErr)
	}
	return out, out.Err
}

func (g *Gate) log(out Outcome) {
	fields := []zap.Field{
		zap.String("decision_id", out.ID),
		zap.String("dependency", g.cfg.Dependency),
		zap.String("fork_path", g.cfg.ForkPath),
		zap.Bool("fork_valid", out.Probe.Valid),
		zap.Bool("override_set", out.Context.OverrideSet),
	}
	if out.Err != nil {
		g.logger.Error("source resolution refused",
			append(fields,
				zap.String("code", string(source.CodeOf(out.Err))),
				zap.String("probe", out.Probe.Detail()),
				zap.Error(out.Err))...)
		return
	}
	g.logger.Info("source resolved",
		append(fields,
			zap.String("source", string(out.Decision.Kind)),
			zap.String("reason", string(out.Decision.Reason)))...)
}

func (g *Gate) record(ctx context.Context, out Outcome, strict bool) error {
	var errs []error

	if g.audit != nil {
		entry := audit.AuditEntry{
			Timestamp:   out.Time.UTC().Format(audit.TimestampFormat),
			DecisionID:  out.ID,
			Dependency:  g.cfg.Dependency,
			ForkPath:    g.cfg.ForkPath,
			ForkValid:   out.Probe.Valid,
			OverrideVar: g.cfg.OverrideEnv,
			OverrideSet: out.Context.OverrideSet,
			Strict:      strict,
			ConfigHash:  g.configHash,
		}
		if out.Context.OverrideSet {
			entry.OverrideValue = out.Context.Override
		}
		if out.Err != nil {
			entry.ErrorCode = string(source.CodeOf(out.Err))
			entry.Error = out.Err.Error()
		} else {
			entry.Source = string(out.Decision.Kind)
			entry.Reason = string(out.Decision.Reason)
		}
		if err := g.audit.Record(entry); err != nil {
			errs = append(errs, err)
		}
	}

	if g.history != nil {
		row := history.Row{
			DecisionID: out.ID,
			Time:       out.Time,
			Dependency: g.cfg.Dependency,
			ForkPath:   g.cfg.ForkPath,
			ForkValid:  out.Probe.Valid,
			ErrorCode:  string(source.CodeOf(out.Err)),
		}
		if out.Context.OverrideSet {
			v := out.Context.Override
			row.Override = &v
		}
		if out.Err == nil {
			row.Source = string(out.Decision.Kind)
			row.Reason = string(out.Decision.Reason)
		}
		if err := g.history.Record(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("gate: record decision %s: %w", out.ID, errors.Join(errs...))
	}
	return nil
}

// Probe runs the configured probe without resolving or recording.
func (g *Gate) Probe() probe.Result {
	return g.probe(g.cfg.ForkPath, g.cfg.Markers)
}
