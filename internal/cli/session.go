package cli

import (
	"errors"
	"fmt"

	"github.com/ppiankov/forkpin/internal/audit"
	"github.com/ppiankov/forkpin/internal/config"
	"github.com/ppiankov/forkpin/internal/gate"
	"github.com/ppiankov/forkpin/internal/history"
)

// session is the per-command wiring of config, recorders and gate.
type session struct {
	cfg     *config.Config
	hash    string
	gate    *gate.Gate
	audit   *audit.Log
	history *history.Store
}

// openSession loads config and builds a gate. With record set, the audit
// log and history database are opened and attached.
func openSession(record bool) (*session, error) {
	cfg, hash, err := config.LoadConfigWithHash(configPath)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, hash: hash}

	if record && cfg.AuditLog != "" {
		s.audit, err = audit.Open(cfg.AuditLog)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}
	if record && cfg.HistoryDB != "" {
		s.history, err = history.Open(cfg.HistoryDB)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	s.gate, err = s.newGate(cfg, hash)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// newGate builds a gate for cfg that shares the session's recorders.
func (s *session) newGate(cfg *config.Config, hash string) (*gate.Gate, error) {
	opts := []gate.Option{gate.WithLogger(logger), gate.WithConfigHash(hash)}
	if s.audit != nil {
		opts = append(opts, gate.WithAuditLog(s.audit))
	}
	if s.history != nil {
		opts = append(opts, gate.WithHistory(s.history))
	}
	return gate.New(cfg, opts...)
}

// reload re-reads the config file and rebuilds the gate. The audit log and
// history database opened at startup stay in use.
func (s *session) reload() (*gate.Gate, error) {
	cfg, hash, err := config.LoadConfigWithHash(configPath)
	if err != nil {
		return nil, err
	}
	g, err := s.newGate(cfg, hash)
	if err != nil {
		return nil, err
	}
	s.cfg, s.hash, s.gate = cfg, hash, g
	return g, nil
}

func (s *session) Close() error {
	var errs []error
	if s.audit != nil {
		errs = append(errs, s.audit.Close())
	}
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	return errors.Join(errs...)
}
