package forkpin

import "go.uber.org/zap"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	configPath  string
	forkPath    string
	overrideEnv string
	markers     []string
	strict      *bool
	record      bool
	lookupEnv   func(string) (string, bool)
	logger      *zap.Logger
}

// WithConfig loads settings from a forkpin config YAML file. Other options
// override values from the file.
func WithConfig(path string) Option {
	return func(c *clientConfig) { c.configPath = path }
}

// WithForkPath sets the expected local fork location. "~/" is expanded.
func WithForkPath(path string) Option {
	return func(c *clientConfig) { c.forkPath = path }
}

// WithOverrideEnv sets the name of the override environment variable.
func WithOverrideEnv(name string) Option {
	return func(c *clientConfig) { c.overrideEnv = name }
}

// WithMarkers sets the entries that must exist inside the fork.
func WithMarkers(markers ...string) Option {
	return func(c *clientConfig) { c.markers = markers }
}

// WithStrict rejects override values other than "0".
func WithStrict(strict bool) Option {
	return func(c *clientConfig) { c.strict = &strict }
}

// WithRecording writes every decision to the configured audit log and
// history database.
func WithRecording() Option {
	return func(c *clientConfig) { c.record = true }
}

// WithLookupEnv replaces os.LookupEnv, mainly for tests.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(c *clientConfig) { c.lookupEnv = fn }
}

// WithLogger sets the structured logger used for decisions.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
