// cellconfig.go: Argus-driven config publication into a Cell
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library fragment
// SPDX-License-Identifier: MPL-2.0

// Package cellconfig is the spec's headline use case made literal: "a
// vehicle for publishing slowly-changing, mostly-read state (e.g.,
// process configuration...) to many concurrent readers". Watcher wraps
// github.com/agilira/argus's polling file watcher and, on every detected
// change, republishes a freshly parsed Config into a *cella.Cell[Config]
// with cella.Set — replacing the teacher's HotConfig (which only swapped
// a sync.RWMutex-guarded struct field) with an actual lock-light
// publication.
package cellconfig

import (
	"time"

	"github.com/agilira/argus"
	"github.com/agilira/cella"
)

// Config is the application-facing set of slowly-changing process
// settings this package publishes. Fields are deliberately the same
// register as the teacher's cache Config (DefaultConfig / Validate),
// generalized from cache-sizing knobs to general process configuration.
type Config struct {
	// MaxConnections bounds concurrent inbound connections. Must be > 0.
	MaxConnections int

	// RequestTimeout bounds how long a single request may run.
	RequestTimeout time.Duration

	// RateLimitPerSecond caps the sustained request rate. 0 disables
	// rate limiting.
	RateLimitPerSecond float64

	// FeatureFlags toggles optional behavior by name. Never nil after
	// Validate.
	FeatureFlags map[string]bool
}

// Validate normalizes Config in place, applying defaults the way the
// teacher's Config.Validate does (sensible fallback, never an error).
func (c *Config) Validate() error {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RateLimitPerSecond < 0 {
		c.RateLimitPerSecond = 0
	}
	if c.FeatureFlags == nil {
		c.FeatureFlags = map[string]bool{}
	}
	return nil
}

// Default configuration values, mirroring the teacher's DefaultConfig.
const (
	DefaultMaxConnections = 1000
	DefaultRequestTimeout = 30 * time.Second
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	c := Config{
		MaxConnections: DefaultMaxConnections,
		RequestTimeout: DefaultRequestTimeout,
		FeatureFlags:   map[string]bool{},
	}
	return c
}

// Options configures a Watcher.
type Options struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, and Properties (whichever
	// Argus auto-detects from the extension/content).
	ConfigPath string

	// PollInterval is how often Argus checks for changes. Default: 1s,
	// floor: 100ms (same floor the teacher's HotConfigOptions enforces).
	PollInterval time.Duration

	// OnReload, if set, is called after every successful republish with
	// the previous and new Config. Must be fast and non-blocking.
	OnReload func(old, new Config)

	// OnError, if set, is called when publishing a reloaded Config fails
	// or the reload callback panics. Failures to read or parse the file
	// are handled inside Argus and do not reach OnError; on them the
	// callback is not invoked, so the previous Cell value is left
	// untouched (spec §8's "a malformed file leaves the previous cell
	// value untouched").
	OnError func(error)

	Logger       cella.Logger
	TimeProvider cella.TimeProvider
}

func (o *Options) normalize() {
	if o.PollInterval == 0 {
		o.PollInterval = time.Second
	} else if o.PollInterval < 100*time.Millisecond {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = cella.NoOpLogger{}
	}
	if o.TimeProvider == nil {
		o.TimeProvider = cella.NewSystemTimeProvider()
	}
}

// Watcher watches a configuration file and republishes a parsed Config
// into a *cella.Cell[Config] every time the file changes.
type Watcher struct {
	cell    *cella.Cell[Config]
	watcher *argus.Watcher
	opts    Options

	lastReloadNanos int64
}

// New creates a watcher for opts.ConfigPath and returns a Watcher whose
// Cell already holds DefaultConfig() until the first successful reload.
// Polling does not begin until Start is called.
func New(opts Options) (*Watcher, error) {
	if opts.ConfigPath == "" {
		return nil, cella.NewErrInvalidArgument("cellconfig.New: ConfigPath required")
	}
	opts.normalize()

	w := &Watcher{
		cell: cella.NewCell[Config](nil),
		opts: opts,
	}
	if _, err := w.cell.Set(DefaultConfig()); err != nil {
		return nil, err
	}

	argusConfig := argus.Config{PollInterval: opts.PollInterval}
	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, w.handleChange, argusConfig)
	if err != nil {
		return nil, err
	}
	w.watcher = watcher
	return w, nil
}

// Cell exposes the underlying Cell so callers read it with the same
// Read/Release pair any other cella consumer uses.
func (w *Watcher) Cell() *cella.Cell[Config] { return w.cell }

// Start begins polling, if not already running.
func (w *Watcher) Start() error {
	if w.watcher.IsRunning() {
		return nil
	}
	return w.watcher.Start()
}

// Stop stops polling. The Cell retains its last published value.
func (w *Watcher) Stop() error {
	return w.watcher.Stop()
}

// handleChange is Argus's change callback: it parses the new file
// contents and, on success only, publishes the result into the Cell.
func (w *Watcher) handleChange(data map[string]interface{}) {
	defer func() {
		if p := recover(); p != nil {
			if w.opts.OnError != nil {
				w.opts.OnError(cella.NewErrPanicRecovered("cellconfig.handleChange", p))
			}
		}
	}()

	var old Config
	if ref, ok := w.cell.Read(); ok {
		old = ref.Value()
		ref.Release()
	}

	next, err := parseConfig(data)
	if err != nil {
		if w.opts.OnError != nil {
			w.opts.OnError(err)
		}
		return
	}

	if _, err := w.cell.Set(next); err != nil {
		if w.opts.OnError != nil {
			w.opts.OnError(err)
		}
		return
	}
	w.lastReloadNanos = w.opts.TimeProvider.Now()

	if w.opts.OnReload != nil {
		w.opts.OnReload(old, next)
	}
}

// parsePositiveInt and friends mirror the teacher's hot-reload.go helpers
// exactly (YAML/JSON/TOML decode numbers as either int or float64
// depending on format and library).
func parsePositiveInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	case float64:
		if v > 0 {
			return int(v), true
		}
	}
	return 0, false
}

func parseFloatInRange(value interface{}, min, max float64) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if v >= min && v <= max {
			return v, true
		}
	case int:
		f := float64(v)
		if f >= min && f <= max {
			return f, true
		}
	}
	return 0, false
}

func parseDuration(value interface{}) (time.Duration, bool) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(str); err == nil {
			return d, true
		}
	}
	return 0, false
}

func parseConfig(data map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()

	section, ok := data["config"].(map[string]interface{})
	if !ok {
		if _, hasKey := data["max_connections"]; hasKey {
			section = data
		} else {
			section = nil
		}
	}
	if section == nil {
		_ = cfg.Validate()
		return cfg, nil
	}

	if v, ok := parsePositiveInt(section["max_connections"]); ok {
		cfg.MaxConnections = v
	}
	if d, ok := parseDuration(section["request_timeout"]); ok {
		cfg.RequestTimeout = d
	}
	if r, ok := parseFloatInRange(section["rate_limit_per_second"], 0, 1e9); ok {
		cfg.RateLimitPerSecond = r
	}
	if flags, ok := section["feature_flags"].(map[string]interface{}); ok {
		cfg.FeatureFlags = make(map[string]bool, len(flags))
		for k, v := range flags {
			if b, ok := v.(bool); ok {
				cfg.FeatureFlags[k] = b
			}
		}
	}

	_ = cfg.Validate()
	return cfg, nil
}

// LastReloadAge returns how long ago the last successful reload
// republished the Cell, using the injected TimeProvider (go-timecache by
// default) rather than a syscall per call.
func (w *Watcher) LastReloadAge() time.Duration {
	if w.lastReloadNanos == 0 {
		return 0
	}
	return time.Duration(w.opts.TimeProvider.Now() - w.lastReloadNanos)
}
