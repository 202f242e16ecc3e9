// Package config loads halodb settings from CUE.
//
// A configuration file is unified with the embedded #Config schema, so
// every field is optional, defaults come from the schema, and unknown
// fields are errors.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/halodb/internal/histogram"
)

//go:embed schema.cue
var schemaSrc []byte

// Config is the decoded configuration.
type Config struct {
	Store      Store                `json:"store"`
	Lock       Lock                 `json:"lock"`
	Traversal  Traversal            `json:"traversal"`
	Histograms map[string]Histogram `json:"histograms"`
	Metrics    Metrics              `json:"metrics"`
	Log        Log                  `json:"log"`
}

// Store locates the catalog database.
type Store struct {
	Path string `json:"path"`
}

// Lock selects the cross-process write lock.
type Lock struct {
	// Backend is local, file or redis.
	Backend   string `json:"backend"`
	File      string `json:"file"`
	RedisAddr string `json:"redis_addr"`
	Key       string `json:"key"`
	TTL       string `json:"ttl"`
}

// Duration parses TTL.
func (l Lock) Duration() (time.Duration, error) {
	d, err := time.ParseDuration(l.TTL)
	if err != nil {
		return 0, fmt.Errorf("lock.ttl: %w", err)
	}
	return d, nil
}

// Traversal bounds multi-hop searches.
type Traversal struct {
	MaxHops int `json:"max_hops"`
}

// Histogram is the binning of one time-chunked property.
type Histogram struct {
	NBins           int     `json:"nbins" yaml:"nbins"`
	TMaxGyr         float64 `json:"tmax_gyr" yaml:"tmax_gyr"`
	MinimumStoreGyr float64 `json:"minimum_store_gyr" yaml:"minimum_store_gyr"`
}

// Params converts h for the histogram package.
func (h Histogram) Params() histogram.Params {
	return histogram.Params{NBins: h.NBins, TMaxGyr: h.TMaxGyr, MinimumStoreGyr: h.MinimumStoreGyr}
}

// HistogramParams returns every configured histogram, keyed by property.
func (c *Config) HistogramParams() map[string]histogram.Params {
	out := make(map[string]histogram.Params, len(c.Histograms))
	for name, h := range c.Histograms {
		out[name] = h.Params()
	}
	return out
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `json:"addr"`
}

// Log sets the log level.
type Log struct {
	Level string `json:"level"`
}

// Error reports a configuration problem with its CUE position if known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the schema defaults.
func Default() *Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads a CUE configuration file. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse unifies src with the schema and decodes the result. filename is
// used in error positions.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		file := ctx.CompileBytes(src, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = v.Unify(file)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	if cfg.Histograms == nil {
		cfg.Histograms = map[string]Histogram{}
	}
	if _, err := cfg.Lock.Duration(); err != nil {
		return nil, err
	}
	for name, h := range cfg.Histograms {
		if err := h.Params().Validate(); err != nil {
			return nil, fmt.Errorf("histograms.%s: %w", name, err)
		}
	}
	return &cfg, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	msg := first.Error()
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Message: msg, Pos: positions[0]}
	}
	return &Error{Message: msg}
}
