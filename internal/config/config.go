// Package config loads fluxstate configuration from CUE, validated against
// an embedded schema that also supplies the defaults.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// Config is the resolved configuration.
type Config struct {
	API     API
	Journal Journal
	Log     Log
}

// API configures the HTTP service client.
type API struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

// Journal configures the action journal.
type Journal struct {
	// Path is the SQLite file. Empty means no journal.
	Path string
}

// Log configures logging.
type Log struct {
	Level slog.Level
}

// raw mirrors the CUE shape.
type raw struct {
	API struct {
		BaseURL string `json:"base_url"`
		Timeout string `json:"timeout"`
		Retries int    `json:"retries"`
	} `json:"api"`
	Journal struct {
		Path string `json:"path"`
	} `json:"journal"`
	Log struct {
		Level string `json:"level"`
	} `json:"log"`
}

// Error reports an invalid configuration file.
type Error struct {
	File    string
	Message string
}

func (e *Error) Error() string {
	if e.File == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.File, e.Message)
}

// Default returns the schema defaults.
func Default() (*Config, error) {
	return Parse(nil, "")
}

// Load reads and validates the CUE file at path. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema and resolves defaults.
// filename is used in error messages.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(data) > 0 {
		file := ctx.CompileBytes(data, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return nil, &Error{File: filename, Message: cueerrors.Details(err, nil)}
		}
		v = v.Unify(file)
	}

	if err := v.Validate(); err != nil {
		return nil, &Error{File: filename, Message: cueerrors.Details(err, nil)}
	}

	// Decode resolves defaults and rejects anything left incomplete.
	var r raw
	if err := v.Decode(&r); err != nil {
		return nil, &Error{File: filename, Message: cueerrors.Details(err, nil)}
	}
	return r.resolve(filename)
}

func (r raw) resolve(filename string) (*Config, error) {
	timeout, err := time.ParseDuration(r.API.Timeout)
	if err != nil {
		return nil, &Error{File: filename, Message: fmt.Sprintf("api.timeout: %v", err)}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(r.Log.Level)); err != nil {
		return nil, &Error{File: filename, Message: fmt.Sprintf("log.level: %v", err)}
	}

	return &Config{
		API: API{
			BaseURL: r.API.BaseURL,
			Timeout: timeout,
			Retries: r.API.Retries,
		},
		Journal: Journal{Path: r.Journal.Path},
		Log:     Log{Level: level},
	}, nil
}
