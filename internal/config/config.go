// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package config loads the server configuration from CUE files.
package config

import (
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schema is closed: unknown fields are an error. Every field has a
// default, so an empty file yields Default().
const schema = `
name:              *"test" | string
addr:              *"127.0.0.1:0" | string
compression_level: *3 | (int & >=0 & <=22)
wait_seconds:      *2.0 | (number & >=0)
debug_errors:      *false | bool
trace:             *false | bool
log_file:          *"" | string
log_level:         *"info" | "debug" | "warn" | "error"
journal:           *false | bool
`

// Config is the server command's configuration.
type Config struct {
	Name             string  `json:"name"`              // registry mount name
	Addr             string  `json:"addr"`              // listen address
	CompressionLevel int     `json:"compression_level"` // zstd level, 0 disables
	WaitSeconds      float64 `json:"wait_seconds"`      // suggested poll interval
	DebugErrors      bool    `json:"debug_errors"`      // include traces in 500 bodies
	Trace            bool    `json:"trace"`             // export spans and metrics to stdout
	LogFile          string  `json:"log_file"`          // JSON log file, "" for none
	LogLevel         string  `json:"log_level"`
	Journal          bool    `json:"journal"` // also log to the systemd journal
}

// WaitInterval is WaitSeconds as a duration.
func (c Config) WaitInterval() time.Duration {
	return time.Duration(c.WaitSeconds * float64(time.Second))
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config: schema defaults: %v", err))
	}
	return cfg
}

// Load unifies the files at paths with the schema and with each other, in
// order, and decodes the result. Two files setting the same field to
// different values conflict.
func Load(paths ...string) (Config, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString("close({"+schema+"})", cue.Filename("schema.cue"))
	if err := value.Err(); err != nil {
		return Config{}, err
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		file := ctx.CompileBytes(content, cue.Filename(path))
		if err := file.Err(); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
		value = value.Unify(file)
	}
	if err := value.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
