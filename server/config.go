// Package server implements the gmpack endpoint server: an accept
// loop that hands each transport its own session and read loop,
// dispatching inbound requests to bound handlers via a worker pool
// (spec section 4.6, section 5).
package server

import (
	"github.com/imdario/mergo"

	"github.com/saifulbkhan/gmpack/rpc"
)

// Config holds the tunables for a server endpoint.
type Config struct {
	// BlockSize is the read block size passed to each accepted
	// transport's rpc.StreamReader.
	BlockSize int

	// Workers is the size of the worker pool used to dispatch
	// inbound requests (spec section 5: handler invocation for
	// requests may be dispatched to a worker).
	Workers int
}

// DefaultConfig supplies every field a caller's partial Config
// omits.
var DefaultConfig = &Config{
	BlockSize: rpc.DefaultBlockSize,
	Workers:   8,
}

func resolveConfig(cfg *Config) (*Config, error) {
	resolved := Config{}
	if cfg != nil {
		resolved = *cfg
	}
	if err := mergo.Merge(&resolved, DefaultConfig); err != nil {
		return nil, err
	}
	return &resolved, nil
}
