// Package client implements the gmpack endpoint client: a blocking
// request/notify façade and an asynchronous variant, both built over
// rpc.Session and rpc.StreamReader.
package client

import (
	"time"

	"github.com/imdario/mergo"

	"github.com/saifulbkhan/gmpack/rpc"
)

// Config holds the tunables for a client endpoint. Zero-valued fields
// in a caller-supplied Config are filled in from DefaultConfig by
// mergo.Merge, mirroring netconf/client/config.go's defaulting.
type Config struct {
	// BlockSize is the read block size passed to the underlying
	// rpc.StreamReader.
	BlockSize int

	// DialTimeout bounds the blocking TCP connect.
	DialTimeout time.Duration
}

// DefaultConfig supplies every field a caller's partial Config
// omits.
var DefaultConfig = &Config{
	BlockSize:   rpc.DefaultBlockSize,
	DialTimeout: 10 * time.Second,
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
