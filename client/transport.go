package client

import (
	"fmt"
	"net"
	"time"
)

// Dial performs a blocking TCP connect to host:port, bounded by
// cfg.DialTimeout (spec section 6: "the library's connection
// constructor for TCP takes a host and integer port and performs a
// blocking connect"). A nil cfg uses DefaultConfig.
func Dial(host string, port int, cfg *Config) (net.Conn, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	return net.DialTimeout("tcp", addr, resolved.DialTimeout)
}

// DialWithDeadline is like Dial but stamps the connection with an
// absolute deadline once connected, for callers that want the whole
// conversation (not just the connect) bounded.
func DialWithDeadline(host string, port int, cfg *Config, deadline time.Time) (net.Conn, error) {
	conn, err := Dial(host, port, cfg)
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
