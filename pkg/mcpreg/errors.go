package mcpreg

import (
	"errors"
	"fmt"
)

// Sentinel errors for consistent error handling.
var (
	// ErrNotConnected is returned by handle operations that require an
	// established session.
	ErrNotConnected = errors.New("mcpreg: server not connected")
	// ErrNoCommand is returned when a StdioServer is built without a command.
	ErrNoCommand = errors.New("mcpreg: command is required")
)

// ConfigError reports a missing or malformed configuration file. It is fatal
// to LoadConfig and propagated to the caller.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("mcpreg: config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectError reports a failed connect or initial tool fetch for one server.
// AddServer propagates it; InitializeAll records it per entry and continues.
type ConnectError struct {
	Server string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("mcpreg: connect %s: %v", e.Server, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
