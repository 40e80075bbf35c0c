package pipeline

import (
	"errors"
	"fmt"

	"github.com/arhuman/webembed/internal/emit"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitConfig  = 1
	ExitEmpty   = 2
	ExitFailure = 3
)

// ConfigError reports an unusable configuration, including a missing source root.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EmptyInputError is returned when nothing in the asset folder is embeddable.
type EmptyInputError struct {
	Dir string
	Err error
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%v in %s", e.Err, e.Dir)
}

func (e *EmptyInputError) Unwrap() error { return e.Err }

// CollisionError reports two relative paths sanitizing to the same symbol.
type CollisionError struct {
	Symbol string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("symbol collision: %s and %s both map to %q", e.First, e.Second, e.Symbol)
}

// ExitCode maps a Run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}

	var emptyErr *EmptyInputError
	if errors.As(err, &emptyErr) || errors.Is(err, emit.ErrNoAssets) {
		return ExitEmpty
	}

	return ExitFailure
}
