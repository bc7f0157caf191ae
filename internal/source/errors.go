package source

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeLocalForkMissing     Code = "LOCAL_FORK_MISSING"
	CodeInvalidOverrideValue Code = "INVALID_OVERRIDE_VALUE"
)

var (
	// ErrLocalForkMissing matches any *LocalForkMissingError.
	ErrLocalForkMissing = errors.New("local fork missing")
	// ErrInvalidOverride matches any *InvalidOverrideError.
	ErrInvalidOverride = errors.New("invalid override value")
)

// LocalForkMissingError is returned when the default policy applies but the
// fork failed the probe. It is fatal to the resolution step.
type LocalForkMissingError struct {
	Path        string
	OverrideVar string
}

func (e *LocalForkMissingError) Error() string {
	return fmt.Sprintf("expected local fork at %s, not found; set %s=%s to use the registry instead",
		e.Path, overrideName(e.OverrideVar), Sentinel)
}

func (e *LocalForkMissingError) Is(target error) bool { return target == ErrLocalForkMissing }

// Code returns CodeLocalForkMissing.
func (e *LocalForkMissingError) Code() Code { return CodeLocalForkMissing }

// InvalidOverrideError is returned in strict mode for any override value
// other than the sentinel.
type InvalidOverrideError struct {
	Var   string
	Value string
}

func (e *InvalidOverrideError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: only %s=%s is recognised (unset it to use the local fork)",
		e.Value, overrideName(e.Var), overrideName(e.Var), Sentinel)
}

func (e *InvalidOverrideError) Is(target error) bool { return target == ErrInvalidOverride }

// Code returns CodeInvalidOverrideValue.
func (e *InvalidOverrideError) Code() Code { return CodeInvalidOverrideValue }

// CodeOf extracts the resolution error code from err, or "" if err is not a
// resolution error.
func CodeOf(err error) Code {
	var coded interface{ Code() Code }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
