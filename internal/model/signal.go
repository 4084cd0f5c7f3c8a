package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Signal is a validated termination signal. It is resolved at argument
// parsing time — before any enumeration or resolution — because acting
// with an ambiguous signal is unsafe. An unparseable spec aborts the run
// with ExitUsage and zero side effects.
type Signal struct {
	// Name is the canonical upper-case name including the SIG prefix,
	// e.g. "SIGKILL". For container targets this name is handed to the
	// runtime verbatim.
	Name string `json:"name"`

	// Num is the platform signal number. On Windows only a small subset
	// is meaningful; processes there are terminated unconditionally and
	// the number is carried for container signaling only.
	Num int `json:"num"`
}

// DefaultSignal returns SIGKILL, the most severe unmaskable termination
// signal. The default errs on the side of actually freeing the port.
func DefaultSignal() Signal {
	sig, _ := ParseSignal("SIGKILL")
	return sig
}

// ParseSignal validates a signal spec given as a name or a number.
//
// Names are accepted case-insensitively, with or without the SIG prefix
// ("sigterm", "TERM" and "SIGTERM" are equivalent). Numbers are resolved
// through the platform table back to a canonical name so that outcome
// details always report the name, never a bare number.
func ParseSignal(spec string) (Signal, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Signal{}, fmt.Errorf("empty signal spec")
	}

	// Numeric spec: resolve the number to a known name.
	if n, err := strconv.Atoi(spec); err == nil {
		name := signalName(n)
		if name == "" {
			return Signal{}, fmt.Errorf("unknown signal number %d", n)
		}
		return Signal{Name: name, Num: n}, nil
	}

	// Name spec: normalize to the canonical SIG-prefixed form.
	name := strings.ToUpper(spec)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	num := signalNum(name)
	if num == 0 {
		return Signal{}, fmt.Errorf("unknown signal %q", spec)
	}
	return Signal{Name: name, Num: num}, nil
}

// IsGraceful reports whether the signal requests a graceful shutdown.
// For container targets a graceful signal maps to the runtime's stop
// operation (deliver the signal, then escalate after the grace period)
// instead of an immediate kill.
func (s Signal) IsGraceful() bool {
	switch s.Name {
	case "SIGTERM", "SIGINT", "SIGHUP", "SIGQUIT":
		return true
	default:
		return false
	}
}

// String returns the canonical signal name.
func (s Signal) String() string {
	return s.Name
}
