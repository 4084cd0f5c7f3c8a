package model

import (
	"errors"
	"fmt"
	"strings"
)

// Protocol identifies the transport protocol of a listening socket.
type Protocol string

const (
	// ProtocolTCP matches TCP listeners. On Linux only sockets in the
	// LISTEN state are considered; established connections never count.
	ProtocolTCP Protocol = "tcp"

	// ProtocolUDP matches bound UDP sockets. UDP has no listen state,
	// so presence in the kernel's bound-socket table is sufficient.
	ProtocolUDP Protocol = "udp"
)

// String returns the string representation of Protocol.
func (p Protocol) String() string {
	return string(p)
}

// AllProtocols is the default protocol set queried for each requested
// port. A port number names a TCP and a UDP namespace simultaneously,
// and the user asked about the number, not one namespace.
var AllProtocols = []Protocol{ProtocolTCP, ProtocolUDP}

// Mode restricts which target variants the resolver may return.
type Mode string

const (
	// ModeProcess returns only raw process targets, even when the
	// process is attributed to a container.
	ModeProcess Mode = "process"

	// ModeContainer returns only container targets. Processes without
	// a container attribution are dropped, not reported as failures —
	// the mode excludes them silently.
	ModeContainer Mode = "container"

	// ModeBoth returns containers where attribution succeeds and raw
	// processes otherwise. A process and its container are never both
	// returned for the same port: the container wins the tie-break.
	ModeBoth Mode = "both"
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid checks whether the Mode value is one of the predefined modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeProcess, ModeContainer, ModeBoth:
		return true
	default:
		return false
	}
}

// ParseMode converts a string to a Mode.
// Returns an error if the string does not match any valid mode.
func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid mode: %q (valid: process, container, both)", s)
	}
	return mode, nil
}

// ProcessTarget identifies a native OS process selected for termination.
// Identity is the pid. Pids are reused by the kernel, so a ProcessTarget
// is only meaningful within the run that resolved it.
type ProcessTarget struct {
	// PID is the system process identifier.
	PID int `json:"pid"`

	// Name is the short process name (comm on Linux, image base name
	// on Windows). Best-effort; may be empty if the process exited
	// between enumeration and resolution.
	Name string `json:"name"`

	// ExePath is the resolved executable path. Best-effort: reading it
	// can require more privilege than reading the socket tables.
	ExePath string `json:"exePath,omitempty"`
}

// ContainerTarget identifies a container selected for termination.
// Identity is the container ID.
type ContainerTarget struct {
	// ID is the runtime's container identifier (opaque string).
	ID string `json:"id"`

	// Name is the friendly container name with any leading "/" that
	// the runtime API prepends already stripped.
	Name string `json:"name"`

	// Runtime names the container runtime kind (currently "docker").
	Runtime string `json:"runtime"`

	// MainPID is the container's main process, when attribution
	// discovered one. Zero when the container was found through the
	// published-port query only (no host pid exists on macOS/Windows).
	// Used solely by the optional raw-process fallback policy.
	MainPID int `json:"mainPid,omitempty"`
}

// TargetKind tags the active variant of a KillTarget.
type TargetKind string

const (
	// KindProcess marks a KillTarget holding a ProcessTarget.
	KindProcess TargetKind = "process"

	// KindContainer marks a KillTarget holding a ContainerTarget.
	KindContainer TargetKind = "container"
)

// KillTarget is a tagged union: exactly one of Process or Container is
// set, selected by Kind. Orchestrator logic switches exhaustively over
// Kind rather than type-asserting through an interface, which keeps the
// two variants visible at every decision point.
type KillTarget struct {
	// Kind selects the active variant.
	Kind TargetKind `json:"kind"`

	// Process is set when Kind == KindProcess.
	Process *ProcessTarget `json:"process,omitempty"`

	// Container is set when Kind == KindContainer.
	Container *ContainerTarget `json:"container,omitempty"`
}

// NewProcessTarget wraps a ProcessTarget in the union.
func NewProcessTarget(p ProcessTarget) KillTarget {
	return KillTarget{Kind: KindProcess, Process: &p}
}

// NewContainerTarget wraps a ContainerTarget in the union.
func NewContainerTarget(c ContainerTarget) KillTarget {
	return KillTarget{Kind: KindContainer, Container: &c}
}

// Identity returns the deduplication key for the target: the pid for a
// process, the container ID for a container. Two ownership keys (for
// example the IPv4 and IPv6 listeners of the same server) that resolve
// to the same Identity collapse into a single target.
func (t KillTarget) Identity() string {
	switch t.Kind {
	case KindProcess:
		return fmt.Sprintf("pid:%d", t.Process.PID)
	case KindContainer:
		return "container:" + t.Container.ID
	default:
		return ""
	}
}

// DisplayName returns a human-readable label for reporting.
func (t KillTarget) DisplayName() string {
	switch t.Kind {
	case KindProcess:
		if t.Process.Name != "" {
			return fmt.Sprintf("process %q (pid %d)", t.Process.Name, t.Process.PID)
		}
		return fmt.Sprintf("process pid %d", t.Process.PID)
	case KindContainer:
		return fmt.Sprintf("container %q (%s)", t.Container.Name, shortID(t.Container.ID))
	default:
		return "unknown target"
	}
}

// shortID truncates a container ID to the 12-character prefix that
// runtime CLIs conventionally display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// Outcome classifies the result of one termination attempt.
type Outcome string

const (
	// OutcomeTerminated means the signal was delivered.
	OutcomeTerminated Outcome = "terminated"

	// OutcomeSimulated means dry-run suppressed the termination call.
	// The resolution path is identical, so the output is representative.
	OutcomeSimulated Outcome = "simulated"

	// OutcomeNotFound means no listener resolved on the port, or the
	// owner vanished between enumeration and resolution.
	OutcomeNotFound Outcome = "not-found"

	// OutcomePermissionDenied means the caller lacked the privilege to
	// signal the target.
	OutcomePermissionDenied Outcome = "permission-denied"

	// OutcomeRuntimeUnavailable means the container runtime could not
	// be reached for a container target.
	OutcomeRuntimeUnavailable Outcome = "runtime-unavailable"

	// OutcomeAlreadyExited means the target disappeared between
	// resolution and signaling. Treated as a benign race, not a failure
	// of the run: the port is free either way.
	OutcomeAlreadyExited Outcome = "already-exited"
)

// IsSuccess reports whether the outcome counts toward the "at least one
// successful termination per port" exit policy. Simulated outcomes count
// under dry-run; AlreadyExited counts because the goal state (nothing
// holding the port) was reached.
func (o Outcome) IsSuccess() bool {
	switch o {
	case OutcomeTerminated, OutcomeSimulated, OutcomeAlreadyExited:
		return true
	default:
		return false
	}
}

// TargetResult pairs a target with the outcome of acting on it.
type TargetResult struct {
	Target  KillTarget `json:"target"`
	Outcome Outcome    `json:"outcome"`

	// Detail is a human-readable elaboration (signal used, error text).
	Detail string `json:"detail,omitempty"`
}

// PortResult aggregates everything that happened for one requested port.
type PortResult struct {
	// Port is the requested port number.
	Port uint16 `json:"port"`

	// Targets lists per-target results. Empty when nothing was found
	// listening on the port.
	Targets []TargetResult `json:"targets,omitempty"`

	// Warnings carries non-fatal degradations, such as the container
	// runtime being unreachable while Mode permitted a process fallback.
	Warnings []string `json:"warnings,omitempty"`
}

// Succeeded reports whether at least one target on this port reached a
// successful outcome.
func (r PortResult) Succeeded() bool {
	for _, t := range r.Targets {
		if t.Outcome.IsSuccess() {
			return true
		}
	}
	return false
}

// Empty reports whether no targets at all were resolved for the port.
func (r PortResult) Empty() bool {
	return len(r.Targets) == 0
}

// RunReport is the full result of one invocation. Every requested port
// appears exactly once, in request order, even when nothing was found.
type RunReport struct {
	Ports []PortResult `json:"ports"`
}

// ExitCode computes the process exit status for the report.
//
// The policy distinguishes "nothing found" from "found but failed to
// terminate" so scripts can branch on the two cases. A port with zero
// targets counts as a failure unless allowEmpty is set. When both kinds
// of failure occur, the termination failure wins: it is the more
// actionable signal.
func (r RunReport) ExitCode(allowEmpty bool) ExitCode {
	code := ExitSuccess
	for _, p := range r.Ports {
		switch {
		case p.Empty():
			if !allowEmpty && code == ExitSuccess {
				code = ExitNothingFound
			}
		case !p.Succeeded():
			code = ExitTerminationFailed
		}
	}
	return code
}

// Sentinel errors for the engine's error taxonomy. Platform backends
// wrap their raw OS errors with one of these so that callers can use
// errors.Is without ever seeing an unmapped OS error code.
var (
	// ErrNotFound: no listener, or the process/container vanished
	// before the action. Recoverable; the run continues.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied: insufficient privilege to inspect or signal.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRuntimeUnavailable: the container runtime is unreachable.
	// Distinct from "this process is not containerized" — callers must
	// treat it as degraded capability, not as a negative attribution.
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")

	// ErrAlreadyExited: the target disappeared between resolution and
	// signaling.
	ErrAlreadyExited = errors.New("target already exited")
)

// OutcomeForError maps a taxonomy error to its Outcome. Unrecognized
// errors map to OutcomeNotFound for resolution failures' callers to
// refine; termination-path callers pass only taxonomy errors here.
func OutcomeForError(err error) Outcome {
	switch {
	case errors.Is(err, ErrAlreadyExited):
		return OutcomeAlreadyExited
	case errors.Is(err, ErrPermissionDenied):
		return OutcomePermissionDenied
	case errors.Is(err, ErrRuntimeUnavailable):
		return OutcomeRuntimeUnavailable
	default:
		return OutcomeNotFound
	}
}

// ExitCode defines the CLI exit codes. These are part of the scripting
// contract: consumers branch on them, so the values are stable.
type ExitCode int

const (
	// ExitSuccess: every requested port had at least one successful
	// (or, under dry-run, simulated) termination.
	ExitSuccess ExitCode = 0

	// ExitGeneralError: an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitUsage: invalid arguments — an unparseable signal or mode.
	// Fatal before any resolution begins; acting with an ambiguous
	// signal is unsafe.
	ExitUsage ExitCode = 2

	// ExitNothingFound: one or more ports had no resolvable target and
	// --allow-empty was not set.
	ExitNothingFound ExitCode = 3

	// ExitTerminationFailed: targets were found on one or more ports
	// but none of them could be terminated.
	ExitTerminationFailed ExitCode = 4
)

// CLIError is an error carrying an exit code, letting the CLI layer
// translate domain errors into OS process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError wrapping an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
