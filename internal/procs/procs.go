package procs

import (
	"github.com/mmr-tortoise/portreap/internal/model"
)

// Resolver maps a pid to process metadata. The separate interface (over
// bare functions) lets the target resolver take a fake in tests.
type Resolver interface {
	// Resolve returns the target for pid, re-verifying existence at
	// call time. Returns model.ErrNotFound (possibly wrapped) when the
	// process has already exited.
	Resolve(pid int) (model.ProcessTarget, error)
}

// Killer delivers a signal to a raw process. Implementations map OS
// errors onto the shared taxonomy: model.ErrPermissionDenied for
// insufficient privilege, model.ErrAlreadyExited when the pid is gone.
type Killer interface {
	Signal(pid int, sig model.Signal) error
}

// NewResolver returns the platform process resolver.
func NewResolver() Resolver {
	return newPlatformResolver()
}

// NewKiller returns the platform signal sender.
func NewKiller() Killer {
	return newPlatformKiller()
}
