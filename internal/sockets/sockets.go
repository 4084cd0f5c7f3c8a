package sockets

import (
	"context"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// Listener describes one socket bound to the requested port, together
// with whatever ownership information the platform table provides.
type Listener struct {
	// Port is the locally bound port number.
	Port uint16

	// Protocol is the transport protocol of the socket.
	Protocol model.Protocol

	// PID is the owning process, when known. Zero means the socket was
	// seen in the kernel table but the owner could not be joined — on
	// Linux this happens when /proc/<pid>/fd is unreadable for every
	// candidate (insufficient privilege, or the owner exited mid-scan).
	PID int

	// Inode is the Linux ownership key (socket inode). Zero on
	// platforms whose tables carry the pid directly. Internal join key
	// only; never shown to the user.
	Inode uint64
}

// Enumerator is the single polymorphic capability over the per-platform
// socket table mechanisms: enumerate the sockets bound to a given port.
//
// Implementations tolerate partial failure: a process whose descriptor
// table cannot be read is skipped, never fatal. A nil, nil return means
// nothing is bound to the port.
type Enumerator interface {
	// ListenersOnPort returns the sockets bound to port for each of the
	// requested protocols. TCP sockets outside the LISTEN state are
	// excluded; bound UDP sockets always match (UDP has no listen
	// state). The context bounds the whole scan.
	ListenersOnPort(ctx context.Context, port uint16, protocols []model.Protocol) ([]Listener, error)
}

// NewEnumerator returns the socket table reader for the platform this
// binary was built for.
func NewEnumerator() Enumerator {
	return newPlatformEnumerator()
}
