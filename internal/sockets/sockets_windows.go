//go:build windows

package sockets

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// Windows resolves ownership in one step: the iphlpapi extended tables
// return the owning pid alongside each row, so no descriptor-table join
// exists on this platform.
var (
	iphlpapi           = windows.NewLazySystemDLL("iphlpapi.dll")
	procGetExtendedTcp = iphlpapi.NewProc("GetExtendedTcpTable")
	procGetExtendedUdp = iphlpapi.NewProc("GetExtendedUdpTable")
)

const (
	afInet  = 2
	afInet6 = 23

	// Table classes that include the owning pid per row.
	tcpTableOwnerPidAll = 5
	udpTableOwnerPid    = 1

	// MIB_TCP_STATE_LISTEN.
	tcpStateListenWin = 2

	errInsufficientBuffer = 122
)

// Row layouts mirror the MIB_*ROW_OWNER_PID structs from iphlpapi.h.
// Ports are stored in network byte order in the low 16 bits.
type mibTCPRowOwnerPID struct {
	State      uint32
	LocalAddr  uint32
	LocalPort  uint32
	RemoteAddr uint32
	RemotePort uint32
	OwningPID  uint32
}

type mibTCP6RowOwnerPID struct {
	LocalAddr     [16]byte
	LocalScopeID  uint32
	LocalPort     uint32
	RemoteAddr    [16]byte
	RemoteScopeID uint32
	RemotePort    uint32
	State         uint32
	OwningPID     uint32
}

type mibUDPRowOwnerPID struct {
	LocalAddr uint32
	LocalPort uint32
	OwningPID uint32
}

type mibUDP6RowOwnerPID struct {
	LocalAddr    [16]byte
	LocalScopeID uint32
	LocalPort    uint32
	OwningPID    uint32
}

type extendedTableEnumerator struct{}

func newPlatformEnumerator() Enumerator {
	return &extendedTableEnumerator{}
}

// ListenersOnPort queries the four extended tables (TCP/UDP crossed
// with IPv4/IPv6) and keeps the rows bound to the requested port.
func (e *extendedTableEnumerator) ListenersOnPort(ctx context.Context, port uint16, protocols []model.Protocol) ([]Listener, error) {
	var listeners []Listener

	for _, proto := range protocols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var pids []int
		var err error
		switch proto {
		case model.ProtocolTCP:
			pids, err = tcpOwnersOnPort(port)
		case model.ProtocolUDP:
			pids, err = udpOwnersOnPort(port)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, pid := range pids {
			listeners = append(listeners, Listener{
				Port:     port,
				Protocol: proto,
				PID:      pid,
			})
		}
	}

	return listeners, nil
}

// fetchTable performs the two-call size-probe-then-read dance that the
// GetExtended*Table functions require, returning the raw table buffer.
func fetchTable(proc *windows.LazyProc, family uint32, tableClass uint32) ([]byte, error) {
	var size uint32

	// First call with a nil buffer asks for the required size.
	r0, _, _ := proc.Call(0, uintptr(unsafe.Pointer(&size)), 0,
		uintptr(family), uintptr(tableClass), 0)
	if r0 != errInsufficientBuffer && r0 != 0 {
		return nil, fmt.Errorf("extended table size query failed: code %d", r0)
	}
	if size == 0 {
		return nil, nil
	}

	// The table can grow between the size probe and the read; retry a
	// bounded number of times rather than looping forever.
	for attempt := 0; attempt < 3; attempt++ {
		buf := make([]byte, size)
		r0, _, e1 := proc.Call(
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(unsafe.Pointer(&size)),
			0,
			uintptr(family), uintptr(tableClass), 0,
		)
		if r0 == 0 {
			return buf, nil
		}
		if r0 != errInsufficientBuffer {
			return nil, fmt.Errorf("extended table query failed: %v (code %d)", e1, r0)
		}
	}
	return nil, fmt.Errorf("extended table kept resizing during read")
}

// netToHostPort converts the network-byte-order port in the low 16 bits
// of the dwLocalPort field.
func netToHostPort(p uint32) uint16 {
	v := uint16(p)
	return (v >> 8) | (v << 8)
}

// tableRows slices the variable-length row array that follows the
// dwNumEntries header at the start of the table buffer.
func tableRows(buf []byte, rowSize uintptr) (uintptr, uint32) {
	base := uintptr(unsafe.Pointer(&buf[0]))
	numEntries := *(*uint32)(unsafe.Pointer(base))

	// Guard against a count that runs past the buffer the API filled.
	maxRows := uint32((uintptr(len(buf)) - unsafe.Sizeof(numEntries)) / rowSize)
	if numEntries > maxRows {
		numEntries = maxRows
	}
	return base + unsafe.Sizeof(numEntries), numEntries
}

// tcpOwnersOnPort returns the owning pids of TCP listeners on port,
// across both address families.
func tcpOwnersOnPort(port uint16) ([]int, error) {
	var pids []int

	buf, err := fetchTable(procGetExtendedTcp, afInet, tcpTableOwnerPidAll)
	if err != nil {
		return nil, err
	}
	if len(buf) > 0 {
		first, n := tableRows(buf, unsafe.Sizeof(mibTCPRowOwnerPID{}))
		for i := uint32(0); i < n; i++ {
			row := (*mibTCPRowOwnerPID)(unsafe.Pointer(first + uintptr(i)*unsafe.Sizeof(mibTCPRowOwnerPID{})))
			if row.State == tcpStateListenWin && netToHostPort(row.LocalPort) == port {
				pids = append(pids, int(row.OwningPID))
			}
		}
	}

	buf, err = fetchTable(procGetExtendedTcp, afInet6, tcpTableOwnerPidAll)
	if err != nil {
		return nil, err
	}
	if len(buf) > 0 {
		first, n := tableRows(buf, unsafe.Sizeof(mibTCP6RowOwnerPID{}))
		for i := uint32(0); i < n; i++ {
			row := (*mibTCP6RowOwnerPID)(unsafe.Pointer(first + uintptr(i)*unsafe.Sizeof(mibTCP6RowOwnerPID{})))
			if row.State == tcpStateListenWin && netToHostPort(row.LocalPort) == port {
				pids = append(pids, int(row.OwningPID))
			}
		}
	}

	return pids, nil
}

// udpOwnersOnPort returns the owning pids of bound UDP sockets on port.
// UDP has no listen state, so every bound row matches.
func udpOwnersOnPort(port uint16) ([]int, error) {
	var pids []int

	buf, err := fetchTable(procGetExtendedUdp, afInet, udpTableOwnerPid)
	if err != nil {
		return nil, err
	}
	if len(buf) > 0 {
		first, n := tableRows(buf, unsafe.Sizeof(mibUDPRowOwnerPID{}))
		for i := uint32(0); i < n; i++ {
			row := (*mibUDPRowOwnerPID)(unsafe.Pointer(first + uintptr(i)*unsafe.Sizeof(mibUDPRowOwnerPID{})))
			if netToHostPort(row.LocalPort) == port {
				pids = append(pids, int(row.OwningPID))
			}
		}
	}

	buf, err = fetchTable(procGetExtendedUdp, afInet6, udpTableOwnerPid)
	if err != nil {
		return nil, err
	}
	if len(buf) > 0 {
		first, n := tableRows(buf, unsafe.Sizeof(mibUDP6RowOwnerPID{}))
		for i := uint32(0); i < n; i++ {
			row := (*mibUDP6RowOwnerPID)(unsafe.Pointer(first + uintptr(i)*unsafe.Sizeof(mibUDP6RowOwnerPID{})))
			if netToHostPort(row.LocalPort) == port {
				pids = append(pids, int(row.OwningPID))
			}
		}
	}

	return pids, nil
}
