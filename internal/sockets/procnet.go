package sockets

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// tcpStateListen is the hex state value for TCP LISTEN in /proc/net/tcp.
const tcpStateListen = "0A"

// procNetEntry is one parsed row of a /proc/net/{tcp,tcp6,udp,udp6}
// table: the locally bound port, the socket state, and the socket inode
// that joins the row to an owning process.
type procNetEntry struct {
	LocalPort uint16
	State     string
	Inode     uint64
}

// parseProcNet reads a /proc/net socket table and returns its rows.
//
// The table format is a header line followed by whitespace-separated
// rows. The fields of interest are:
//
//	field 1: local_address as hexIP:hexPort
//	field 3: connection state in hex ("0A" is TCP LISTEN)
//	field 9: socket inode (decimal)
//
// Malformed rows are skipped, not fatal: the kernel snapshot is
// inherently racy and a torn read of one row must not hide the rest.
func parseProcNet(r io.Reader) []procNetEntry {
	var entries []procNetEntry

	scanner := bufio.NewScanner(r)
	scanner.Scan() // skip header

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}

		port, ok := parseHexPort(fields[1])
		if !ok {
			continue
		}

		inode, err := strconv.ParseUint(fields[9], 10, 64)
		if err != nil {
			continue
		}

		entries = append(entries, procNetEntry{
			LocalPort: port,
			State:     fields[3],
			Inode:     inode,
		})
	}

	return entries
}

// parseHexPort extracts the port from a local_address field of the form
// "0100007F:1F90" (IPv4) or 32 hex chars + ":1F90" (IPv6). Only the
// port half matters here; the address is irrelevant for ownership.
func parseHexPort(local string) (uint16, bool) {
	idx := strings.LastIndexByte(local, ':')
	if idx < 0 {
		return 0, false
	}
	port, err := strconv.ParseUint(local[idx+1:], 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(port), true
}

// matchingInodes filters a parsed table down to the inodes bound to
// wantPort. When requireListen is set (TCP), only rows in the LISTEN
// state match; bound UDP sockets match in any state.
func matchingInodes(entries []procNetEntry, wantPort uint16, requireListen bool) []uint64 {
	var inodes []uint64
	for _, e := range entries {
		if e.LocalPort != wantPort {
			continue
		}
		if requireListen && e.State != tcpStateListen {
			continue
		}
		if e.Inode == 0 {
			// Inode 0 marks sockets in transient states (TIME_WAIT)
			// that no longer belong to any descriptor table.
			continue
		}
		inodes = append(inodes, e.Inode)
	}
	return inodes
}
