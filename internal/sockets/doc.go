// Package sockets enumerates the listening sockets bound to a given
// port and maps them to owning processes.
//
// The three platforms expose incompatible kernel interfaces for this:
//
//   - Linux publishes textual socket tables under /proc/net/* keyed by
//     socket inode, and the inode-to-pid join goes through each
//     process's /proc/<pid>/fd directory.
//   - macOS has no global table; ownership is discovered by walking
//     every live process's descriptor table (via lsof, which wraps
//     proc_pidinfo).
//   - Windows returns the owning pid directly from the iphlpapi
//     extended TCP/UDP tables, so no join step exists.
//
// The package hides all of that behind a single Enumerator capability,
// selected per platform at build time. Nothing outside this package
// branches on the operating system to find a socket owner.
package sockets
