//go:build !linux

package docker

// containerIDForPID is a Linux concept: on macOS and Windows the
// runtime's containers live inside a VM, so no host pid maps to a
// container cgroup. Attribution on those platforms comes exclusively
// from the published-port container query.
func containerIDForPID(pid int) (id, kind string) {
	return "", ""
}
