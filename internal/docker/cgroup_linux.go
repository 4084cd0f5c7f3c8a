//go:build linux

package docker

import (
	"os"
	"regexp"
	"strconv"
)

// The container id is embedded in the process's cgroup path by every
// major runtime, in slightly different shapes:
//
//	/docker/<64-hex>                      plain dockerd, cgroup v1
//	/system.slice/docker-<64-hex>.scope   dockerd under systemd, cgroup v2
//	/...cri-containerd-<64-hex>.scope     containerd CRI (kubernetes)
//	/...libpod-<64-hex>.scope             podman
//
// Match order matters only for reporting the runtime kind; the id
// itself is a 64-hex string in all shapes.
var cgroupPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"docker", regexp.MustCompile(`docker[-/]([0-9a-f]{64})`)},
	{"containerd", regexp.MustCompile(`cri-containerd[-:]([0-9a-f]{64})`)},
	{"podman", regexp.MustCompile(`libpod-([0-9a-f]{64})`)},
}

// containerIDForPID extracts the container identifier from the
// process's cgroup membership path. Returns "", "" when the process is
// not in any recognizable container cgroup, or when the cgroup file is
// unreadable (exited process, insufficient privilege) — the caller
// cannot distinguish those and treats both as "not containerized".
func containerIDForPID(pid int) (id, kind string) {
	return parseCgroupFile("/proc/" + strconv.Itoa(pid) + "/cgroup")
}

// parseCgroupFile applies the runtime patterns to a cgroup file's
// contents. Split out from containerIDForPID so fixture files can
// exercise the patterns in tests.
func parseCgroupFile(path string) (id, kind string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	return matchCgroupContent(string(data))
}

func matchCgroupContent(content string) (id, kind string) {
	for _, p := range cgroupPatterns {
		if m := p.re.FindStringSubmatch(content); m != nil {
			return m[1], p.kind
		}
	}
	return "", ""
}
