// Package docker is the container runtime capability: it attributes
// processes to containers and delivers signals to them.
//
// Attribution has two paths. On Linux, a process's cgroup membership
// path carries the container identifier for the major runtimes, and the
// Docker API enriches it with the friendly name and running state. On
// every platform, containers publishing the requested port are
// discoverable through the API's publish filter — which is also the
// only path that works when the runtime's own proxy process (Docker
// Desktop, docker-proxy) is what actually owns the host socket.
//
// An unreachable runtime is reported as model.ErrRuntimeUnavailable,
// which is a different answer than "this process is not containerized"
// (ErrNoContainer). Callers degrade differently on the two: the first
// is a capability loss worth a warning, the second is a plain negative.
//
// This package never terminates a raw process; it only attributes
// ownership and signals containers through the runtime.
package docker
