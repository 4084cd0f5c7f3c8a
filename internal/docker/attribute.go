package docker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// ErrNoContainer is the negative attribution answer: the process exists
// but does not belong to any recognizable container. Deliberately
// distinct from model.ErrRuntimeUnavailable, which means the question
// could not be asked at all.
var ErrNoContainer = errors.New("process is not containerized")

// AttributeByPID determines whether pid belongs to a container.
//
// The container identifier comes from the process's cgroup membership
// path (Linux only; other platforms run containers inside a VM whose
// pids don't correspond to host pids, so this path answers
// ErrNoContainer there and discovery falls through to the published-
// port query). The identifier is then enriched with the runtime's
// metadata. An unreachable runtime surfaces as ErrRuntimeUnavailable
// even when the cgroup already told us the id, because acting on a
// container without the runtime is impossible anyway.
func (c *Client) AttributeByPID(ctx context.Context, pid int) (model.ContainerTarget, error) {
	id, kind := containerIDForPID(pid)
	if id == "" {
		return model.ContainerTarget{}, fmt.Errorf("pid %d: %w", pid, ErrNoContainer)
	}

	target := model.ContainerTarget{
		ID:      id,
		Runtime: kind,
		MainPID: pid,
	}

	inspectCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	info, err := c.inner.ContainerInspect(inspectCtx, id)
	switch {
	case err == nil:
		target.Name = strings.TrimPrefix(info.Name, "/")
		if info.State != nil && info.State.Pid > 0 {
			// Prefer the runtime's notion of the main process over
			// the pid that happened to own the socket.
			target.MainPID = info.State.Pid
		}
	case client.IsErrNotFound(err):
		// The cgroup names a container this daemon doesn't manage
		// (e.g. raw containerd). Attribution stands; only the friendly
		// name is unavailable.
		target.Name = shortContainerID(id)
	default:
		return model.ContainerTarget{}, fmt.Errorf("%w: inspecting container %s: %v",
			model.ErrRuntimeUnavailable, shortContainerID(id), err)
	}

	return target, nil
}

// ContainersPublishingPort lists running containers that publish the
// given host port. This is the cross-platform discovery path: it works
// even when the host socket is owned by the runtime's proxy process
// rather than the containerized workload itself.
func (c *Client) ContainersPublishingPort(ctx context.Context, port uint16) ([]model.ContainerTarget, error) {
	listCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filterArgs := filters.NewArgs(
		filters.Arg("publish", strconv.Itoa(int(port))),
		filters.Arg("status", "running"),
	)

	containers, err := c.inner.ContainerList(listCtx, container.ListOptions{
		Filters: filterArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing containers publishing port %d: %v",
			model.ErrRuntimeUnavailable, port, err)
	}

	targets := make([]model.ContainerTarget, 0, len(containers))
	for _, ctr := range containers {
		name := ""
		if len(ctr.Names) > 0 {
			// The API prefixes names with "/".
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		targets = append(targets, model.ContainerTarget{
			ID:      ctr.ID,
			Name:    name,
			Runtime: "docker",
		})
	}
	return targets, nil
}

// shortContainerID truncates an id to the conventional 12-char prefix.
func shortContainerID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
