package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// stopGraceSeconds is how long a graceful stop waits for the container's
// main process before the daemon escalates to SIGKILL.
const stopGraceSeconds = 10

// SignalContainer delivers sig to the container's main process through
// the runtime.
//
// A graceful signal maps to the runtime's stop operation, which sends
// the configured stop signal and escalates after the grace period —
// that keeps the runtime's view of the container state consistent,
// which a raw SIGTERM to the contained pid would not. Forceful signals
// go through the kill endpoint with the signal name verbatim.
//
// Errors map onto the taxonomy: a vanished container is
// model.ErrAlreadyExited (benign race), an unreachable daemon is
// model.ErrRuntimeUnavailable. The latter is a hard per-target failure
// for container targets; falling back to raw pid signaling here would
// leave the runtime tracking a container whose process it did not see
// die.
func (c *Client) SignalContainer(ctx context.Context, id string, sig model.Signal) error {
	callCtx, cancel := context.WithTimeout(ctx, queryTimeout+stopGraceSeconds*time.Second)
	defer cancel()

	var err error
	if sig.IsGraceful() {
		timeout := stopGraceSeconds
		err = c.inner.ContainerStop(callCtx, id, container.StopOptions{
			Signal:  sig.Name,
			Timeout: &timeout,
		})
	} else {
		err = c.inner.ContainerKill(callCtx, id, sig.Name)
	}

	switch {
	case err == nil:
		return nil
	case client.IsErrNotFound(err):
		return fmt.Errorf("container %s: %w", shortContainerID(id), model.ErrAlreadyExited)
	default:
		return fmt.Errorf("%w: signaling container %s with %s: %v",
			model.ErrRuntimeUnavailable, shortContainerID(id), sig, err)
	}
}
