package reaper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// defaultConcurrency bounds the per-port worker pool. Resolution is
// I/O-bound (kernel tables, runtime socket), so a small pool captures
// the parallelism without hammering /proc or the daemon.
const defaultConcurrency = 4

// TargetResolver resolves the kill targets for one port.
type TargetResolver interface {
	ResolveTargets(ctx context.Context, port uint16, mode model.Mode) ([]model.KillTarget, []string, error)
}

// ProcessKiller delivers a signal to a raw process.
type ProcessKiller interface {
	Signal(pid int, sig model.Signal) error
}

// ContainerKiller delivers a signal to a container via the runtime.
type ContainerKiller interface {
	SignalContainer(ctx context.Context, id string, sig model.Signal) error
}

// Options configures one run.
type Options struct {
	// Mode restricts the eligible target variants.
	Mode model.Mode

	// Signal is the validated signal to deliver.
	Signal model.Signal

	// DryRun resolves and reports without issuing any termination
	// call. The resolution path is identical to a real run.
	DryRun bool

	// AllowEmpty downgrades "no target found on a port" from a failure
	// to a success in the exit-status policy.
	AllowEmpty bool

	// FallbackToProcess controls the policy when a container target's
	// runtime signal delivery itself fails: when set, and the
	// container's main host pid is known, the raw process is signaled
	// instead. Off by default because the runtime then keeps tracking
	// a container whose process it did not see die.
	FallbackToProcess bool

	// Concurrency bounds the per-port worker pool; zero selects the
	// default.
	Concurrency int
}

// ExecutionPlan is the fully resolved work for one port.
type ExecutionPlan struct {
	Port    uint16
	Targets []model.KillTarget
	Mode    model.Mode
	DryRun  bool
	Signal  model.Signal
}

// Reaper executes termination plans. All fields are read-only after
// construction, so one Reaper is shared by the worker pool.
type Reaper struct {
	resolver   TargetResolver
	procs      ProcessKiller
	containers ContainerKiller // nil when the runtime is unavailable
}

// New creates a Reaper. containers may be nil when no runtime client
// exists; container targets then fail with RuntimeUnavailable.
func New(resolver TargetResolver, procs ProcessKiller, containers ContainerKiller) *Reaper {
	return &Reaper{
		resolver:   resolver,
		procs:      procs,
		containers: containers,
	}
}

// Run resolves and terminates the targets of every requested port and
// returns the aggregated report. Every distinct requested port appears
// exactly once in the report, in request order, even when nothing was
// found on it. Duplicate requests for the same port collapse to one.
func (r *Reaper) Run(ctx context.Context, ports []uint16, opts Options) model.RunReport {
	ports = dedupePorts(ports)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if concurrency > len(ports) {
		concurrency = len(ports)
	}

	type indexed struct {
		idx    int
		result model.PortResult
	}

	jobs := make(chan int)
	results := make(chan indexed)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- indexed{idx: idx, result: r.runPort(ctx, ports[idx], opts)}
			}
		}()
	}

	go func() {
		for idx := range ports {
			jobs <- idx
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Single-writer aggregation: only this goroutine touches the
	// report, regardless of pool size.
	ordered := make([]model.PortResult, len(ports))
	for res := range results {
		ordered[res.idx] = res.result
	}

	return model.RunReport{Ports: ordered}
}

// runPort resolves one port and executes its plan. Resolution failures
// become port-local results, never run-level errors: other ports must
// proceed regardless.
func (r *Reaper) runPort(ctx context.Context, port uint16, opts Options) model.PortResult {
	targets, warnings, err := r.resolver.ResolveTargets(ctx, port, opts.Mode)
	if err != nil {
		return model.PortResult{
			Port:     port,
			Warnings: append(warnings, fmt.Sprintf("resolution failed: %v", err)),
		}
	}

	plan := ExecutionPlan{
		Port:    port,
		Targets: targets,
		Mode:    opts.Mode,
		DryRun:  opts.DryRun,
		Signal:  opts.Signal,
	}
	result := r.Execute(ctx, plan, opts)
	result.Warnings = append(warnings, result.Warnings...)
	return result
}

// Execute applies the plan: one termination attempt (or simulation) per
// target, in resolution order.
func (r *Reaper) Execute(ctx context.Context, plan ExecutionPlan, opts Options) model.PortResult {
	result := model.PortResult{Port: plan.Port}

	for _, target := range plan.Targets {
		result.Targets = append(result.Targets, r.executeTarget(ctx, target, plan, opts))
	}

	return result
}

// executeTarget performs one termination, switching exhaustively over
// the target union.
func (r *Reaper) executeTarget(ctx context.Context, target model.KillTarget, plan ExecutionPlan, opts Options) model.TargetResult {
	if plan.DryRun {
		return model.TargetResult{
			Target:  target,
			Outcome: model.OutcomeSimulated,
			Detail:  fmt.Sprintf("would send %s to %s", plan.Signal, target.DisplayName()),
		}
	}

	switch target.Kind {
	case model.KindProcess:
		return r.killProcess(target, plan.Signal)
	case model.KindContainer:
		return r.killContainer(ctx, target, plan.Signal, opts)
	default:
		return model.TargetResult{
			Target:  target,
			Outcome: model.OutcomeNotFound,
			Detail:  "unrecognized target kind",
		}
	}
}

// killProcess signals a raw process and classifies the result.
func (r *Reaper) killProcess(target model.KillTarget, sig model.Signal) model.TargetResult {
	err := r.procs.Signal(target.Process.PID, sig)
	if err != nil {
		return model.TargetResult{
			Target:  target,
			Outcome: model.OutcomeForError(err),
			Detail:  err.Error(),
		}
	}
	return model.TargetResult{
		Target:  target,
		Outcome: model.OutcomeTerminated,
		Detail:  fmt.Sprintf("sent %s to %s", sig, target.DisplayName()),
	}
}

// killContainer signals a container through the runtime. Runtime
// failure is a hard per-target failure unless the fallback policy is
// enabled and a host pid is known: container state may not track a
// raw-process kill, so the fallback is opt-in.
func (r *Reaper) killContainer(ctx context.Context, target model.KillTarget, sig model.Signal, opts Options) model.TargetResult {
	if r.containers == nil {
		return r.containerRuntimeFailure(target, sig, opts,
			fmt.Errorf("%w: no runtime client", model.ErrRuntimeUnavailable))
	}

	err := r.containers.SignalContainer(ctx, target.Container.ID, sig)
	switch {
	case err == nil:
		return model.TargetResult{
			Target:  target,
			Outcome: model.OutcomeTerminated,
			Detail:  fmt.Sprintf("sent %s to %s", sig, target.DisplayName()),
		}
	case errors.Is(err, model.ErrAlreadyExited):
		return model.TargetResult{
			Target:  target,
			Outcome: model.OutcomeAlreadyExited,
			Detail:  err.Error(),
		}
	case errors.Is(err, model.ErrRuntimeUnavailable):
		return r.containerRuntimeFailure(target, sig, opts, err)
	default:
		return model.TargetResult{
			Target:  target,
			Outcome: model.OutcomeForError(err),
			Detail:  err.Error(),
		}
	}
}

// containerRuntimeFailure applies the configurable fallback policy for
// a container whose runtime signal delivery failed.
func (r *Reaper) containerRuntimeFailure(target model.KillTarget, sig model.Signal, opts Options, cause error) model.TargetResult {
	pid := target.Container.MainPID
	if !opts.FallbackToProcess || pid <= 0 {
		return model.TargetResult{
			Target:  target,
			Outcome: model.OutcomeRuntimeUnavailable,
			Detail:  cause.Error(),
		}
	}

	if err := r.procs.Signal(pid, sig); err != nil {
		return model.TargetResult{
			Target:  target,
			Outcome: model.OutcomeForError(err),
			Detail:  fmt.Sprintf("runtime failed (%v); raw-process fallback failed: %v", cause, err),
		}
	}
	return model.TargetResult{
		Target:  target,
		Outcome: model.OutcomeTerminated,
		Detail:  fmt.Sprintf("runtime failed (%v); sent %s to main process pid %d instead", cause, sig, pid),
	}
}

// dedupePorts keeps the first occurrence of each requested port,
// preserving request order.
func dedupePorts(ports []uint16) []uint16 {
	seen := make(map[uint16]bool, len(ports))
	out := make([]uint16, 0, len(ports))
	for _, p := range ports {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
