// Package resolver turns a (port, mode) request into the deduplicated
// set of kill targets.
//
// It composes the three discovery capabilities — socket enumeration,
// pid resolution, container attribution — behind small interfaces so
// each can be faked in tests, and owns the policy decisions: mode
// filtering, the container-over-process tie-break, collapse of multiple
// ownership keys onto one owner, and the degraded behavior when the
// container runtime is unreachable.
package resolver
