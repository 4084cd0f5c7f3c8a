package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseMode verifies that the three valid modes parse case-insensitively
// and that anything else is rejected.
func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"process", ModeProcess, false},
		{"container", ModeContainer, false},
		{"both", ModeBoth, false},
		{"BOTH", ModeBoth, false},
		{"Process", ModeProcess, false},
		{"auto", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q should be rejected", tt.input)
			continue
		}
		require.NoError(t, err, "input %q should parse", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

// TestKillTarget_Identity verifies the deduplication keys: pid-based for
// processes, container-id-based for containers. Two targets representing
// the same underlying process must yield the same identity.
func TestKillTarget_Identity(t *testing.T) {
	p1 := NewProcessTarget(ProcessTarget{PID: 4242, Name: "nginx"})
	p2 := NewProcessTarget(ProcessTarget{PID: 4242, Name: "nginx-worker"})
	c := NewContainerTarget(ContainerTarget{ID: "abc123", Name: "web", Runtime: "docker"})

	// Same pid, different resolved names — still the same process.
	assert.Equal(t, p1.Identity(), p2.Identity())
	assert.Equal(t, "pid:4242", p1.Identity())
	assert.Equal(t, "container:abc123", c.Identity())
	assert.NotEqual(t, p1.Identity(), c.Identity())
}

// TestOutcome_IsSuccess verifies which outcomes satisfy the per-port
// success policy. AlreadyExited counts as success because the goal state
// (nothing holding the port) was reached either way.
func TestOutcome_IsSuccess(t *testing.T) {
	assert.True(t, OutcomeTerminated.IsSuccess())
	assert.True(t, OutcomeSimulated.IsSuccess())
	assert.True(t, OutcomeAlreadyExited.IsSuccess())

	assert.False(t, OutcomeNotFound.IsSuccess())
	assert.False(t, OutcomePermissionDenied.IsSuccess())
	assert.False(t, OutcomeRuntimeUnavailable.IsSuccess())
}

// TestRunReport_ExitCode_AllTerminated verifies exit 0 when every port
// had at least one successful termination.
func TestRunReport_ExitCode_AllTerminated(t *testing.T) {
	report := RunReport{Ports: []PortResult{
		{Port: 8080, Targets: []TargetResult{
			{Target: NewProcessTarget(ProcessTarget{PID: 1}), Outcome: OutcomeTerminated},
		}},
		{Port: 9090, Targets: []TargetResult{
			{Target: NewContainerTarget(ContainerTarget{ID: "c1"}), Outcome: OutcomeTerminated},
		}},
	}}

	assert.Equal(t, ExitSuccess, report.ExitCode(false))
}

// TestRunReport_ExitCode_NothingFound verifies the "nothing found" exit
// code for a port with zero resolved targets, and that --allow-empty
// downgrades it to success.
func TestRunReport_ExitCode_NothingFound(t *testing.T) {
	report := RunReport{Ports: []PortResult{
		{Port: 8080, Targets: []TargetResult{
			{Target: NewProcessTarget(ProcessTarget{PID: 1}), Outcome: OutcomeTerminated},
		}},
		{Port: 9999}, // no listener resolved
	}}

	assert.Equal(t, ExitNothingFound, report.ExitCode(false))
	assert.Equal(t, ExitSuccess, report.ExitCode(true), "--allow-empty should tolerate empty ports")
}

// TestRunReport_ExitCode_TerminationFailed verifies that a port whose
// targets all failed yields the termination-failed code, and that it
// takes precedence over a nothing-found port in the same run.
func TestRunReport_ExitCode_TerminationFailed(t *testing.T) {
	report := RunReport{Ports: []PortResult{
		{Port: 9999}, // nothing found
		{Port: 8080, Targets: []TargetResult{
			{Target: NewProcessTarget(ProcessTarget{PID: 1}), Outcome: OutcomePermissionDenied},
		}},
	}}

	assert.Equal(t, ExitTerminationFailed, report.ExitCode(false))
}

// TestOutcomeForError verifies the taxonomy-error-to-outcome mapping used
// by the orchestrator when a termination call fails.
func TestOutcomeForError(t *testing.T) {
	assert.Equal(t, OutcomeAlreadyExited, OutcomeForError(ErrAlreadyExited))
	assert.Equal(t, OutcomePermissionDenied, OutcomeForError(ErrPermissionDenied))
	assert.Equal(t, OutcomeRuntimeUnavailable, OutcomeForError(ErrRuntimeUnavailable))
	assert.Equal(t, OutcomeNotFound, OutcomeForError(ErrNotFound))
}

// TestCLIError_Unwrap verifies that CLIError participates in Go error
// wrapping so errors.Is can see through it to sentinel errors.
func TestCLIError_Unwrap(t *testing.T) {
	wrapped := WrapCLIError(ExitGeneralError, "inspect failed", ErrPermissionDenied)

	assert.ErrorIs(t, wrapped, ErrPermissionDenied)
	assert.Contains(t, wrapped.Error(), "inspect failed")
}
