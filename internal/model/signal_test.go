package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseSignal_Names verifies that signal names are accepted
// case-insensitively, with or without the SIG prefix, and normalize to
// the canonical SIG-prefixed form.
func TestParseSignal_Names(t *testing.T) {
	for _, spec := range []string{"sigterm", "SIGTERM", "term", "TERM", "Term"} {
		sig, err := ParseSignal(spec)
		require.NoError(t, err, "spec %q should parse", spec)
		assert.Equal(t, "SIGTERM", sig.Name, "spec %q should normalize to SIGTERM", spec)
		assert.Positive(t, sig.Num, "SIGTERM must map to a real signal number")
	}
}

// TestParseSignal_Number verifies that a numeric spec resolves back to a
// canonical name, so outcome details never report a bare number.
func TestParseSignal_Number(t *testing.T) {
	sig, err := ParseSignal("9")
	require.NoError(t, err)
	assert.Equal(t, "SIGKILL", sig.Name)
	assert.Equal(t, 9, sig.Num)
}

// TestParseSignal_Invalid verifies that garbage specs fail validation.
// An unparseable signal must abort before any resolution begins.
func TestParseSignal_Invalid(t *testing.T) {
	for _, spec := range []string{"", "SIGBOGUS", "notasignal", "-3", "0", "99999"} {
		_, err := ParseSignal(spec)
		assert.Error(t, err, "spec %q should be rejected", spec)
	}
}

// TestDefaultSignal verifies the default is SIGKILL, the most severe
// unmaskable termination signal.
func TestDefaultSignal(t *testing.T) {
	sig := DefaultSignal()
	assert.Equal(t, "SIGKILL", sig.Name)
	assert.False(t, sig.IsGraceful(), "SIGKILL is not a graceful signal")
}

// TestSignal_IsGraceful verifies the graceful/forceful split that decides
// between a container stop and a container kill.
func TestSignal_IsGraceful(t *testing.T) {
	term, err := ParseSignal("sigterm")
	require.NoError(t, err)
	assert.True(t, term.IsGraceful())

	kill, err := ParseSignal("sigkill")
	require.NoError(t, err)
	assert.False(t, kill.IsGraceful())
}
