//go:build windows

package model

// Windows has no kill(2)-style signal delivery; processes are ended with
// TerminateProcess regardless of the chosen signal. The table below
// covers the names users actually pass so that validation, reporting and
// container signaling (where the runtime interprets the name inside a
// Linux VM) still behave consistently. Numbers follow Linux numbering
// because that is what the containerized side will see.
var windowsSignals = map[string]int{
	"SIGHUP":  1,
	"SIGINT":  2,
	"SIGQUIT": 3,
	"SIGKILL": 9,
	"SIGUSR1": 10,
	"SIGUSR2": 12,
	"SIGTERM": 15,
	"SIGSTOP": 19,
}

func signalNum(name string) int {
	return windowsSignals[name]
}

func signalName(num int) string {
	for name, n := range windowsSignals {
		if n == num {
			return name
		}
	}
	return ""
}
