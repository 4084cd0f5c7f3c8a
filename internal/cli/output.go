// Package cli — output.go renders the run report and errors.
//
// Two formats are supported, selected by the global --json flag: a
// per-port human-readable text form on stdout, and a structured JSON
// document mirroring the engine's report types. Errors always go to
// stderr, in the matching format.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// printReport outputs the full run report in text or JSON format,
// depending on the global --json flag.
func printReport(report model.RunReport) {
	if IsJSONOutput() {
		printReportJSON(report)
	} else {
		printReportText(report)
	}
}

// printReportJSON outputs the report as structured JSON. The engine's
// types already carry the JSON field tags, so the report marshals
// directly without a parallel DTO layer.
func printReportJSON(report model.RunReport) {
	// MarshalIndent produces human-readable JSON with 2-space indentation.
	data, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(data))
}

// printReportText outputs one block per port:
//
//	Port 8080:
//	  terminated process "node" (pid 1234): sent SIGKILL to process "node" (pid 1234)
//	Port 9999: no matching service found
//
// Success lines are suppressed under --quiet; failures and warnings
// always print, on stderr.
func printReportText(report model.RunReport) {
	for _, port := range report.Ports {
		if port.Empty() {
			if !quiet {
				fmt.Printf("Port %d: no matching service found\n", port.Port)
			}
			printWarnings(port)
			continue
		}

		if !quiet {
			fmt.Printf("Port %d:\n", port.Port)
		}
		for _, tr := range port.Targets {
			line := targetLine(tr)
			if tr.Outcome.IsSuccess() {
				if !quiet {
					fmt.Printf("  %s\n", line)
				}
			} else {
				fmt.Fprintf(os.Stderr, "  %s\n", line)
			}
		}
		printWarnings(port)
	}
}

// targetLine formats a single target outcome as one report line.
func targetLine(tr model.TargetResult) string {
	label := fmt.Sprintf("%s %s", outcomeVerb(tr.Outcome), tr.Target.DisplayName())
	if tr.Detail != "" {
		return label + ": " + tr.Detail
	}
	return label
}

// outcomeVerb maps an outcome to the leading verb of its report line.
func outcomeVerb(o model.Outcome) string {
	switch o {
	case model.OutcomeTerminated:
		return "terminated"
	case model.OutcomeSimulated:
		return "would terminate"
	case model.OutcomeAlreadyExited:
		return "already exited:"
	case model.OutcomeNotFound:
		return "vanished:"
	case model.OutcomePermissionDenied:
		return "permission denied for"
	case model.OutcomeRuntimeUnavailable:
		return "runtime unavailable for"
	default:
		return "failed for"
	}
}

// printWarnings emits a port's degradation warnings to stderr.
func printWarnings(port model.PortResult) {
	for _, w := range port.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: port %d: %s\n", port.Port, w)
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode: stdout is reserved for
		// the report.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}
