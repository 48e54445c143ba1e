package payload

import "fmt"

// Preset payloads for common orchestration scenarios.

// DependencyCompleted notifies a worker that an upstream task it was waiting
// on has finished.
func DependencyCompleted(taskName, summary string, insights []string) Payload {
	p := NewCompletion(fmt.Sprintf(
		"Upstream dependency '%s' has completed.\n\nSummary: %s\n\nYou can now proceed with your task using this context.",
		taskName, summary), nil)
	p = p.WithMetadata("upstream_task", taskName)
	p = p.WithMetadata("summary", summary)
	return p.WithMetadata("insights", insights)
}

// TaskReady tells a worker its task is unblocked.
func TaskReady(taskName, context string) Payload {
	p := NewContext(fmt.Sprintf("Task '%s' is ready to start.\n\nContext: %s", taskName, context))
	return p.WithMetadata("task", taskName)
}

// TestFailed reports a failing test as a blocker.
func TestFailed(testName, errText string) Payload {
	p := NewBlock(fmt.Sprintf(
		"Test '%s' failed with error:\n\n%s\n\nPlease fix the failing test before proceeding.",
		testName, errText))
	p = p.WithMetadata("test", testName)
	return p.WithMetadata("error", errText)
}

// SecurityWarning surfaces an audit finding.
func SecurityWarning(issue, severity string) Payload {
	p := NewWarning(fmt.Sprintf(
		"Security audit found %s severity issue:\n\n%s\n\nPlease address this security concern.",
		severity, issue))
	return p.WithMetadata("severity", severity)
}

// CodeReviewFeedback delivers review comments for a file.
func CodeReviewFeedback(file, feedback string) Payload {
	p := NewContext(fmt.Sprintf("Code review feedback for %s:\n\n%s", file, feedback))
	return p.WithMetadata("file", file)
}
