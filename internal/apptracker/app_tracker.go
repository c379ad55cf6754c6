// Package apptracker reports failed scenarios and leaked resources to an error tracker.
package apptracker

type AppTracker interface {
	CaptureMessage(message string)
	CaptureException(exception error)
	// CaptureScenarioFailure reports err tagged with the run and scenario it happened in.
	CaptureScenarioFailure(runID, scenario string, err error)
	Flush()
}
