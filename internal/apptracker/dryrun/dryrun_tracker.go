package dryrun

import (
	"fmt"
	"io"
	"os"
)

// DryRunTracker prints what would be reported instead of sending it anywhere.
type DryRunTracker struct {
	Out io.Writer
}

func (d *DryRunTracker) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *DryRunTracker) CaptureMessage(message string) {
	fmt.Fprintln(d.out(), message)
}

func (d *DryRunTracker) CaptureException(exception error) {
	fmt.Fprintln(d.out(), exception)
}

func (d *DryRunTracker) CaptureScenarioFailure(runID, scenario string, err error) {
	fmt.Fprintf(d.out(), "[run %s] scenario %q failed: %v\n", runID, scenario, err)
}

func (d *DryRunTracker) Flush() {}
