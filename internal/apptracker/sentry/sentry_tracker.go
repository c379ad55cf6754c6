package sentry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// We need these variables to be able to mock sentry.CaptureMessage and sentry.CaptureException in tests since
// package level functions cannot be mocked
var (
	captureMessageFunc   = sentry.CaptureMessage
	captureExceptionFunc = sentry.CaptureException
	captureTaggedFunc    = captureTagged
	InitFunc             = sentry.Init
	FlushFunc            = sentry.Flush
	RecoverFunc          = sentry.Recover
)

func captureTagged(tags map[string]string, exception error) *sentry.EventID {
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTags(tags)
	return hub.CaptureException(exception)
}

type sentryTracker struct {
	FlushFreq int64
}

func (s *sentryTracker) CaptureMessage(message string) {
	captureMessageFunc(message)
}

func (s *sentryTracker) CaptureException(exception error) {
	captureExceptionFunc(exception)
}

func (s *sentryTracker) CaptureScenarioFailure(runID, scenario string, err error) {
	captureTaggedFunc(map[string]string{"run_id": runID, "scenario": scenario}, err)
}

// Flush waits up to FlushFreq seconds for buffered events to be sent.
func (s *sentryTracker) Flush() {
	FlushFunc(time.Second * time.Duration(s.FlushFreq))
}

func NewSentryTracker(dsn string, env string, flushFreq int) (*sentryTracker, error) {
	if err := InitFunc(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return nil, fmt.Errorf("unable to initialize sentry: %w", err)
	}
	defer RecoverFunc()
	return &sentryTracker{FlushFreq: int64(flushFreq)}, nil
}
