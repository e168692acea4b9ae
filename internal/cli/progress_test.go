package cli

import (
	"testing"
	"time"
)

func TestStartSpinnerDisabledReturnsNoop(t *testing.T) {
	t.Parallel()

	stop := startSpinner(false, "Transcribing")
	stop()
	stop()
}

func TestStartSpinnerStopsCleanly(t *testing.T) {
	t.Parallel()

	stop := startSpinner(true, "Transcribing")
	time.Sleep(150 * time.Millisecond)
	stop()
	stop()
}
