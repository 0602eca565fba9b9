package downloader

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"ebookdl/pkg/errors"
	"ebookdl/pkg/fetch"
)

// errIdle is the cancel cause used when a body stops delivering bytes
var errIdle = stderrors.New("no data received")

// idleReader cancels the request when no read completes within timeout.
// Every completed read pushes the deadline forward, so a slow but steady
// transfer is never cut off.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func newIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelCauseFunc) *idleReader {
	return &idleReader{
		r:       r,
		timer:   time.AfterFunc(timeout, func() { cancel(errIdle) }),
		timeout: timeout,
	}
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	ir.timer.Reset(ir.timeout)
	return n, err
}

// Stop disarms the deadline
func (ir *idleReader) Stop() {
	ir.timer.Stop()
}

// interrupted classifies a failed transfer, reporting an idle cancel as a timeout
func interrupted(ctx context.Context, err error, message string, timeout time.Duration) error {
	if stderrors.Is(context.Cause(ctx), errIdle) {
		return errors.Wrap(errors.ErrorTypeTimeout,
			fmt.Sprintf("%s: nothing received for %s", message, timeout), errIdle)
	}
	return fetch.Classify(err, message)
}
