package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAlertingErrorHandler_NotifiesOnlyOnFinalAttempt(t *testing.T) {
	var buf bytes.Buffer
	var notified []int
	handler := NewAlertingErrorHandler(slog.New(slog.NewTextHandler(&buf, nil)), func(_ context.Context, job *rivertype.JobRow, _ error) {
		notified = append(notified, job.Attempt)
	})

	ctx := context.Background()
	handler.HandleError(ctx, &rivertype.JobRow{ID: 1, Kind: JobKindOrphanSweep, Attempt: 1, MaxAttempts: 3}, errors.New("s3 down"))
	assert.Empty(t, notified)
	assert.Contains(t, buf.String(), "will retry")
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	handler.HandleError(ctx, &rivertype.JobRow{ID: 1, Kind: JobKindOrphanSweep, Attempt: 3, MaxAttempts: 3}, errors.New("s3 down"))
	assert.Equal(t, []int{3}, notified)
	assert.Contains(t, buf.String(), "failed permanently")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestAlertingErrorHandler_Panic(t *testing.T) {
	var got error
	handler := NewAlertingErrorHandler(nil, func(_ context.Context, _ *rivertype.JobRow, err error) {
		got = err
	})

	result := handler.HandlePanic(context.Background(), &rivertype.JobRow{ID: 2, Kind: JobKindOrphanSweep}, "nil map", "trace")
	assert.Nil(t, result)
	assert.EqualError(t, got, "panic: nil map")
}
