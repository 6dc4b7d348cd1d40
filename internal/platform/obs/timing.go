package obs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// Time returns a func to defer with a pointer to the named error result.
// It logs the operation duration and records it in the operation histogram.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		var err error
		if errp != nil {
			err = *errp
		}
		Default().ObserveOperation(name, dur, err)

		entry := Logger().WithFields(logrus.Fields{
			"req_id": reqID,
			"op":     name,
			"dur_ms": dur.Milliseconds(),
		})
		if err != nil {
			entry.WithError(err).Warn("operation failed")
			return
		}
		entry.Debug("operation finished")
	}
}
