package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// GoroutineCountCheck fails when the process runs more than threshold goroutines.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is satisfied by *pgxpool.Pool and the broker publisher.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts a Pinger into a CheckFunc.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// Status serves /health: a live database round trip wrapped in the API
// envelope. It answers 500 when the database is unreachable.
func Status(db CheckFunc, timeout time.Duration, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			status  = http.StatusOK
			success = true
			message = "Server is running"
			dbState = "connected"
		)
		if err := db(ctx); err != nil {
			zctx.From(r.Context()).Warn("Database health check failed", zap.Error(err))
			status = http.StatusInternalServerError
			success = false
			message = "Server is running but database is disconnected"
			dbState = "disconnected"
		}

		e := jx.GetEncoder()
		defer jx.PutEncoder(e)
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(success) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			e.Field("database", func(e *jx.Encoder) { e.Str(dbState) })
			e.Field("timestamp", func(e *jx.Encoder) {
				e.Str(now().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
			})
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(e.Bytes())
	}
}
