package tracing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const TraceIDHeader = "X-Trace-Id"

func InjectTraceID(ctx context.Context) context.Context {
	return injectTraceID(ctx, uuid.New().String())
}

func injectTraceID(ctx context.Context, id string) context.Context {
	logger := log.With().Str("traceId", id).Logger()
	return logger.WithContext(ctx)
}

// Middleware attaches a trace id logger to every request, reusing the
// caller's X-Trace-Id when it sends one
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TraceIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(TraceIDHeader, id)
		next.ServeHTTP(w, r.WithContext(injectTraceID(r.Context(), id)))
	})
}
