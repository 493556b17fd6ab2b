package logster

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// LogsterMiddleware logs every request served by a chi router.
func LogsterMiddleware(logger Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.
					WithField("method", r.Method).
					WithField("path", r.URL.Path).
					WithField("status", ww.Status()).
					WithField("duration", time.Since(start).String()).
					Infof("request served")
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
