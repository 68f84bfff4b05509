package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// AccessLogConfig controls the request log.
type AccessLogConfig struct {
	SkipPaths            []string
	SlowRequestThreshold time.Duration
}

func DefaultAccessLogConfig() AccessLogConfig {
	return AccessLogConfig{
		SkipPaths:            []string{"/healthz"},
		SlowRequestThreshold: 20 * time.Second, // reputation polling alone takes ~10s
	}
}

// AccessLog writes one structured entry per request.
func AccessLog(log logrus.FieldLogger, cfg AccessLogConfig) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			took := time.Since(start)
			entry := log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"remote":     r.RemoteAddr,
				"took":       took.String(),
			})
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				entry.Error("request")
			case cfg.SlowRequestThreshold > 0 && took > cfg.SlowRequestThreshold:
				entry.Warn("slow request")
			default:
				entry.Info("request")
			}
		})
	}
}
