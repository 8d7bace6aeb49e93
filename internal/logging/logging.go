package logging

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
)

////////////////////////////////////////////////////////////////////////////////
// Logging Configuration Functions
////////////////////////////////////////////////////////////////////////////////

// InitLogger configures the global logger. Unknown levels fall back to info.
// When logFile is non-nil every entry is copied to it.
func InitLogger(level string, logFile io.Writer) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	if logFile != nil {
		log.AddHook(lfshook.NewHook(logFile, &log.JSONFormatter{}))
	}
}

////////////////////////////////////////////////////////////////////////////////
// Request Logging
////////////////////////////////////////////////////////////////////////////////

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware logs one line per request tagged with a fresh request id, which
// is also echoed in the X-Request-Id response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start),
		}).Info("request handled")
	})
}
