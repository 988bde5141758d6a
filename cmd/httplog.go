package cmd

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// statusWriter proxies http.ResponseWriter
// and stores the requests status and length.
type statusWriter struct {
	http.ResponseWriter
	status int
	length int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (length int, err error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	length, err = w.ResponseWriter.Write(b)
	w.length += length
	return
}

// HttpLog calls ServeHTTP with a custom responsewriter that
// stores the requests status and length so we can log it.
func HttpLog(logger *zap.Logger, handle http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		start := time.Now()
		writer := statusWriter{ResponseWriter: w}
		handle.ServeHTTP(&writer, request)
		if writer.status == 0 {
			writer.status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("remote", request.RemoteAddr),
			zap.String("method", request.Method),
			zap.String("path", request.URL.Path),
			zap.String("proto", request.Proto),
			zap.Int("status", writer.status),
			zap.Int("length", writer.length),
			zap.String("useragent", request.Header.Get("User-Agent")),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case writer.status >= 500:
			logger.Error("request", fields...)
		case writer.status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
