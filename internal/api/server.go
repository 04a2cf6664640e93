// Package api exposes the timing core and the detection/cycle store
// over HTTP to the dashboard and the roadside units.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/flextraff/atcs/internal/controller"
	"github.com/flextraff/atcs/internal/db"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db       *db.DB
	registry *controller.Registry
}

func NewServer(database *db.DB, registry *controller.Registry) *Server {
	return &Server{
		db:       database,
		registry: registry,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/api/calculate", s.calculateTiming)
	mux.HandleFunc("/api/detections", s.logDetection)
	mux.HandleFunc("/api/junctions", s.listJunctions)
	mux.HandleFunc("/api/junction/status", s.junctionStatus)
	mux.HandleFunc("/api/junction/live-timing", s.liveTiming)
	mux.HandleFunc("/api/junction/history", s.junctionHistory)
	mux.HandleFunc("/api/connectivity", s.connectivitySnapshot)
	mux.HandleFunc("/api/analytics/daily-summary", s.dailySummary)
	mux.HandleFunc("/api/report/cycles", s.cyclesReport)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
