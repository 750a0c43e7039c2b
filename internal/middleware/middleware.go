package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/handlers"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/pkg/logger_i"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

type Options struct {
	AuthToken    string
	NoAuthBypass bool
	// RatePerSecond, Burst and LimiterIdle fall back to the config defaults when zero.
	RatePerSecond float64
	Burst         int
	LimiterIdle   time.Duration
}

var settings = Options{}

var GetHandler = Wrap(handlers.GetHandler)
var HealthHandler = Wrap(handlers.HealthHandler)
var QueryHandler = Wrap(handlers.QueryHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var UploadHandler = Wrap(handlers.UploadHandler)
var ListDocumentsHandler = Wrap(handlers.ListDocumentsHandler)
var DeleteDocumentHandler = Wrap(handlers.DeleteDocumentHandler)

// Init must run before the router serves traffic.
func Init(opts Options) {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = config.RATE_LIMIT_PER_SECOND
	}
	if opts.Burst <= 0 {
		opts.Burst = config.BURST_RATE_LIMIT_PER_SECOND
	}
	if opts.LimiterIdle <= 0 {
		opts.LimiterIdle = config.RateLimiterIdleTTL
	}
	settings = opts
	limiterInstance = NewIPRateLimiter(rate.Limit(opts.RatePerSecond), opts.Burst, opts.LimiterIdle)
}

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if !handleBadRequest(re) {
			metrics.HttpRequestsTotal.WithLabelValues(routeLabel(r), strconv.Itoa(rec.Status)).Inc()
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	return rateLimiter(re)
}
