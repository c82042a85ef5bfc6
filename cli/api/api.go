package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/oaiiae/contacts-directory/datastores"
	"github.com/oaiiae/contacts-directory/handlers"
	"github.com/oaiiae/contacts-directory/router"
	"github.com/oaiiae/contacts-directory/views"
)

type ServerOptions struct {
	Host              string        `short:"H" doc:"host to listen on"                    default:""`
	Port              string        `short:"p" doc:"port to listen on"                    default:"8888"`
	ReadHeaderTimeout time.Duration `          doc:"time allowed to read request headers" default:"15s"`
}

func NewServer(options *ServerOptions, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              options.Host + ":" + options.Port,
		ReadHeaderTimeout: options.ReadHeaderTimeout,
		Handler:           handler,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

type RouterOptions struct {
	EndpointsPrefix string `doc:"mount endpoints at a prefix" default:"/api"`
}

type BuildInfo struct {
	Title    string
	Version  string
	Revision string
	Created  string
}

// NewRouter serves the contacts REST API under the endpoints prefix and the
// contacts pages everywhere else. Metrics are written to metriks, which
// store metrics are expected to share.
func NewRouter(
	options *RouterOptions,
	info BuildInfo,
	store datastores.ContactsStore,
	metriks *metrics.Set,
	logger *slog.Logger,
) http.Handler {
	buildinfoMetric := joinQuote("build_info{goversion=", runtime.Version(),
		",title=", info.Title,
		",version=", info.Version,
		",revision=", info.Revision,
		",created=", info.Created,
		"} 1\n")
	meter := newRequestMeter(metriks)
	return router.New(info.Title, info.Version,
		func(_ http.ResponseWriter, _ *http.Request) {},
		func(w io.Writer) {
			fmt.Fprint(w, buildinfoMetric)
			metriks.WritePrometheus(w)
			metrics.WriteProcessMetrics(w)
		},
		pagesMiddleware(logger, meter, &views.Pages{Store: store, Logger: logger}),
		apiOptions(options, store, meter, logger)...,
	)
}

// NewAPI registers the same operations as [NewRouter] on a bare [huma.API].
func NewAPI(options *RouterOptions, info BuildInfo, store datastores.ContactsStore, logger *slog.Logger) huma.API {
	return router.NewAPI(info.Title, info.Version, apiOptions(options, store, newRequestMeter(metrics.NewSet()), logger)...)
}

func apiOptions(
	options *RouterOptions,
	store datastores.ContactsStore,
	meter *requestMeter,
	logger *slog.Logger,
) []func(huma.API) {
	return []func(huma.API){
		router.OptUseMiddleware(
			ctxlog{}.loggerMiddleware(logger),
			meter.middleware,
			ctxlog{}.recoverMiddleware(logger),
		),
		router.OptGroup(options.EndpointsPrefix,
			router.OptGroup("/contacts", router.OptAutoRegister(&handlers.Contacts{
				Store:        store,
				ErrorHandler: ctxlog{}.errorHandler(logger),
			})),
		),
	}
}

// ctxlog is a [context.Context] key and acts as a virtual package for operations related to it.
type ctxlog struct{}

// loggerMiddleware returns a middleware that sets a [slog.Logger] in
// the [context.Context] and logs the request after it has terminated.
// Requests without an X-Request-Id header are given one.
func (key ctxlog) loggerMiddleware(parent *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := requestID(ctx.Header("X-Request-Id"))
		ctx.SetHeader("X-Request-Id", requestID)
		logger := parent.With("x-request-id", requestID)

		start := time.Now()
		next(huma.WithValue(ctx, key, logger.WithGroup("op").With("id", ctx.Operation().OperationID)))

		logRequest(logger, joinSpace(ctx.Operation().Method, ctx.Operation().Path, ctx.Version().Proto),
			ctx.RemoteAddr(), ctx.Header("Referer"), ctx.Header("User-Agent"), ctx.Status(), start)
	}
}

// requestID returns header, or a new id when the client sent none.
func requestID(header string) string {
	if header != "" {
		return header
	}
	return uuid.Must(uuid.NewV7()).String()
}

func logRequest(logger *slog.Logger, msg, from, ref, ua string, status int, start time.Time) {
	logger.LogAttrs(context.Background(), slog.LevelInfo, msg,
		slog.String("from", from),
		slog.String("ref", ref),
		slog.String("ua", ua),
		slog.Int("status", status),
		slog.Duration("dur", time.Since(start)),
	)
}

// recoverMiddleware returns a middleware that recovers and logs the value from panic.
// Also sets status response to [http.StatusInternalServerError].
func (key ctxlog) recoverMiddleware(fallback *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			v := recover()
			if v != nil {
				logger, ok := ctx.Context().Value(key).(*slog.Logger)
				if !ok {
					logger = fallback
				}
				logger.LogAttrs(context.Background(), slog.LevelError, "panic occurred", slog.Any("recovered", v))
				ctx.SetStatus(http.StatusInternalServerError)
			}
		}()
		next(ctx)
	}
}

// errorHandler returns a function that gets the [slog.Logger] from [context.Context] and logs the error.
// Unsaved changes are only worth a warning.
func (key ctxlog) errorHandler(fallback *slog.Logger) func(context.Context, error) {
	return func(ctx context.Context, err error) {
		level := slog.LevelError
		attrs := []slog.Attr{slog.Any("err", err)}

		var statusErr huma.StatusError
		switch {
		case errors.Is(err, datastores.ErrPersistence):
			level = slog.LevelWarn
		case errors.As(err, &statusErr):
			switch statusErr.GetStatus() / 100 {
			case 5: //nolint: mnd // 5XX HTTP Status Codes
				level = slog.LevelError
			case 4: //nolint: mnd // 4XX HTTP Status Codes
				level = slog.LevelWarn
			case 3: //nolint: mnd // 3XX HTTP Status Codes
				level = slog.LevelInfo
			}
			attrs = append(attrs, slog.Int("status", statusErr.GetStatus()))
		}

		logger, ok := ctx.Value(key).(*slog.Logger)
		if !ok {
			logger = fallback
		}
		logger.LogAttrs(context.Background(), level, "error occurred", attrs...)
	}
}

// requestMeter counts and times requests by method, route and status, for
// API operations and pages alike.
type requestMeter struct {
	set     *metrics.Set
	buckets []float64
	refsMu  sync.Mutex
	refs    sync.Map
}

type meterRef struct {
	*metrics.Counter
	*metrics.PrometheusHistogram
}

func newRequestMeter(set *metrics.Set) *requestMeter {
	return &requestMeter{set: set, buckets: metrics.ExponentialBuckets(1e-3, 5, 6)} //nolint: mnd // arbitrary
}

func (m *requestMeter) observe(method, path string, status int, start time.Time) {
	uid := joinSpace(method, path, strconv.Itoa(status))
	val, ok := m.refs.Load(uid)
	if !ok {
		m.refsMu.Lock()
		val, ok = m.refs.Load(uid)
		if !ok {
			labels := joinQuote("{method=", method, ",path=", path, ",status=", strconv.Itoa(status), "}")
			val = meterRef{
				m.set.GetOrCreateCounter("http_requests_total" + labels),
				m.set.GetOrCreatePrometheusHistogramExt("http_request_duration_seconds"+labels, m.buckets),
			}
			m.refs.Store(uid, val)
		}
		m.refsMu.Unlock()
	}
	ref := val.(meterRef) //nolint: errcheck // always true
	ref.Counter.Inc()
	ref.PrometheusHistogram.UpdateDuration(start)
}

func (m *requestMeter) middleware(ctx huma.Context, next func(huma.Context)) {
	op, start := ctx.Operation(), time.Now()
	next(ctx)
	m.observe(op.Method, op.Path, ctx.Status(), start)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// pagesMiddleware logs and meters page requests the way the API middlewares
// do for operations. Requests are labelled with the route pattern the pages
// matched, or "unmatched".
func pagesMiddleware(parent *slog.Logger, meter *requestMeter, pages http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := requestID(r.Header.Get("X-Request-Id"))
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		pages.ServeHTTP(rec, r)

		// pages' own mux has set the pattern it matched.
		_, route, found := strings.Cut(r.Pattern, " ")
		if !found {
			route = r.Pattern
		}
		if route == "" {
			route = "unmatched"
		}
		meter.observe(r.Method, route, rec.status, start)
		logRequest(parent.With("x-request-id", requestID), joinSpace(r.Method, route, r.Proto),
			r.RemoteAddr, r.Referer(), r.UserAgent(), rec.status, start)
	})
}

// joinQuote is [strings.Join] with " as separator.
func joinQuote(elems ...string) string { return strings.Join(elems, `"`) }

// joinSpace is [strings.Join] with space as separator.
func joinSpace(elems ...string) string { return strings.Join(elems, ` `) }
