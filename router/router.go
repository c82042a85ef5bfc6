package router

import (
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
)

// New returns a mux serving probes, metrics, the huma API configured by
// opts and, when pages is not nil, every other path with pages.
// Nil readiness or writeMetrics leave their endpoint unregistered.
func New(
	title, version string,
	readiness http.HandlerFunc,
	writeMetrics func(io.Writer),
	pages http.Handler,
	opts ...func(huma.API),
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/liveness", func(http.ResponseWriter, *http.Request) {})
	if readiness != nil {
		mux.HandleFunc("/readiness", readiness)
	}
	if writeMetrics != nil {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) { writeMetrics(w) })
	}
	if pages != nil {
		mux.Handle("/", pages)
	}

	api := humago.New(mux, huma.DefaultConfig(title, version))
	for _, opt := range opts {
		opt(api)
	}

	return mux
}

// NewAPI is [New] without probes nor pages, it returns the [huma.API]
// itself, e.g. to render the OpenAPI document.
func NewAPI(title, version string, opts ...func(huma.API)) huma.API {
	api := humago.New(http.NewServeMux(), huma.DefaultConfig(title, version))
	for _, opt := range opts {
		opt(api)
	}
	return api
}

func OptUseMiddleware(middlewares ...func(huma.Context, func(huma.Context))) func(huma.API) {
	return func(api huma.API) { api.UseMiddleware(middlewares...) }
}

func OptGroup(prefix string, opts ...func(huma.API)) func(huma.API) {
	return func(api huma.API) {
		group := huma.NewGroup(api, prefix)
		for _, opt := range opts {
			opt(group)
		}
	}
}

func OptAutoRegister(server any) func(huma.API) {
	return func(api huma.API) { huma.AutoRegister(api, server) }
}
