package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"

	"github.com/oaiiae/contacts-directory/blobstores"
	"github.com/oaiiae/contacts-directory/cli/api"
	"github.com/oaiiae/contacts-directory/cli/logger"
	"github.com/oaiiae/contacts-directory/datastores"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version  = "dev"
	revision = ""
	created  = ""
)

func buildInfo() api.BuildInfo {
	return api.BuildInfo{Title: "Contacts", Version: version, Revision: revision, Created: created}
}

// Options for the CLI. Pass `--port` or set the `SERVICE_PORT` env var.
type Options struct {
	logger.Options
	api.ServerOptions
	api.RouterOptions
	blobstores.StoreOptions
	StoreKey string `doc:"key holding the contacts in the blob store" default:"contacts"`
}

func main() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "err", err)
	}

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		s := &server{options: options}
		hooks.OnStart(s.start)
		hooks.OnStop(s.stop)
	})
	cli.Root().Use = "contacts"
	cli.Root().Short = "Personal contacts directory"
	cli.Root().AddCommand(exportCommand(), openapiCommand())
	cli.Run()
}

// openStore opens the blob store and loads the contacts from it.
// Malformed contacts are logged and replaced by an empty collection.
func openStore(ctx context.Context, options *Options, set *metrics.Set, logger *slog.Logger) (*datastores.ContactsBlob, blobstores.Store, error) {
	blobs, err := blobstores.Open(ctx, &options.StoreOptions)
	if err != nil {
		return nil, nil, err
	}

	store := datastores.NewContactsBlob(blobs, options.StoreKey, set)
	err = store.Load(ctx)
	switch {
	case errors.Is(err, datastores.ErrMalformedData):
		logger.Warn("persisted contacts are malformed, starting empty", "err", err)
	case err != nil:
		blobs.Close()
		return nil, nil, err
	}
	return store, blobs, nil
}

type server struct {
	options *Options

	mu          sync.Mutex
	logger      *slog.Logger
	closeLogger func() error
	srv         *http.Server
	store       *datastores.ContactsBlob
	blobs       blobstores.Store
}

func (s *server) start() {
	logger, closeLogger := logger.New(&s.options.Options)
	metriks := metrics.NewSet()

	store, blobs, err := openStore(context.Background(), s.options, metriks, logger)
	if err != nil {
		logger.Error("failed to open contacts store", "err", err)
		closeLogger()
		os.Exit(1)
	}

	srv := api.NewServer(&s.options.ServerOptions,
		api.NewRouter(&s.options.RouterOptions, buildInfo(), store, metriks, logger),
		logger,
	)

	s.mu.Lock()
	s.logger, s.closeLogger = logger, closeLogger
	s.srv, s.store, s.blobs = srv, store, blobs
	s.mu.Unlock()

	logger.Info("server listening", "addr", srv.Addr, "store", s.options.Store)
	err = srv.ListenAndServe()
	if err != http.ErrServerClosed {
		logger.Error("failed to listen and serve", "err", err)
	} else {
		logger.Info("server closed")
	}
}

func (s *server) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("could not shutdown the server", "err", err)
	}

	err = s.store.Flush(ctx)
	if err != nil {
		s.logger.Error("could not persist contacts", "err", err)
	}
	err = s.blobs.Close()
	if err != nil {
		s.logger.Warn("could not close the blob store", "err", err)
	}
	_ = s.closeLogger()
}
