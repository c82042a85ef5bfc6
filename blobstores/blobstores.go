// Package blobstores provides key-value stores holding opaque blobs.
//
// A blob store is the persistence substrate of the contacts directory:
// it only knows how to get and set a value under a key.
package blobstores

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Store interface {
	// Get returns the value stored under key or [ErrNotExist].
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

var (
	ErrNotExist    = errors.New("blobstore: key does not exist")
	ErrUnavailable = errors.New("blobstore: unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

type StoreOptions struct {
	Store         string `doc:"blob store backend: memory, files, sqlite or mongo" default:"files"`
	StorePath     string `doc:"directory (files) or database file (sqlite)"       default:"data"`
	MongoURI      string `doc:"mongodb connection uri"                            default:"mongodb://localhost:27017"`
	MongoDatabase string `doc:"mongodb database name"                             default:"contacts"`
}

// Open builds the backend selected by options.
func Open(ctx context.Context, options *StoreOptions) (Store, error) {
	switch strings.ToLower(options.Store) {
	case "memory", "inmem":
		return NewInmem(), nil
	case "files", "":
		return NewFiles(options.StorePath)
	case "sqlite":
		return NewSQLite(ctx, options.StorePath)
	case "mongo", "mongodb":
		return NewMongo(ctx, options.MongoURI, options.MongoDatabase)
	default:
		return nil, fmt.Errorf("blobstore: unknown backend %q", options.Store)
	}
}
