package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oaiiae/contacts-directory/blobstores"
	"github.com/oaiiae/contacts-directory/cli/api"
	"github.com/oaiiae/contacts-directory/datastores"
)

func testOptions(t *testing.T) *Options {
	t.Helper()
	options := &Options{StoreKey: "contacts"}
	options.Store = "files"
	options.StorePath = t.TempDir()
	options.EndpointsPrefix = "/api"
	return options
}

func seed(t *testing.T, options *Options) datastores.Contact {
	t.Helper()
	ctx := context.Background()
	store, blobs, err := openStore(ctx, options, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer blobs.Close()
	c, err := store.Create(ctx, datastores.ContactFields{
		FirstName: "Ada", LastName: "Lovelace", Email: "a@x.com", Phone: "123", Address: "London",
	})
	require.NoError(t, err)
	return c
}

func TestExportJSON(t *testing.T) {
	options := testOptions(t)
	c := seed(t, options)

	var buf bytes.Buffer
	require.NoError(t, export(context.Background(), &buf, "json", options, slog.New(slog.DiscardHandler)))

	var got []datastores.Contact
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []datastores.Contact{c}, got)
}

func TestExportYAML(t *testing.T) {
	options := testOptions(t)
	c := seed(t, options)

	var buf bytes.Buffer
	require.NoError(t, export(context.Background(), &buf, "yaml", options, slog.New(slog.DiscardHandler)))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, int64(got[0]["id"].(int)))
	assert.Equal(t, "Lovelace", got[0]["lastName"])
	assert.NotContains(t, got[0], "updatedAt")
}

func TestExportUnknownOutput(t *testing.T) {
	options := testOptions(t)
	err := export(context.Background(), &bytes.Buffer{}, "xml", options, slog.New(slog.DiscardHandler))
	require.Error(t, err)
}

func TestOpenStoreMalformed(t *testing.T) {
	options := testOptions(t)
	blobs, err := blobstores.NewFiles(options.StorePath)
	require.NoError(t, err)
	require.NoError(t, blobs.Set(context.Background(), "contacts", []byte(`not json`)))

	store, blobs2, err := openStore(context.Background(), options, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer blobs2.Close()
	contacts, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestOpenAPI(t *testing.T) {
	options := testOptions(t)
	b, err := api.NewAPI(&options.RouterOptions, buildInfo(), nil, slog.New(slog.DiscardHandler)).OpenAPI().YAML()
	require.NoError(t, err)
	assert.Contains(t, string(b), "/api/contacts/{id}")
}
