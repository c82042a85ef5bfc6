package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oaiiae/contacts-directory/cli/api"
	"github.com/oaiiae/contacts-directory/cli/logger"
	"github.com/oaiiae/contacts-directory/datastores"
)

func exportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the stored contacts",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "print as json or yaml")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var err error
		humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *Options) {
			logger, closeLogger := logger.New(&options.Options)
			defer closeLogger()
			err = export(cmd.Context(), cmd.OutOrStdout(), output, options, logger)
		})(cmd, args)
		return err
	}
	return cmd
}

func export(ctx context.Context, w io.Writer, output string, options *Options, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, blobs, err := openStore(ctx, options, nil, logger)
	if err != nil {
		return err
	}
	defer blobs.Close()

	contacts, err := store.List(ctx)
	if err != nil {
		return err
	}
	return encode(w, output, contacts)
}

func encode(w io.Writer, output string, contacts []datastores.Contact) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(contacts)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err := enc.Encode(contacts)
		if err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output %q", output)
	}
}

func openapiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI spec",
		Args:  cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *Options) {
			b, err := api.NewAPI(&options.RouterOptions, buildInfo(), nil, slog.New(slog.DiscardHandler)).OpenAPI().YAML()
			if err != nil {
				cmd.PrintErrln(err)
				return
			}
			cmd.OutOrStdout().Write(b) //nolint: errcheck // stdout
		}),
	}
}
