package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"assetgraph/internal/codec"
	"assetgraph/internal/config"
	"assetgraph/internal/loader"
	"assetgraph/internal/service"
	"assetgraph/internal/watcher"
)

//go:embed coremodel.yaml
var coreModel []byte

func newInitCommand(opts *rootOptions) *cobra.Command {
	var withCoreModel, saveConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and its root classes",
		Long: `Create the database if needed and seed the root classes. With --core-model
the built-in location, equipment and port classes are merged in as well, and a
configured schema.seed_file is applied afterwards. When schema.watch is set,
init keeps running and re-applies the seed file on every change until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, opts, func(a *app) error {
				w := cmd.OutOrStdout()
				if withCoreModel {
					fragment, err := codec.NewYAMLCodec().Parse(bytes.NewReader(coreModel))
					if err != nil {
						return fmt.Errorf("core model: %w", err)
					}
					result, err := a.meta.ImportSchema(ctx, fragment)
					if err != nil {
						return err
					}
					printImportResult(w, "core model", result)
				}

				if a.cfg.Schema.SeedFile != "" {
					result, err := loader.New(a.meta, a.logger).Apply(ctx, a.cfg.Schema.SeedFile)
					if err != nil {
						return err
					}
					printImportResult(w, a.cfg.Schema.SeedFile, result)
				}

				if saveConfig {
					path := opts.configPath
					if path == "" {
						path = config.DefaultConfigPath()
					}
					if err := a.cfg.Save(path); err != nil {
						return fmt.Errorf("failed to save config: %w", err)
					}
					printSuccess(w, "config written to %s", path)
				}

				printSuccess(w, "database ready at %s (%d classes)",
					a.cfg.Database.Path, len(a.meta.ListClasses(ctx, true)))
				dimColor.Fprintln(w, a.cfg.Summary())

				if a.cfg.Schema.Watch && a.cfg.Schema.SeedFile != "" {
					printSuccess(w, "watching %s", a.cfg.Schema.SeedFile)
					return watchSchema(ctx, a, loader.New(a.meta, a.logger), a.cfg.Schema.SeedFile)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&withCoreModel, "core-model", false, "merge the built-in core model")
	cmd.Flags().BoolVar(&saveConfig, "save-config", false, "write the effective config to --config or the default location")
	return cmd
}

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Import, export and watch schema files",
	}
	cmd.AddCommand(newSchemaImportCommand(opts))
	cmd.AddCommand(newSchemaExportCommand(opts))
	cmd.AddCommand(newSchemaWatchCommand(opts))
	return cmd
}

func newSchemaImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Merge a YAML or JSON schema file into the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opts, func(a *app) error {
				result, err := loader.New(a.meta, a.logger).Apply(ctx, args[0])
				if result != nil {
					printImportResult(cmd.OutOrStdout(), args[0], result)
				}
				return err
			})
		},
	}
}

func newSchemaExportCommand(opts *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole schema as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			exporter, err := exporterFor(format, output)
			if err != nil {
				return err
			}
			return withApp(ctx, opts, func(a *app) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				return exporter.Export(a.meta.ExportSchema(ctx), w)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "yaml or json (default: from --output, else yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func exporterFor(format, output string) (codec.Exporter, error) {
	switch {
	case format != "":
		return codec.ForFormat(format)
	case output != "":
		return codec.ForPath(output)
	default:
		return codec.NewYAMLCodec(), nil
	}
}

func newSchemaWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [FILE]",
		Short: "Apply a schema file and re-apply it whenever it changes",
		Long: `Apply a schema file and keep re-applying it on every change until
interrupted. FILE defaults to schema.seed_file from the config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, opts, func(a *app) error {
				path := a.cfg.Schema.SeedFile
				if len(args) == 1 {
					path = args[0]
				}
				if path == "" {
					return errors.New("no schema file given and schema.seed_file is not set")
				}

				l := loader.New(a.meta, a.logger)
				if _, err := l.Apply(ctx, path); err != nil {
					return err
				}
				return watchSchema(ctx, a, l, path)
			})
		},
	}
}

// watchSchema re-applies path through l on every change until ctx ends
func watchSchema(ctx context.Context, a *app, l *loader.Loader, path string) error {
	events := make(chan service.Event, 64)
	a.events.Subscribe(events)
	defer close(events)
	defer a.events.Unsubscribe(events)
	go logEvents(a.logger, events)

	w := watcher.New(path, l.Reload, a.logger).WithDebounce(a.cfg.Schema.Debounce)
	if err := w.Watch(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}
	return nil
}

func logEvents(logger *zap.Logger, events <-chan service.Event) {
	for event := range events {
		logger.Debug("schema event", zap.String("type", string(event.Type)), zap.Any("payload", event.Payload))
	}
}

func printImportResult(w io.Writer, source string, r *service.ImportResult) {
	printSuccess(w, "applied %s", source)
	t := newTable(w, "", "CREATED", "SKIPPED")
	t.addRow("classes", fmt.Sprint(r.ClassesCreated), fmt.Sprint(r.ClassesSkipped))
	t.addRow("attributes", fmt.Sprint(r.AttributesCreated), fmt.Sprint(r.AttributesSkipped))
	t.addRow("rules", fmt.Sprint(r.RulesCreated), fmt.Sprint(r.RulesSkipped))
	t.render()
}
