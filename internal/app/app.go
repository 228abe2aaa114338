// Package app is the epiwatch command line: one-shot runs, source
// inspection and the HTTP API.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"epiwatch/internal/config"
	"epiwatch/internal/export"
	"epiwatch/internal/logger"
)

// Version is set at build time with -ldflags "-X epiwatch/internal/app.Version=...".
var Version = "dev"

type rootOptions struct {
	configPath string
	debug      bool
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "epiwatch",
		Short:         "Epidemiological alert aggregator",
		Long:          "epiwatch polls health feeds and pages, matches disease keywords within a date window and reports located alerts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newRunCommand(opts),
		newSourcesCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return root
}

// bootstrap loads config and builds the service. The returned registry
// holds the run metrics plus the Go and process collectors.
func bootstrap(opts *rootOptions) (*Service, *prometheus.Registry, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log.Debug("Configuration loaded", logger.String("config", fmt.Sprintf("%+v", cfg.Redacted())))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := NewService(cfg, log, reg)
	if err != nil {
		return nil, nil, err
	}
	return svc, reg, nil
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		from, to   string
		keywords   []string
		xlsxPath   string
		docxPath   string
		sendNotify bool
		jsonOut    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := ParseWindow(from, to, time.Now())
			if err != nil {
				return err
			}

			svc, _, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()
			defer svc.Log.Sync()

			ctx := cmd.Context()
			set, err := svc.Run(ctx, RunRequest{Start: start, End: end, Keywords: keywords})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if err := renderJSON(out, set); err != nil {
					return err
				}
			} else {
				renderAlerts(out, set)
			}

			if xlsxPath != "" {
				if err := export.SaveXLSX(xlsxPath, set); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", xlsxPath)
			}
			if docxPath != "" {
				if err := export.SaveDOCX(docxPath, set); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", docxPath)
			}
			if sendNotify {
				if err := svc.Notify(ctx, set); err != nil {
					return fmt.Errorf("notify: %w", err)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&from, "from", "", "window start YYYY-MM-DD (default today)")
	f.StringVar(&to, "to", "", "window end YYYY-MM-DD (default today)")
	f.StringSliceVar(&keywords, "keywords", nil, "comma-separated vocabulary (default from config)")
	f.StringVar(&xlsxPath, "xlsx", "", "also write the alerts to this .xlsx file")
	f.StringVar(&docxPath, "docx", "", "also write a report to this .docx file")
	f.BoolVar(&sendNotify, "notify", false, "deliver alerts through the configured notifiers")
	f.BoolVar(&jsonOut, "json", false, "print the alert set as JSON")
	return cmd
}

func newSourcesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List configured sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			renderSources(cmd.OutOrStdout(), cfg.Sources)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Fetch every source once and report candidate counts or failures",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()
			defer svc.Log.Sync()

			renderProbe(cmd.OutOrStdout(), svc.Probe(cmd.Context()))
			return nil
		},
	})
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve alerts over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, reg, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()
			defer svc.Log.Sync()

			return Serve(cmd.Context(), svc, NewRouter(svc, reg))
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "epiwatch", Version)
		},
	}
}
