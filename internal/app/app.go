package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/config"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/exporter"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/infrastructure"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/ops"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/session"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/shell"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/transport"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/validation"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/verify"
)

const (
	Version = "1.2.0"
	AppName = "f5lm"
)

// Application wires every component of the tool and owns their lifetimes.
type Application struct {
	Config  *config.Config
	Paths   *config.Paths
	Logger  *slog.Logger
	Store   *store.Store
	Service *ops.Service

	shell   *shell.Shell
	history *shell.History
}

// NewApplication loads configuration, initializes logging and wires all
// services. The returned Application must be Closed when done.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	// The log file location is only known once paths are resolved.
	if cfg.Logging.File == "" {
		cfg.Logging.File = paths.LogFile
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("store", paths.StoreFile),
		slog.String("exports", paths.ExportsDir),
		slog.String("logs", paths.LogsDir))

	return wire(cfg, paths, logger, os.Stdin, os.Stdout)
}

// wire assembles the services onto an already-resolved environment. Split
// out from NewApplication so tests can run against a temp directory
// without touching the global logger or process environment.
func wire(cfg *config.Config, paths *config.Paths, logger *slog.Logger, in io.Reader, out io.Writer) (*Application, error) {
	st, err := store.Open(paths.StoreFile, infrastructure.WithComponent(logger, "store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	metrics, err := transport.NewMetrics(otel.Meter(transport.MeterName))
	if err != nil {
		return nil, fmt.Errorf("failed to create transport metrics: %w", err)
	}

	resolver := creds.NewResolver(cfg.Auth, creds.NewTerminalPrompter(),
		infrastructure.WithComponent(logger, "creds"))

	dialer := session.NewSSHDialer(session.Config{
		Port:           cfg.Transport.SSHPort,
		ConnectTimeout: cfg.Transport.ConnectTimeout,
		CallTimeout:    cfg.Transport.CallTimeout,
	})

	rest := transport.NewRESTTransport(transport.RESTConfig{
		Port:            cfg.Transport.RESTPort,
		LoginProvider:   cfg.Transport.LoginProvider,
		ConnectTimeout:  cfg.Transport.ConnectTimeout,
		CallTimeout:     cfg.Transport.CallTimeout,
		MutationTimeout: cfg.Transport.MutationTimeout,
	}, infrastructure.WithComponent(logger, "rest"))

	sshTransport := transport.NewSSHTransport(dialer, infrastructure.WithComponent(logger, "ssh"))
	client := transport.NewClient(rest, sshTransport, metrics, infrastructure.WithComponent(logger, "transport"))
	poller := verify.NewPoller(client, st, metrics, infrastructure.WithComponent(logger, "verify"))

	service := ops.NewService(ops.Deps{
		Store:           st,
		Validator:       validation.New(infrastructure.WithComponent(logger, "validation")),
		Creds:           resolver,
		Client:          client,
		Verifier:        poller,
		Dialer:          dialer,
		Exporter:        exporter.New(paths, infrastructure.WithComponent(logger, "exporter")),
		Verify:          cfg.Verify,
		MutationTimeout: cfg.Transport.MutationTimeout,
		Logger:          infrastructure.WithComponent(logger, "ops"),
	})

	// A broken history log degrades the audit trail, not the tool.
	history, err := shell.OpenHistory(paths.HistoryFile, infrastructure.WithComponent(logger, "history"))
	if err != nil {
		logger.Warn("history log unavailable", slog.String("error", err.Error()))
		history = nil
	}

	sh := shell.New(service, history, in, out,
		infrastructure.WithComponent(logger, "shell"))

	return &Application{
		Config:  cfg,
		Paths:   paths,
		Logger:  logger,
		Store:   st,
		Service: service,
		shell:   sh,
		history: history,
	}, nil
}

// Run executes one command when args are given, otherwise enters the
// interactive shell. ctx cancellation interrupts in-flight device calls.
func (a *Application) Run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return a.shell.Execute(ctx, args)
	}
	return a.shell.Run(ctx)
}

// Close flushes and releases everything the Application holds open.
func (a *Application) Close() error {
	if err := a.history.Close(); err != nil {
		a.Logger.Warn("history log close failed", slog.String("error", err.Error()))
	}
	return infrastructure.CloseLogFile()
}
