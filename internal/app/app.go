// Package app wires configuration, logging, metrics and the orchestration
// layer into the fibsum command.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/agbru/fibsum/internal/collective"
	"github.com/agbru/fibsum/internal/collective/amqpcomm"
	"github.com/agbru/fibsum/internal/config"
	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/logging"
	"github.com/agbru/fibsum/internal/metrics"
	"github.com/agbru/fibsum/internal/orchestration"
	"github.com/agbru/fibsum/internal/server"
	"github.com/agbru/fibsum/internal/ui"
)

// shutdownTimeout bounds the status server shutdown.
const shutdownTimeout = 5 * time.Second

// RankComm is a communicator owning a connection.
type RankComm interface {
	collective.Communicator
	io.Closer
}

// Dialer connects one rank to its group.
type Dialer func(ctx context.Context, cfg amqpcomm.Config, logger logging.Logger) (RankComm, error)

func dialAMQP(ctx context.Context, cfg amqpcomm.Config, logger logging.Logger) (RankComm, error) {
	return amqpcomm.Dial(ctx, cfg, logger)
}

// Application represents the fibsum application instance.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer
	Logger    logging.Logger
	Metrics   *metrics.Collector

	dial     Dialer
	observer orchestration.PhaseObserver
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Logger = l }
}

// WithDialer replaces the RabbitMQ dialer used by the amqp transport.
func WithDialer(d Dialer) AppOption {
	return func(a *Application) { a.dial = d }
}

// New creates a new Application instance by parsing command-line arguments.
// args[0] is the program name.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter, dial: dialAMQP}
	for _, opt := range opts {
		opt(app)
	}

	programName := "fibsum"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	if app.Logger == nil {
		level, err := logging.ParseLevel(cfg.EffectiveLogLevel())
		if err != nil {
			return nil, apperrors.NewConfigError("invalid log level %q", cfg.EffectiveLogLevel())
		}
		app.Logger = logging.NewLeveledLogger(errWriter, "fibsum", level)
	}
	if cfg.MetricsFile != "" || cfg.Listen != "" {
		app.Metrics = metrics.NewCollector()
	}
	return app, nil
}

// Run executes the configured run and returns the process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	ui.InitTheme(a.Config.NoColor)

	ctx, cancelTimeout := context.WithTimeout(ctx, a.Config.Timeout)
	defer cancelTimeout()
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if a.Config.Listen != "" {
		srv, err := server.New(a.Config.Listen, a.Metrics, a.Logger)
		if err == nil {
			err = srv.Start()
		}
		if err != nil {
			a.Logger.Error("failed to start status server", err, logging.String("addr", a.Config.Listen))
			return apperrors.ExitErrorGeneric
		}
		a.observer = srv.Status()
		defer a.stopServer(srv)
	}

	var code int
	if a.Config.Transport == config.TransportAMQP {
		code = a.runAMQP(ctx, out)
	} else {
		code = a.runLocal(ctx, out)
	}

	if a.Config.MetricsFile == "" {
		return code
	}
	if err := a.Metrics.WriteTextfile(a.Config.MetricsFile); err != nil {
		a.Logger.Error("failed to write metrics", err, logging.String("path", a.Config.MetricsFile))
		if code == apperrors.ExitSuccess {
			code = apperrors.ExitErrorGeneric
		}
	}
	return code
}

func (a *Application) stopServer(srv *server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error("status server shutdown failed", err)
	}
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

// ReportError prints a construction error and returns the matching exit code.
func ReportError(err error, out io.Writer) int {
	var configErr apperrors.ConfigError
	if errors.As(err, &configErr) {
		fmt.Fprintf(out, "Configuration error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	// Flag parse errors are already reported by the flag set.
	return apperrors.ExitErrorConfig
}
