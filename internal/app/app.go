package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/mojify/internal/builder"
	"github.com/rbright/mojify/internal/cli"
	"github.com/rbright/mojify/internal/config"
	"github.com/rbright/mojify/internal/doctor"
	"github.com/rbright/mojify/internal/emote"
	"github.com/rbright/mojify/internal/hypr"
	"github.com/rbright/mojify/internal/indicator"
	"github.com/rbright/mojify/internal/ipc"
	"github.com/rbright/mojify/internal/keyboard"
	"github.com/rbright/mojify/internal/logging"
	"github.com/rbright/mojify/internal/mapping"
	"github.com/rbright/mojify/internal/output"
	"github.com/rbright/mojify/internal/session"
	"github.com/rbright/mojify/internal/trigger"
	"github.com/rbright/mojify/internal/version"
)

const statusTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Stdin feeds the terminal key source; nil means os.Stdin.
	Stdin io.Reader

	// Provider replaces the 7TV client for download runs.
	Provider builder.Provider
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("mojify"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("mojify"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New("")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	if err := logging.SetLevel(logRuntime.Level, cfgLoaded.Config.LogLevel); err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v\n", err)
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "key", w.Key, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandList:
		return r.commandList(cfgLoaded.Config)
	case cli.CommandDownload:
		return r.commandDownload(ctx, cfgLoaded.Config, logger)
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	snap, err := ipc.Status(ctx, socketPath, statusTimeout)
	if errors.Is(err, ipc.ErrNotRunning) {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if snap.State == "" {
		snap.State = "idle"
	}
	fmt.Fprintln(r.Stdout, snap.State)
	if snap.PID > 0 {
		fmt.Fprintf(r.Stdout, "pid=%d triggers=%d capacity=%d fired=%d uptime=%s source=%s mapping=%s",
			snap.PID, snap.Triggers, snap.Capacity, snap.Fired, snap.Uptime, snap.Source, snap.MappingFile)
		if snap.LastTrigger != "" {
			fmt.Fprintf(r.Stdout, " last=%s", snap.LastTrigger)
		}
		fmt.Fprintln(r.Stdout)
	}
	return 0
}

func (r Runner) commandList(cfg config.Config) int {
	table, err := mapping.Load(cfg.MappingFile)
	if errors.Is(err, mapping.ErrMalformed) {
		fmt.Fprintf(r.Stderr, "warning: %v\n", err)
		table, err = mapping.NewTable(), nil
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if table.Len() == 0 {
		fmt.Fprintf(r.Stdout, "no triggers in %s\n", cfg.MappingFile)
		return 0
	}

	table.Each(func(key, path string) {
		marker := ""
		if _, err := os.Stat(mapping.ResolvePath(path, cfg.Root)); err != nil {
			marker = " (missing)"
		}
		fmt.Fprintf(r.Stdout, "%s\t%s%s\n", key, path, marker)
	})
	return 0
}

func (r Runner) commandDownload(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	provider := r.Provider
	if provider == nil {
		provider = emote.NewClient(emote.Options{
			BaseURL:       cfg.Provider.BaseURL,
			Timeout:       cfg.Provider.Timeout,
			Retries:       cfg.Provider.Retries,
			RatePerSecond: cfg.Provider.RatePerSecond,
			Logger:        logger,
			UserAgent:     "mojify/" + version.Version,
		})
	}

	b := builder.New(builder.Options{
		Provider:        provider,
		ChannelIDs:      cfg.Provider.ChannelIDs,
		OutputDir:       cfg.OutputDir,
		Root:            cfg.Root,
		MappingFile:     cfg.MappingFile,
		ChannelWorkers:  cfg.Download.ChannelWorkers,
		DownloadWorkers: cfg.Download.Workers,
		Logger:          logger,
	})

	summary, err := b.Run(ctx)
	for _, channel := range summary.Channels {
		fmt.Fprintln(r.Stdout, channel.String())
		for _, failure := range channel.Failures {
			fmt.Fprintf(r.Stdout, "  failed %s: %v\n", failure.Name, failure.Err)
		}
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, summary.String())

	if n := summary.ChannelErrors(); n > 0 && n == len(summary.Channels) {
		fmt.Fprintln(r.Stderr, "error: no channel could be queried")
		return 1
	}
	return 0
}

func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	table, err := mapping.LoadResolved(cfg.MappingFile, cfg.Root)
	if errors.Is(err, mapping.ErrMalformed) {
		fmt.Fprintf(r.Stderr, "warning: %v; starting with no triggers\n", err)
		logger.Warn("mapping unreadable; starting empty", "path", cfg.MappingFile, "error", err.Error())
		table, err = mapping.NewTable(), nil
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if table.Len() == 0 {
		fmt.Fprintf(r.Stderr, "warning: %s has no triggers; run `mojify download`\n", cfg.MappingFile)
	}

	keys, err := output.NewKeystroker(cfg.Keys)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if cfg.Keys.Backend == config.KeysBackendHypr && !hypr.SessionDetected() {
		fmt.Fprintf(r.Stderr, "warning: %s is empty; keystrokes will fail outside Hyprland\n", hypr.InstanceEnv)
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	sock, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = sock.Close() }()

	src, sourceName, err := r.openSource(cfg.Keyboard)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("open key source failed", "error", err.Error())
		return 1
	}
	defer func() { _ = src.Close() }()

	engine := trigger.NewEngine(table, logger)
	replacer := output.NewReplacer(cfg, keys, logger)
	notifier := indicator.New(cfg.Indicator, logger)
	controller := session.NewController(logger, engine, replacer, notifier, session.Options{
		MappingFile: cfg.MappingFile,
		SourceName:  sourceName,
	})

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, sock, controller)
	}()

	fmt.Fprintf(r.Stdout, "listening for %d triggers on %s; press Esc to stop\n", engine.Triggers(), sourceName)
	result := controller.Run(ctx, src)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "stopped (%s) after %d replacements\n", result.Reason, result.Fired)
	return 0
}

// openSource returns the configured key source and a label for status output.
func (r Runner) openSource(cfg config.KeyboardConfig) (keyboard.Source, string, error) {
	switch cfg.Source {
	case config.KeyboardSourceTerminal:
		in := r.Stdin
		if in == nil {
			in = os.Stdin
		}
		src, err := keyboard.NewTerminalSource(in)
		if err != nil {
			return nil, "", err
		}
		return src, "terminal", nil
	default:
		device, err := keyboard.ResolveDevice(cfg.Device)
		if err != nil {
			return nil, "", err
		}
		src, err := keyboard.OpenEvdev(device)
		if err != nil {
			return nil, "", err
		}
		return src, device, nil
	}
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"reason", string(result.Reason),
		"fired", result.Fired,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}

	if result.Err != nil {
		logger.Error("listener failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("listener complete", fields...)
}
