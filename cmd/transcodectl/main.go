// Package main implements transcodectl, a CLI front end for the task
// supervision core: it starts one transcode task, streams its
// progress to the log, and serves a health/metrics endpoint for the
// duration of the run.
//
// Usage:
//
//	transcodectl -i input.mp4 -o output.mp4 [options]
//
// Options:
//
//	-config=PATH       Path to a YAML settings file (optional)
//	-i=PATH            Input media path (repeatable)
//	-o=PATH            Output media path
//	-output-args=ARGS  Extra ffmpeg output flags, space-separated (e.g. "-t 30 -c:v copy")
//	-health-addr=ADDR  Override the configured health/metrics listen address
//	-log-level=LEVEL   Override the configured log level: debug, info, warn, error
//	-help              Show this help message
//
// Example:
//
//	transcodectl -i in.mp4 -o out.mp4 -output-args "-t 30"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/tomtom215/transcodectl/internal/appconfig"
	"github.com/tomtom215/transcodectl/internal/health"
	"github.com/tomtom215/transcodectl/internal/task"
	"github.com/tomtom215/transcodectl/internal/util"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML settings file")
	inputPaths  stringList
	outputPath  = flag.String("o", "", "Output media path")
	outputArgs  = flag.String("output-args", "", "Extra ffmpeg output flags, space-separated")
	healthAddr  = flag.String("health-addr", "", "Override the configured health/metrics listen address")
	logLevel    = flag.String("log-level", "", "Override the configured log level")
	diagLogDir  = flag.String("diagnostic-log-dir", "", "Override the configured diagnostic log directory")
	showHelp    = flag.Bool("help", false, "Show this help message")
)

// stringList collects repeated -i flags.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func init() {
	flag.Var(&inputPaths, "i", "Input media path (repeatable)")
}

func main() {
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	if len(inputPaths) == 0 || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "transcodectl: at least one -i and an -o are required")
		printUsage()
		os.Exit(2)
	}

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "transcodectl: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *healthAddr != "" {
		cfg.HealthAddr = *healthAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *diagLogDir != "" {
		cfg.DiagnosticLogDir = *diagLogDir
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	var storeOpts []task.StoreOption
	if cfg.DiagnosticLogDir != "" {
		storeOpts = append(storeOpts, task.WithDiagnosticLogDir(cfg.DiagnosticLogDir))
	}
	store := task.NewStore(logger, storeOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, stopping task", "signal", sig.String())
		_ = store.Stop(taskID)
		cancel()
	}()

	healthHandler := health.NewHandler(&storeStatusProvider{store: store})
	readyCh := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	util.SafeGo("health-server", logger, func() {
		defer wg.Done()
		if err := health.ListenAndServeReady(ctx, cfg.HealthAddr, healthHandler, readyCh); err != nil {
			logger.Error("health server stopped", "error", err)
		}
	})
	<-readyCh
	logger.Info("health endpoint listening", "addr", cfg.HealthAddr)

	args := buildArguments(inputPaths, *outputPath, *outputArgs)
	emitter := newLogEmitter(logger)

	if err := store.Start(taskID, args, cfg.FFmpegPath, cfg.FFprobePath, emitter); err != nil {
		logger.Error("failed to start task", "error", err)
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	exitCode := emitter.wait(ctx)
	cancel()
	wg.Wait()
	os.Exit(exitCode)
}

// taskID is fixed: transcodectl drives exactly one task per process
// invocation, so there is never a second id to collide with.
const taskID = "transcodectl"

func buildArguments(inputs []string, output, extra string) task.Arguments {
	args := task.Arguments{Outputs: []task.Output{{Path: output, Flags: splitArgs(extra)}}}
	for _, in := range inputs {
		args.Inputs = append(args.Inputs, task.Input{Path: in})
	}
	return args
}

// splitArgs does whitespace-only splitting of a flag string; it does
// not understand quoting, matching the level of sophistication this
// CLI's -output-args flag needs.
func splitArgs(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// storeStatusProvider adapts *task.Store to internal/health.StatusProvider.
type storeStatusProvider struct {
	store *task.Store
}

func (p *storeStatusProvider) Tasks() []health.TaskInfo {
	statuses := p.store.Statuses()
	out := make([]health.TaskInfo, 0, len(statuses))
	for _, s := range statuses {
		info := health.TaskInfo{ID: s.ID, State: s.State}
		if s.Sample != nil {
			info.FileDescriptors = s.Sample.FileDescriptors
			info.ThreadCount = s.Sample.ThreadCount
			info.MemoryBytes = s.Sample.MemoryBytes
		}
		out = append(out, info)
	}
	return out
}

// logEmitter implements task.Emitter, logging progress/finished/errored
// messages and translating the task's terminal disposition into a
// process exit code: 0 on Finished, 1 on Errored.
type logEmitter struct {
	logger *slog.Logger
	done   chan int
}

func newLogEmitter(logger *slog.Logger) *logEmitter {
	return &logEmitter{logger: logger, done: make(chan int, 1)}
}

func (e *logEmitter) Publish(_ string, payload any) {
	msg, ok := payload.(*task.TaskMessage)
	if !ok {
		return
	}
	switch msg.Kind {
	case task.MessageRunning:
		e.logRunning(msg.Running)
	case task.MessageFinished:
		e.logger.Info("task finished", "task_id", msg.Finished.ID)
		e.done <- 0
	case task.MessageErrored:
		e.logger.Error("task errored", "task_id", msg.Errored.ID, "reason", msg.Errored.Reason)
		e.done <- 1
	}
}

func (e *logEmitter) logRunning(p *task.ProgressMessage) {
	if p == nil {
		return
	}
	attrs := []any{"task_id", p.ID}
	if p.Frame != nil {
		attrs = append(attrs, "frame", *p.Frame)
	}
	if p.FPS != nil {
		attrs = append(attrs, "fps", *p.FPS)
	}
	if p.OutputTimeMs != nil {
		attrs = append(attrs, "output_time_ms", *p.OutputTimeMs)
	}
	if p.Speed != nil {
		attrs = append(attrs, "speed", *p.Speed)
	}
	e.logger.Debug("task progress", attrs...)
}

// wait blocks until the task reaches a terminal disposition, or until
// ctx is cancelled (a signal-driven Stop transitions the task to
// Stopped, which by contract emits no terminal event).
func (e *logEmitter) wait(ctx context.Context) int {
	select {
	case code := <-e.done:
		return code
	case <-ctx.Done():
		return 130
	}
}

func printUsage() {
	fmt.Println("transcodectl - run and supervise one FFmpeg transcode task")
	fmt.Println()
	fmt.Println("Usage: transcodectl -i input.mp4 -o output.mp4 [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0   task finished cleanly")
	fmt.Println("  1   task failed, or could not be started")
	fmt.Println("  2   invalid command-line arguments")
	fmt.Println("  130 stopped by signal")
}
