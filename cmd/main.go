package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/common/version"

	"github.com/ktolnos/slurm-utils/internal/app/router"
	"github.com/ktolnos/slurm-utils/internal/availability"
	"github.com/ktolnos/slurm-utils/internal/module/gpu"
	"github.com/ktolnos/slurm-utils/internal/pkg/client/sinfo"
	"github.com/ktolnos/slurm-utils/internal/pkg/common/slurmtime"
	"github.com/ktolnos/slurm-utils/internal/pkg/log"
	"github.com/ktolnos/slurm-utils/internal/selection"
)

func main() {
	var (
		logOutput          string
		logFormat          string
		logFile            string
		logLevel           string
		counts             bool
		maxDuration        string
		minIdleCPUs        int
		minFreeMemMB       int64
		scriptPath         string
		srvlisenAddr       string
		srvshutdownTimeout time.Duration
	)
	app := kingpin.New(filepath.Base(os.Args[0]), "GPU availability tools for Slurm clusters.")
	app.HelpFlag.Short('h')
	// Logging related flags
	app.Flag("log.level", "Log level, one of [debug, info, warn, error].").Default("info").EnumVar(&logLevel, "debug", "info", "warn", "error")
	app.Flag("log.output", "Log output, one of [stdout, stderr, file].").Default("stderr").EnumVar(&logOutput, "stdout", "stderr", "file")
	app.Flag("log.format", "Log format, one of [json, text].").Default("text").EnumVar(&logFormat, "json", "text")
	app.Flag("log.file", "Log file path when --log.output=file.").PlaceHolder("PATH").StringVar(&logFile)
	// Cross-flag validation
	app.PreAction(func(*kingpin.ParseContext) error {
		if strings.EqualFold(logOutput, "file") {
			if !isValidFilePath(logFile) {
				return fmt.Errorf("invalid --log.file path: %q", logFile)
			}
		}
		return nil
	})
	app.Version(version.Print("slurm-utils"))

	availCmd := app.Command("avail", "List GPU types with free slots on healthy, sufficiently-resourced nodes.")
	availCmd.Flag("counts", "Print free slot counts as type:count pairs instead of bare type names.").BoolVar(&counts)
	availCmd.Flag("max-duration", "Restrict the scan to partitions whose time limit admits this duration (Slurm syntax, e.g. 2:00:00 or 1-00:00:00).").PlaceHolder("DUR").StringVar(&maxDuration)
	availCmd.Flag("min-idle-cpus", "Minimum idle CPU cores for a node to count.").Default("10").IntVar(&minIdleCPUs)
	availCmd.Flag("min-free-mem", "Minimum available memory in MB for a node to count.").Default("32768").Int64Var(&minFreeMemMB)

	pickCmd := app.Command("pick", "Pick a GPU type from a job script's preference header.")
	pickCmd.Flag("script", "Job script to read the preference header from (default: stdin).").PlaceHolder("PATH").StringVar(&scriptPath)

	serveCmd := app.Command("serve", "Serve availability and selection over HTTP.")
	serveCmd.Flag("server.listen-addr", "Server listen address (e.g. :8080 or 127.0.0.1:8080)").Default(":8081").StringVar(&srvlisenAddr)
	serveCmd.Flag("server.shutdown-timeout", "Graceful shutdown timeout (e.g. 10s)").Default("10s").DurationVar(&srvshutdownTimeout)

	cmdName, err := app.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("failed to parse commandline arguments: %w", err))
		app.Usage(os.Args[1:])
		os.Exit(2)
	}

	// Usage errors, distinct from runtime failures: checked before any work.
	var wantDuration *slurmtime.Limit
	if maxDuration != "" {
		limit, err := slurmtime.Parse(maxDuration)
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("invalid --max-duration: %w", err))
			os.Exit(2)
		}
		wantDuration = &limit
	}

	logger, logClose, err := log.NewLogger(logOutput, logFormat, logFile, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logClose()

	client := sinfo.New(nil, logger)
	th := availability.Thresholds{MinIdleCPUs: minIdleCPUs, MinFreeMemMB: minFreeMemMB}

	switch cmdName {
	case availCmd.FullCommand():
		runAvail(client, wantDuration, th, counts, logger)
	case pickCmd.FullCommand():
		runPick(client, scriptPath, th, logger)
	case serveCmd.FullCommand():
		runServe(client, th, srvlisenAddr, srvshutdownTimeout, logger)
	}
}

// runAvail prints the availability report to stdout. Diagnostics stay on the
// logger so the report remains machine-parseable.
func runAvail(client *sinfo.Client, maxDuration *slurmtime.Limit, th availability.Thresholds, counts bool, logger *slog.Logger) {
	res, err := availability.Scan(context.Background(), client, maxDuration, th, logger)
	if err != nil {
		logger.Error("unable to resolve gpu availability", "err", err)
		os.Exit(1)
	}
	if counts {
		fmt.Println(res.Report.Counts())
	} else {
		fmt.Println(res.Report.Presence())
	}
}

// runPick reads a job script, extracts its preference header and prints the
// selected single-slot request. A script without a header prints nothing and
// exits 0: the caller's original resource request passes through unmodified.
func runPick(client *sinfo.Client, scriptPath string, th availability.Thresholds, logger *slog.Logger) {
	var (
		script []byte
		err    error
	)
	if scriptPath == "" {
		script, err = io.ReadAll(os.Stdin)
	} else {
		script, err = os.ReadFile(scriptPath)
	}
	if err != nil {
		logger.Error("unable to read job script", "path", scriptPath, "err", err)
		os.Exit(1)
	}

	prefs := selection.ParsePreferences(string(script))
	if len(prefs) == 0 {
		logger.Info("no gpu preference header in script, leaving resource request unchanged")
		return
	}

	res, err := availability.Scan(context.Background(), client, nil, th, logger)
	if err != nil {
		logger.Error("unable to resolve gpu availability", "err", err)
		os.Exit(1)
	}
	choice, err := selection.Pick(prefs, res.Report)
	if err != nil {
		logger.Error("unable to pick a gpu type", "err", err)
		os.Exit(1)
	}
	if !choice.Available {
		logger.Info("no preferred gpu type currently free, queueing on first preference", "type", choice.Type)
	}
	fmt.Println(choice.Request())
}

func runServe(client *sinfo.Client, th availability.Thresholds, listenAddr string, shutdownTimeout time.Duration, logger *slog.Logger) {
	gpuRouter := gpu.NewRouter(client, th, logger)

	r := router.New()
	router.Register(gpuRouter)
	router.Mount(r)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", listenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", slog.Any("err", err))
			os.Exit(1)
		}
	case <-quit:
		// proceed to shutdown
	}
	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}
	logger.Info("server exiting")
}

// isValidFilePath performs a light-weight validation for file paths.
// It accepts both absolute and relative paths and rejects empty paths
// or paths that end with a path separator (which usually indicate a directory).
func isValidFilePath(p string) bool {
	if strings.TrimSpace(p) == "" {
		return false
	}
	// Reject paths that end with a separator, which imply directories
	if strings.HasSuffix(p, string(os.PathSeparator)) {
		return false
	}
	base := filepath.Base(p)
	if base == "." || base == string(os.PathSeparator) {
		return false
	}
	return true
}
