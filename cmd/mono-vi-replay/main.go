// Command mono-vi-replay replays a recorded monocular-inertial session
// (image index plus inertial log) into an estimation engine at the cadence
// it was captured, and reports how long the engine took per frame.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/sensor-replay/internal/config"
	"github.com/banshee-data/sensor-replay/internal/db"
	"github.com/banshee-data/sensor-replay/internal/debugserver"
	"github.com/banshee-data/sensor-replay/internal/engine"
	"github.com/banshee-data/sensor-replay/internal/fsutil"
	"github.com/banshee-data/sensor-replay/internal/monitoring"
	"github.com/banshee-data/sensor-replay/internal/replay"
	"github.com/banshee-data/sensor-replay/internal/report"
	"github.com/banshee-data/sensor-replay/internal/sensor"
	"github.com/banshee-data/sensor-replay/internal/tracing"
	"github.com/banshee-data/sensor-replay/internal/version"
)

const usage = `Usage: mono-vi-replay [flags] <vocabulary> <settings> <imageDir> <timestampIndex> <inertialLog> [maxFrames]

Replays the frames listed in timestampIndex (one nanosecond timestamp per
line, images at imageDir/<timestamp>.png) together with the inertial samples
in inertialLog into the engine configured by vocabulary and settings.

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type positional struct {
	vocabulary, settings, imageDir, indexPath, inertialPath string
	maxFrames                                                int
}

func parsePositional(args []string) (positional, error) {
	if len(args) != 5 && len(args) != 6 {
		return positional{}, fmt.Errorf("expected 5 or 6 arguments, got %d", len(args))
	}
	p := positional{
		vocabulary:   args[0],
		settings:     args[1],
		imageDir:     args[2],
		indexPath:    args[3],
		inertialPath: args[4],
	}
	if len(args) == 6 {
		n, err := strconv.Atoi(args[5])
		if err != nil || n <= 0 {
			return positional{}, fmt.Errorf("maxFrames must be a positive integer, got %q", args[5])
		}
		p.maxFrames = n
	}
	return p, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "", log.LstdFlags)
	monitoring.SetLogger(logger.Printf)

	fs := flag.NewFlagSet("mono-vi-replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "Replay settings file (.yaml, .yml or .json)")
	trajectory := fs.String("trajectory", config.DefaultTrajectoryPath, "Trajectory output path")
	dbPath := fs.String("db", "", "SQLite run store path (empty disables)")
	reportDir := fs.String("report-dir", "", "Directory for HTML/PNG run reports (empty disables)")
	listen := fs.String("listen", "", "Debug HTTP listen address, e.g. localhost:8090 (empty disables)")
	noPace := fs.Bool("no-pace", false, "Deliver frames as fast as the engine accepts them")
	speed := fs.Float64("speed", 1.0, "Replay speed multiplier")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *showVersion {
		fmt.Fprintf(stdout, "mono-vi-replay %s\n", version.String())
		return 0
	}

	pos, err := parsePositional(fs.Args())
	if err != nil {
		logger.Printf("ERROR: %v", err)
		fs.Usage()
		return 1
	}

	cfg := config.Empty()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Printf("ERROR: %v", err)
			return 1
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		logger.Printf("ERROR: %v", err)
		return 1
	}
	// explicit flags win over file and environment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trajectory":
			cfg.TrajectoryPath = trajectory
		case "db":
			cfg.DBPath = dbPath
		case "report-dir":
			cfg.ReportDir = reportDir
		case "listen":
			cfg.Listen = listen
		case "speed":
			cfg.SpeedMultiplier = speed
		case "no-pace":
			realtime := !*noPace
			cfg.Realtime = &realtime
		}
	})
	if pos.maxFrames > 0 {
		cfg.MaxFrames = &pos.maxFrames
	}
	if err := cfg.Validate(); err != nil {
		logger.Printf("ERROR: invalid configuration: %v", err)
		return 1
	}

	shutdownTracing, err := tracing.Setup(ctx, "mono-vi-replay")
	if err != nil {
		logger.Printf("tracing disabled: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Printf("tracing shutdown: %v", err)
		}
	}()

	fsys := fsutil.OSFileSystem{}

	imu, err := sensor.LoadInertialFile(fsys, pos.inertialPath)
	if err != nil {
		logger.Printf("ERROR: Failed to load imu: %v", err)
		return 1
	}
	frames, err := sensor.LoadFrameIndexFile(fsys, pos.imageDir, pos.indexPath)
	if err != nil {
		logger.Printf("ERROR: Failed to load images: %v", err)
		return 1
	}

	mode := engine.MonocularInertial
	if cfg.GetMode() == "monocular" {
		mode = engine.Monocular
	}
	eng := engine.NewRecorder(fsys)
	if err := eng.Initialize(pos.vocabulary, pos.settings, mode); err != nil {
		logger.Printf("ERROR: %v", err)
		return 1
	}

	opts := replay.DefaultOptions()
	opts.Realtime = cfg.GetRealtime()
	opts.SpeedMultiplier = cfg.GetSpeedMultiplier()
	opts.MaxFrames = cfg.GetMaxFrames()
	opts.TrajectoryPath = cfg.GetTrajectoryPath()
	opts.BenchmarkInterval = cfg.GetBenchmarkInterval()
	opts.Stdout = stdout

	var store *db.DB
	if path := cfg.GetDBPath(); path != "" {
		if store, err = db.NewDB(path); err != nil {
			logger.Printf("ERROR: Failed to open run store: %v", err)
			return 1
		}
		defer store.Close()
		opts.Observer = store
	}

	pacer := replay.NewPacer(eng, opts)

	if store != nil {
		info := db.RunInfo{
			ID:              pacer.RunID(),
			StartedAt:       time.Now(),
			Mode:            mode.String(),
			ImageDir:        pos.imageDir,
			IndexPath:       pos.indexPath,
			InertialPath:    pos.inertialPath,
			Realtime:        opts.Realtime,
			SpeedMultiplier: opts.SpeedMultiplier,
		}
		if err := store.BeginRun(info); err != nil {
			logger.Printf("ERROR: %v", err)
			return 1
		}
	}

	var wg sync.WaitGroup
	serverCtx, stopServer := context.WithCancel(ctx)
	defer func() {
		stopServer()
		wg.Wait()
	}()
	if addr := cfg.GetListen(); addr != "" {
		srv, err := debugserver.New(addr, store)
		if err != nil {
			logger.Printf("ERROR: %v", err)
			return 1
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(serverCtx); err != nil {
				logger.Printf("debug server: %v", err)
			}
		}()
	}

	fmt.Fprintf(stdout, "-------\nStart processing sequence ...\nImages in the sequence: %d\n\n", frames.Len())

	res, runErr := pacer.Run(ctx, imu, frames)

	if store != nil {
		if err := store.FinishRun(pacer.RunID(), time.Now(), res, runErr); err != nil {
			logger.Printf("failed to record run: %v", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Printf("ERROR: %v", runErr)
		return 1
	}

	fmt.Fprintf(stdout, "-------\n\n")
	fmt.Fprintf(stdout, "median tracking time: %f\n", res.Summary.Median)
	fmt.Fprintf(stdout, "mean tracking time: %f\n", res.Summary.Mean)

	if dir := cfg.GetReportDir(); dir != "" {
		if _, err := report.Write(dir, res); err != nil {
			logger.Printf("report: %v", err)
		}
	}

	if runErr != nil {
		logger.Printf("replay interrupted: %v", runErr)
		return 1
	}
	return 0
}
