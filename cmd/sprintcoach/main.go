package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sprintcoach/sprintcoach/internal/announce"
	"github.com/sprintcoach/sprintcoach/internal/config"
	"github.com/sprintcoach/sprintcoach/internal/devicesync"
	"github.com/sprintcoach/sprintcoach/internal/gps"
	"github.com/sprintcoach/sprintcoach/internal/hrm"
	"github.com/sprintcoach/sprintcoach/internal/recorder"
	"github.com/sprintcoach/sprintcoach/internal/session"
	"github.com/sprintcoach/sprintcoach/internal/workout"
)

const hrmScanTimeout = 10 * time.Second

func main() {
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(pflag.CommandLine)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
	}, "", log.LstdFlags)

	if err := run(logger, cfg); err != nil {
		logger.Printf("main: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, cfg config.Config) error {
	lib := session.DefaultLibrary()
	if cfg.SessionFile != "" {
		var err error
		lib, err = session.LoadLibrary(cfg.SessionFile)
		if err != nil {
			return err
		}
	}

	ts, ok := lib.Find(cfg.Week, cfg.Day)
	if !ok {
		return fmt.Errorf("no session for week %d day %d in library", cfg.Week, cfg.Day)
	}
	plan, err := session.BuildPlan(ts)
	if err != nil {
		return err
	}
	logger.Printf("main: week %d day %d: %s / %s, %dx%d yd",
		ts.Week, ts.Day, ts.Type, ts.Focus, ts.Sprint.Reps, ts.Sprint.DistanceYards)

	db, err := recorder.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := workout.Deps{
		Tracker:  gps.NewSimTracker(cfg.SimSpeedMPH),
		Recorder: db,
	}

	var link devicesync.Link
	switch {
	case cfg.ListenAddr != "":
		link, err = devicesync.NewListener(logger, cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("starting sync listener: %w", err)
		}
	case cfg.PeerURL != "":
		link = devicesync.NewDialer(logger, cfg.PeerURL)
	}
	if link != nil {
		defer link.Close()
		deps.Publisher = link
	}

	if cfg.HRM {
		monitor := hrm.NewMonitor(logger, nil)
		if err := monitor.Start(hrmScanTimeout); err != nil {
			// The workout runs without heart rate.
			logger.Printf("main: heart rate unavailable: %v", err)
		} else {
			defer monitor.Stop()
			deps.HeartRate = monitor.Latest
		}
	}

	o := workout.New(logger, plan, workout.Config{
		Device:        workout.DeviceID(cfg.Device),
		Completion:    workout.CompletionMode(cfg.Completion),
		SprintTimeout: time.Duration(cfg.SprintTimeoutSeconds) * time.Second,
	}, deps)
	defer o.Shutdown()

	if link != nil {
		detach := devicesync.Attach(o, link)
		defer detach()
	}

	announcer := announce.New(logger, &announce.LogSink{Logger: logger}, o.Events())
	defer announcer.Close()

	return newDashboard(logger, o, ts).Run()
}
