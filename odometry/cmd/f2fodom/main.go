// Package main is the f2fodom command: it replays recorded scans through the F2F estimator and
// stores the resulting trajectory.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/trace"
	"go.viam.com/utils"

	"go.viam.com/odometry/logging"
	"go.viam.com/odometry/odometry"
	"go.viam.com/odometry/registration/icp"
	"go.viam.com/odometry/spatialmath"
	"go.viam.com/odometry/trajectory"
)

const (
	flagDataset = "dataset"
	flagConfig  = "config"
	flagDB      = "db"
	flagDebug   = "debug"
	flagRun     = "run"
	flagOut     = "out"
	flagLogFile = "log-file"
)

// replayConfig holds the attributes of the estimator and of the ICP pipeline.
type replayConfig struct {
	Odometry map[string]interface{} `json:"odometry"`
	ICP      map[string]interface{} `json:"icp"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	var (
		logger  logging.Logger
		logFile io.Closer
	)
	dbFlag := &cli.StringFlag{
		Name:  flagDB,
		Value: "trajectory.db",
		Usage: "trajectory database `FILE`",
	}
	return &cli.App{
		Name:   "f2fodom",
		Usage:  "frame to frame odometry over recorded scans",
		Writer: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to the rotated `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("f2fodom")
			} else {
				logger = logging.NewLogger("f2fodom")
			}
			if path := c.String(flagLogFile); path != "" {
				appender, closer := logging.NewFileAppender(path)
				logger.AddAppender(appender)
				logFile = closer
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			return logFile.Close()
		},
		Commands: []*cli.Command{
			{
				Name:  "replay",
				Usage: "run the estimator over a JSON lines dataset",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagDataset,
						Required: true,
						Usage:    "JSON lines dataset `FILE`",
					},
					&cli.StringFlag{
						Name:  flagConfig,
						Usage: "load estimator and icp attributes from `FILE`",
					},
					dbFlag,
				},
				Action: func(c *cli.Context) error {
					return replayAction(c, logger)
				},
			},
			{
				Name:  "runs",
				Usage: "list the recorded runs",
				Flags: []cli.Flag{dbFlag},
				Action: func(c *cli.Context) error {
					return runsAction(c)
				},
			},
			{
				Name:  "show",
				Usage: "print the trajectory of a run",
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: flagRun, Required: true, Usage: "run id"},
				},
				Action: func(c *cli.Context) error {
					return showAction(c)
				},
			},
			{
				Name:  "plot",
				Usage: "render the top down path of a run",
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: flagRun, Required: true, Usage: "run id"},
					&cli.StringFlag{Name: flagOut, Value: "trajectory.png", Usage: "image `FILE`"},
				},
				Action: func(c *cli.Context) error {
					return plotAction(c)
				},
			},
		},
	}
}

func loadReplayConfig(path string) (odometry.Config, icp.Config, error) {
	var attrs replayConfig
	if path != "" {
		//nolint:gosec
		raw, err := os.ReadFile(path)
		if err != nil {
			return odometry.Config{}, icp.Config{}, errors.Wrapf(err, "cannot read config %q", path)
		}
		if err := json.Unmarshal(raw, &attrs); err != nil {
			return odometry.Config{}, icp.Config{}, errors.Wrapf(err, "cannot parse config %q", path)
		}
	}
	odomConf, err := odometry.NewConfigFromAttributes(attrs.Odometry)
	if err != nil {
		return odometry.Config{}, icp.Config{}, err
	}
	icpConf, err := icp.NewConfigFromAttributes(attrs.ICP)
	if err != nil {
		return odometry.Config{}, icp.Config{}, err
	}
	return odomConf, icpConf, nil
}

func replayAction(c *cli.Context, logger logging.Logger) error {
	odomConf, icpConf, err := loadReplayConfig(c.String(flagConfig))
	if err != nil {
		return err
	}

	//nolint:gosec
	dataset, err := os.Open(c.String(flagDataset))
	if err != nil {
		return errors.Wrap(err, "cannot open dataset")
	}
	defer utils.UncheckedErrorFunc(dataset.Close)

	store, err := trajectory.Open(c.String(flagDB))
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(store.Close)

	runID, final, err := replay(c.Context, dataset, odomConf, icpConf, store, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "run %s final pose %s\n", runID, spatialmath.PoseString(final))
	return nil
}

// replay runs every record of dataset through a fresh estimator and records each cycle under a
// new run. It returns the run id and the final tracked pose.
func replay(
	ctx context.Context,
	dataset io.Reader,
	odomConf odometry.Config,
	icpConf icp.Config,
	store *trajectory.Store,
	logger logging.Logger,
) (string, spatialmath.Pose, error) {
	pipeline, err := icp.NewPipeline(icpConf, logger.Sublogger("icp"))
	if err != nil {
		return "", nil, err
	}
	tracker := odometry.NewPoseTracker(nil)
	estimator, err := odometry.NewF2F(odomConf, pipeline, tracker, logger.Sublogger("f2f"))
	if err != nil {
		return "", nil, err
	}
	runID, err := store.BeginRun(struct {
		Odometry odometry.Config `json:"odometry"`
		ICP      icp.Config      `json:"icp"`
	}{odomConf, icpConf})
	if err != nil {
		return "", nil, err
	}

	err = readRecords(dataset, func(seq int, rec *record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, span := trace.StartSpan(ctx, "f2fodom::replay::cycle")
		defer span.End()

		data := rec.sensorData()
		info := &odometry.Info{}
		t, err := estimator.Process(data, rec.Guess.pose(), info)
		if err != nil {
			span.SetStatus(trace.Status{Code: trace.StatusCodeInvalidArgument, Message: err.Error()})
			return errors.Wrapf(err, "cycle %d", seq)
		}
		span.AddAttributes(
			trace.Int64Attribute("seq", int64(seq)),
			trace.BoolAttribute("lost", info.Lost),
			trace.BoolAttribute("keyframe_added", info.KeyFrameAdded),
		)
		return store.Append(runID, trajectory.Cycle{
			Seq:            seq,
			Stamp:          data.Stamp,
			Pose:           tracker.Pose(),
			Transform:      t,
			Lost:           info.Lost,
			KeyFrameAdded:  info.KeyFrameAdded,
			Inliers:        info.Inliers,
			Features:       info.Features,
			TimeEstimation: info.TimeEstimation,
		})
	})
	if err != nil {
		return runID, nil, err
	}
	return runID, tracker.Pose(), nil
}

func runsAction(c *cli.Context) error {
	store, err := trajectory.Open(c.String(flagDB))
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(store.Close)

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", run.ID, run.StartedAt.Format(logging.DefaultTimeFormatStr), run.ConfigJSON)
	}
	return nil
}

func showAction(c *cli.Context) error {
	store, err := trajectory.Open(c.String(flagDB))
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(store.Close)

	cycles, err := store.Cycles(c.String(flagRun))
	if err != nil {
		return err
	}
	for _, cycle := range cycles {
		fmt.Fprintf(c.App.Writer, "%d\tlost=%t\tkeyframe=%t\tinliers=%d\t%s\n",
			cycle.Seq, cycle.Lost, cycle.KeyFrameAdded, cycle.Inliers, spatialmath.PoseString(cycle.Pose))
	}
	return nil
}

func plotAction(c *cli.Context) error {
	store, err := trajectory.Open(c.String(flagDB))
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(store.Close)

	runID := c.String(flagRun)
	cycles, err := store.Cycles(runID)
	if err != nil {
		return err
	}
	if err := trajectory.PlotXY(cycles, "run "+runID, c.String(flagOut)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", c.String(flagOut))
	return nil
}
