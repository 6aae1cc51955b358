// Package trajectory records odometry runs in a SQLite database.
package trajectory

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	// registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"go.viam.com/odometry/spatialmath"
)

const schema = `
CREATE TABLE IF NOT EXISTS odometry_runs (
	run_id      TEXT PRIMARY KEY,
	config_json TEXT,
	started_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS odometry_cycles (
	run_id             TEXT NOT NULL REFERENCES odometry_runs(run_id) ON DELETE CASCADE,
	seq                INTEGER NOT NULL,
	stamp_ns           INTEGER NOT NULL,
	lost               INTEGER NOT NULL,
	keyframe_added     INTEGER NOT NULL,
	inliers            INTEGER NOT NULL,
	features           INTEGER NOT NULL,
	time_estimation_ns INTEGER NOT NULL,
	x REAL NOT NULL, y REAL NOT NULL, z REAL NOT NULL,
	qw REAL NOT NULL, qx REAL NOT NULL, qy REAL NOT NULL, qz REAL NOT NULL,
	tx REAL, ty REAL, tz REAL,
	tqw REAL, tqx REAL, tqy REAL, tqz REAL,
	PRIMARY KEY (run_id, seq)
);`

// Run is one replay of the estimator.
type Run struct {
	ID         string
	ConfigJSON json.RawMessage
	StartedAt  time.Time
}

// Cycle is the outcome of one estimator cycle. Transform is nil when the cycle was lost.
type Cycle struct {
	Seq            int
	Stamp          time.Time
	Pose           spatialmath.Pose
	Transform      spatialmath.Pose
	Lost           bool
	KeyFrameAdded  bool
	Inliers        int
	Features       int
	TimeEstimation time.Duration
}

// Store persists runs and their cycles.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open trajectory database %q", path)
	}
	// an in-memory database only lives as long as its connection
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			return nil, multierr.Combine(errors.Wrap(err, "cannot initialize trajectory database"), db.Close())
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun registers a new run with the configuration it ran with and returns its id.
func (s *Store) BeginRun(config interface{}) (string, error) {
	raw, err := json.Marshal(config)
	if err != nil {
		return "", errors.Wrap(err, "cannot encode run config")
	}
	id := uuid.New().String()
	if _, err := s.db.Exec(
		`INSERT INTO odometry_runs (run_id, config_json, started_at) VALUES (?, ?, ?)`,
		id, string(raw), time.Now().UnixNano(),
	); err != nil {
		return "", errors.Wrap(err, "cannot insert run")
	}
	return id, nil
}

// Runs returns every run, oldest first.
func (s *Store) Runs() (runs []Run, err error) {
	rows, err := s.db.Query(`SELECT run_id, config_json, started_at FROM odometry_runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, errors.Wrap(err, "cannot query runs")
	}
	defer func() {
		err = multierr.Combine(err, rows.Close())
	}()

	for rows.Next() {
		var (
			run     Run
			conf    sql.NullString
			started int64
		)
		if err := rows.Scan(&run.ID, &conf, &started); err != nil {
			return nil, errors.Wrap(err, "cannot scan run")
		}
		if conf.Valid {
			run.ConfigJSON = json.RawMessage(conf.String)
		}
		run.StartedAt = time.Unix(0, started)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Append records a cycle of the run.
func (s *Store) Append(runID string, c Cycle) error {
	if c.Pose == nil {
		return errors.New("cycle pose is required")
	}
	pt := c.Pose.Point()
	q := c.Pose.Orientation().Quaternion()

	var tx, ty, tz, tqw, tqx, tqy, tqz sql.NullFloat64
	if c.Transform != nil {
		tp := c.Transform.Point()
		tq := c.Transform.Orientation().Quaternion()
		tx, ty, tz = validFloat(tp.X), validFloat(tp.Y), validFloat(tp.Z)
		tqw, tqx, tqy, tqz = validFloat(tq.Real), validFloat(tq.Imag), validFloat(tq.Jmag), validFloat(tq.Kmag)
	}

	_, err := s.db.Exec(`
		INSERT INTO odometry_cycles (
			run_id, seq, stamp_ns, lost, keyframe_added, inliers, features, time_estimation_ns,
			x, y, z, qw, qx, qy, qz,
			tx, ty, tz, tqw, tqx, tqy, tqz
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, c.Seq, c.Stamp.UnixNano(), c.Lost, c.KeyFrameAdded, c.Inliers, c.Features, int64(c.TimeEstimation),
		pt.X, pt.Y, pt.Z, q.Real, q.Imag, q.Jmag, q.Kmag,
		tx, ty, tz, tqw, tqx, tqy, tqz,
	)
	if err != nil {
		return errors.Wrapf(err, "cannot insert cycle %d of run %s", c.Seq, runID)
	}
	return nil
}

// Cycles returns the cycles of a run in sequence order.
func (s *Store) Cycles(runID string) (cycles []Cycle, err error) {
	rows, err := s.db.Query(`
		SELECT seq, stamp_ns, lost, keyframe_added, inliers, features, time_estimation_ns,
		       x, y, z, qw, qx, qy, qz,
		       tx, ty, tz, tqw, tqx, tqy, tqz
		FROM odometry_cycles
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "cannot query cycles")
	}
	defer func() {
		err = multierr.Combine(err, rows.Close())
	}()

	for rows.Next() {
		var (
			c                              Cycle
			stamp, elapsed                 int64
			x, y, z, qw, qx, qy, qz        float64
			tx, ty, tz, tqw, tqx, tqy, tqz sql.NullFloat64
		)
		if err := rows.Scan(
			&c.Seq, &stamp, &c.Lost, &c.KeyFrameAdded, &c.Inliers, &c.Features, &elapsed,
			&x, &y, &z, &qw, &qx, &qy, &qz,
			&tx, &ty, &tz, &tqw, &tqx, &tqy, &tqz,
		); err != nil {
			return nil, errors.Wrap(err, "cannot scan cycle")
		}
		c.Stamp = time.Unix(0, stamp)
		c.TimeEstimation = time.Duration(elapsed)
		c.Pose = newPose(x, y, z, qw, qx, qy, qz)
		if tx.Valid {
			c.Transform = newPose(tx.Float64, ty.Float64, tz.Float64, tqw.Float64, tqx.Float64, tqy.Float64, tqz.Float64)
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

func validFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func newPose(x, y, z, qw, qx, qy, qz float64) spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: x, Y: y, Z: z},
		&spatialmath.Quaternion{Real: qw, Imag: qx, Jmag: qy, Kmag: qz},
	)
}
