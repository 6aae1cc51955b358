package main

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/odometry/pointcloud"
	"go.viam.com/odometry/sensordata"
	"go.viam.com/odometry/spatialmath"
)

const maxRecordBytes = 64 << 20

// poseRecord is a pose as a translation and a unit quaternion. A zero quaternion is identity.
type poseRecord struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	QW float64 `json:"qw"`
	QX float64 `json:"qx"`
	QY float64 `json:"qy"`
	QZ float64 `json:"qz"`
}

func (pr *poseRecord) pose() spatialmath.Pose {
	if pr == nil {
		return nil
	}
	pt := r3.Vector{X: pr.X, Y: pr.Y, Z: pr.Z}
	if pr.QW == 0 && pr.QX == 0 && pr.QY == 0 && pr.QZ == 0 {
		return spatialmath.NewPoseFromPoint(pt)
	}
	return spatialmath.NewPose(pt, &spatialmath.Quaternion{Real: pr.QW, Imag: pr.QX, Jmag: pr.QY, Kmag: pr.QZ})
}

type scanRecord struct {
	Points    [][3]float64 `json:"points"`
	MaxPoints int          `json:"max_points"`
	Local     *poseRecord  `json:"local,omitempty"`
}

type imuRecord struct {
	LinearAcceleration [3]float64  `json:"linear_acceleration"`
	AngularVelocity    [3]float64  `json:"angular_velocity"`
	Local              *poseRecord `json:"local,omitempty"`
}

// record is one line of a dataset.
type record struct {
	StampNS int64       `json:"stamp_ns"`
	Scan    *scanRecord `json:"scan,omitempty"`
	IMU     *imuRecord  `json:"imu,omitempty"`
	// Guess is an optional motion prior since the previous record, e.g. from wheel odometry.
	Guess *poseRecord `json:"guess,omitempty"`
}

func (rec *record) sensorData() *sensordata.SensorData {
	data := &sensordata.SensorData{Stamp: time.Unix(0, rec.StampNS)}
	if rec.Scan != nil {
		pts := make([]r3.Vector, 0, len(rec.Scan.Points))
		for _, p := range rec.Scan.Points {
			pts = append(pts, pointcloud.NewVector(p[0], p[1], p[2]))
		}
		data.Scan = pointcloud.NewLaserScan(pts, rec.Scan.MaxPoints, rec.Scan.Local.pose())
	}
	if rec.IMU != nil {
		acc, vel := rec.IMU.LinearAcceleration, rec.IMU.AngularVelocity
		data.IMU = &sensordata.IMU{
			LinearAcceleration: r3.Vector{X: acc[0], Y: acc[1], Z: acc[2]},
			AngularVelocity:    r3.Vector{X: vel[0], Y: vel[1], Z: vel[2]},
			LocalTransform:     rec.IMU.Local.pose(),
		}
	}
	return data
}

// readRecords calls fn for every record of a JSON lines dataset, stopping at the first error.
func readRecords(r io.Reader, fn func(seq int, rec *record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), maxRecordBytes)
	seq := 0
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return errors.Wrapf(err, "invalid record on line %d", line)
		}
		if err := fn(seq, &rec); err != nil {
			return err
		}
		seq++
	}
	return scanner.Err()
}
