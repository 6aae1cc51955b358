package odometry

import (
	"time"

	"github.com/golang/geo/r2"

	"go.viam.com/odometry/pointcloud"
	"go.viam.com/odometry/registration"
	"go.viam.com/odometry/sensordata"
	"go.viam.com/odometry/spatialmath"
)

// Type identifies the odometry approach that filled an Info.
type Type int

// Known odometry types.
const (
	TypeUndefined Type = iota
	TypeF2F
)

func (t Type) String() string {
	switch t {
	case TypeF2F:
		return "F2F"
	case TypeUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Info is the per cycle diagnostics of the estimator. The correspondence and local map fields
// are only filled when the estimator is configured with FillInfoData.
type Info struct {
	Type           Type
	Features       int
	KeyFrameAdded  bool
	Reg            registration.Info
	TimeEstimation time.Duration
	Lost           bool
	Inliers        int

	// RefCorners and NewCorners are the keyframe and frame pixels of each unique correspondence,
	// ordered by word id.
	RefCorners []r2.Point
	NewCorners []r2.Point
	// CornerInliers indexes RefCorners and NewCorners for each registration inlier.
	CornerInliers []int

	// LocalMap are the keyframe 3D words in the current frame.
	LocalMap     []sensordata.Word3
	LocalMapSize int
	Words        []sensordata.Word

	// LocalScanMap is the keyframe scan moved into the current frame.
	LocalScanMap     *pointcloud.LaserScan
	LocalScanMapSize int
}

// fillInfoData adds the correspondences and local maps of a registration between reference and
// current to info.
func fillInfoData(
	info *Info,
	reference, current *sensordata.Frame,
	reg registration.Info,
	pose, motion spatialmath.Pose,
) {
	pairs := sensordata.FindUniquePairs(reference.Words, current.Words)
	info.RefCorners = make([]r2.Point, len(pairs))
	info.NewCorners = make([]r2.Point, len(pairs))
	idToIndex := make(map[int]int, len(pairs))
	for i, pair := range pairs {
		info.RefCorners[i] = pair.From.Pt
		info.NewCorners[i] = pair.To.Pt
		idToIndex[pair.ID] = i
	}
	info.CornerInliers = make([]int, 0, len(reg.InliersIDs))
	for _, id := range reg.InliersIDs {
		if idx, ok := idToIndex[id]; ok {
			info.CornerInliers = append(info.CornerInliers, idx)
		}
	}

	t := spatialmath.Compose(pose, spatialmath.PoseInverse(motion))
	info.LocalMap = make([]sensordata.Word3, 0, len(reference.Words3))
	for _, w := range reference.Words3 {
		info.LocalMap = append(info.LocalMap, sensordata.Word3{ID: w.ID, Point: spatialmath.TransformPoint(t, w.Point)})
	}
	info.LocalMapSize = len(reference.Words3)
	info.Words = append([]sensordata.Word(nil), current.Words...)

	scan := reference.Data.Scan
	info.LocalScanMapSize = scan.Size()
	if !scan.IsEmpty() {
		local := scan.LocalTransform()
		info.LocalScanMap = scan.Transform(spatialmath.Compose(spatialmath.Compose(spatialmath.PoseInverse(local), t), local))
	}
}
