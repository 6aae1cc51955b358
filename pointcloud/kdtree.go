package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree is a nearest neighbour index over a fixed set of points.
type KDTree struct {
	tree *kdtree.Tree
	size int
}

// NewKDTree builds the index. The input slice is not modified.
func NewKDTree(points []r3.Vector) *KDTree {
	pts := make(kdtree.Points, 0, len(points))
	for _, p := range points {
		pts = append(pts, kdtree.Point{p.X, p.Y, p.Z})
	}
	if len(pts) == 0 {
		return &KDTree{}
	}
	return &KDTree{tree: kdtree.New(pts, false), size: len(pts)}
}

// Size returns the number of indexed points.
func (kd *KDTree) Size() int {
	return kd.size
}

// NearestNeighbor returns the closest indexed point to p and the euclidean distance to it. The
// last return is false when the tree is empty.
func (kd *KDTree) NearestNeighbor(p r3.Vector) (r3.Vector, float64, bool) {
	if kd.tree == nil {
		return r3.Vector{}, 0, false
	}
	nearest, sqDist := kd.tree.Nearest(kdtree.Point{p.X, p.Y, p.Z})
	if nearest == nil {
		return r3.Vector{}, 0, false
	}
	np := nearest.(kdtree.Point)
	return r3.Vector{X: np[0], Y: np[1], Z: np[2]}, math.Sqrt(sqDist), true
}
