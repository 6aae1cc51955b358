package trajectory

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotXY renders the top down path of the cycles to an image file, marking where keyframes
// were added. The image format follows the extension of path.
func PlotXY(cycles []Cycle, title, path string) error {
	if len(cycles) == 0 {
		return errors.New("no cycles to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	pathPts := make(plotter.XYs, 0, len(cycles))
	keyframePts := make(plotter.XYs, 0)
	for _, c := range cycles {
		pt := c.Pose.Point()
		pathPts = append(pathPts, plotter.XY{X: pt.X, Y: pt.Y})
		if c.KeyFrameAdded {
			keyframePts = append(keyframePts, plotter.XY{X: pt.X, Y: pt.Y})
		}
	}

	line, err := plotter.NewLine(pathPts)
	if err != nil {
		return errors.Wrap(err, "cannot plot path")
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{B: 200, A: 255}
	p.Add(line)
	p.Legend.Add("odometry", line)

	if len(keyframePts) > 0 {
		scatter, err := plotter.NewScatter(keyframePts)
		if err != nil {
			return errors.Wrap(err, "cannot plot keyframes")
		}
		scatter.Color = color.RGBA{R: 200, A: 255}
		p.Add(scatter)
		p.Legend.Add("keyframes", scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "cannot save plot to %q", path)
	}
	return nil
}
