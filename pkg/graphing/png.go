package graphing

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	defaultWidth  = 12 * vg.Inch
	defaultHeight = 4 * vg.Inch
)

// RenderPNG saves one PNG per series with at least two points into dir and
// returns the written paths.
func RenderPNG(dir string, series []*Series) ([]string, error) {
	var paths []string
	for _, s := range series {
		if len(s.Values) < 2 {
			continue
		}
		path := filepath.Join(dir, sanitizeFilename(s.Name)+".png")
		if err := renderLineChart(s, path); err != nil {
			return paths, fmt.Errorf("render %s: %w", s.Name, err)
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, ErrNotEnoughData
	}
	return paths, nil
}

func renderLineChart(s *Series, path string) error {
	p := plot.New()
	p.Title.Text = formatName(s.Name)
	p.X.Label.Text = "Seconds since first request"
	p.Y.Label.Text = s.Category

	base := s.Times[0]
	pts := make(plotter.XYs, 0, len(s.Values))
	for i, v := range s.Values {
		pts = append(pts, plotter.XY{X: s.Times[i].Sub(base).Seconds(), Y: v})
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	points.Color = plotutil.Color(0)
	p.Add(line, points, plotter.NewGrid())

	return p.Save(defaultWidth, defaultHeight, path)
}
