// Package export writes response plots as image files with gonum/plot.
package export

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/ltiresp/internal/chart"
	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/sim"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

var seriesColors = map[sim.InputClass]color.Color{
	sim.Step:    color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	sim.Impulse: color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	sim.Ramp:    color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
}

// SupportedFormats lists the file extensions SaveAll accepts.
var SupportedFormats = []string{"png", "svg", "pdf", "jpg"}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(lo, hi float64) []plot.Tick {
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return nil
		}
		if lo == hi {
			return []plot.Tick{{Value: lo, Label: fmt.Sprintf(labelFmt, lo)}}
		}
		step := (hi - lo) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := lo + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "amplitude"
	p.X.Tick.Marker = limitedTicker(11, "%.2f")
	p.Y.Tick.Marker = limitedTicker(9, "%.3g")
	p.Add(plotter.NewGrid())
	return p
}

func xys(rd chart.ResponseData) plotter.XYs {
	pts := make(plotter.XYs, len(rd.Data))
	for i, p := range rd.Data {
		pts[i].X, pts[i].Y = p.X, p.Y
	}
	return pts
}

func addLine(p *plot.Plot, rd chart.ResponseData, c color.Color) (*plotter.Line, error) {
	if len(rd.Data) == 0 {
		return nil, fmt.Errorf("%s: no samples: %w", rd.Label, dynamo.ErrParameterBounds)
	}
	line, err := plotter.NewLine(xys(rd))
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = c
	p.Add(line)
	return line, nil
}

// ResponsePlot builds the plot of one response. The step plot carries a
// dashed steady-state reference.
func ResponsePlot(rd chart.ResponseData, class sim.InputClass, title string) (*plot.Plot, error) {
	p := newPlot(title)
	if _, err := addLine(p, rd, seriesColors[class]); err != nil {
		return nil, err
	}

	if class == sim.Step && len(rd.Data) > 1 {
		ss := rd.Metadata.FinalValue
		ref, err := plotter.NewLine(plotter.XYs{
			{X: rd.Metadata.TimeRange[0], Y: ss},
			{X: rd.Metadata.TimeRange[1], Y: ss},
		})
		if err != nil {
			return nil, err
		}
		ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		ref.LineStyle.Color = color.Gray{Y: 0x80}
		p.Add(ref)
		p.Legend.Add(fmt.Sprintf("steady state %.4g", ss), ref)
		p.Legend.Top = true
	}
	return p, nil
}

// OverviewPlot overlays all three responses of a.
func OverviewPlot(a *engine.Analysis) (*plot.Plot, error) {
	p := newPlot(a.TransferFunction)
	for _, class := range sim.Classes {
		rd := a.Response(class)
		line, err := addLine(p, rd, seriesColors[class])
		if err != nil {
			return nil, err
		}
		p.Legend.Add(rd.Label, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = vg.Points(4)
	p.Legend.ThumbnailWidth = vg.Points(20)
	return p, nil
}

// SaveAll writes one file per response plus an overview into dir and
// returns the paths written.
func SaveAll(a *engine.Analysis, dir, format string) ([]string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if !supported(format) {
		return nil, fmt.Errorf("image format %q (want one of %s): %w",
			format, strings.Join(SupportedFormats, ", "), dynamo.ErrParameterBounds)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory: %w", err)
	}

	var paths []string
	for _, class := range sim.Classes {
		rd := a.Response(class)
		p, err := ResponsePlot(rd, class, rd.Label+": "+a.TransferFunction)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, class.String()+"."+format)
		if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	p, err := OverviewPlot(a)
	if err != nil {
		return paths, err
	}
	path := filepath.Join(dir, "responses."+format)
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return paths, fmt.Errorf("save %s: %w", path, err)
	}
	return append(paths, path), nil
}

func supported(format string) bool {
	for _, f := range SupportedFormats {
		if f == format {
			return true
		}
	}
	return false
}
