package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ltiresp/internal/chart"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/lti"
	"github.com/san-kum/ltiresp/internal/metrics"
)

// FormatValue prints v with the given precision and unit, or N/A when v is nil.
func FormatValue(v *float64, unit string, precision int) string {
	if v == nil {
		return "N/A"
	}
	s := fmt.Sprintf("%.*f", precision, *v)
	if unit != "" {
		s += " " + unit
	}
	return s
}

type infoRow struct {
	label     string
	value     func(metrics.StepInfo) *float64
	unit      string
	precision int
}

var infoRows = []infoRow{
	{"Rise time", func(s metrics.StepInfo) *float64 { return s.RiseTime }, "s", 3},
	{"Rise time (0-100%)", func(s metrics.StepInfo) *float64 { return s.RiseTime0To100 }, "s", 3},
	{"Settling time", func(s metrics.StepInfo) *float64 { return s.SettlingTime }, "s", 3},
	{"Settling time (5%)", func(s metrics.StepInfo) *float64 { return s.SettlingTime5 }, "s", 3},
	{"Settling min", func(s metrics.StepInfo) *float64 { return s.SettlingMin }, "", 3},
	{"Settling max", func(s metrics.StepInfo) *float64 { return s.SettlingMax }, "", 3},
	{"Overshoot", func(s metrics.StepInfo) *float64 { return s.Overshoot }, "%", 2},
	{"Undershoot", func(s metrics.StepInfo) *float64 { return s.Undershoot }, "%", 2},
	{"Peak", func(s metrics.StepInfo) *float64 { return s.Peak }, "", 3},
	{"Peak time", func(s metrics.StepInfo) *float64 { return s.PeakTime }, "s", 3},
	{"Steady state", func(s metrics.StepInfo) *float64 { return s.SteadyStateValue }, "", 3},
}

// RenderStepInfo lays the step metrics out as a label/value table.
func RenderStepInfo(info metrics.StepInfo) string {
	var b strings.Builder
	for _, row := range infoRows {
		b.WriteString(MetricLabel.Render(row.label))
		b.WriteString(MetricValue.Render(FormatValue(row.value(info), row.unit, row.precision)))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// PlotResponse draws rd with asciigraph. Width 0 keeps one column per sample.
func PlotResponse(rd chart.ResponseData, width, height int, color asciigraph.AnsiColor) string {
	_, values := rd.Series()
	if len(values) == 0 {
		return ""
	}
	if len(values) == 1 {
		values = append(values, values[0])
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("%s (0 to %.2f s)", rd.Label, rd.Metadata.TimeRange[1])),
		asciigraph.Precision(3),
		asciigraph.SeriesColors(color),
	}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.Plot(values, opts...)
}

// Title renders a header line in the theme's primary color.
func Title(text string, theme Theme) string {
	return HeaderStyle.Foreground(theme.Primary).Render(text)
}

// StabilityBadge marks a system as stable or unstable.
func StabilityBadge(stable bool, theme Theme) string {
	if stable {
		return lipgloss.NewStyle().Bold(true).Foreground(theme.Success).Render("STABLE")
	}
	return lipgloss.NewStyle().Bold(true).Foreground(theme.Error).Render("UNSTABLE")
}

// DCGain formats H(0) of the analyzed system; a pole at the origin shows as
// +Inf or -Inf.
func DCGain(a *engine.Analysis) string {
	tf, err := lti.New(a.Numerator, a.Denominator, max(len(a.Denominator)-1, 0))
	if err != nil {
		return "N/A"
	}
	return fmt.Sprintf("%.4g", tf.DCGain())
}
