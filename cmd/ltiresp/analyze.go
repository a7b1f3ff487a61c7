package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/ltiresp/internal/config"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/lti"
	"github.com/san-kum/ltiresp/internal/sim"
	"github.com/san-kum/ltiresp/internal/storage"
	"github.com/san-kum/ltiresp/internal/viz"
)

// buildRequest starts from the preset when one is named; --num, --den,
// --points and --time override it only when set explicitly.
func buildRequest(cmd *cobra.Command) (engine.Request, error) {
	var req engine.Request
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return req, fmt.Errorf("unknown preset: %s (see 'ltiresp presets')", preset)
		}
		req = p.Request(preset)
	} else {
		req = engine.Request{TimePoints: timePoints, TimeEnd: timeEnd}
		if numStr == "" || denStr == "" {
			return req, fmt.Errorf("--num and --den are required without --preset")
		}
	}

	if cmd.Flags().Changed("num") || preset == "" {
		num, err := lti.Parse(numStr)
		if err != nil {
			return req, fmt.Errorf("numerator: %w", err)
		}
		req.Numerator = num
	}
	if cmd.Flags().Changed("den") || preset == "" {
		den, err := lti.Parse(denStr)
		if err != nil {
			return req, fmt.Errorf("denominator: %w", err)
		}
		req.Denominator = den
	}
	if cmd.Flags().Changed("points") {
		req.TimePoints = timePoints
	}
	if cmd.Flags().Changed("time") {
		req.TimeEnd = timeEnd
	}
	return req, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, eng, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	classes, err := selectedClasses()
	if err != nil {
		return err
	}

	a, err := eng.Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}

	if saveRun {
		st := storage.New(cfg.Storage.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(a)
		if err != nil {
			return err
		}
		logger.Info("run saved", "id", runID, "dir", cfg.Storage.DataDir)
	}

	if jsonOut {
		return storage.WriteJSON(os.Stdout, a)
	}
	fmt.Println(renderAnalysis(a, viz.GetTheme(themeName), classes, 0, plotHeight))
	return nil
}

// selectedClasses resolves --class; empty selects every response.
func selectedClasses() ([]sim.InputClass, error) {
	if classFlag == "" {
		return sim.Classes, nil
	}
	class, err := sim.ParseInputClass(strings.ToLower(classFlag))
	if err != nil {
		return nil, err
	}
	return []sim.InputClass{class}, nil
}

func renderAnalysis(a *engine.Analysis, theme viz.Theme, classes []sim.InputClass, width, height int) string {
	var b strings.Builder
	b.WriteString(viz.Title("H(s) = "+a.TransferFunction, theme))
	b.WriteString("  ")
	b.WriteString(viz.StabilityBadge(a.Stable, theme))
	b.WriteString("\n\n")
	info := viz.RenderStepInfo(a.StepInfo) + "\n" + viz.MetricLabel.Render("DC gain") + viz.MetricValue.Render(viz.DCGain(a))
	b.WriteString(viz.Panel.BorderForeground(theme.Muted).Render(info))
	b.WriteString("\n")
	for _, class := range classes {
		b.WriteString("\n")
		b.WriteString(viz.PlotResponse(a.Response(class), width, height, theme.Series(class)))
		b.WriteString("\n")
	}
	return b.String()
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, eng, _, err := setup(cmd)
	if err != nil {
		return err
	}
	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}
	a, err := eng.Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}

	tf, err := lti.New(a.Numerator, a.Denominator, cfg.Limits.MaxDegree)
	if err != nil {
		return err
	}
	ss, err := lti.Realize(tf)
	if err != nil {
		return err
	}
	poles, err := ss.Poles()
	if err != nil {
		return err
	}
	return viz.Run(viz.NewModel(a, poles, themeName))
}
