package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/ltiresp/internal/config"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/export"
	"github.com/san-kum/ltiresp/internal/lti"
	"github.com/san-kum/ltiresp/internal/storage"
	"github.com/san-kum/ltiresp/internal/viz"
)

// openRun loads the run named by args, or the latest run when args is empty.
func openRun(cmd *cobra.Command, args []string) (*engine.Analysis, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	st := storage.New(cfg.Storage.DataDir)

	var runID string
	if len(args) > 0 {
		runID = args[0]
	} else {
		runID, err = st.Latest()
		if err != nil {
			return nil, "", fmt.Errorf("no stored runs in %s: %w", cfg.Storage.DataDir, err)
		}
	}

	a, err := st.LoadAnalysis(runID)
	if err != nil {
		return nil, "", fmt.Errorf("load run %s: %w", runID, err)
	}
	return a, runID, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	classes, err := selectedClasses()
	if err != nil {
		return err
	}
	a, runID, err := openRun(cmd, args)
	if err != nil {
		return err
	}
	fmt.Println(viz.KeyHint.Render("run " + runID))
	fmt.Println(renderAnalysis(a, viz.GetTheme(themeName), classes, plotWidth, plotHeight))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.Storage.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tH(s)\tTIME\tPOINTS\tT_END\tSTABLE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2fs\t%t\n",
			run.ID,
			run.TransferFunction,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TimePoints,
			run.TimeEnd,
			run.Stable,
		)
	}

	return w.Flush()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	a, _, err := openRun(cmd, args)
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.WriteJSON(os.Stdout, a)
	}
	if err := storage.ExportJSON(outPath, a); err != nil {
		return err
	}
	fmt.Printf("exported %s\n", outPath)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	a, _, err := openRun(cmd, args)
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.WriteCSV(os.Stdout, a)
	}
	if err := storage.ExportCSV(outPath, a); err != nil {
		return err
	}
	fmt.Printf("exported %s\n", outPath)
	return nil
}

func exportImages(cmd *cobra.Command, args []string) error {
	a, _, err := openRun(cmd, args)
	if err != nil {
		return err
	}
	paths, err := export.SaveAll(a, outPath, imgFormat)
	if err != nil {
		return err
	}
	fmt.Printf("exported %s\n", strings.Join(paths, ", "))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tH(s)\tGRID\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		tf := lti.MustNew(p.Numerator, p.Denominator)
		fmt.Fprintf(w, "%s\t%s\t%d pts, %.2fs\t%s\n", name, tf, p.TimePoints, p.TimeEnd, p.Description)
	}
	return w.Flush()
}
