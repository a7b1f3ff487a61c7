package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/storage"
	"github.com/san-kum/ltiresp/internal/viz"
)

type batchEntry struct {
	Name     string           `json:"name"`
	Error    string           `json:"error,omitempty"`
	RunID    string           `json:"run_id,omitempty"`
	Analysis *engine.Analysis `json:"analysis,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, eng, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	reqs, err := engine.LoadBatch(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	var st *storage.Store
	if saveRun {
		st = storage.New(cfg.Storage.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	results := eng.AnalyzeBatch(cmd.Context(), reqs)
	entries := make([]batchEntry, len(results))
	failed := 0
	for i, res := range results {
		entries[i] = batchEntry{Name: res.Name, Analysis: res.Analysis}
		if res.Err != nil {
			failed++
			entries[i].Error = res.Err.Error()
			continue
		}
		if st != nil {
			runID, err := st.Save(res.Analysis)
			if err != nil {
				return err
			}
			entries[i].RunID = runID
			logger.Debug("run saved", "name", res.Name, "id", runID)
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return err
		}
	} else if err := printBatch(entries); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d systems failed", failed, len(results))
	}
	return nil
}

func printBatch(entries []batchEntry) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tH(s)\tSTABLE\tRISE\tSETTLING\tOVERSHOOT\tRUN")
	for _, e := range entries {
		if e.Analysis == nil {
			fmt.Fprintf(w, "%s\terror: %s\t\t\t\t\t\n", e.Name, e.Error)
			continue
		}
		info := e.Analysis.StepInfo
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\t%s\n",
			e.Name,
			e.Analysis.TransferFunction,
			e.Analysis.Stable,
			viz.FormatValue(info.RiseTime, "s", 3),
			viz.FormatValue(info.SettlingTime, "s", 3),
			viz.FormatValue(info.Overshoot, "%", 2),
			e.RunID,
		)
	}
	return w.Flush()
}
