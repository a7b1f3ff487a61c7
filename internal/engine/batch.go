package engine

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// BatchResult pairs a request with its outcome. Exactly one of Analysis and
// Err is set.
type BatchResult struct {
	Name     string
	Request  Request
	Analysis *Analysis
	Err      error
}

// AnalyzeBatch analyzes every request with at most BatchWorkers running at
// once. A failing request does not stop the others; results keep input order.
func (e *Engine) AnalyzeBatch(ctx context.Context, reqs []Request) []BatchResult {
	results := make([]BatchResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchWorkers)
	for i, r := range reqs {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		g.Go(func() error {
			a, err := e.Analyze(gctx, r)
			results[i] = BatchResult{Name: name, Request: r, Analysis: a, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	e.logger.Info("batch complete", "requests", len(reqs), "failed", failed)
	return results
}

// BatchFile is the YAML layout accepted by LoadBatch.
type BatchFile struct {
	Defaults struct {
		TimePoints int     `yaml:"time_points"`
		TimeEnd    float64 `yaml:"time_end"`
	} `yaml:"defaults"`
	Systems []Request `yaml:"systems"`
}

// LoadBatch decodes a batch file. Systems without a grid inherit the
// defaults section.
func LoadBatch(r io.Reader) ([]Request, error) {
	var f BatchFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode batch file: %w", err)
	}
	if len(f.Systems) == 0 {
		return nil, fmt.Errorf("batch file lists no systems")
	}

	reqs := make([]Request, len(f.Systems))
	for i, s := range f.Systems {
		if s.TimePoints == 0 {
			s.TimePoints = f.Defaults.TimePoints
		}
		if s.TimeEnd == 0 {
			s.TimeEnd = f.Defaults.TimeEnd
		}
		reqs[i] = s
	}
	return reqs, nil
}
