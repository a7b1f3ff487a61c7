// Package storage persists analyses as run directories holding a JSON
// metadata file and a CSV table of the three responses.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/ltiresp/internal/chart"
	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/metrics"
	"github.com/san-kum/ltiresp/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	responsesFile = "responses.csv"
)

var responsesHeader = []string{"time", "step", "impulse", "ramp"}

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	TransferFunction string            `json:"transfer_function"`
	Numerator        []float64         `json:"numerator"`
	Denominator      []float64         `json:"denominator"`
	TimePoints       int               `json:"time_points"`
	TimeEnd          float64           `json:"time_end"`
	Timestamp        time.Time         `json:"timestamp"`
	Stable           bool              `json:"stable"`
	Methods          map[string]string `json:"methods,omitempty"`
	StepInfo         metrics.StepInfo  `json:"step_info"`
}

// Responses is the column view of responses.csv.
type Responses struct {
	Times   []float64
	Step    []float64
	Impulse []float64
	Ramp    []float64
}

// Save writes a new run directory for a and returns its ID.
func (s *Store) Save(a *engine.Analysis) (string, error) {
	now := s.now()
	runID := fmt.Sprintf("%s_%d", slug(a.Name), now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:               runID,
		Name:             a.Name,
		TransferFunction: a.TransferFunction,
		Numerator:        a.Numerator,
		Denominator:      a.Denominator,
		TimePoints:       a.TimePoints,
		TimeEnd:          a.TimeEnd,
		Timestamp:        now,
		Stable:           a.Stable,
		Methods:          a.Methods,
		StepInfo:         a.StepInfo,
	}

	err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err == nil {
		err = writeFile(filepath.Join(runDir, responsesFile), func(w io.Writer) error {
			return WriteCSV(w, a)
		})
	}
	if err != nil {
		os.RemoveAll(runDir)
		return "", fmt.Errorf("save run %s: %w", runID, err)
	}
	return runID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Latest returns the ID of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs in %s: %w", s.baseDir, os.ErrNotExist)
	}
	return runs[len(runs)-1].ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadResponses(runID string) (*Responses, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, responsesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(responsesHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header: %w", responsesFile, dynamo.ErrDimensionMismatch)
	}

	n := len(records) - 1
	res := &Responses{
		Times:   make([]float64, n),
		Step:    make([]float64, n),
		Impulse: make([]float64, n),
		Ramp:    make([]float64, n),
	}
	columns := [][]float64{res.Times, res.Step, res.Impulse, res.Ramp}
	for i, record := range records[1:] {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", responsesFile, i+2, err)
			}
			columns[j][i] = v
		}
	}
	return res, nil
}

// LoadAnalysis rebuilds the analysis of a stored run. The per-band settling
// map is not persisted.
func (s *Store) LoadAnalysis(runID string) (*engine.Analysis, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	res, err := s.LoadResponses(runID)
	if err != nil {
		return nil, err
	}

	a := &engine.Analysis{
		Name:             meta.Name,
		TransferFunction: meta.TransferFunction,
		Numerator:        meta.Numerator,
		Denominator:      meta.Denominator,
		TimePoints:       meta.TimePoints,
		TimeEnd:          meta.TimeEnd,
		Stable:           meta.Stable,
		Methods:          meta.Methods,
		StepInfo:         meta.StepInfo,
	}
	for _, c := range []struct {
		dst    *chart.ResponseData
		values []float64
		class  sim.InputClass
	}{
		{&a.Step, res.Step, sim.Step},
		{&a.Impulse, res.Impulse, sim.Impulse},
		{&a.Ramp, res.Ramp, sim.Ramp},
	} {
		rd, err := chart.FormatLabeled(res.Times, c.values, chart.Label(c.class))
		if err != nil {
			return nil, err
		}
		*c.dst = rd
	}
	return a, nil
}

// WriteCSV writes the three responses of a as time,step,impulse,ramp rows.
func WriteCSV(w io.Writer, a *engine.Analysis) error {
	times, step := a.Step.Series()
	_, impulse := a.Impulse.Series()
	_, ramp := a.Ramp.Series()
	if len(impulse) != len(times) || len(ramp) != len(times) {
		return fmt.Errorf("responses of unequal length: %w", dynamo.ErrDimensionMismatch)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(responsesHeader); err != nil {
		return err
	}
	for i := range times {
		row := []string{
			strconv.FormatFloat(times[i], 'g', -1, 64),
			strconv.FormatFloat(step[i], 'g', -1, 64),
			strconv.FormatFloat(impulse[i], 'g', -1, 64),
			strconv.FormatFloat(ramp[i], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes a as indented JSON.
func WriteJSON(w io.Writer, a *engine.Analysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

func ExportJSON(path string, a *engine.Analysis) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, a) })
}

func ExportCSV(path string, a *engine.Analysis) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, a) })
}

// writeFile creates path, runs write on it and reports the first error of
// the write or the close.
func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func slug(name string) string {
	if name == "" {
		return "tf"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
