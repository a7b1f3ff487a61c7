package engine_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/engine"
)

const batchYAML = `
defaults:
  time_points: 40
  time_end: 4
systems:
  - name: lag
    numerator: [1]
    denominator: [1, 1]
  - name: unstable
    numerator: [1]
    denominator: [1, -10]
    time_points: 100
    time_end: 5
  - name: example
    numerator: [16]
    denominator: [1, 5.6, 16]
    time_points: 50
`

var _ = Describe("Batch", func() {
	It("loads systems and inherits the default grid", func() {
		reqs, err := engine.LoadBatch(strings.NewReader(batchYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(reqs).To(HaveLen(3))
		Expect(reqs[0]).To(Equal(engine.Request{Name: "lag", Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 40, TimeEnd: 4}))
		Expect(reqs[1].TimePoints).To(Equal(100))
		Expect(reqs[2].TimePoints).To(Equal(50))
		Expect(reqs[2].TimeEnd).To(Equal(4.0))
	})

	It("rejects unknown fields and empty files", func() {
		_, err := engine.LoadBatch(strings.NewReader("systems:\n  - numerator: [1]\n    denom: [1]\n"))
		Expect(err).To(HaveOccurred())
		_, err = engine.LoadBatch(strings.NewReader("defaults:\n  time_points: 10\n"))
		Expect(err).To(HaveOccurred())
	})

	It("analyzes every system independently and in order", func() {
		reqs, err := engine.LoadBatch(strings.NewReader(batchYAML))
		Expect(err).NotTo(HaveOccurred())

		cfg := engine.DefaultConfig()
		cfg.BatchWorkers = 2
		eng, err := engine.New(cfg)
		Expect(err).NotTo(HaveOccurred())

		results := eng.AnalyzeBatch(context.Background(), reqs)
		Expect(results).To(HaveLen(3))

		Expect(results[0].Name).To(Equal("lag"))
		Expect(results[0].Err).NotTo(HaveOccurred())
		Expect(results[0].Analysis.Step.Data).To(HaveLen(40))

		Expect(results[1].Name).To(Equal("unstable"))
		Expect(results[1].Err).To(MatchError(dynamo.ErrUnstableSimulation))
		Expect(results[1].Analysis).To(BeNil())

		Expect(results[2].Err).NotTo(HaveOccurred())
		Expect(results[2].Analysis.TransferFunction).To(Equal("16 / (s^2 + 5.6s + 16)"))
	})

	It("names unnamed systems by position", func() {
		eng, err := engine.New(engine.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		results := eng.AnalyzeBatch(context.Background(), []engine.Request{
			{Numerator: []float64{1}, Denominator: []float64{1}, TimePoints: 5, TimeEnd: 1},
		})
		Expect(results[0].Name).To(Equal("#1"))
	})
})
