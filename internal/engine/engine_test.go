package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ltiresp/internal/chart"
	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/sim"
)

func ys(rd chart.ResponseData) []float64 {
	_, v := rd.Series()
	return v
}

// crossings counts upward passes through level, ignoring excursions smaller
// than tol.
func crossings(values []float64, level, tol float64) int {
	n, above := 0, false
	for _, v := range values {
		switch {
		case !above && v > level+tol:
			above = true
			n++
		case above && v < level-tol:
			above = false
		}
	}
	return n
}

var _ = Describe("Engine", func() {
	var (
		eng *engine.Engine
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		eng, err = engine.New(engine.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	Describe("Analyze", func() {
		It("samples every response on the requested grid", func() {
			a, err := eng.Analyze(ctx, engine.Request{Numerator: []float64{16}, Denominator: []float64{1, 5.6, 16}, TimePoints: 37, TimeEnd: 4.2})
			Expect(err).NotTo(HaveOccurred())

			for _, rd := range []chart.ResponseData{a.Step, a.Impulse, a.Ramp} {
				Expect(rd.Data).To(HaveLen(37))
				Expect(rd.Data[0].X).To(Equal(0.0))
				Expect(rd.Data[36].X).To(Equal(4.2))
				Expect(rd.Metadata.Length).To(Equal(37))
			}
			Expect(a.Step.Label).To(Equal("Step Response"))
			Expect(a.Impulse.Label).To(Equal("Impulse Response"))
			Expect(a.Ramp.Label).To(Equal("Ramp Response"))
			Expect(a.TransferFunction).To(Equal("16 / (s^2 + 5.6s + 16)"))
			Expect(a.Stable).To(BeTrue())
		})

		It("keeps the step of a unit gain at exactly 1", func() {
			a, err := eng.Analyze(ctx, engine.Request{Numerator: []float64{1}, Denominator: []float64{1}, TimePoints: 100, TimeEnd: 5})
			Expect(err).NotTo(HaveOccurred())
			for _, y := range ys(a.Step) {
				Expect(y).To(Equal(1.0))
			}
		})

		It("tracks t for the ramp of a unit gain", func() {
			a, err := eng.Analyze(ctx, engine.Request{Numerator: []float64{1}, Denominator: []float64{1}, TimePoints: 100, TimeEnd: 5})
			Expect(err).NotTo(HaveOccurred())
			for _, p := range a.Ramp.Data {
				Expect(p.Y).To(BeNumerically("~", p.X, 1e-9))
			}
		})

		Context("with a first-order lag 1/(s+1)", func() {
			var a *engine.Analysis

			BeforeEach(func() {
				var err error
				a, err = eng.Analyze(ctx, engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 50, TimeEnd: 5})
				Expect(err).NotTo(HaveOccurred())
			})

			It("rises monotonically toward 1", func() {
				y := ys(a.Step)
				for i := 1; i < len(y); i++ {
					Expect(y[i]).To(BeNumerically(">=", y[i-1]))
				}
				Expect(*a.StepInfo.SteadyStateValue).To(BeNumerically("~", 1.0, 0.01))
			})

			It("settles into the 5% band near t = 3", func() {
				dt := 5.0 / 49
				Expect(a.StepInfo.SettlingTime5).NotTo(BeNil())
				Expect(*a.StepInfo.SettlingTime5).To(BeNumerically("~", 3.0, dt))
			})

			It("reports no 0-100% rise time while still rising", func() {
				Expect(a.StepInfo.RiseTime0To100).To(BeNil())
			})

			It("decays monotonically from 1 for the impulse", func() {
				y := ys(a.Impulse)
				Expect(y[0]).To(BeNumerically("~", 1.0, 1e-12))
				for i := 1; i < len(y); i++ {
					Expect(y[i]).To(BeNumerically("<", y[i-1]))
					Expect(y[i]).To(BeNumerically(">", 0))
				}
			})

			It("uses the exact discretization for step and impulse", func() {
				Expect(a.Methods).To(HaveKeyWithValue("step", "zoh-expm"))
				Expect(a.Methods).To(HaveKeyWithValue("impulse", "zoh-expm"))
				Expect(a.Methods).To(HaveKeyWithValue("ramp", "rk4"))
			})
		})

		Context("with the underdamped example 16/(s^2+5.6s+16)", func() {
			var a *engine.Analysis

			BeforeEach(func() {
				var err error
				a, err = eng.Analyze(ctx, engine.Request{Numerator: []float64{16}, Denominator: []float64{1, 5.6, 16}, TimePoints: 50, TimeEnd: 5})
				Expect(err).NotTo(HaveOccurred())
			})

			It("overshoots above 1 exactly once", func() {
				Expect(crossings(ys(a.Step), 1.0, 1e-3)).To(Equal(1))
				Expect(*a.StepInfo.Overshoot).To(BeNumerically(">", 0))
			})

			It("reaches the steady state before settling within 2%", func() {
				info := a.StepInfo
				Expect(info.RiseTime0To100).NotTo(BeNil())
				Expect(info.SettlingTime).NotTo(BeNil())
				Expect(*info.RiseTime0To100).To(BeNumerically("<", *info.SettlingTime))
			})

			It("peaks near the damped half period", func() {
				Expect(*a.StepInfo.PeakTime).To(BeNumerically("~", math.Pi/math.Sqrt(16-2.8*2.8), 5.0/49))
			})

			It("serializes step info with null-able keys", func() {
				data, err := json.Marshal(a)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(ContainSubstring(`"RiseTime_0_to_100":`))
				Expect(string(data)).To(ContainSubstring(`"SettlingTime5":`))
				Expect(string(data)).To(ContainSubstring(`"step_response":`))
			})
		})

		It("produces identical results on re-run", func() {
			req := engine.Request{Numerator: []float64{1, 2}, Denominator: []float64{1, 3, 5, 2}, TimePoints: 80, TimeEnd: 5}
			first, err := eng.Analyze(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			second, err := eng.Analyze(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("is safe for concurrent use", func() {
			req := engine.Request{Numerator: []float64{16}, Denominator: []float64{1, 5.6, 16}, TimePoints: 50, TimeEnd: 5}
			want, err := eng.Analyze(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			var wg sync.WaitGroup
			results := make([]*engine.Analysis, 8)
			for i := range results {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					a, err := eng.Analyze(ctx, req)
					Expect(err).NotTo(HaveOccurred())
					results[i] = a
				}()
			}
			wg.Wait()
			for _, a := range results {
				Expect(a).To(Equal(want))
			}
		})
	})

	Describe("validation", func() {
		DescribeTable("rejects invalid requests",
			func(req engine.Request, want error) {
				a, err := eng.Analyze(ctx, req)
				Expect(err).To(MatchError(want))
				Expect(a).To(BeNil())
			},
			Entry("denominator longer than the degree limit",
				engine.Request{Numerator: []float64{1}, Denominator: make12(), TimePoints: 10, TimeEnd: 1},
				dynamo.ErrDegreeExceeded),
			Entry("improper transfer function",
				engine.Request{Numerator: []float64{1, 2, 3}, Denominator: []float64{1, 1}, TimePoints: 10, TimeEnd: 1},
				dynamo.ErrImproperTransferFunction),
			Entry("zero leading denominator",
				engine.Request{Numerator: []float64{1}, Denominator: []float64{0, 1}, TimePoints: 10, TimeEnd: 1},
				dynamo.ErrSingularSystem),
			Entry("empty denominator",
				engine.Request{Numerator: []float64{1}, Denominator: nil, TimePoints: 10, TimeEnd: 1},
				dynamo.ErrSingularSystem),
			Entry("zero time points",
				engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 0, TimeEnd: 1},
				dynamo.ErrParameterBounds),
			Entry("too many time points",
				engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 101, TimeEnd: 1},
				dynamo.ErrParameterBounds),
			Entry("non-positive horizon",
				engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 10, TimeEnd: 0},
				dynamo.ErrParameterBounds),
			Entry("horizon above the limit",
				engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 10, TimeEnd: 6},
				dynamo.ErrParameterBounds),
			Entry("NaN horizon",
				engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 10, TimeEnd: math.NaN()},
				dynamo.ErrParameterBounds),
			Entry("divergent response",
				engine.Request{Numerator: []float64{1}, Denominator: []float64{1, -10}, TimePoints: 100, TimeEnd: 5},
				dynamo.ErrUnstableSimulation),
		)

		It("honors a configured degree limit", func() {
			cfg := engine.DefaultConfig()
			cfg.Limits.MaxDegree = 2
			small, err := engine.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			_, err = small.Analyze(ctx, engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 3, 3, 1}, TimePoints: 10, TimeEnd: 1})
			Expect(err).To(MatchError(dynamo.ErrDegreeExceeded))
		})

		It("reports where a divergent response left the guard", func() {
			_, err := eng.Analyze(ctx, engine.Request{Numerator: []float64{1}, Denominator: []float64{1, -10}, TimePoints: 100, TimeEnd: 5})
			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Time).To(BeNumerically(">", 0))
		})

		It("stops before simulating when the context is done", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := eng.Analyze(cancelled, engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 10, TimeEnd: 1})
			Expect(err).To(MatchError(context.Canceled))
		})

		It("rejects invalid configuration", func() {
			cfg := engine.DefaultConfig()
			cfg.Limits.MaxTimePoints = 0
			_, err := engine.New(cfg)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))

			cfg = engine.DefaultConfig()
			cfg.SettlingThresholds = []float64{2}
			_, err = engine.New(cfg)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	Describe("single responses", func() {
		req := engine.Request{Numerator: []float64{1}, Denominator: []float64{1, 1}, TimePoints: 20, TimeEnd: 2}

		It("matches the full analysis", func() {
			a, err := eng.Analyze(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			step, err := eng.Step(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(step).To(Equal(a.Step))

			impulse, err := eng.Impulse(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(impulse).To(Equal(a.Impulse))

			ramp, err := eng.Ramp(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(ramp).To(Equal(a.Ramp))
			Expect(a.Response(sim.Ramp)).To(Equal(ramp))
		})
	})

	Describe("Limits.Clamp", func() {
		lim := engine.DefaultConfig().Limits

		DescribeTable("bounds the grid",
			func(points int, end float64, wantPoints int, wantEnd float64) {
				r := lim.Clamp(engine.Request{TimePoints: points, TimeEnd: end}, 0.01)
				Expect(r.TimePoints).To(Equal(wantPoints))
				Expect(r.TimeEnd).To(Equal(wantEnd))
			},
			Entry("defaults above the limits", 100, 10.0, 100, 5.0),
			Entry("too many points", 500, 1.0, 100, 1.0),
			Entry("zero points", 0, 1.0, 1, 1.0),
			Entry("negative horizon", 10, -3.0, 10, 0.01),
			Entry("in range", 50, 2.5, 50, 2.5),
		)
	})
})

func make12() []float64 {
	den := make([]float64, 12)
	den[0] = 1
	return den
}
