package spring_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/integrators"
	"github.com/san-kum/springsim/internal/spring"
)

var _ = Describe("System", func() {
	var sys *spring.System

	BeforeEach(func() {
		sys = newSystem()
	})

	Describe("construction", func() {
		It("rejects bad spring constants", func() {
			for _, c := range [][2]float64{{0, 1}, {-1, 1}, {1, -1}, {math.NaN(), 1}, {1, math.Inf(1)}} {
				_, err := sys.CreateSpring(c[0], c[1])
				Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue(), "tension=%v friction=%v", c[0], c[1])
			}
		})

		It("accepts zero friction", func() {
			_, err := sys.CreateSpring(10, 0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects non-positive rest thresholds", func() {
			_, err := sys.CreateSpring(10, 1, spring.WithRestThresholds(0, 0.001))
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("rejects a bad step configuration", func() {
			cfg := spring.DefaultSystemConfig()
			cfg.MaxStep = 0
			_, err := spring.NewSystem(cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("hands out distinct ids", func() {
			a, _ := sys.CreateSpring(10, 1)
			b, _ := sys.CreateSpring(10, 1)
			Expect(a.ID()).NotTo(Equal(b.ID()))
			Expect(a.System()).To(BeIdenticalTo(sys))
		})
	})

	Describe("Tick", func() {
		It("rejects negative and non-finite deltas", func() {
			for _, dt := range []float64{-0.016, math.NaN(), math.Inf(1)} {
				_, err := sys.Tick(dt)
				Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			}
		})

		It("reports idle when nothing moves", func() {
			active, err := sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeFalse())
			Expect(sys.TickCount()).To(BeZero())
		})

		It("defers springs woken during a tick to the next one", func() {
			a, _ := sys.CreateSpring(50, 3)
			b, _ := sys.CreateSpring(50, 3)
			bRec := &recorder{}
			b.AddListener(bRec)

			a.AddListener(spring.ListenerFunc(func(float64) {
				if b.IsAtRest() && b.EndValue() == 0 {
					_ = b.SetEndValue(10)
				}
			}))
			Expect(a.SetEndValue(10)).To(Succeed())

			_, err := sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.EndValue()).To(Equal(10.0))
			Expect(bRec.values).To(BeEmpty())
			Expect(sys.ActiveCount()).To(Equal(2))

			_, err = sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(bRec.values).To(HaveLen(1))
		})

		It("refuses to run inside itself", func() {
			s, _ := sys.CreateSpring(50, 3)
			var inner error
			s.AddListener(spring.ListenerFunc(func(float64) {
				_, inner = sys.Tick(frame)
			}))
			Expect(s.SetEndValue(1)).To(Succeed())

			_, err := sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(inner).To(MatchError(spring.ErrReentrantTick))
		})

		It("sub-steps large deltas without diverging", func() {
			stiff, _ := sys.CreateSpring(1000, 10)
			Expect(stiff.SetEndValue(100)).To(Succeed())

			active, err := sys.Tick(5)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeFalse())
			Expect(stiff.CurrentValue()).To(Equal(100.0))
		})

		It("bounds the work of a huge delta", func() {
			s, _ := sys.CreateSpring(50, 3)
			Expect(s.SetEndValue(100)).To(Succeed())

			active, err := sys.Tick(1e20)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeFalse())
			Expect(s.CurrentValue()).To(Equal(100.0))
		})

		It("falls behind instead of stepping past MaxSubsteps", func() {
			cfg := spring.DefaultSystemConfig()
			cfg.MaxSubsteps = 10
			capped, err := spring.NewSystem(cfg)
			Expect(err).NotTo(HaveOccurred())

			s, _ := capped.CreateSpring(50, 0)
			Expect(s.SetEndValue(100)).To(Succeed())

			active, err := capped.Tick(1e9)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeTrue())
			Expect(math.IsInf(s.CurrentValue(), 0) || math.IsNaN(s.CurrentValue())).To(BeFalse())
			Expect(s.CurrentValue()).To(BeNumerically("~", 100, 100))
			Expect(s.Velocity()).To(BeNumerically("~", 0, 100*math.Sqrt(50)+1e-6))
		})

		It("rejects a negative sub-step cap", func() {
			cfg := spring.DefaultSystemConfig()
			cfg.MaxSubsteps = -1
			_, err := spring.NewSystem(cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("defers a halted spring that is disturbed again in the same tick", func() {
			a, _ := sys.CreateSpring(50, 3)
			b, _ := sys.CreateSpring(50, 3)
			bRec := &recorder{}
			b.AddListener(bRec)
			Expect(a.SetEndValue(10)).To(Succeed())
			Expect(b.SetEndValue(10)).To(Succeed())

			disturbed := false
			a.AddListener(spring.ListenerFunc(func(float64) {
				if !disturbed {
					disturbed = true
					b.Halt()
					_ = b.SetEndValue(50)
				}
			}))

			_, err := sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(bRec.values).To(BeEmpty())
			Expect(b.CurrentValue()).To(BeZero())
			Expect(b.IsAtRest()).To(BeFalse())

			_, err = sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(bRec.values).To(HaveLen(1))
		})

		It("clamps deltas to MaxDelta", func() {
			cfg := spring.DefaultSystemConfig()
			cfg.MaxDelta = 0.05
			clamped, err := spring.NewSystem(cfg)
			Expect(err).NotTo(HaveOccurred())

			a, _ := clamped.CreateSpring(50, 3)
			b, _ := sys.CreateSpring(50, 3)
			Expect(a.SetEndValue(100)).To(Succeed())
			Expect(b.SetEndValue(100)).To(Succeed())

			_, err = clamped.Tick(10)
			Expect(err).NotTo(HaveOccurred())
			_, err = sys.Tick(0.05)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.CurrentValue()).To(Equal(b.CurrentValue()))
		})

		It("advances with any registered integrator", func() {
			for _, name := range integrators.Names() {
				integ, err := integrators.New(name)
				Expect(err).NotTo(HaveOccurred())
				cfg := spring.DefaultSystemConfig()
				cfg.Integrator = integ
				local, err := spring.NewSystem(cfg)
				Expect(err).NotTo(HaveOccurred())

				s, _ := local.CreateSpring(120, 14)
				Expect(s.SetEndValue(1)).To(Succeed())
				ticks := settle(local, frame, 5000)
				Expect(ticks).To(BeNumerically("<", 5000), name)
				Expect(s.CurrentValue()).To(Equal(1.0), name)
			}
		})
	})

	Describe("listener isolation", func() {
		It("keeps going when a listener panics", func() {
			var reported []error
			cfg := spring.DefaultSystemConfig()
			cfg.OnListenerError = func(err error) { reported = append(reported, err) }
			local, err := spring.NewSystem(cfg)
			Expect(err).NotTo(HaveOccurred())

			a, _ := local.CreateSpring(50, 3)
			b, _ := local.CreateSpring(50, 3)
			a.AddListener(spring.ListenerFunc(func(float64) { panic("boom") }))
			after := &recorder{}
			a.AddListener(after)
			bRec := &recorder{}
			b.AddListener(bRec)

			Expect(a.SetEndValue(1)).To(Succeed())
			Expect(b.SetEndValue(1)).To(Succeed())
			_, err = local.Tick(frame)
			Expect(err).NotTo(HaveOccurred())

			Expect(after.values).To(HaveLen(1))
			Expect(bRec.values).To(HaveLen(1))
			Expect(reported).To(HaveLen(1))
			Expect(reported[0]).To(MatchError(spring.ErrListenerFailure))

			var lerr *spring.ListenerError
			Expect(errors.As(reported[0], &lerr)).To(BeTrue())
			Expect(lerr.Spring).To(Equal(a.ID()))
			Expect(lerr.Recovered).To(Equal("boom"))
		})

		It("unwraps a panicked error value", func() {
			sentinel := errors.New("listener broke")
			err := &spring.ListenerError{Spring: 1, Handle: 2, Recovered: sentinel}
			Expect(errors.Is(err, sentinel)).To(BeTrue())
			Expect(errors.Is(err, spring.ErrListenerFailure)).To(BeTrue())
		})
	})

	Describe("listener registration during notification", func() {
		It("lets a listener remove itself and others", func() {
			s, _ := sys.CreateSpring(50, 3)
			var selfCalls, victimCalls int
			var self, victim spring.Handle
			self = s.AddListener(spring.ListenerFunc(func(float64) {
				selfCalls++
				s.RemoveListener(self)
				s.RemoveListener(victim)
			}))
			victim = s.AddListener(spring.ListenerFunc(func(float64) { victimCalls++ }))

			Expect(s.SetEndValue(1)).To(Succeed())
			settle(sys, frame, 5000)

			Expect(selfCalls).To(Equal(1))
			Expect(victimCalls).To(Equal(0))
			Expect(s.ListenerCount()).To(Equal(0))
		})

		It("starts notifying listeners added mid-notification on the next step", func() {
			s, _ := sys.CreateSpring(50, 3)
			late := &recorder{}
			added := false
			s.AddListener(spring.ListenerFunc(func(float64) {
				if !added {
					added = true
					s.AddListener(late)
				}
			}))

			Expect(s.SetEndValue(1)).To(Succeed())
			_, err := sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(late.values).To(BeEmpty())

			_, err = sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(late.values).To(HaveLen(1))
		})
	})

	Describe("observers", func() {
		It("see a summary of each working tick", func() {
			var infos []spring.TickInfo
			h := sys.AddObserver(spring.ObserverFunc(func(info spring.TickInfo) {
				infos = append(infos, info)
			}))

			a, _ := sys.CreateSpring(50, 3)
			b, _ := sys.CreateSpring(300, 40)
			Expect(a.SetEndValue(1)).To(Succeed())
			Expect(b.SetEndValue(1)).To(Succeed())

			ticks := settle(sys, frame, 5000)
			Expect(infos).To(HaveLen(ticks))
			Expect(infos[0].Advanced).To(Equal(2))
			Expect(infos[0].Tick).To(Equal(uint64(1)))
			Expect(infos[0].Dt).To(Equal(frame))

			settled := 0
			for _, info := range infos {
				settled += info.Settled
			}
			Expect(settled).To(Equal(2))
			Expect(infos[len(infos)-1].Active).To(Equal(0))

			Expect(sys.RemoveObserver(h)).To(BeTrue())
			Expect(a.SetEndValue(2)).To(Succeed())
			settle(sys, frame, 5000)
			Expect(infos).To(HaveLen(ticks))
		})
	})
})
