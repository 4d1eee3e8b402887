package spring_test

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/spring"
)

var _ = Describe("Spring", func() {
	var (
		sys       *spring.System
		s         *spring.Spring
		rec       *recorder
		recHandle spring.Handle
	)

	BeforeEach(func() {
		sys = newSystem()
		var err error
		s, err = sys.CreateSpring(50, 3)
		Expect(err).NotTo(HaveOccurred())
		rec = &recorder{}
		recHandle = s.AddListener(rec)
	})

	Describe("a new spring", func() {
		It("rests at zero", func() {
			Expect(s.CurrentValue()).To(Equal(0.0))
			Expect(s.EndValue()).To(Equal(0.0))
			Expect(s.Velocity()).To(Equal(0.0))
			Expect(s.IsAtRest()).To(BeTrue())
			Expect(sys.Active()).To(BeFalse())
		})

		It("is never advanced by ticks", func() {
			for i := 0; i < 10; i++ {
				active, err := sys.Tick(frame)
				Expect(err).NotTo(HaveOccurred())
				Expect(active).To(BeFalse())
			}
			Expect(rec.values).To(BeEmpty())
		})

		It("carries the default rest thresholds", func() {
			cfg := s.Config()
			Expect(cfg.RestDisplacement).To(Equal(spring.DefaultRestDisplacement))
			Expect(cfg.RestVelocity).To(Equal(spring.DefaultRestVelocity))
		})
	})

	Describe("SetCurrentValue", func() {
		It("notifies listeners before returning", func() {
			Expect(s.SetCurrentValue(7)).To(Succeed())
			Expect(rec.values).To(Equal([]float64{7}))
			Expect(s.Velocity()).To(Equal(0.0))
			Expect(s.StartValue()).To(Equal(7.0))
		})

		It("activates a spring displaced from its end value", func() {
			Expect(s.SetCurrentValue(7)).To(Succeed())
			Expect(sys.Active()).To(BeTrue())
			Expect(sys.ActiveCount()).To(Equal(1))
		})

		It("rejects non-finite values without touching state", func() {
			err := s.SetCurrentValue(math.NaN())
			Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())
			Expect(s.CurrentValue()).To(Equal(0.0))
			Expect(rec.values).To(BeEmpty())
		})
	})

	Describe("SetEndValue", func() {
		It("does not notify on its own", func() {
			Expect(s.SetEndValue(100)).To(Succeed())
			Expect(rec.values).To(BeEmpty())
			Expect(sys.Active()).To(BeTrue())
		})

		It("rejects infinite targets", func() {
			err := s.SetEndValue(math.Inf(1))
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(s.EndValue()).To(Equal(0.0))
			Expect(sys.Active()).To(BeFalse())
		})

		It("is idempotent", func() {
			twice, err := sys.CreateSpring(50, 3)
			Expect(err).NotTo(HaveOccurred())
			twiceRec := &recorder{}
			twice.AddListener(twiceRec)

			Expect(s.SetEndValue(100)).To(Succeed())
			Expect(twice.SetEndValue(100)).To(Succeed())
			Expect(twice.SetEndValue(100)).To(Succeed())

			settle(sys, frame, 5000)
			Expect(twiceRec.values).To(Equal(rec.values))
		})
	})

	Describe("the reference scenario", func() {
		It("overshoots and then settles exactly on the target", func() {
			Expect(s.SetCurrentValue(0)).To(Succeed())
			Expect(s.SetEndValue(100)).To(Succeed())

			ticks := settle(sys, frame, 5000)
			Expect(ticks).To(BeNumerically("<", 5000))

			Expect(rec.max()).To(BeNumerically(">", 100))
			Expect(s.IsAtRest()).To(BeTrue())
			Expect(s.CurrentValue()).To(Equal(100.0))
			Expect(s.Velocity()).To(Equal(0.0))
			Expect(rec.values[len(rec.values)-1]).To(Equal(100.0))
		})

		It("notifies exactly once per tick while active", func() {
			Expect(s.SetEndValue(100)).To(Succeed())
			ticks := settle(sys, frame, 5000)
			Expect(rec.values).To(HaveLen(ticks))

			for i := 0; i < 20; i++ {
				_, err := sys.Tick(frame)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(rec.values).To(HaveLen(ticks))
		})

		It("settles faster as friction approaches critical damping", func() {
			var times []int
			for _, friction := range []float64{3, 6, 10} {
				local := newSystem()
				sp, err := local.CreateSpring(50, friction)
				Expect(err).NotTo(HaveOccurred())
				Expect(sp.SetEndValue(100)).To(Succeed())
				times = append(times, settle(local, frame, 5000))
			}
			Expect(times[0]).To(BeNumerically(">", times[1]))
			Expect(times[1]).To(BeNumerically(">", times[2]))
		})
	})

	It("does not drift at rest", func() {
		Expect(s.SetCurrentValue(42)).To(Succeed())
		Expect(s.SetEndValue(42)).To(Succeed())
		Expect(s.IsAtRest()).To(BeTrue())
		before := len(rec.values)

		for _, dt := range []float64{0, frame, 1, 10, 1e6} {
			active, err := sys.Tick(dt)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeFalse())
			Expect(s.CurrentValue()).To(Equal(42.0))
		}
		Expect(rec.values).To(HaveLen(before))
	})

	It("produces identical trajectories for identical springs", func() {
		twin, err := sys.CreateSpring(50, 3)
		Expect(err).NotTo(HaveOccurred())
		twinRec := &recorder{}
		twin.AddListener(twinRec)

		Expect(s.SetEndValue(-35)).To(Succeed())
		Expect(twin.SetEndValue(-35)).To(Succeed())
		settle(sys, frame, 5000)

		Expect(twinRec.values).NotTo(BeEmpty())
		Expect(twinRec.values).To(Equal(rec.values))
	})

	It("keeps integrating without listeners", func() {
		Expect(s.RemoveListener(recHandle)).To(BeTrue())
		Expect(s.RemoveListener(recHandle)).To(BeFalse())
		Expect(s.ListenerCount()).To(Equal(0))
		Expect(s.SetEndValue(10)).To(Succeed())

		ticks := settle(sys, frame, 5000)
		Expect(ticks).To(BeNumerically("<", 5000))
		Expect(s.CurrentValue()).To(Equal(10.0))
		Expect(sys.Active()).To(BeFalse())
	})

	Describe("SetVelocity", func() {
		It("kicks a resting spring back into motion", func() {
			Expect(s.SetVelocity(25)).To(Succeed())
			Expect(sys.Active()).To(BeTrue())

			_, err := sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.CurrentValue()).To(BeNumerically(">", 0))

			settle(sys, frame, 5000)
			Expect(s.CurrentValue()).To(Equal(0.0))
		})
	})

	Describe("Halt", func() {
		It("stops motion where the spring is", func() {
			Expect(s.SetEndValue(100)).To(Succeed())
			for i := 0; i < 5; i++ {
				_, err := sys.Tick(frame)
				Expect(err).NotTo(HaveOccurred())
			}
			here := s.CurrentValue()
			calls := len(rec.values)

			s.Halt()
			Expect(s.IsAtRest()).To(BeTrue())
			Expect(s.EndValue()).To(Equal(here))

			active, err := sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeFalse())
			Expect(s.CurrentValue()).To(Equal(here))
			Expect(rec.values).To(HaveLen(calls))
		})
	})

	Describe("overshoot clamping", func() {
		It("never passes the end value", func() {
			clamped, err := sys.CreateSpring(50, 3, spring.WithOvershootClamping())
			Expect(err).NotTo(HaveOccurred())
			crec := &recorder{}
			clamped.AddListener(crec)

			Expect(clamped.SetEndValue(100)).To(Succeed())
			settle(sys, frame, 5000)

			Expect(crec.max()).To(BeNumerically("<=", 100))
			Expect(clamped.CurrentValue()).To(Equal(100.0))
		})

		It("reports overshoot relative to the start value", func() {
			Expect(s.SetCurrentValue(0)).To(Succeed())
			Expect(s.SetEndValue(10)).To(Succeed())
			Expect(s.IsOvershooting()).To(BeFalse())
			for !s.IsOvershooting() && sys.Active() {
				_, err := sys.Tick(frame)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(s.CurrentValue()).To(BeNumerically(">", 10))
			Expect(s.Displacement()).To(BeNumerically(">", 0))
		})
	})

	Describe("state listeners", func() {
		It("hear one activation and one rest per animation", func() {
			var activated, rested int
			var restValues []float64
			s.AddStateListener(spring.StateFuncs{
				Activate: func(*spring.Spring) { activated++ },
				Rest: func(sp *spring.Spring) {
					rested++
					restValues = append(restValues, sp.CurrentValue())
				},
			})

			Expect(s.SetEndValue(5)).To(Succeed())
			Expect(s.SetEndValue(6)).To(Succeed())
			settle(sys, frame, 5000)

			Expect(activated).To(Equal(1))
			Expect(rested).To(Equal(1))
			Expect(restValues).To(Equal([]float64{6}))
		})

		It("hear rest before a retarget made from the final update", func() {
			var events []string
			s.AddStateListener(spring.StateFuncs{
				Activate: func(*spring.Spring) { events = append(events, "activate") },
				Rest:     func(*spring.Spring) { events = append(events, "rest") },
			})
			retargeted := false
			s.AddListener(spring.ListenerFunc(func(v float64) {
				if v == 100 && !retargeted {
					retargeted = true
					_ = s.SetEndValue(200)
				}
			}))

			Expect(s.SetEndValue(100)).To(Succeed())
			settle(sys, frame, 5000)

			Expect(retargeted).To(BeTrue())
			Expect(events).To(Equal([]string{"activate", "rest", "activate", "rest"}))
			Expect(s.CurrentValue()).To(Equal(200.0))
		})

		It("stop hearing once removed", func() {
			var rested int
			h := s.AddStateListener(spring.StateFuncs{Rest: func(*spring.Spring) { rested++ }})
			Expect(s.RemoveStateListener(h)).To(BeTrue())
			Expect(s.RemoveStateListener(h)).To(BeFalse())

			Expect(s.SetEndValue(1)).To(Succeed())
			settle(sys, frame, 5000)
			Expect(rested).To(BeZero())
		})
	})

	Describe("SetConfig", func() {
		It("validates the new constants", func() {
			err := s.SetConfig(spring.NewConfig(-1, 3))
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(s.Config().Tension).To(Equal(50.0))

			Expect(s.SetConfig(spring.NewConfig(200, 30))).To(Succeed())
			Expect(s.Config().Tension).To(Equal(200.0))
		})
	})
})

var _ = Describe("Spring properties", func() {
	It("converges exactly onto any target", func() {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 40; i++ {
			tension := 20 + rng.Float64()*280
			friction := 2 + rng.Float64()*(3*math.Sqrt(tension)-2)
			target := rng.Float64()*1000 - 500

			sys := newSystem()
			s, err := sys.CreateSpring(tension, friction)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetEndValue(target)).To(Succeed())

			ticks := settle(sys, frame, 2500)
			Expect(ticks).To(BeNumerically("<", 2500), "tension=%f friction=%f", tension, friction)
			Expect(s.IsAtRest()).To(BeTrue())
			Expect(s.CurrentValue()).To(Equal(target))
		}
	})

	It("approaches monotonically when critically or over damped", func() {
		rng := rand.New(rand.NewSource(11))
		for i := 0; i < 40; i++ {
			tension := 1 + rng.Float64()*299
			friction := 2 * math.Sqrt(tension) * (1 + 2*rng.Float64())
			Expect(friction * friction).To(BeNumerically(">=", 4*tension))

			sys := newSystem()
			s, err := sys.CreateSpring(tension, friction)
			Expect(err).NotTo(HaveOccurred())

			rec := &recorder{}
			s.AddListener(rec)
			Expect(s.SetEndValue(100)).To(Succeed())
			settle(sys, frame, 600)

			prev := 100.0
			for _, v := range rec.values {
				d := math.Abs(100 - v)
				Expect(d).To(BeNumerically("<=", prev+1e-9), "tension=%f friction=%f", tension, friction)
				prev = d
			}
		}
	})
})
