package spring_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/spring"
)

var _ = Describe("MultiSpring", func() {
	var (
		sys *spring.System
		m   *spring.MultiSpring
	)

	BeforeEach(func() {
		sys = newSystem()
		var err error
		m, err = sys.CreateMultiSpringPerAxis(spring.NewConfig(300, 20), spring.NewConfig(40, 8))
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts at rest at the origin", func() {
		Expect(m.Len()).To(Equal(2))
		Expect(m.CurrentValue()).To(Equal([]float64{0, 0}))
		Expect(m.IsAtRest()).To(BeTrue())
	})

	It("returns a fresh vector on every read", func() {
		v := m.CurrentValue()
		v[0] = 99
		Expect(m.CurrentValue()[0]).To(Equal(0.0))
	})

	It("rejects vectors of the wrong size", func() {
		Expect(m.SetEndValue([]float64{1})).To(MatchError(dynamo.ErrDimensionMismatch))
		Expect(m.SetCurrentValue([]float64{1, 2, 3})).To(MatchError(dynamo.ErrDimensionMismatch))
		Expect(m.SetVelocity(nil)).To(MatchError(dynamo.ErrDimensionMismatch))
		Expect(sys.Active()).To(BeFalse())
	})

	It("validates every component before moving any", func() {
		err := m.SetEndValue([]float64{1, math.NaN()})
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(m.EndValue()).To(Equal([]float64{0, 0}))
	})

	It("rests only once every component rests", func() {
		Expect(m.SetEndValue([]float64{100, 100})).To(Succeed())

		fastFirst := false
		for i := 0; i < 5000 && sys.Active(); i++ {
			_, err := sys.Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			fast, slow := m.Component(0).IsAtRest(), m.Component(1).IsAtRest()
			if fast && !slow {
				fastFirst = true
				Expect(m.IsAtRest()).To(BeFalse())
			}
		}

		Expect(fastFirst).To(BeTrue())
		Expect(m.IsAtRest()).To(BeTrue())
		Expect(m.CurrentValue()).To(Equal([]float64{100, 100}))
	})

	It("notifies composite listeners once per tick after all components moved", func() {
		var componentCalls [2]int
		for i := 0; i < 2; i++ {
			i := i
			m.Component(i).AddListener(spring.ListenerFunc(func(float64) { componentCalls[i]++ }))
		}

		var vectors [][]float64
		var mismatches int
		m.AddListener(spring.VectorListenerFunc(func(v []float64) {
			if v[0] != m.Component(0).CurrentValue() || v[1] != m.Component(1).CurrentValue() {
				mismatches++
			}
			vectors = append(vectors, v)
		}))

		Expect(m.SetEndValue([]float64{10, -10})).To(Succeed())
		ticks := settle(sys, frame, 5000)

		Expect(vectors).To(HaveLen(ticks))
		Expect(mismatches).To(BeZero())
		Expect(componentCalls[1]).To(Equal(ticks))
		Expect(componentCalls[0]).To(BeNumerically("<", ticks))
		Expect(vectors[len(vectors)-1]).To(Equal([]float64{10, -10}))
	})

	It("notifies composite listeners once on SetCurrentValue", func() {
		var vectors [][]float64
		m.AddListener(spring.VectorListenerFunc(func(v []float64) {
			vectors = append(vectors, v)
		}))

		Expect(m.SetCurrentValue([]float64{3, 4})).To(Succeed())
		Expect(vectors).To(Equal([][]float64{{3, 4}}))
		Expect(sys.ActiveCount()).To(Equal(2))
	})

	It("halts every component", func() {
		Expect(m.SetEndValue([]float64{50, 50})).To(Succeed())
		_, err := sys.Tick(frame)
		Expect(err).NotTo(HaveOccurred())

		m.Halt()
		Expect(m.IsAtRest()).To(BeTrue())
		Expect(m.Velocity()).To(Equal([]float64{0, 0}))
		active, err := sys.Tick(frame)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(BeFalse())
	})

	It("shares one config across uniform components", func() {
		u, err := sys.CreateMultiSpring(3, spring.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Len()).To(Equal(3))
		Expect(u.Component(2).Config()).To(Equal(spring.DefaultConfig()))

		_, err = sys.CreateMultiSpring(0, spring.DefaultConfig())
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})
})
