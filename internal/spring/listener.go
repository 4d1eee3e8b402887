package spring

// Listener receives a spring's value after every integration step and on
// SetCurrentValue.
type Listener interface {
	OnUpdate(value float64)
}

type ListenerFunc func(value float64)

func (f ListenerFunc) OnUpdate(value float64) { f(value) }

// VectorListener receives the assembled MultiSpring value once per tick.
// The slice belongs to the listener.
type VectorListener interface {
	OnUpdate(values []float64)
}

type VectorListenerFunc func(values []float64)

func (f VectorListenerFunc) OnUpdate(values []float64) { f(values) }

// StateListener is told when a spring leaves or reaches rest.
type StateListener interface {
	OnActivate(s *Spring)
	OnRest(s *Spring)
}

// StateFuncs adapts a pair of funcs to StateListener. Either may be nil.
type StateFuncs struct {
	Activate func(s *Spring)
	Rest     func(s *Spring)
}

func (f StateFuncs) OnActivate(s *Spring) {
	if f.Activate != nil {
		f.Activate(s)
	}
}

func (f StateFuncs) OnRest(s *Spring) {
	if f.Rest != nil {
		f.Rest(s)
	}
}

// TickInfo summarises one tick that did work.
type TickInfo struct {
	Tick     uint64
	Dt       float64
	Advanced int
	Settled  int
	Active   int
}

type Observer interface {
	OnTick(info TickInfo)
}

type ObserverFunc func(info TickInfo)

func (f ObserverFunc) OnTick(info TickInfo) { f(info) }
