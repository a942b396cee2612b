// sampler.go — Per-kind Bernoulli sampling with severity/threshold overrides.
//
// Decisions are taken at admission to the queue; once admitted, an
// event is never dropped except by the queue's own
// oldest-drop overflow. Sampling must therefore be a pure function of
// event content plus a source of randomness — no per-session state.
package sampler

import (
	"math/rand"
	"sync"

	"github.com/monitorcore/monitorcore/internal/event"
)

// Rates holds the per-kind admission probability, each in [0, 1].
type Rates struct {
	Performance float64
	Errors      float64
	Behavior    float64
	Replay      float64
}

// DefaultRates returns the built-in per-kind sampling rates.
func DefaultRates() Rates {
	return Rates{Performance: 1.0, Errors: 1.0, Behavior: 0.1, Replay: 0.01}
}

// Overrides configures the two always-admit exceptions.
type Overrides struct {
	// MinSeverity, if non-empty, forces admission for any error event
	// whose severity is at least this severe, regardless of rate.
	MinSeverity event.Severity
	// PageLoadThresholdMS, if > 0, forces admission for any performance
	// event whose PageLoadTime exceeds this threshold.
	PageLoadThresholdMS float64
}

// Sampler decides, per event, whether it is admitted to the queue.
type Sampler struct {
	rates     Rates
	overrides Overrides

	mu   sync.Mutex
	rand *rand.Rand
}

// New builds a Sampler with the given rates and overrides.
func New(rates Rates, overrides Overrides) *Sampler {
	return &Sampler{
		rates:     rates,
		overrides: overrides,
		rand:      rand.New(rand.NewSource(1)),
	}
}

// Admit decides whether e should be enqueued. A rate of 0 admits
// nothing (except a matching override); a rate of 1 admits everything.
func (s *Sampler) Admit(e event.Event) bool {
	if s.forcedAdmit(e) {
		return true
	}
	return s.roll(s.rateFor(e.Type))
}

func (s *Sampler) forcedAdmit(e event.Event) bool {
	switch p := e.Payload.(type) {
	case *event.ErrorPayload:
		return s.overrides.MinSeverity != "" && p.Severity.AtLeast(s.overrides.MinSeverity)
	case *event.PerformancePayload:
		return s.overrides.PageLoadThresholdMS > 0 && p.Metrics.PageLoadTime > s.overrides.PageLoadThresholdMS
	default:
		return false
	}
}

func (s *Sampler) rateFor(k event.Kind) float64 {
	switch k {
	case event.KindPerformance:
		return s.rates.Performance
	case event.KindError:
		return s.rates.Errors
	case event.KindBehavior:
		return s.rates.Behavior
	case event.KindReplay:
		return s.rates.Replay
	default:
		return 0
	}
}

func (s *Sampler) roll(rate float64) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64() < rate
}
