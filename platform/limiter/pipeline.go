package limiter

import (
	"context"
)

// Pipeline is the explicit, ordered list of admission guards for a route.
// Evaluation stops at the first rejecting limiter, later guards consume no
// increments for an already rejected request, which keeps the quota of each
// dimension independent and auditable.
type Pipeline struct {
	bypass   map[string]struct{}
	limiters []*Limiter
	slow     *SlowDown
}

// NewPipeline assembles a Pipeline from an optional SlowDown stage, the
// ordered limiters and an allow-list of paths that skip admission entirely.
func NewPipeline(slow *SlowDown, bypass []string, limiters ...*Limiter) *Pipeline {
	b := map[string]struct{}{}

	for _, path := range bypass {
		b[path] = struct{}{}
	}

	return &Pipeline{
		bypass:   b,
		limiters: limiters,
		slow:     slow,
	}
}

// Bypassed indicates if the path is on the allow-list.
func (p *Pipeline) Bypassed(path string) bool {
	_, ok := p.bypass[path]
	return ok
}

// Limiters returns the guards in evaluation order.
func (p *Pipeline) Limiters() []*Limiter {
	return p.limiters
}

// Admit runs the SlowDown stage and then every limiter in order, returning
// the first rejecting Decision. For an admitted request the Decision with
// the least remaining quota is reported so callers can surface the tightest
// bound.
func (p *Pipeline) Admit(ctx context.Context, r *Request) (Decision, error) {
	if p.slow != nil {
		if _, err := p.slow.Wait(ctx, r); err != nil {
			return Decision{}, err
		}
	}

	admitted := Decision{Admitted: true}

	for i, l := range p.limiters {
		d, err := l.Check(r)
		if err != nil {
			return Decision{}, err
		}

		if !d.Admitted {
			return d, nil
		}

		if i == 0 || d.Remaining < admitted.Remaining {
			admitted = d
		}
	}

	return admitted, nil
}
