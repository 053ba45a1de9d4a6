package precompile

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"rescomp/internal/resource"
	"rescomp/internal/trace"
)

// ErrStructural marks failures that abort a session: broken invariants, not
// defects of the resources.
var ErrStructural = errors.New("structural error")

// Participant is driven by Run. Resolver is the production implementation.
type Participant interface {
	Name() string
	ResourceKind() resource.Kind
	Support(pass int) Granularity
	PerResource(ctx context.Context, step *Step, res *resource.Resource) error
	PerPass(ctx context.Context, s *Session) error
}

// Run drives passes 0..maxPass. For every pass, per-resource hooks run for
// all matching resources first, in resource order, then per-pass hooks run
// once. Diagnostics do not stop the run; an error returned by a hook does.
func Run(ctx context.Context, s *Session, resources []*resource.Resource, participants []Participant, maxPass int) error {
	tr := trace.FromContext(ctx)
	root := trace.Begin(tr, trace.ScopeDriver, "precompile", trace.CurrentSpan(ctx)).
		WithExtra("resources", fmt.Sprint(len(resources)))
	defer root.End("")
	ctx = trace.WithSpan(ctx, root)

	for pass := 0; pass <= maxPass; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runPass(ctx, s, resources, participants, pass); err != nil {
			trace.Failure(tr, pass, "", err.Error())
			return fmt.Errorf("%w: pass %d (%s): %w", ErrStructural, pass, PassName(pass), err)
		}
	}
	return nil
}

func runPass(ctx context.Context, s *Session, resources []*resource.Resource, participants []Participant, pass int) error {
	s.pass = pass
	name := PassName(pass)
	span := trace.BeginPass(trace.FromContext(ctx), trace.ScopePass, name, pass, "", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)
	phase := s.Timer.BeginPass(pass)
	s.notify(PassEvent{Pass: pass, Name: name})
	defer func() {
		span.End("")
		s.Timer.End(phase, name)
		s.notify(PassEvent{Pass: pass, Name: name, Done: true})
	}()

	for _, p := range participants {
		if p.Support(pass) != PerResource {
			continue
		}
		var selected []*resource.Resource
		for _, r := range resources {
			if r.Kind == p.ResourceKind() {
				selected = append(selected, r)
			}
		}
		steps, err := runSteps(ctx, s, p, pass, selected)
		if err != nil {
			// модули не добавляем, но диагностики уже выполненных шагов сохраняем
			for _, st := range steps {
				if st != nil {
					st.flush()
				}
			}
			return err
		}
		// барьер: всё, что сделали шаги, видно только после него
		for _, st := range steps {
			if err := st.commit(); err != nil {
				return err
			}
		}
	}

	for _, p := range participants {
		if p.Support(pass) != PerPass {
			continue
		}
		s.notify(PassEvent{Pass: pass, Name: p.Name()})
		if err := p.PerPass(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// runSteps returns the steps even on error; an entry is nil when its hook never started.
func runSteps(ctx context.Context, s *Session, p Participant, pass int, resources []*resource.Resource) ([]*Step, error) {
	steps := make([]*Step, len(resources))
	invoke := func(ctx context.Context, i int) error {
		res := resources[i]
		span := trace.BeginPass(trace.FromContext(ctx), trace.ScopeResource, p.Name(), pass, res.Name, trace.CurrentSpan(ctx))
		defer span.End("")
		st := newStep(s, pass, res)
		steps[i] = st
		if err := p.PerResource(ctx, st, res); err != nil {
			return fmt.Errorf("%s: %w", res.Name, err)
		}
		s.notify(PassEvent{Pass: pass, Name: p.Name(), Resource: res.Name})
		return nil
	}

	if s.jobs <= 1 || len(resources) < 2 {
		for i := range resources {
			if err := invoke(ctx, i); err != nil {
				return steps, err
			}
		}
		return steps, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for i := range resources {
		g.Go(func() error { return invoke(gctx, i) })
	}
	err := g.Wait()
	return steps, err
}
