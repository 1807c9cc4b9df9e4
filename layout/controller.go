// Package layout repeats flow layout of a story until its table of contents
// stops changing.
package layout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docflow/layout/flow"
	"docflow/layout/notify"
	"docflow/layout/toc"
)

// DefaultMaxPasses is pass budget used when none is specified.
const DefaultMaxPasses = 10

// Story is ordered flowable sequence. It is never modified by the
// controller, TOC placeholders are substituted on a copy for every pass.
type Story []flow.Flowable

// PassReport is given to observer after every completed pass.
type PassReport struct {
	BuildID  uuid.UUID
	Pass     int
	Pages    int
	Shown    toc.Rendering // what placeholders displayed
	Observed toc.Rendering // what headings reported
	Stable   bool
	Elapsed  time.Duration
}

// Result of the build. Pages always come from the last pass.
type Result struct {
	BuildID uuid.UUID
	State   State
	Passes  int
	Pages   []flow.Page
	// TOC is the rendering displayed on Pages.
	TOC toc.Rendering
	// Observed is what headings of the last pass reported. Equal to TOC when
	// build converged.
	Observed toc.Rendering
}

// Stable reports whether TOC on the pages lists correct page numbers.
func (r *Result) Stable() bool {
	return r.State == StateConverged
}

type Option func(*Controller)

// WithMaxPasses limits total number of passes, values below 1 mean 1.
func WithMaxPasses(n int) Option {
	return func(c *Controller) {
		c.maxPasses = max(n, 1)
	}
}

// WithComparator replaces rendering equality used to detect convergence.
func WithComparator(cmp func(prev, cur toc.Rendering) bool) Option {
	return func(c *Controller) {
		if cmp != nil {
			c.cmp = cmp
		}
	}
}

func WithObserver(fn func(PassReport)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithMeasurer sets text measurer for the flow engine, embedded Go fonts are
// used by default.
func WithMeasurer(m flow.Measurer) Option {
	return func(c *Controller) {
		c.m = m
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller drives repeated layout passes. It owns nothing but the pass
// loop: model, bus and template are supplied by the caller and belong to a
// single build.
type Controller struct {
	tmpl      *Template
	model     *toc.Model
	bus       *notify.Bus
	engine    *flow.Engine
	m         flow.Measurer
	maxPasses int
	cmp       func(prev, cur toc.Rendering) bool
	observer  func(PassReport)
	log       *zap.Logger
}

// NewController subscribes model to bus heading notifications and prepares
// controller for a single build. Model subscription is owned by controller:
// callers should not subscribe model themselves, though doing so (or creating
// another controller for the same bus and model) does not duplicate entries.
func NewController(tmpl *Template, model *toc.Model, bus *notify.Bus, opts ...Option) *Controller {
	c := &Controller{
		tmpl:      tmpl,
		model:     model,
		bus:       bus,
		maxPasses: DefaultMaxPasses,
		cmp:       toc.Rendering.Equal,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.m == nil {
		c.m = flow.NewFonts()
	}
	c.engine = flow.NewEngine(c.m, c.log.Named("flow"))
	model.Subscribe(bus)
	return c
}

// Build lays story out until rendered TOC is the same for two consecutive
// passes or pass budget is spent. Running out of passes is not an error,
// Result.State tells the caller which one happened.
func (c *Controller) Build(ctx context.Context, story Story) (*Result, error) {
	if err := c.model.Validate(); err != nil {
		return nil, fmt.Errorf("unable to start layout: %w", err)
	}

	res := &Result{BuildID: uuid.New(), State: StateRunning}
	log := c.log.With(zap.Stringer("build", res.BuildID))
	log.Debug("Layout started", zap.Int("flowables", len(story)), zap.Int("max_passes", c.maxPasses))

	var prev toc.Rendering
	for pass := 0; res.State == StateRunning; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		pages, cur, err := c.RunPass(ctx, story, prev)
		if err != nil {
			return nil, fmt.Errorf("layout pass %d failed: %w", pass, err)
		}
		stable := c.cmp(prev, cur)

		res.Passes, res.Pages, res.TOC, res.Observed = pass+1, pages, prev, cur
		switch {
		case stable:
			res.State = StateConverged
		case pass+1 >= c.maxPasses:
			res.State = StateExhausted
		}

		log.Debug("Layout pass done",
			zap.Int("pass", pass),
			zap.Int("pages", len(pages)),
			zap.Int("entries", len(cur)),
			zap.Bool("stable", stable),
			zap.Duration("elapsed", time.Since(start)))
		if c.observer != nil {
			c.observer(PassReport{
				BuildID:  res.BuildID,
				Pass:     pass,
				Pages:    len(pages),
				Shown:    prev,
				Observed: cur,
				Stable:   stable,
				Elapsed:  time.Since(start),
			})
		}
		prev = cur
	}

	if res.State == StateExhausted {
		log.Warn("Table of contents did not settle, page numbers may be wrong", zap.Int("passes", res.Passes))
	} else {
		log.Debug("Layout converged", zap.Int("passes", res.Passes), zap.Int("pages", len(res.Pages)))
	}
	return res, nil
}

// RunPass performs single layout pass with placeholders showing prev and
// returns pages together with the rendering collected during the pass.
func (c *Controller) RunPass(ctx context.Context, story Story, prev toc.Rendering) ([]flow.Page, toc.Rendering, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	c.model.BeginPass()
	c.bus.Reset()

	pages, _, err := c.engine.Layout(substitute(story, prev), c.tmpl)
	if err != nil {
		return nil, nil, err
	}
	if err := c.bus.Err(); err != nil {
		return nil, nil, err
	}

	cur, err := c.model.Render()
	if err != nil {
		return nil, nil, err
	}
	return pages, cur, nil
}

// substitute returns copy of story where every TOC placeholder shows r.
func substitute(story Story, r toc.Rendering) []flow.Flowable {
	out := make([]flow.Flowable, len(story))
	for i, f := range story {
		if p, ok := f.(*toc.Placeholder); ok {
			f = p.WithRendering(r)
		}
		out[i] = f
	}
	return out
}
