// Package resolver builds the execution graph of one resolution pass.
//
// A pass seeds a FIFO queue with the configured observables, then repeatedly
// pops a request, resolves it to exactly one module function, binds it onto
// the consumer and, the first time a function is chosen, activates it: its
// backend requirements are solved and its own dependencies are queued. Once
// the queue drains, the graph is ordered topologically and loop managers
// receive their nested functions in that order.
//
// All mutable state lives in a per-pass context; registry descriptors are
// never modified, so passes are isolated and a Resolver can run any number
// of them.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/roach88/depres/internal/backend"
	"github.com/roach88/depres/internal/config"
	"github.com/roach88/depres/internal/graph"
	"github.com/roach88/depres/internal/ir"
	"github.com/roach88/depres/internal/matcher"
	"github.com/roach88/depres/internal/models"
	"github.com/roach88/depres/internal/registry"
)

// TerminalLabel names the consumer of target output requests in logs and
// errors.
const TerminalLabel = "Core"

// status is the per-pass state of a functor.
type status int

const (
	statusInactive status = iota // not compatible with the active models
	statusEligible
	statusActive
)

// Resolver resolves a configuration against a registry.
//
// Thread-safety: a Resolver holds no per-pass state and Resolve may be called
// from several goroutines, provided the Printer and Metrics tolerate it.
type Resolver struct {
	reg       *registry.Registry
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *Metrics
	printer   Printer
	estimator graph.Estimator
	avail     backend.Availability
	passIDs   PassIDGenerator
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics records pass outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithPrinter hands print-flagged nodes to p after each successful pass.
func WithPrinter(p Printer) Option {
	return func(r *Resolver) { r.printer = p }
}

// WithEstimator replaces the descriptor-supplied runtime estimates used by
// Result.EvaluationOrder.
func WithEstimator(e graph.Estimator) Option {
	return func(r *Resolver) { r.estimator = e }
}

// WithAvailability replaces the backend status check.
func WithAvailability(a backend.Availability) Option {
	return func(r *Resolver) { r.avail = a }
}

// WithPassIDGenerator sets how passes are named. Default: UUIDv7Generator.
func WithPassIDGenerator(g PassIDGenerator) Option {
	return func(r *Resolver) { r.passIDs = g }
}

// New creates a Resolver. reg and cfg are read, never modified.
func New(reg *registry.Registry, cfg *config.Config, opts ...Option) *Resolver {
	r := &Resolver{
		reg:     reg,
		cfg:     cfg,
		logger:  slog.Default(),
		avail:   backend.StatusAvailability{},
		passIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs one resolution pass.
//
// Any unsatisfiable or ambiguous requirement aborts the pass with a
// *ir.ResolutionError; no partial result is returned.
func (r *Resolver) Resolve() (*Result, error) {
	start := time.Now()
	res, err := r.resolve()
	if r.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = string(ir.CodeOf(err))
			if outcome == "" {
				outcome = "error"
			}
		}
		r.metrics.PassesTotal.WithLabelValues(outcome).Inc()
		r.metrics.PassDuration.Observe(time.Since(start).Seconds())
	}
	return res, err
}

// pass owns all mutable state of one resolution pass.
type pass struct {
	*Resolver
	hierarchy *models.Hierarchy
	solver    *backend.Solver

	status  []status // by FunctorID
	g       *graph.Graph
	nodes   []*NodeState // by NodeID
	queue   requestQueue
	managed map[graph.NodeID][]graph.NodeID
	outputs []Output
	local   []string
}

func (r *Resolver) resolve() (*Result, error) {
	h, err := models.NewHierarchy(r.reg, r.cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	p := &pass{
		Resolver:  r,
		hierarchy: h,
		solver: backend.NewSolver(r.reg,
			backend.WithLogger(r.logger),
			backend.WithAvailability(r.avail)),
		status:  make([]status, r.reg.FunctorCount()),
		g:       graph.New(r.reg),
		managed: make(map[graph.NodeID][]graph.NodeID),
		local:   r.cfg.Options.LocalCapabilities(),
	}

	p.markEligible()
	p.seed()

	for e, ok := p.queue.pop(); ok; e, ok = p.queue.pop() {
		if err := p.step(e); err != nil {
			return nil, err
		}
	}

	return p.finish()
}

// markEligible is a full pass over the registry: every functor compatible
// with an active model becomes eligible, the rest stay inactive.
func (p *pass) markEligible() {
	eligible := 0
	for _, id := range p.reg.FunctorIDs() {
		f := p.reg.Functor(id)
		if p.hierarchy.Allowed(f) {
			p.status[id] = statusEligible
			eligible++
		}
		p.logger.Debug("module function",
			"function", f.Function,
			"module", f.Module,
			"version", f.Version,
			"capability", f.Capability,
			"type", f.Type,
			"eligible", p.status[id] == statusEligible)
	}
	p.logger.Info("marked eligible module functions",
		"models", p.hierarchy.ActiveModels(),
		"eligible", eligible,
		"total", p.reg.FunctorCount())
}

func (p *pass) seed() {
	for i := range p.cfg.Observables {
		o := &p.cfg.Observables[i]
		p.logger.Info("target",
			"capability", o.Capability,
			"type", o.Type,
			"purpose", o.Purpose)
		p.queue.push(queueEntry{
			quantity:   o.Quantity(),
			consumer:   Terminal,
			kind:       kindNormal,
			printme:    o.Print(),
			observable: o,
		})
	}
}

// step resolves one queue entry and binds the result.
func (p *pass) step(e queueEntry) error {
	p.logger.Info("resolving dependency",
		"quantity", e.quantity.String(),
		"kind", e.kind.String(),
		"required_by", p.consumerLabel(e.consumer))

	chosen, err := p.resolveDependency(e)
	if err != nil {
		return err
	}
	f := p.reg.Functor(chosen)
	node := p.nodeFor(chosen)

	p.logger.Info("resolved",
		"quantity", e.quantity.String(),
		"function", f.Function,
		"module", f.Module)

	switch {
	case e.consumer == Terminal:
		if e.printme {
			p.nodes[node].Print = true
		}
		out := Output{Node: node, Quantity: e.quantity, Print: e.printme}
		if e.observable != nil {
			out.Purpose = e.observable.Purpose
		}
		p.outputs = append(p.outputs, out)

	case e.kind == kindLoopManager:
		if !f.CanManageLoops {
			return &ir.ResolutionError{
				Code: ir.ErrCodeInvalidLoopManager,
				Message: fmt.Sprintf("%s requires a loop manager with capability %s, but [%s, %s] cannot manage loops",
					p.consumerLabel(e.consumer), e.quantity.Capability, f.Function, f.Module),
				Quantity:   e.quantity,
				Consumer:   p.consumerLabel(e.consumer),
				Candidates: []string{f.Identity().Label()},
			}
		}
		p.managed[node] = append(p.managed[node], e.consumer)
		p.nodes[e.consumer].LoopManager = node

	default:
		c := p.nodes[e.consumer]
		c.Dependencies = append(c.Dependencies, Dependency{Quantity: e.quantity, Provider: node})
		p.g.AddEdge(node, e.consumer)
	}

	if p.status[chosen] != statusActive {
		return p.activate(node, chosen)
	}
	return nil
}

// resolveDependency picks the single functor that satisfies e.
func (p *pass) resolveDependency(e queueEntry) (registry.FunctorID, error) {
	terminal := e.consumer == Terminal
	consumer := p.consumerLabel(e.consumer)

	rule, err := p.ruleFor(e)
	if err != nil {
		return 0, annotate(err, e.quantity, consumer)
	}

	var consumerFunctor *ir.Functor
	if !terminal {
		consumerFunctor = p.g.Descriptor(e.consumer)
	}
	local := !terminal && slices.Contains(p.local, e.quantity.Capability)

	var candidates []registry.FunctorID
	for _, id := range p.reg.FunctorIDs() {
		if p.status[id] == statusInactive {
			continue
		}
		f := p.reg.Functor(id)
		if !matcher.Matches(f.Identity(), e.quantity, rule) {
			continue
		}
		if local && f.Module != consumerFunctor.Module {
			continue
		}
		candidates = append(candidates, id)
	}

	if len(candidates) == 0 {
		msg := fmt.Sprintf("could not find any module function that provides %s", e.quantity)
		if rule != nil {
			msg += fmt.Sprintf(" matching %s", rule)
		}
		if local {
			msg += fmt.Sprintf(" in module %s", consumerFunctor.Module)
		}
		return 0, ir.NewUnsatisfiableError(e.quantity, consumer, msg)
	}

	preferSpecific := p.cfg.Options.PreferModelSpecific()
	if len(candidates) > 1 && preferSpecific {
		var start []string
		if terminal {
			start = p.hierarchy.ActiveModels()
		} else {
			start = p.hierarchy.ModelsFor(consumerFunctor)
		}
		narrowed, err := models.MostSpecific(p.hierarchy, start, candidates, p.reg.Functor)
		if err != nil {
			return 0, annotate(err, e.quantity, consumer)
		}
		if len(narrowed) < len(candidates) {
			p.logger.Debug("narrowed candidates to model-specific functions",
				"quantity", e.quantity.String(),
				"before", len(candidates),
				"after", len(narrowed))
			if p.metrics != nil {
				p.metrics.TieBreaksTotal.Inc()
			}
		}
		candidates = narrowed
	}

	if len(candidates) > 1 {
		labels := make([]string, len(candidates))
		for i, id := range candidates {
			f := p.reg.Functor(id)
			labels[i] = fmt.Sprintf("[%s, %s]", f.Function, f.Module)
		}
		msg := fmt.Sprintf("found too many module functions that provide %s; "+
			"add a rule naming the function or module to use", e.quantity)
		if !preferSpecific {
			msg += "; prefer_model_specific_functions is disabled, enabling it may break the tie"
		}
		return 0, ir.NewAmbiguousError(e.quantity, consumer, msg, labels)
	}

	return candidates[0], nil
}

// ruleFor returns the configuration selector narrowing e: the observable
// entry for terminal requests, otherwise the dependency entry of the rule
// matching the consumer.
func (p *pass) ruleFor(e queueEntry) (*ir.Selector, error) {
	if e.consumer == Terminal {
		o, err := p.cfg.ObservableFor(e.quantity)
		if err != nil || o == nil {
			return nil, err
		}
		return &o.Selector, nil
	}
	rule, err := p.cfg.RuleFor(p.nodes[e.consumer].Identity)
	if err != nil {
		return nil, err
	}
	return rule.DependencyEntry(e.quantity)
}

// activate moves a functor from eligible to active: its backend
// requirements are solved and its dependencies are queued.
func (p *pass) activate(node graph.NodeID, id registry.FunctorID) error {
	p.status[id] = statusActive
	f := p.reg.Functor(id)
	state := p.nodes[node]

	p.logger.Info("activating module function",
		"function", f.Function,
		"module", f.Module,
		"capability", f.Capability,
		"type", f.Type)
	if p.metrics != nil {
		p.metrics.ActivationsTotal.Inc()
	}

	rule, err := p.cfg.RuleFor(state.Identity)
	if err != nil {
		return annotate(err, f.Quantity(), state.Identity.Label())
	}

	sol, err := p.solver.Solve(f, rule)
	if err != nil {
		return err
	}
	state.Backends = sol.Bindings
	if p.metrics != nil {
		p.metrics.BackendBindingsTotal.Add(float64(len(sol.Bindings)))
		p.metrics.BackendDeferralsTotal.Add(float64(sol.Deferrals))
	}

	if rule != nil && len(rule.Options) > 0 {
		state.Options = maps.Clone(rule.Options)
	}

	for _, dep := range f.Dependencies {
		p.logger.Debug("adding to queue",
			"quantity", dep.String(),
			"required_by", state.Identity.Label())
		p.queue.push(queueEntry{quantity: dep, consumer: node, kind: kindNormal})
	}
	if f.LoopManagerCapability != "" {
		q := ir.Quantity{Capability: f.LoopManagerCapability}
		p.logger.Debug("adding loop manager to queue",
			"capability", q.Capability,
			"required_by", state.Identity.Label())
		p.queue.push(queueEntry{quantity: q, consumer: node, kind: kindLoopManager})
	}
	return nil
}

// nodeFor returns the node holding a functor, creating it on first use.
func (p *pass) nodeFor(id registry.FunctorID) graph.NodeID {
	node := p.g.AddNode(id)
	if int(node) == len(p.nodes) {
		p.nodes = append(p.nodes, &NodeState{
			ID:          node,
			Functor:     id,
			Identity:    p.reg.Functor(id).Identity(),
			LoopManager: Terminal,
		})
	}
	return node
}

func (p *pass) consumerLabel(id graph.NodeID) string {
	if id == Terminal {
		return TerminalLabel
	}
	return p.g.Label(id)
}

// finish orders the graph and hands nested sets to their loop managers.
func (p *pass) finish() (*Result, error) {
	order, err := p.g.TopoOrder()
	if err != nil {
		return nil, err
	}

	for mgr, nested := range p.managed {
		p.nodes[mgr].Nested = graph.Sort(nested, order)
	}

	res := &Result{
		ID:        p.passIDs.Generate(),
		Models:    p.hierarchy.ActiveModels(),
		Graph:     p.g,
		Order:     order,
		Outputs:   p.outputs,
		reg:       p.reg,
		nodes:     p.nodes,
		estimator: p.estimator,
	}

	p.logger.Info("resolution complete",
		"pass", res.ID,
		"nodes", p.g.Len(),
		"edges", len(p.g.Edges()))
	p.logger.Debug("execution order", "order", res.Labels(order))
	p.logger.Debug("output evaluation order", "order", res.Labels(res.EvaluationOrder()))

	if p.printer != nil {
		if err := p.printer.Initialise(res.PrintTargets()); err != nil {
			return nil, fmt.Errorf("initialise printer: %w", err)
		}
	}
	return res, nil
}

// annotate fills in the request context of a ResolutionError raised below
// the resolver.
func annotate(err error, q ir.Quantity, consumer string) error {
	var re *ir.ResolutionError
	if errors.As(err, &re) {
		if re.Quantity.Capability == "" {
			re.Quantity = q
		}
		if re.Consumer == "" {
			re.Consumer = consumer
		}
	}
	return err
}
