package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/depres/internal/graph"
	"github.com/roach88/depres/internal/resolver"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Order    []string // Execution order for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Order) > 0 {
		fmt.Fprintf(&buf, "\nExecution order:\n")
		for i, label := range e.Order {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, label)
		}
	}

	return buf.String()
}

// checker evaluates assertions against one resolved pass.
type checker struct {
	res   *resolver.Result
	order []string
}

func (c *checker) fail(typ, expected, actual string) error {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, Order: c.order}
}

// node looks up a label, failing the assertion when it is not active.
func (c *checker) node(typ, label string) (graph.NodeID, error) {
	id, ok := c.res.Find(label)
	if !ok {
		return 0, c.fail(typ, fmt.Sprintf("%s to be active", label), "not in graph")
	}
	return id, nil
}

func (c *checker) assertActive(a Assertion) error {
	_, err := c.node(AssertActive, a.Node)
	return err
}

func (c *checker) assertInactive(a Assertion) error {
	if _, ok := c.res.Find(a.Node); ok {
		return c.fail(AssertInactive, fmt.Sprintf("%s to be inactive", a.Node), "active")
	}
	return nil
}

func (c *checker) assertEdge(a Assertion, want bool) error {
	typ := AssertEdge
	if !want {
		typ = AssertNoEdge
	}
	p, err := c.node(typ, a.Provider)
	if err != nil {
		if !want {
			return nil
		}
		return err
	}
	cons, err := c.node(typ, a.Consumer)
	if err != nil {
		if !want {
			return nil
		}
		return err
	}
	has := c.res.Graph.HasEdge(p, cons)
	switch {
	case want && !has:
		return c.fail(typ, fmt.Sprintf("edge %s -> %s", a.Provider, a.Consumer), "no such edge")
	case !want && has:
		return c.fail(typ, fmt.Sprintf("no edge %s -> %s", a.Provider, a.Consumer), "edge present")
	}
	return nil
}

// assertOrder checks relative order; other nodes may appear in between.
func (c *checker) assertOrder(a Assertion) error {
	last := -1
	for _, label := range a.Nodes {
		pos := slices.Index(c.order, label)
		if pos < 0 {
			return c.fail(AssertOrder, fmt.Sprintf("%s to be active", label), "not in graph")
		}
		if pos < last {
			return c.fail(AssertOrder,
				fmt.Sprintf("order %s", strings.Join(a.Nodes, " < ")),
				fmt.Sprintf("%s runs before %s", label, c.order[last]))
		}
		last = pos
	}
	return nil
}

func (c *checker) assertNested(a Assertion) error {
	m, err := c.node(AssertNested, a.Manager)
	if err != nil {
		return err
	}
	got := c.res.Labels(c.res.Node(m).Nested)
	want := a.Nodes
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return c.fail(AssertNested,
			fmt.Sprintf("%s nests %v", a.Manager, want),
			fmt.Sprintf("%v", got))
	}
	return nil
}

func (c *checker) assertLoopManager(a Assertion) error {
	n, err := c.node(AssertLoopManager, a.Node)
	if err != nil {
		return err
	}
	lm := c.res.Node(n).LoopManager
	if lm == resolver.Terminal {
		return c.fail(AssertLoopManager, fmt.Sprintf("%s nested under %s", a.Node, a.Manager), "runs at top level")
	}
	if got := c.res.Label(lm); got != a.Manager {
		return c.fail(AssertLoopManager, fmt.Sprintf("%s nested under %s", a.Node, a.Manager), "nested under "+got)
	}
	return nil
}

func (c *checker) assertBackend(a Assertion) error {
	n, err := c.node(AssertBackend, a.Node)
	if err != nil {
		return err
	}
	expected := fmt.Sprintf("%s filled by %s", a.Requirement, describeBackend(a.Function, a.Backend, a.Version))
	for _, b := range c.res.Node(n).Backends {
		if b.Requirement.Capability != a.Requirement {
			continue
		}
		f := c.res.BackendFunc(b)
		actual := describeBackend(f.Function, f.Backend, f.Version)
		if f.Function != a.Function ||
			(a.Backend != "" && f.Backend != a.Backend) ||
			(a.Version != "" && f.Version != a.Version) {
			return c.fail(AssertBackend, expected, "filled by "+actual)
		}
		return nil
	}
	return c.fail(AssertBackend, expected, "requirement not filled")
}

func (c *checker) assertOutput(a Assertion) error {
	n, err := c.node(AssertOutput, a.Node)
	if err != nil {
		return err
	}
	for _, o := range c.res.Outputs {
		if o.Node == n {
			return nil
		}
	}
	return c.fail(AssertOutput, fmt.Sprintf("%s to be a target output", a.Node), "not an output")
}

func describeBackend(function, backend, version string) string {
	s := function
	if backend != "" {
		s += " [" + backend
		if version != "" {
			s += " v" + version
		}
		s += "]"
	}
	return s
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
//
// Graph assertions against a failed resolution fail; error_contains
// assertions against a successful one fail.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	var c *checker
	if result.Resolution != nil {
		c = &checker{res: result.Resolution, order: result.Resolution.Labels(result.Resolution.Order)}
	}

	for i, assertion := range assertions {
		var err error

		if assertion.Type == AssertErrorContains {
			if !strings.Contains(result.ErrorMessage, assertion.Text) {
				err = &AssertionError{
					Type:     AssertErrorContains,
					Expected: fmt.Sprintf("error containing %q", assertion.Text),
					Actual:   fmt.Sprintf("%q", result.ErrorMessage),
				}
			}
		} else if c == nil {
			err = fmt.Errorf("assertion[%d]: %s requires a successful resolution", i, assertion.Type)
		} else {
			switch assertion.Type {
			case AssertActive:
				err = c.assertActive(assertion)
			case AssertInactive:
				err = c.assertInactive(assertion)
			case AssertEdge:
				err = c.assertEdge(assertion, true)
			case AssertNoEdge:
				err = c.assertEdge(assertion, false)
			case AssertOrder:
				err = c.assertOrder(assertion)
			case AssertNested:
				err = c.assertNested(assertion)
			case AssertLoopManager:
				err = c.assertLoopManager(assertion)
			case AssertBackend:
				err = c.assertBackend(assertion)
			case AssertOutput:
				err = c.assertOutput(assertion)
			default:
				err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
			}
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
