package resolver

import "github.com/roach88/depres/internal/ir"

// PrintTarget is an active node whose result must be printed.
type PrintTarget struct {
	Label    string
	Identity ir.Identity
}

// Printer is the output registrar. It is told which nodes require printing
// once a pass completes successfully.
type Printer interface {
	Initialise(targets []PrintTarget) error
}

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(targets []PrintTarget) error

// Initialise calls f.
func (f PrinterFunc) Initialise(targets []PrintTarget) error { return f(targets) }
