package util

import (
	"fmt"
	"os"
	"sync"
)

// Printer serialises diagnostic lines written by concurrent build workers,
// adapted from the teacher's util/io.go Writer: spec §5 requires that
// stdout/stderr use a lock to serialise output across worker goroutines.
type Printer struct {
	mx sync.Mutex
}

// NewPrinter returns a Printer ready for concurrent use.
func NewPrinter() *Printer { return &Printer{} }

// Println writes a line to stdout under the printer's lock.
func (p *Printer) Println(a ...interface{}) {
	p.mx.Lock()
	defer p.mx.Unlock()
	fmt.Println(a...)
}

// Errorln writes a line to stderr under the printer's lock.
func (p *Printer) Errorln(a ...interface{}) {
	p.mx.Lock()
	defer p.mx.Unlock()
	fmt.Fprintln(os.Stderr, a...)
}
