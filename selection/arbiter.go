// Package selection keeps selection of two nested editing contexts mutually
// exclusive: whenever child context gets selection, parent loses it, and any
// other parent selection change clears the child.
package selection

import (
	"go.uber.org/zap"

	"reblock/editor"
)

// Host is an editing context with a single selection locus.
type Host interface {
	SelectionRange() editor.Selection
	ClearSelection()
	OnSelectionChange(fn func(prev, cur editor.Selection)) (cancel func())
}

// Guard is a one-shot flag marking that selection is moving into the child
// context. It is set by the child observer and consumed by the very next
// parent reaction.
type Guard struct {
	armed bool
}

// Arm marks selection move into child as started.
func (g *Guard) Arm() {
	g.armed = true
}

// Consume reports whether guard was armed and disarms it.
func (g *Guard) Consume() bool {
	armed := g.armed
	g.armed = false
	return armed
}

// Armed reports guard state without consuming it.
func (g *Guard) Armed() bool {
	return g.armed
}

// Arbiter is bound to a pair of contexts for as long as the child exists.
type Arbiter struct {
	parent Host
	child  Host
	guard  Guard
	log    *zap.Logger

	cancels []func()
}

// Bind starts synchronizing selection of parent and child. If both already
// have something selected child selection is dropped.
func Bind(parent, child Host, log *zap.Logger) *Arbiter {
	a := &Arbiter{
		parent: parent,
		child:  child,
		log:    log.Named("selection"),
	}
	a.cancels = append(a.cancels,
		parent.OnSelectionChange(a.parentChanged),
		child.OnSelectionChange(a.childChanged),
	)
	if !parent.SelectionRange().Empty() && !child.SelectionRange().Empty() {
		child.ClearSelection()
	}
	return a
}

// Close unregisters both observers. It is safe to call more than once.
func (a *Arbiter) Close() {
	for _, cancel := range a.cancels {
		cancel()
	}
	a.cancels = nil
	a.guard.Consume()
}

// Pending reports whether selection move into child is in progress. It never
// stays true after reaction settles.
func (a *Arbiter) Pending() bool {
	return a.guard.Armed()
}

// parentChanged drops child selection unless the change was caused by the
// child taking selection over.
func (a *Arbiter) parentChanged(_, _ editor.Selection) {
	if a.guard.Consume() {
		a.log.Debug("Parent selection yielded to child")
		return
	}
	if !a.child.SelectionRange().Empty() {
		a.log.Debug("Selection moved away from child")
	}
	a.child.ClearSelection()
}

// childChanged takes selection away from parent when child gets one.
func (a *Arbiter) childChanged(prev, cur editor.Selection) {
	if !prev.Empty() || cur.Empty() {
		return
	}
	// guard must be consumed by parent reaction, which only happens on actual
	// change of parent selection
	if a.parent.SelectionRange().Empty() {
		return
	}
	a.guard.Arm()
	a.parent.ClearSelection()
}
