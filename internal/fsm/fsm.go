// Package fsm implements a small table-driven finite state machine.
package fsm

import "fmt"

// Transition defines a state change caused by an event.
type Transition[S, E comparable] struct {
	From  S
	Event E
	To    S
}

// Table holds the transitions shared by every Machine built from it.
// It is read-only once built.
type Table[S, E comparable] struct {
	initial     S
	transitions map[S]map[E]S
}

// NewTable builds a transition table and validates it.
func NewTable[S, E comparable](initial S, transitions ...Transition[S, E]) (*Table[S, E], error) {
	t := &Table[S, E]{initial: initial, transitions: make(map[S]map[E]S)}
	for _, tr := range transitions {
		evs, ok := t.transitions[tr.From]
		if !ok {
			evs = make(map[E]S)
			t.transitions[tr.From] = evs
		}
		if to, dup := evs[tr.Event]; dup && to != tr.To {
			return nil, fmt.Errorf("fsm: conflicting transitions from %v on %v: %v and %v", tr.From, tr.Event, to, tr.To)
		}
		evs[tr.Event] = tr.To
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTable is NewTable for package-level tables; it panics on an invalid table.
func MustTable[S, E comparable](initial S, transitions ...Transition[S, E]) *Table[S, E] {
	t, err := NewTable(initial, transitions...)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks that every state named in the table is reachable from the initial state.
func (t *Table[S, E]) Validate() error {
	reachable := map[S]bool{t.initial: true}
	queue := []S{t.initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, to := range t.transitions[s] {
			if !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}
	for from, evs := range t.transitions {
		if !reachable[from] {
			return fmt.Errorf("fsm: state %v unreachable", from)
		}
		for _, to := range evs {
			if !reachable[to] {
				return fmt.Errorf("fsm: state %v unreachable", to)
			}
		}
	}
	return nil
}

// Next returns the state reached from 'from' on e, if the table defines one.
func (t *Table[S, E]) Next(from S, e E) (S, bool) {
	to, ok := t.transitions[from][e]
	return to, ok
}

// New returns a Machine in the table's initial state.
func (t *Table[S, E]) New() *Machine[S, E] {
	return &Machine[S, E]{table: t, current: t.initial}
}

// Machine is one instance walking a Table. It is not safe for concurrent
// use; callers serialize access.
type Machine[S, E comparable] struct {
	table   *Table[S, E]
	current S
}

// Trigger moves the machine according to e. Events with no transition from
// the current state are ignored and reported as false.
func (m *Machine[S, E]) Trigger(e E) bool {
	to, ok := m.table.Next(m.current, e)
	if !ok {
		return false
	}
	m.current = to
	return true
}

// State returns the current state.
func (m *Machine[S, E]) State() S { return m.current }
