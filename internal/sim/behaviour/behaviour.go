// Package behaviour picks an actor's next action from an ordered rule list.
//
// Rules are tested in order and the first one whose condition holds wins. A
// Behaviour never changes after construction, so one value can be shared by
// every actor running the same script and evaluated from several goroutines,
// as long as the world layer keeps the entities being read stable.
package behaviour

import (
	"fmt"

	"gridlife.ai/internal/sim/entity"
)

// Rule is one condition/action pair, usually produced by a script compiler.
// Actions is only consulted after Eval returned true.
type Rule interface {
	Eval(a *entity.Actor) bool
	Actions() any
}

// Compiler turns script source into rules. Script parsing lives outside this
// module; tests use fakes.
type Compiler interface {
	Compile(src string) ([]Rule, error)
}

// Func adapts a plain condition function and payload into a Rule.
type Func struct {
	Cond   func(a *entity.Actor) bool
	Action any
}

func (f Func) Eval(a *entity.Actor) bool {
	if f.Cond == nil {
		return false
	}
	return f.Cond(a)
}

func (f Func) Actions() any { return f.Action }

type Behaviour struct {
	rules []Rule
}

func New(rules ...Rule) *Behaviour {
	cp := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil {
			cp = append(cp, r)
		}
	}
	return &Behaviour{rules: cp}
}

// FromScript compiles src and wraps the result in a Behaviour.
func FromScript(c Compiler, src string) (*Behaviour, error) {
	if c == nil {
		return nil, fmt.Errorf("behaviour: nil compiler")
	}
	rules, err := c.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	return New(rules...), nil
}

func (b *Behaviour) Len() int {
	if b == nil {
		return 0
	}
	return len(b.rules)
}

// Rules returns a copy of the rule sequence in evaluation order.
func (b *Behaviour) Rules() []Rule {
	if b == nil {
		return nil
	}
	out := make([]Rule, len(b.rules))
	copy(out, b.rules)
	return out
}

// SelectAction returns the actions of the first rule whose condition holds
// for a. ok is false when no rule matched, which means "do nothing this
// tick" and is not an error. Rules after the match are not evaluated.
func (b *Behaviour) SelectAction(a *entity.Actor) (action any, ok bool) {
	if b == nil {
		return nil, false
	}
	for _, r := range b.rules {
		if r.Eval(a) {
			return r.Actions(), true
		}
	}
	return nil, false
}
