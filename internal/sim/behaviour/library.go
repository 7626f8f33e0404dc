package behaviour

import (
	"fmt"
	"sort"

	"gridlife.ai/internal/sim/entity"
)

// Library maps script ids to compiled behaviours. It is built once and only
// read afterwards.
type Library struct {
	byScript map[string]*Behaviour
}

// CompileLibrary compiles every script in sources with c.
func CompileLibrary(c Compiler, sources map[string]string) (*Library, error) {
	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lib := &Library{byScript: make(map[string]*Behaviour, len(ids))}
	for _, id := range ids {
		b, err := FromScript(c, sources[id])
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", id, err)
		}
		lib.byScript[id] = b
	}
	return lib, nil
}

func NewLibrary(byScript map[string]*Behaviour) *Library {
	lib := &Library{byScript: make(map[string]*Behaviour, len(byScript))}
	for id, b := range byScript {
		lib.byScript[id] = b
	}
	return lib
}

func (l *Library) Behaviour(script string) (*Behaviour, bool) {
	if l == nil {
		return nil, false
	}
	b, ok := l.byScript[script]
	return b, ok
}

func (l *Library) Scripts() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.byScript))
	for id := range l.byScript {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Select evaluates the behaviour bound to a.Script. Actors with an unknown
// script, and dead actors, do nothing.
func (l *Library) Select(a *entity.Actor) (any, bool) {
	if a == nil || !a.Alive() {
		return nil, false
	}
	b, ok := l.Behaviour(a.Script)
	if !ok {
		return nil, false
	}
	return b.SelectAction(a)
}
