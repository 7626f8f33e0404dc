package entity

import "fmt"

const DefaultActorHealth = 100

// Actor is a mobile inhabitant driven by a behaviour script.
type Actor struct {
	Placement
	ID     string
	Name   string
	Script string
	Health int
}

func NewActor(id, name string, x, y int) *Actor {
	return &Actor{Placement: placedAt(x, y), ID: id, Name: name, Health: DefaultActorHealth}
}

func ActorFromRecord(r ActorRecord) *Actor {
	return &Actor{
		Placement: placedAt(r.Coords.X, r.Coords.Y),
		ID:        r.ID,
		Name:      r.Name,
		Script:    r.Script,
		Health:    r.Health,
	}
}

func (a *Actor) Record() ActorRecord {
	return ActorRecord{ID: a.ID, Name: a.Name, Script: a.Script, Health: a.Health, Coords: a.Pos}
}

func (a *Actor) Kind() Kind       { return KindActor }
func (a *Actor) Flags() Flags     { return Flags{Actor: true} }
func (a *Actor) Smell() SmellCode { return SmellActor }
func (a *Actor) Alive() bool      { return a.Health > 0 }

func (a *Actor) String() string {
	return fmt.Sprintf("Actor(%s, %d, %d, hp=%d)", a.ID, a.Pos.X, a.Pos.Y, a.Health)
}

var _ Inhabitant = (*Actor)(nil)
