package entity

import (
	"gridlife.ai/internal/sim/geom"
)

// DefaultWrap is the wrap modulus every inhabitant carries. It is recorded but
// not applied: distance, direction and neighbour math never wrap.
const DefaultWrap = 50

// Kind is the closed set of things that can be placed in the world.
type Kind uint8

const (
	KindCell Kind = iota + 1
	KindPlant
	KindActor
)

func (k Kind) String() string {
	switch k {
	case KindCell:
		return "CELL"
	case KindPlant:
		return "PLANT"
	case KindActor:
		return "ACTOR"
	default:
		return "UNKNOWN"
	}
}

// Attribute names understood by Flags.Has.
const (
	AttrFood   = "FOOD"
	AttrDeadly = "DEADLY"
	AttrActor  = "ACTOR"
	AttrWater  = "WATER"
	AttrPlant  = "PLANT"
	AttrGrass  = "GRASS"
	AttrRock   = "ROCK"
)

// Flags are derived from an inhabitant's kind (and terrain or species); they
// are never stored.
type Flags struct {
	Food   bool
	Deadly bool
	Actor  bool
	Water  bool
	Plant  bool
	Grass  bool
	Rock   bool
}

func (f Flags) Has(attr string) bool {
	switch attr {
	case AttrFood:
		return f.Food
	case AttrDeadly:
		return f.Deadly
	case AttrActor:
		return f.Actor
	case AttrWater:
		return f.Water
	case AttrPlant:
		return f.Plant
	case AttrGrass:
		return f.Grass
	case AttrRock:
		return f.Rock
	}
	return false
}

// Inhabitant is the capability set shared by everything placed on the grid.
type Inhabitant interface {
	geom.Locatable
	Kind() Kind
	Flags() Flags
	Smell() SmellCode
	Alive() bool

	Neighbors() (north, south, east, west geom.Coord)
	CanReach(target any) bool
	DistanceTo(other any) (int, error)
	DirectionTo(other any) ([]geom.Direction, error)
	Around(radius int, sortByDistance bool) []geom.Coord
}

// Placement holds an inhabitant's position and implements the spatial half of
// Inhabitant. Concrete entities embed it.
type Placement struct {
	Pos  geom.Coord
	Wrap int
}

func placedAt(x, y int) Placement {
	return Placement{Pos: geom.C(x, y), Wrap: DefaultWrap}
}

func (p Placement) Coords() geom.Coord { return p.Pos }

func (p Placement) X() int { return p.Pos.X }
func (p Placement) Y() int { return p.Pos.Y }

// Place moves the inhabitant. Occupancy rules are the caller's business.
func (p *Placement) Place(c geom.Coord) { p.Pos = c }

func (p Placement) North() geom.Coord { return p.Pos.Step(geom.North) }
func (p Placement) South() geom.Coord { return p.Pos.Step(geom.South) }
func (p Placement) East() geom.Coord  { return p.Pos.Step(geom.East) }
func (p Placement) West() geom.Coord  { return p.Pos.Step(geom.West) }

func (p Placement) Neighbors() (north, south, east, west geom.Coord) {
	return p.Pos.Neighbors()
}

// CanReach reports whether target sits on one of the four cardinal
// neighbours. Unparseable targets are unreachable.
func (p Placement) CanReach(target any) bool {
	c, err := geom.ParseCoord(target)
	if err != nil {
		return false
	}
	return p.Pos.Adjacent(c)
}

func (p Placement) DistanceTo(other any) (int, error) {
	return geom.Distance(p.Pos, other)
}

// DirectionTo gives the hints that lead toward other; empty when standing on it.
func (p Placement) DirectionTo(other any) ([]geom.Direction, error) {
	return geom.Directions(p.Pos, other)
}

// Around lists the coordinates within radius of the inhabitant (square scan,
// own cell excluded), nearest first when sortByDistance is set.
func (p Placement) Around(radius int, sortByDistance bool) []geom.Coord {
	area, _ := geom.CircleAt(p.Pos, radius, sortByDistance)
	return area
}
