package entity

import "fmt"

const (
	DefaultSpecies     = "MUSH"
	DefaultPlantHealth = 100
)

// Plant is something an actor can eat or should avoid, depending on species.
// Health is reduced by the world layer; at or below zero the plant is dead.
type Plant struct {
	Placement
	Species string
	Health  int

	catalog SpeciesCatalog
}

func NewPlant(x, y int, species string) *Plant {
	if species == "" {
		species = DefaultSpecies
	}
	return &Plant{Placement: placedAt(x, y), Species: species, Health: DefaultPlantHealth}
}

// PlantFromRecord restores a plant from its serialized shape.
func PlantFromRecord(r PlantRecord) *Plant {
	return &Plant{
		Placement: placedAt(r.Coords.X, r.Coords.Y),
		Species:   r.Type,
		Health:    r.Health,
	}
}

func (p *Plant) Record() PlantRecord {
	return PlantRecord{Type: p.Species, Health: p.Health, Coords: p.Pos}
}

// UseCatalog sets the species table consulted by Flags. A nil catalog falls
// back to DefaultCatalog.
func (p *Plant) UseCatalog(c SpeciesCatalog) { p.catalog = c }

func (p *Plant) Traits() SpeciesTraits {
	c := p.catalog
	if c == nil {
		c = DefaultCatalog
	}
	return c.Lookup(p.Species)
}

func (p *Plant) Kind() Kind { return KindPlant }

func (p *Plant) Flags() Flags {
	tr := p.Traits()
	return Flags{Plant: true, Food: tr.Food, Deadly: tr.Deadly}
}

func (p *Plant) Smell() SmellCode { return SmellPlant }

func (p *Plant) Alive() bool { return p.Health > 0 }

func (p *Plant) String() string {
	return fmt.Sprintf("Plant(%d, %d, %s, hp=%d)", p.Pos.X, p.Pos.Y, p.Species, p.Health)
}

var _ Inhabitant = (*Plant)(nil)
