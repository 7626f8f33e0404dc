package entity

import "fmt"

const DefaultElevation = 1

// Cell is one terrain tile.
type Cell struct {
	Placement
	Terrain   Terrain
	Elevation int
}

// NewCell builds a cell from explicit fields. terrain may be a Terrain, its
// symbolic name, or its integer code.
func NewCell(x, y int, terrain any, elevation int) (*Cell, error) {
	t, err := ParseTerrain(terrain)
	if err != nil {
		return nil, err
	}
	return &Cell{Placement: placedAt(x, y), Terrain: t, Elevation: elevation}, nil
}

// CellFromRecord restores a cell from its serialized shape.
func CellFromRecord(r CellRecord) (*Cell, error) {
	return NewCell(r.Coords.X, r.Coords.Y, r.Type, r.Elevation)
}

func (c *Cell) Record() CellRecord {
	return CellRecord{Type: c.Terrain, Coords: c.Pos, Elevation: c.Elevation}
}

func (c *Cell) Kind() Kind { return KindCell }

// Cells are terrain; they never carry food, danger or life.
func (c *Cell) Flags() Flags {
	return Flags{
		Water: c.Terrain == Water,
		Grass: c.Terrain == Grass,
		Rock:  c.Terrain == Rock,
	}
}

func (c *Cell) Smell() SmellCode {
	if c.Terrain == Water {
		return SmellWater
	}
	return SmellNone
}

func (c *Cell) Alive() bool { return false }

func (c *Cell) String() string {
	return fmt.Sprintf("Cell(%d, %d, %s, %d)", c.Pos.X, c.Pos.Y, c.Terrain, c.Elevation)
}

var _ Inhabitant = (*Cell)(nil)
