package snapshot

import (
	"fmt"

	"gridlife.ai/internal/sim/entity"
	"gridlife.ai/internal/sim/geom"
)

// DiffV1 turns the state of FromTurn into the state of Turn. Upserts carry the
// whole record; removals carry only the key.
type DiffV1 struct {
	FromTurn uint64 `json:"from_turn"`
	Turn     uint64 `json:"turn"`

	Cells         []entity.CellRecord  `json:"cells,omitempty"`
	RemovedCells  []geom.Coord         `json:"removed_cells,omitempty"`
	Plants        []entity.PlantRecord `json:"plants,omitempty"`
	RemovedPlants []geom.Coord         `json:"removed_plants,omitempty"`
	Actors        []entity.ActorRecord `json:"actors,omitempty"`
	RemovedActors []string             `json:"removed_actors,omitempty"`
}

func (d DiffV1) Empty() bool {
	return len(d.Cells) == 0 && len(d.RemovedCells) == 0 &&
		len(d.Plants) == 0 && len(d.RemovedPlants) == 0 &&
		len(d.Actors) == 0 && len(d.RemovedActors) == 0
}

// Diff computes the changes from prev to next. Both states must be in
// canonical order (as produced by Capture, Apply or DecodeStateJSON); the
// output is then canonical as well.
func Diff(prev, next StateV1) DiffV1 {
	d := DiffV1{FromTurn: prev.Header.Turn, Turn: next.Header.Turn}

	prevCells := make(map[geom.Coord]entity.CellRecord, len(prev.Cells))
	for _, r := range prev.Cells {
		prevCells[r.Coords] = r
	}
	for _, r := range next.Cells {
		if old, ok := prevCells[r.Coords]; !ok || old != r {
			d.Cells = append(d.Cells, r)
		}
		delete(prevCells, r.Coords)
	}
	for _, r := range prev.Cells {
		if _, gone := prevCells[r.Coords]; gone {
			d.RemovedCells = append(d.RemovedCells, r.Coords)
		}
	}

	prevPlants := make(map[geom.Coord]entity.PlantRecord, len(prev.Plants))
	for _, r := range prev.Plants {
		prevPlants[r.Coords] = r
	}
	for _, r := range next.Plants {
		if old, ok := prevPlants[r.Coords]; !ok || old != r {
			d.Plants = append(d.Plants, r)
		}
		delete(prevPlants, r.Coords)
	}
	for _, r := range prev.Plants {
		if _, gone := prevPlants[r.Coords]; gone {
			d.RemovedPlants = append(d.RemovedPlants, r.Coords)
		}
	}

	prevActors := make(map[string]entity.ActorRecord, len(prev.Actors))
	for _, r := range prev.Actors {
		prevActors[r.ID] = r
	}
	for _, r := range next.Actors {
		if old, ok := prevActors[r.ID]; !ok || old != r {
			d.Actors = append(d.Actors, r)
		}
		delete(prevActors, r.ID)
	}
	for _, r := range prev.Actors {
		if _, gone := prevActors[r.ID]; gone {
			d.RemovedActors = append(d.RemovedActors, r.ID)
		}
	}
	return d
}

// Apply returns base with d applied. base must be the state of d.FromTurn.
func Apply(base StateV1, d DiffV1) (StateV1, error) {
	if base.Header.Turn != d.FromTurn {
		return StateV1{}, fmt.Errorf("diff from turn %d applied to state of turn %d", d.FromTurn, base.Header.Turn)
	}

	cells := make(map[geom.Coord]entity.CellRecord, len(base.Cells)+len(d.Cells))
	for _, r := range base.Cells {
		cells[r.Coords] = r
	}
	for _, c := range d.RemovedCells {
		delete(cells, c)
	}
	for _, r := range d.Cells {
		cells[r.Coords] = r
	}

	plants := make(map[geom.Coord]entity.PlantRecord, len(base.Plants)+len(d.Plants))
	for _, r := range base.Plants {
		plants[r.Coords] = r
	}
	for _, c := range d.RemovedPlants {
		delete(plants, c)
	}
	for _, r := range d.Plants {
		plants[r.Coords] = r
	}

	actors := make(map[string]entity.ActorRecord, len(base.Actors)+len(d.Actors))
	for _, r := range base.Actors {
		actors[r.ID] = r
	}
	for _, id := range d.RemovedActors {
		delete(actors, id)
	}
	for _, r := range d.Actors {
		actors[r.ID] = r
	}

	out := StateV1{
		Header: Header{Version: Version, GameID: base.Header.GameID, Turn: d.Turn},
		Cells:  make([]entity.CellRecord, 0, len(cells)),
		Plants: make([]entity.PlantRecord, 0, len(plants)),
		Actors: make([]entity.ActorRecord, 0, len(actors)),
	}
	for _, r := range cells {
		out.Cells = append(out.Cells, r)
	}
	for _, r := range plants {
		out.Plants = append(out.Plants, r)
	}
	for _, r := range actors {
		out.Actors = append(out.Actors, r)
	}
	out.sort()
	return out, nil
}

// Equal reports whether two canonical states hold the same records.
func Equal(a, b StateV1) bool {
	if a.Header != b.Header || len(a.Cells) != len(b.Cells) || len(a.Plants) != len(b.Plants) || len(a.Actors) != len(b.Actors) {
		return false
	}
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			return false
		}
	}
	for i := range a.Plants {
		if a.Plants[i] != b.Plants[i] {
			return false
		}
	}
	for i := range a.Actors {
		if a.Actors[i] != b.Actors[i] {
			return false
		}
	}
	return true
}
