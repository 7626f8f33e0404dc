package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"gridlife.ai/internal/persistence/snapshot"
	"gridlife.ai/internal/sim/entity"
	"gridlife.ai/internal/sim/geom"
)

func TestLoad_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	raw := `
plant_health: 60
perception_radius: 3
species:
  mush: {food: true}
  nightshade: {deadly: true}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.PlantHealth != 60 || tune.PerceptionRadius != 3 {
		t.Fatalf("overrides not applied: %+v", tune)
	}
	if tune.Wrap != 50 || tune.SnapshotEveryTurns != 10 || tune.DefaultSpecies != "MUSH" {
		t.Fatalf("defaults lost: %+v", tune)
	}

	p := tune.NewPlant(1, 1, "NIGHTSHADE")
	if p.Health != 60 || !p.Flags().Deadly || p.Flags().Food {
		t.Fatalf("plant=%v flags=%+v", p, p.Flags())
	}
	if m := tune.NewPlant(0, 0, ""); m.Species != "MUSH" || !m.Flags().Food {
		t.Fatalf("default plant=%v flags=%+v", m, m.Flags())
	}
	c, err := tune.NewCell(2, 2)
	if err != nil || !c.Flags().Grass || c.Elevation != 1 {
		t.Fatalf("cell=%v err=%v", c, err)
	}
	if a := tune.NewActor("A1", "ann", 0, 0); a.Health != 100 || a.Wrap != 50 {
		t.Fatalf("actor=%v", a)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Tuning){
		"wrap":     func(t *Tuning) { t.Wrap = 0 },
		"radius":   func(t *Tuning) { t.PerceptionRadius = -1 },
		"species":  func(t *Tuning) { t.DefaultSpecies = "" },
		"health":   func(t *Tuning) { t.PlantHealth = 0 },
		"terrain":  func(t *Tuning) { t.CellTerrain = "LAVA" },
		"snapshot": func(t *Tuning) { t.SnapshotEveryTurns = 0 },
		"archive":  func(t *Tuning) { t.ArchiveEveryTurns = 15 },
	}
	for name, mut := range cases {
		tune := Defaults()
		mut(&tune)
		if err := tune.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestRestore_KeepsCatalogAndWrap(t *testing.T) {
	tune := Defaults()
	tune.Wrap = 30
	tune.Species = map[string]entity.SpeciesTraits{
		"BERRY":      {Food: true},
		"NIGHTSHADE": {Deadly: true},
	}

	berry := tune.NewPlant(1, 1, "BERRY")
	shade := tune.NewPlant(2, 1, "NIGHTSHADE")
	cell, err := tune.NewCell(1, 1)
	if err != nil {
		t.Fatalf("NewCell: %v", err)
	}
	actor := tune.NewActor("A1", "ann", 0, 0)

	st, err := snapshot.Capture("g1", 1, snapshot.Population{
		Cells:  []*entity.Cell{cell},
		Plants: []*entity.Plant{berry, shade},
		Actors: []*entity.Actor{actor},
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	pop, err := tune.Restore(st)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if got := pop.Plants[0]; got.Flags() != berry.Flags() || got.Wrap != 30 {
		t.Fatalf("berry flags=%+v wrap=%d want %+v wrap=30", got.Flags(), got.Wrap, berry.Flags())
	}
	if got := pop.Plants[1]; !got.Flags().Deadly || got.Flags().Food {
		t.Fatalf("nightshade flags=%+v", got.Flags())
	}
	if pop.Cells[0].Wrap != 30 || pop.Actors[0].Wrap != 30 {
		t.Fatalf("wrap lost: cell=%d actor=%d", pop.Cells[0].Wrap, pop.Actors[0].Wrap)
	}

	// Without tuning the entity defaults apply.
	plain, err := snapshot.Restore(st)
	if err != nil {
		t.Fatalf("snapshot.Restore: %v", err)
	}
	if plain.Plants[0].Flags().Food || plain.Plants[0].Wrap != entity.DefaultWrap {
		t.Fatalf("default restore=%+v wrap=%d", plain.Plants[0].Flags(), plain.Plants[0].Wrap)
	}
}

func TestPerceive_UsesPerceptionRadius(t *testing.T) {
	tune := Defaults()
	a := tune.NewActor("A1", "", 0, 0)

	area := tune.Perceive(a)
	if len(area) != 24 {
		t.Fatalf("radius 2 len=%d want 24", len(area))
	}
	for i, c := range area {
		if i > 0 && a.Coords().Manhattan(c) < a.Coords().Manhattan(area[i-1]) {
			t.Fatalf("not nearest first at %d: %v", i, area)
		}
	}
	// Ties keep scan order (x outer, y inner), so the west neighbour leads.
	if area[0] != geom.C(-1, 0) || area[3] != geom.C(1, 0) {
		t.Fatalf("nearest=%v", area[:4])
	}

	tune.PerceptionRadius = 0
	if got := tune.Perceive(a); len(got) != 0 {
		t.Fatalf("radius 0 should perceive nothing, got %v", got)
	}
	if got := tune.Perceive(nil); got != nil {
		t.Fatalf("nil inhabitant=%v", got)
	}
}
