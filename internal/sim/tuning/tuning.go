package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gridlife.ai/internal/persistence/snapshot"
	"gridlife.ai/internal/sim/entity"
	"gridlife.ai/internal/sim/geom"
)

type Tuning struct {
	// Wrap is carried on every inhabitant but not applied by geometry.
	Wrap             int `yaml:"wrap"`
	PerceptionRadius int `yaml:"perception_radius"`

	DefaultSpecies string `yaml:"default_species"`
	PlantHealth    int    `yaml:"plant_health"`
	ActorHealth    int    `yaml:"actor_health"`
	CellElevation  int    `yaml:"cell_elevation"`
	CellTerrain    string `yaml:"cell_terrain"`

	// A full dump is recorded on the first turn and every N turns after it.
	SnapshotEveryTurns int `yaml:"snapshot_every_turns"`
	// Dumps on multiples of this are also copied to the game's archives.
	// 0 disables archiving.
	ArchiveEveryTurns int `yaml:"archive_every_turns"`

	Species map[string]entity.SpeciesTraits `yaml:"species"`
}

func Defaults() Tuning {
	return Tuning{
		Wrap:               entity.DefaultWrap,
		PerceptionRadius:   2,
		DefaultSpecies:     entity.DefaultSpecies,
		PlantHealth:        entity.DefaultPlantHealth,
		ActorHealth:        entity.DefaultActorHealth,
		CellElevation:      entity.DefaultElevation,
		CellTerrain:        entity.Grass.String(),
		SnapshotEveryTurns: 10,
		ArchiveEveryTurns:  100,
		Species: map[string]entity.SpeciesTraits{
			entity.DefaultSpecies: {Food: true},
		},
	}
}

// Load overlays the file at path on Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.DefaultSpecies = strings.ToUpper(strings.TrimSpace(t.DefaultSpecies))
	t.CellTerrain = strings.ToUpper(strings.TrimSpace(t.CellTerrain))
	if len(t.Species) > 0 {
		norm := make(map[string]entity.SpeciesTraits, len(t.Species))
		for k, v := range t.Species {
			norm[strings.ToUpper(strings.TrimSpace(k))] = v
		}
		t.Species = norm
	}
}

func (t Tuning) Validate() error {
	if t.Wrap <= 0 {
		return fmt.Errorf("wrap must be > 0")
	}
	if t.PerceptionRadius < 0 {
		return fmt.Errorf("perception_radius must be >= 0")
	}
	if t.DefaultSpecies == "" {
		return fmt.Errorf("default_species must not be empty")
	}
	if t.PlantHealth <= 0 {
		return fmt.Errorf("plant_health must be > 0")
	}
	if t.ActorHealth <= 0 {
		return fmt.Errorf("actor_health must be > 0")
	}
	if _, err := entity.ParseTerrain(t.CellTerrain); err != nil {
		return fmt.Errorf("cell_terrain: %w", err)
	}
	if t.SnapshotEveryTurns <= 0 {
		return fmt.Errorf("snapshot_every_turns must be > 0")
	}
	if t.ArchiveEveryTurns < 0 {
		return fmt.Errorf("archive_every_turns must be >= 0")
	}
	if t.ArchiveEveryTurns > 0 && t.ArchiveEveryTurns%t.SnapshotEveryTurns != 0 {
		return fmt.Errorf("archive_every_turns must be a multiple of snapshot_every_turns")
	}
	return nil
}

func (t Tuning) Catalog() entity.SpeciesCatalog {
	return entity.SpeciesCatalog(t.Species)
}

// NewPlant builds a plant with the configured defaults.
func (t Tuning) NewPlant(x, y int, species string) *entity.Plant {
	if species == "" {
		species = t.DefaultSpecies
	}
	p := entity.NewPlant(x, y, species)
	p.Health = t.PlantHealth
	p.Wrap = t.Wrap
	p.UseCatalog(t.Catalog())
	return p
}

// NewCell builds a cell with the configured terrain and elevation.
func (t Tuning) NewCell(x, y int) (*entity.Cell, error) {
	c, err := entity.NewCell(x, y, t.CellTerrain, t.CellElevation)
	if err != nil {
		return nil, err
	}
	c.Wrap = t.Wrap
	return c, nil
}

func (t Tuning) NewActor(id, name string, x, y int) *entity.Actor {
	a := entity.NewActor(id, name, x, y)
	a.Health = t.ActorHealth
	a.Wrap = t.Wrap
	return a
}

// RestoreOptions hands the catalog and wrap to snapshot restores.
func (t Tuning) RestoreOptions() snapshot.RestoreOptions {
	return snapshot.RestoreOptions{Catalog: t.Catalog(), Wrap: t.Wrap}
}

// Restore rebuilds a stored population as if its entities had been built by
// the constructors above.
func (t Tuning) Restore(st snapshot.StateV1) (snapshot.Population, error) {
	return snapshot.RestoreWith(st, t.RestoreOptions())
}

// Perceive lists what inh can sense: every coordinate within
// perception_radius, nearest first.
func (t Tuning) Perceive(inh entity.Inhabitant) []geom.Coord {
	if inh == nil {
		return nil
	}
	return inh.Around(t.PerceptionRadius, true)
}
