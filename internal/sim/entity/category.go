package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"gridlife.ai/internal/protocol"
)

// UnknownCategoryError is returned when a terrain or smell name/code is not
// part of the recognised enumeration.
type UnknownCategoryError struct {
	Category string // "terrain" or "smell"
	Value    any
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s: %#v", e.Category, e.Value)
}

func (e *UnknownCategoryError) Code() string { return protocol.ErrUnknownCategory }

// Terrain is the kind of ground a Cell is made of. The zero value is not a
// valid terrain.
type Terrain int

const (
	Grass Terrain = 1
	Rock  Terrain = 2
	Water Terrain = 3
)

var terrainNames = map[Terrain]string{
	Grass: "GRASS",
	Rock:  "ROCK",
	Water: "WATER",
}

// ParseTerrain accepts the symbolic name or the integer code.
func ParseTerrain(v any) (Terrain, error) {
	switch x := v.(type) {
	case Terrain:
		if _, ok := terrainNames[x]; ok {
			return x, nil
		}
	case string:
		name := strings.ToUpper(strings.TrimSpace(x))
		for t, n := range terrainNames {
			if n == name {
				return t, nil
			}
		}
	case int:
		if _, ok := terrainNames[Terrain(x)]; ok {
			return Terrain(x), nil
		}
	case int64:
		if _, ok := terrainNames[Terrain(x)]; ok && int64(Terrain(x)) == x {
			return Terrain(x), nil
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return ParseTerrain(n)
		}
		return ParseTerrain(x.String())
	}
	return 0, &UnknownCategoryError{Category: "terrain", Value: v}
}

func (t Terrain) String() string {
	if n, ok := terrainNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Terrain(%d)", int(t))
}

func (t Terrain) Valid() bool {
	_, ok := terrainNames[t]
	return ok
}

// MarshalJSON always writes the symbolic name.
func (t Terrain) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, &UnknownCategoryError{Category: "terrain", Value: int(t)}
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the symbolic name or the integer code.
func (t *Terrain) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	v, err := ParseTerrain(raw)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// SmellCode tags the scent an inhabitant gives off. SmellNone means none.
type SmellCode int

const (
	SmellNone  SmellCode = 0
	SmellActor SmellCode = 1
	SmellPlant SmellCode = 2
	SmellWater SmellCode = 3
)

var smellNames = map[SmellCode]string{
	SmellActor: "ACTOR",
	SmellPlant: "PLANT",
	SmellWater: "WATER",
}

// ParseSmellCode accepts the symbolic name or the integer code.
func ParseSmellCode(v any) (SmellCode, error) {
	switch x := v.(type) {
	case SmellCode:
		if _, ok := smellNames[x]; ok {
			return x, nil
		}
	case string:
		name := strings.ToUpper(strings.TrimSpace(x))
		for s, n := range smellNames {
			if n == name {
				return s, nil
			}
		}
	case int:
		if _, ok := smellNames[SmellCode(x)]; ok {
			return SmellCode(x), nil
		}
	case int64:
		if _, ok := smellNames[SmellCode(x)]; ok && int64(SmellCode(x)) == x {
			return SmellCode(x), nil
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return ParseSmellCode(n)
		}
		return ParseSmellCode(x.String())
	}
	return SmellNone, &UnknownCategoryError{Category: "smell", Value: v}
}

func (s SmellCode) String() string {
	if n, ok := smellNames[s]; ok {
		return n
	}
	return "NONE"
}
