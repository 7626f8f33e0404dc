package geom

import (
	"fmt"
	"math"
	"reflect"

	"gridlife.ai/internal/protocol"
)

// InvalidCoordinateError is returned for any value that cannot be resolved to
// an integer (x, y) pair. Value holds the offending input.
type InvalidCoordinateError struct {
	Value any
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("can't parse coords from %#v", e.Value)
}

func (e *InvalidCoordinateError) Code() string { return protocol.ErrInvalidCoord }

// ParseCoord resolves v to a Coord. Accepted inputs are a non-nil Locatable
// (its current position), *Coord, [2]int, and two-element []int, []any or [2]any
// whose components are Go integers. Floats are rejected, never rounded.
func ParseCoord(v any) (Coord, error) {
	switch x := v.(type) {
	case *Coord:
		if x != nil {
			return *x, nil
		}
	case Locatable:
		if !nilPointer(x) {
			return x.Coords(), nil
		}
	case [2]int:
		return Coord{X: x[0], Y: x[1]}, nil
	case []int:
		if len(x) == 2 {
			return Coord{X: x[0], Y: x[1]}, nil
		}
	case [2]any:
		if c, ok := pairOf(x[0], x[1]); ok {
			return c, nil
		}
	case []any:
		if len(x) == 2 {
			if c, ok := pairOf(x[0], x[1]); ok {
				return c, nil
			}
		}
	}
	return Coord{}, &InvalidCoordinateError{Value: v}
}

// nilPointer catches typed-nil inhabitants, whose Coords would panic.
func nilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func pairOf(a, b any) (Coord, bool) {
	x, ok := intValue(a)
	if !ok {
		return Coord{}, false
	}
	y, ok := intValue(b)
	if !ok {
		return Coord{}, false
	}
	return Coord{X: x, Y: y}, true
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func parsePair(from, to any) (Coord, Coord, error) {
	a, err := ParseCoord(from)
	if err != nil {
		return Coord{}, Coord{}, err
	}
	b, err := ParseCoord(to)
	if err != nil {
		return Coord{}, Coord{}, err
	}
	return a, b, nil
}

// Directions returns the direction hints leading from one position to
// another. It does not look at the world; it only says which way is closer.
func Directions(from, to any) ([]Direction, error) {
	a, b, err := parsePair(from, to)
	if err != nil {
		return nil, err
	}
	return a.DirectionsTo(b), nil
}

// Distance returns the Manhattan distance between two positions.
func Distance(from, to any) (int, error) {
	a, b, err := parsePair(from, to)
	if err != nil {
		return 0, err
	}
	return a.Manhattan(b), nil
}
