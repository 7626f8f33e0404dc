package geom

import (
	"errors"
	"testing"

	"gridlife.ai/internal/protocol"
)

type fixed struct{ at Coord }

func (f fixed) Coords() Coord { return f.at }

func TestDistance_SymmetricAndZero(t *testing.T) {
	pts := []Coord{{0, 0}, {3, -4}, {-7, 2}, {10, 10}, {-1, -1}}
	for _, a := range pts {
		d, err := Distance(a, a)
		if err != nil || d != 0 {
			t.Fatalf("Distance(%v,%v)=%d,%v want 0", a, a, d, err)
		}
		for _, b := range pts {
			ab, _ := Distance(a, b)
			ba, _ := Distance(b, a)
			if ab != ba {
				t.Fatalf("asymmetric distance %v %v: %d vs %d", a, b, ab, ba)
			}
		}
	}
	if d, _ := Distance([2]int{1, 1}, []int{4, -3}); d != 7 {
		t.Fatalf("Distance got %d want 7", d)
	}
}

func TestDirections_OrderAndOpposites(t *testing.T) {
	got, err := Directions(C(0, 0), C(2, 3))
	if err != nil {
		t.Fatalf("Directions: %v", err)
	}
	if len(got) != 2 || got[0] != East || got[1] != North {
		t.Fatalf("got %v want [EAST NORTH]", got)
	}
	if got, _ := Directions(C(5, 5), C(5, 5)); len(got) != 0 {
		t.Fatalf("same cell should give no hints, got %v", got)
	}
	if got, _ := Directions(C(5, 5), C(5, 1)); len(got) != 1 || got[0] != South {
		t.Fatalf("got %v want [SOUTH]", got)
	}

	pts := []Coord{{0, 0}, {1, 0}, {0, -2}, {-3, 4}, {6, 6}}
	for _, a := range pts {
		for _, b := range pts {
			if a == b {
				continue
			}
			ab := a.DirectionsTo(b)
			ba := b.DirectionsTo(a)
			if len(ab) == 0 || len(ab) != len(ba) {
				t.Fatalf("%v->%v hints %v vs %v", a, b, ab, ba)
			}
			for i := range ab {
				if ab[i].Opposite() != ba[i] {
					t.Fatalf("%v->%v hint %d: %s not opposite of %s", a, b, i, ab[i], ba[i])
				}
			}
		}
	}
}

func TestCircleAt_SortedRadiusTwo(t *testing.T) {
	area, err := CircleAt(C(0, 0), 2, true)
	if err != nil {
		t.Fatalf("CircleAt: %v", err)
	}
	if len(area) != 24 {
		t.Fatalf("len=%d want 24", len(area))
	}
	// Scan order among the distance-1 ties is (-1,0), (0,-1), (0,1), (1,0).
	if area[0] != C(-1, 0) {
		t.Fatalf("first=%v want (-1,0)", area[0])
	}
	prev := 0
	for _, c := range area {
		if c == C(0, 0) {
			t.Fatalf("center must be excluded")
		}
		d := c.Manhattan(C(0, 0))
		if d < prev {
			t.Fatalf("not sorted by distance at %v", c)
		}
		prev = d
	}
}

func TestCircleAt_ScanOrderAndSizes(t *testing.T) {
	area, _ := CircleAt(fixed{at: C(10, 10)}, 1, false)
	want := []Coord{{9, 9}, {9, 10}, {9, 11}, {10, 9}, {10, 11}, {11, 9}, {11, 10}, {11, 11}}
	if len(area) != len(want) {
		t.Fatalf("len=%d want %d", len(area), len(want))
	}
	for i := range want {
		if area[i] != want[i] {
			t.Fatalf("idx %d got %v want %v", i, area[i], want[i])
		}
	}
	for r := 0; r <= 4; r++ {
		a, _ := CircleAt(C(0, 0), r, true)
		if n := (2*r+1)*(2*r+1) - 1; len(a) != n {
			t.Fatalf("radius %d: len=%d want %d", r, len(a), n)
		}
	}
}

// mover is a pointer-receiver Locatable, like the entity types.
type mover struct{ at Coord }

func (m *mover) Coords() Coord { return m.at }

func TestParseCoord(t *testing.T) {
	ok := []any{C(1, 2), &Coord{1, 2}, [2]int{1, 2}, []int{1, 2}, []any{1, int64(2)}, [2]any{uint8(1), int32(2)}, fixed{at: C(1, 2)}, &mover{at: C(1, 2)}}
	for _, v := range ok {
		c, err := ParseCoord(v)
		if err != nil {
			t.Fatalf("ParseCoord(%#v): %v", v, err)
		}
		if c != C(1, 2) {
			t.Fatalf("ParseCoord(%#v)=%v", v, c)
		}
	}

	bad := []any{"bad", []any{1, "x"}, []any{1.0, 2}, []int{1}, []any{1, 2, 3}, nil, 7, (*Coord)(nil), (*mover)(nil)}
	for _, v := range bad {
		_, err := ParseCoord(v)
		var ice *InvalidCoordinateError
		if !errors.As(err, &ice) {
			t.Fatalf("ParseCoord(%#v) err=%v want InvalidCoordinateError", v, err)
		}
		if ice.Code() != protocol.ErrInvalidCoord {
			t.Fatalf("code=%s", ice.Code())
		}
	}

	if _, err := Distance("bad", C(0, 0)); err == nil {
		t.Fatalf("expected error from Distance with bad input")
	}
	if _, err := CircleAt([]any{1, "x"}, 1, true); err == nil {
		t.Fatalf("expected error from CircleAt with bad center")
	}
}

func TestCoord_NeighborsAndAdjacent(t *testing.T) {
	c := C(3, 3)
	n, s, e, w := c.Neighbors()
	if n != C(3, 4) || s != C(3, 2) || e != C(4, 3) || w != C(2, 3) {
		t.Fatalf("neighbors=%v %v %v %v", n, s, e, w)
	}
	for _, o := range []Coord{n, s, e, w} {
		if !c.Adjacent(o) {
			t.Fatalf("%v should be adjacent to %v", o, c)
		}
	}
	for _, o := range []Coord{c, C(4, 4), C(2, 2), C(3, 5)} {
		if c.Adjacent(o) {
			t.Fatalf("%v should not be adjacent to %v", o, c)
		}
	}
	if !C(0, 0).Placed() || Unplaced.Placed() {
		t.Fatalf("Placed mismatch")
	}
}
