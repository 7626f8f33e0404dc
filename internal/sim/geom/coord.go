package geom

import "fmt"

// Coord is an integer grid position. Y grows to the north, X to the east.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Unplaced marks an inhabitant that has not been put into a world yet.
var Unplaced = Coord{X: -1, Y: -1}

// Locatable is anything that can report its current grid position.
type Locatable interface {
	Coords() Coord
}

func C(x, y int) Coord { return Coord{X: x, Y: y} }

// Coords lets a Coord stand in for any Locatable.
func (c Coord) Coords() Coord { return c }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

func (c Coord) Equal(o Coord) bool { return c.X == o.X && c.Y == o.Y }

func (c Coord) Placed() bool { return c != Unplaced }

func (c Coord) Add(dx, dy int) Coord { return Coord{X: c.X + dx, Y: c.Y + dy} }

// Step moves one cell in d. Unknown directions return c unchanged.
func (c Coord) Step(d Direction) Coord {
	dx, dy := d.Delta()
	return c.Add(dx, dy)
}

// Manhattan returns |dx|+|dy|. There is no diagonal movement.
func (c Coord) Manhattan(o Coord) int {
	return absInt(o.X-c.X) + absInt(o.Y-c.Y)
}

// DirectionsTo lists the directions that bring c closer to o: the x-axis
// hint first, then the y-axis hint. Empty when c == o.
func (c Coord) DirectionsTo(o Coord) []Direction {
	dirs := make([]Direction, 0, 2)
	switch {
	case o.X > c.X:
		dirs = append(dirs, East)
	case o.X < c.X:
		dirs = append(dirs, West)
	}
	switch {
	case o.Y > c.Y:
		dirs = append(dirs, North)
	case o.Y < c.Y:
		dirs = append(dirs, South)
	}
	return dirs
}

// Neighbors returns the four cardinal neighbours in north, south, east, west
// order. No wrap-around is applied.
func (c Coord) Neighbors() (north, south, east, west Coord) {
	return c.Step(North), c.Step(South), c.Step(East), c.Step(West)
}

// Adjacent reports whether o is exactly one of the four cardinal neighbours.
// The same cell and diagonals are never adjacent.
func (c Coord) Adjacent(o Coord) bool {
	n, s, e, w := c.Neighbors()
	return o == n || o == s || o == e || o == w
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
