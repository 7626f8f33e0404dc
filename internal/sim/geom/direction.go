package geom

type Direction string

const (
	North Direction = "NORTH"
	South Direction = "SOUTH"
	East  Direction = "EAST"
	West  Direction = "WEST"
)

// Cardinal is the fixed neighbour order used everywhere in the grid.
var Cardinal = [4]Direction{North, South, East, West}

func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West:
		return true
	}
	return false
}

func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return d
}
