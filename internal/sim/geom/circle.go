package geom

import "sort"

// CircleAt returns every coordinate in the square of the given radius around
// center, excluding center itself. Scan order is x outer, y inner. With
// sortByDistance the result is stably sorted by Manhattan distance to center,
// so ties keep scan order.
func CircleAt(center any, radius int, sortByDistance bool) ([]Coord, error) {
	c, err := ParseCoord(center)
	if err != nil {
		return nil, err
	}
	if radius <= 0 {
		return []Coord{}, nil
	}
	side := 2*radius + 1
	area := make([]Coord, 0, side*side-1)
	for x := c.X - radius; x <= c.X+radius; x++ {
		for y := c.Y - radius; y <= c.Y+radius; y++ {
			if x == c.X && y == c.Y {
				continue
			}
			area = append(area, Coord{X: x, Y: y})
		}
	}
	if sortByDistance {
		sort.SliceStable(area, func(i, j int) bool {
			return c.Manhattan(area[i]) < c.Manhattan(area[j])
		})
	}
	return area, nil
}
