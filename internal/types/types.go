// README: Shared identifier and geo primitives.
package types

type ID string

type Point struct {
	Lat float64
	Lng float64
}

// Location is a point plus the free-text address customers type in.
type Location struct {
	Point
	Address string
}
