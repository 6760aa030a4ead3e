package domain

import (
	"fmt"
	"math"
)

// Lambert conformal conic parameters of the KMA 5 km forecast grid.
const (
	earthRadiusKm = 6371.00877
	gridSpacingKm = 5.0
	stdParallel1  = 30.0
	stdParallel2  = 60.0
	originLon     = 126.0
	originLat     = 38.0
	originX       = 43
	originY       = 136

	// GridMaxX and GridMaxY bound the published grid. Cells are 1-based.
	GridMaxX = 149
	GridMaxY = 253
)

// GridCell is a forecast grid index (nx, ny).
type GridCell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Offset returns the cell dx, dy away.
func (g GridCell) Offset(dx, dy int) GridCell {
	return GridCell{X: g.X + dx, Y: g.Y + dy}
}

// InRegion reports whether the cell lies on the published grid.
func (g GridCell) InRegion() bool {
	return g.X >= 1 && g.X <= GridMaxX && g.Y >= 1 && g.Y <= GridMaxY
}

func (g GridCell) String() string {
	return fmt.Sprintf("(%d,%d)", g.X, g.Y)
}

// lcc holds the projection terms that depend only on the constants above.
type lcc struct {
	re, sn, sf, ro, olon float64
}

var projection = newLCC()

func newLCC() lcc {
	const degrad = math.Pi / 180.0
	re := earthRadiusKm / gridSpacingKm
	slat1 := stdParallel1 * degrad
	slat2 := stdParallel2 * degrad
	olat := originLat * degrad

	sn := math.Tan(math.Pi*0.25+slat2*0.5) / math.Tan(math.Pi*0.25+slat1*0.5)
	sn = math.Log(math.Cos(slat1)/math.Cos(slat2)) / math.Log(sn)
	sf := math.Tan(math.Pi*0.25 + slat1*0.5)
	sf = math.Pow(sf, sn) * math.Cos(slat1) / sn
	ro := math.Tan(math.Pi*0.25 + olat*0.5)
	ro = re * sf / math.Pow(ro, sn)

	return lcc{re: re, sn: sn, sf: sf, ro: ro, olon: originLon * degrad}
}

// Project converts a WGS-84 coordinate to its forecast grid cell. It returns
// ErrOutsideRegion when either axis is undefined (the south pole) or the cell
// falls off the published grid, which also covers the degenerate (0,0).
func Project(c Coordinate) (GridCell, error) {
	if err := c.Validate(); err != nil {
		return GridCell{}, err
	}
	x, y := projection.forward(c.Lat, c.Lon)
	if !finite(x) || !finite(y) {
		return GridCell{}, fmt.Errorf("%w: %s has no grid cell", ErrOutsideRegion, c)
	}
	cell := GridCell{X: int(x), Y: int(y)}
	if !cell.InRegion() {
		return GridCell{}, fmt.Errorf("%w: %s maps to %s", ErrOutsideRegion, c, cell)
	}
	return cell, nil
}

// forward returns the floored grid axes without range checks.
func (p lcc) forward(lat, lon float64) (x, y float64) {
	const degrad = math.Pi / 180.0
	ra := math.Tan(math.Pi*0.25 + lat*degrad*0.5)
	ra = p.re * p.sf / math.Pow(ra, p.sn)
	theta := lon*degrad - p.olon
	if theta > math.Pi {
		theta -= 2.0 * math.Pi
	}
	if theta < -math.Pi {
		theta += 2.0 * math.Pi
	}
	theta *= p.sn

	x = math.Floor(ra*math.Sin(theta) + originX + 0.5)
	y = math.Floor(p.ro - ra*math.Cos(theta) + originY + 0.5)
	return x, y
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
