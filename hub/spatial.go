package hub

import (
	"strconv"
	"strings"
)

// BoundingBoxWKT renders a bounding box as a closed WKT polygon. It returns
// "" unless all four coordinates parse as numbers.
func BoundingBoxWKT(west, east, north, south string) string {
	w, okW := coordinate(west)
	e, okE := coordinate(east)
	n, okN := coordinate(north)
	s, okS := coordinate(south)
	if !okW || !okE || !okN || !okS {
		return ""
	}
	return "POLYGON((" + w + " " + s + "," + w + " " + n + "," + e + " " + n + "," + e + " " + s + "," + w + " " + s + "))"
}

// PointWKT renders a longitude/latitude pair as a WKT point.
func PointWKT(lon, lat string) string {
	x, okX := coordinate(lon)
	y, okY := coordinate(lat)
	if !okX || !okY {
		return ""
	}
	return "POINT(" + x + " " + y + ")"
}

func coordinate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "", false
	}
	return s, true
}
