package service

import (
	"math"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

const earthRadiusMeters = 6371000

// contains reports whether p lies inside the region. Circle boundaries count
// as inside. Polygons use planar ray casting over lat/lon, which is accurate
// for geofence-sized areas that do not straddle the antimeridian.
func contains(region *domain.GeofenceRegion, p domain.GeoPoint) (bool, error) {
	if err := region.Validate(); err != nil {
		return false, err
	}
	if region.Circle != nil {
		c := region.Circle.Center
		return haversine(p.Lat, p.Lon, c.Lat, c.Lon) <= region.Circle.RadiusMeters, nil
	}
	return pointInPolygon(p, region.Polygon), nil
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func pointInPolygon(p domain.GeoPoint, polygon []domain.GeoPoint) bool {
	inside := false
	j := len(polygon) - 1
	for i := range polygon {
		yi, xi := polygon[i].Lat, polygon[i].Lon
		yj, xj := polygon[j].Lat, polygon[j].Lon
		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lon < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
