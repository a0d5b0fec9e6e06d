package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusKm = 6371.0

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// ParseCoordinates accepts "lat,lng" or the WKT form "POINT(lng lat)".
func ParseCoordinates(s string) (Coordinates, error) {
	s = strings.TrimSpace(s)
	var c Coordinates

	var lon, lat float64
	if _, err := fmt.Sscanf(s, "POINT(%f %f)", &lon, &lat); err == nil {
		c = Coordinates{Latitude: lat, Longitude: lon}
		return c, c.Validate()
	}

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("failed to parse coordinates from: %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	c = Coordinates{Latitude: lat, Longitude: lng}
	return c, c.Validate()
}

func (c Coordinates) Validate() error {
	if !finite(c.Latitude) || !finite(c.Longitude) {
		return fmt.Errorf("coordinates must be finite numbers")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Longitude)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// DistanceKm is the great-circle distance between two points (haversine).
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := toRad(other.Latitude - c.Latitude)
	dLon := toRad(other.Longitude - c.Longitude)
	lat1 := toRad(c.Latitude)
	lat2 := toRad(other.Latitude)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Pow(math.Sin(dLon/2), 2)*math.Cos(lat1)*math.Cos(lat2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
