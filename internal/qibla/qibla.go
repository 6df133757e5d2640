// Package qibla computes the prayer direction towards the Kaaba.
package qibla

import (
	"errors"
	"fmt"
	"math"
)

const (
	KaabaLatitude  = 21.4225
	KaabaLongitude = 39.8262
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Bearing returns the initial great-circle bearing from (lat, lng) to the
// Kaaba in degrees clockwise from true north, in [0, 360).
func Bearing(lat, lng float64) (float64, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return 0, fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, lng)
	}

	phi := radians(lat)
	phiK := radians(KaabaLatitude)
	dLon := radians(KaabaLongitude - lng)

	y := math.Sin(dLon)
	x := math.Cos(phi)*math.Tan(phiK) - math.Sin(phi)*math.Cos(dLon)

	deg := math.Mod(degrees(math.Atan2(y, x))+360, 360)
	return deg, nil
}

// Compass names the 16-wind point closest to deg. Any finite angle is
// accepted and wrapped into [0, 360).
func Compass(deg float64) string {
	points := [...]string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	norm := math.Mod(math.Mod(deg, 360)+360+11.25, 360)
	i := int(norm / 22.5)
	return points[i%len(points)]
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
