// Package geo holds the great-circle math used for trip metrics.
package geo

import (
	"math"
	"strconv"
	"time"
)

const EarthRadiusKm = 6371.0

// Point is a timestamped position with the speed reported by the device,
// 0 when the device did not report one.
type Point struct {
	Lat      float64
	Lon      float64
	Time     time.Time
	SpeedKmh float64
}

// HaversineKm returns the great-circle distance in kilometres between two
// coordinates given in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// SegmentSpeedKmh is the speed implied by moving from a to b. Pairs without
// positive elapsed time yield 0.
func SegmentSpeedKmh(a, b Point) float64 {
	hours := b.Time.Sub(a.Time).Hours()
	if hours <= 0 {
		return 0
	}
	return HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon) / hours
}

// TotalDistanceKm sums the distance between consecutive points.
func TotalDistanceKm(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}
	return total
}

// MaxSpeedKmh is the larger of the highest reported speed and the highest
// speed implied by consecutive positions.
func MaxSpeedKmh(points []Point) float64 {
	maxSpeed := 0.0
	for i, p := range points {
		if p.SpeedKmh > maxSpeed {
			maxSpeed = p.SpeedKmh
		}
		if i == 0 {
			continue
		}
		if v := SegmentSpeedKmh(points[i-1], p); v > maxSpeed {
			maxSpeed = v
		}
	}
	return maxSpeed
}

// Label renders a coordinate pair as "lat,lon".
func Label(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
