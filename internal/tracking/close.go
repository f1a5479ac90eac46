package tracking

import (
	"time"

	"github.com/AutoMind-2527/Backend/internal/geo"
	"github.com/AutoMind-2527/Backend/internal/trip"
)

// Close finalizes t from its points, which must be in ascending timestamp
// order. now is only used as the end time when there are no points.
func Close(t trip.Trip, points []trip.GpsPoint, consumptionPer100Km, pricePerLiter float64, now time.Time) trip.Trip {
	t.DistanceKm = 0
	t.MaxSpeedKmh = 0
	t.FuelUsedLiters = 0
	t.FuelCost = 0

	switch len(points) {
	case 0:
		end := now
		t.EndTime = &end
		return t
	case 1:
		p := points[0]
		end := p.Timestamp
		t.StartTime = p.Timestamp
		t.EndTime = &end
		t.MaxSpeedKmh = reportedSpeed(p)
		label := geo.Label(p.Latitude, p.Longitude)
		t.StartLocation = label
		t.EndLocation = label
		return t
	}

	path := make([]geo.Point, len(points))
	for i, p := range points {
		path[i] = geo.Point{Lat: p.Latitude, Lon: p.Longitude, Time: p.Timestamp, SpeedKmh: reportedSpeed(p)}
	}

	first, last := points[0], points[len(points)-1]
	end := last.Timestamp
	t.StartTime = first.Timestamp
	t.EndTime = &end
	t.StartLocation = geo.Label(first.Latitude, first.Longitude)
	t.EndLocation = geo.Label(last.Latitude, last.Longitude)
	t.DistanceKm = geo.TotalDistanceKm(path)
	t.MaxSpeedKmh = geo.MaxSpeedKmh(path)
	t.FuelUsedLiters = FuelUsed(t.DistanceKm, consumptionPer100Km)
	t.FuelCost = t.FuelUsedLiters * pricePerLiter
	return t
}

func FuelUsed(distanceKm, consumptionPer100Km float64) float64 {
	return distanceKm * consumptionPer100Km / 100
}

func reportedSpeed(p trip.GpsPoint) float64 {
	if p.SpeedKmh == nil || *p.SpeedKmh < 0 {
		return 0
	}
	return *p.SpeedKmh
}
