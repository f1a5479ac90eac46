package tracking

import (
	"time"

	"github.com/AutoMind-2527/Backend/internal/trip"
)

// Ping is one location sample reported for a vehicle. A nil Timestamp means
// "now"; a nil SpeedKmh means the device did not report a speed.
type Ping struct {
	VehicleID int64      `json:"vehicle_id"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	SpeedKmh  *float64   `json:"speed_kmh,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Result describes what one ingested ping did to the vehicle's trips.
type Result struct {
	Point      trip.GpsPoint `json:"point"`
	TripID     int64         `json:"trip_id"`
	OpenedTrip bool          `json:"opened_trip"`
	ClosedTrip *trip.Trip    `json:"closed_trip,omitempty"`
}

type PreviewRequest struct {
	VehicleID int64   `json:"vehicle_id" query:"vehicle_id"`
	StartLat  float64 `json:"start_lat" query:"start_lat"`
	StartLon  float64 `json:"start_lon" query:"start_lon"`
	EndLat    float64 `json:"end_lat" query:"end_lat"`
	EndLon    float64 `json:"end_lon" query:"end_lon"`
}

type Preview struct {
	VehicleID      int64   `json:"vehicle_id"`
	StartLat       float64 `json:"start_lat"`
	StartLon       float64 `json:"start_lon"`
	EndLat         float64 `json:"end_lat"`
	EndLon         float64 `json:"end_lon"`
	DistanceKm     float64 `json:"distance_km"`
	FuelUsedLiters float64 `json:"fuel_used_liters"`
	FuelCost       float64 `json:"fuel_cost"`
}

type FeedResult struct {
	Ingested int      `json:"ingested"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

const (
	EventPing       = "ping"
	EventTripClosed = "trip_closed"
)

// Event is what the live stream receives after a committed ingestion.
type Event struct {
	Type      string         `json:"type"`
	VehicleID int64          `json:"vehicle_id"`
	TripID    int64          `json:"trip_id,omitempty"`
	Point     *trip.GpsPoint `json:"point,omitempty"`
	Trip      *trip.Trip     `json:"trip,omitempty"`
}
