package trip

import "time"

// Trip is one driving session of a vehicle. EndTime is nil while the trip is
// open; the metric fields are final only once it is closed.
type Trip struct {
	ID             int64      `json:"id"`
	VehicleID      int64      `json:"vehicle_id"`
	UserID         int64      `json:"user_id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	StartLocation  string     `json:"start_location"`
	EndLocation    string     `json:"end_location"`
	DistanceKm     float64    `json:"distance_km"`
	MaxSpeedKmh    float64    `json:"max_speed_kmh"`
	FuelUsedLiters float64    `json:"fuel_used_liters"`
	FuelCost       float64    `json:"fuel_cost"`
	Points         []GpsPoint `json:"gps_points,omitempty"`
}

func (t Trip) IsOpen() bool {
	return t.EndTime == nil
}

// GpsPoint is one location sample reported by a vehicle.
type GpsPoint struct {
	ID        int64     `json:"id"`
	VehicleID int64     `json:"vehicle_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	SpeedKmh  *float64  `json:"speed_kmh,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TripID    *int64    `json:"trip_id,omitempty"`
}

// CreateRequest is a manually logged, already finished trip.
type CreateRequest struct {
	VehicleID     int64     `json:"vehicle_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	StartLocation string    `json:"start_location"`
	EndLocation   string    `json:"end_location"`
	DistanceKm    float64   `json:"distance_km"`
}
