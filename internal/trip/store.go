package trip

import (
	"context"
	"errors"
	"fmt"

	"github.com/AutoMind-2527/Backend/internal/db"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound          = errors.New("trip not found")
	ErrMultipleOpenTrips = errors.New("more than one open trip")
)

const (
	tripColumns  = `id, vehicle_id, user_id, start_time, end_time, start_location, end_location, distance_km, max_speed_kmh, fuel_used_liters, fuel_cost`
	pointColumns = `id, vehicle_id, latitude, longitude, speed_kmh, recorded_at, trip_id`
)

// Store persists trips and GPS points. Like the vehicle registry it accepts
// any Querier so it can run inside the caller's transaction.
type Store struct {
	db db.Querier
}

func NewStore(db db.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id int64) (Trip, error) {
	t, err := scanTrip(s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, fmt.Errorf("trip %d: %w", id, ErrNotFound)
	}
	return t, err
}

// FindOpenTrip returns the vehicle's trip without an end time, if any.
// Finding two is reported as ErrMultipleOpenTrips.
func (s *Store) FindOpenTrip(ctx context.Context, vehicleID int64) (Trip, bool, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE vehicle_id=$1 AND end_time IS NULL
		ORDER BY start_time
		LIMIT 2
	`, vehicleID)
	if err != nil {
		return Trip{}, false, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return Trip{}, false, err
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return Trip{}, false, err
	}

	switch len(trips) {
	case 0:
		return Trip{}, false, nil
	case 1:
		return trips[0], true, nil
	default:
		return Trip{}, false, fmt.Errorf("vehicle %d: %w", vehicleID, ErrMultipleOpenTrips)
	}
}

func (s *Store) InsertTrip(ctx context.Context, t *Trip) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO trips (vehicle_id, user_id, start_time, end_time, start_location, end_location, distance_km, max_speed_kmh, fuel_used_liters, fuel_cost)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, t.VehicleID, t.UserID, t.StartTime, t.EndTime, t.StartLocation, t.EndLocation,
		t.DistanceKm, t.MaxSpeedKmh, t.FuelUsedLiters, t.FuelCost).Scan(&t.ID)
}

func (s *Store) UpdateTrip(ctx context.Context, t Trip) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET start_time=$2, end_time=$3, start_location=$4, end_location=$5,
		    distance_km=$6, max_speed_kmh=$7, fuel_used_liters=$8, fuel_cost=$9
		WHERE id=$1
	`, t.ID, t.StartTime, t.EndTime, t.StartLocation, t.EndLocation,
		t.DistanceKm, t.MaxSpeedKmh, t.FuelUsedLiters, t.FuelCost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateEndLocation(ctx context.Context, tripID int64, label string) error {
	tag, err := s.db.Exec(ctx, `UPDATE trips SET end_location=$2 WHERE id=$1`, tripID, label)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %d: %w", tripID, ErrNotFound)
	}
	return nil
}

// Delete removes the trip together with its GPS points.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `
		WITH removed_points AS (DELETE FROM gps_points WHERE trip_id=$1)
		DELETE FROM trips WHERE id=$1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %d: %w", id, ErrNotFound)
	}
	return nil
}

// FindLastPoint returns the vehicle's most recent point, if any.
func (s *Store) FindLastPoint(ctx context.Context, vehicleID int64) (GpsPoint, bool, error) {
	p, err := scanPoint(s.db.QueryRow(ctx, `
		SELECT `+pointColumns+`
		FROM gps_points
		WHERE vehicle_id=$1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`, vehicleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return GpsPoint{}, false, nil
	}
	if err != nil {
		return GpsPoint{}, false, err
	}
	return p, true, nil
}

func (s *Store) InsertPoint(ctx context.Context, p *GpsPoint) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO gps_points (vehicle_id, latitude, longitude, speed_kmh, recorded_at, trip_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, p.VehicleID, p.Latitude, p.Longitude, p.SpeedKmh, p.Timestamp, p.TripID).Scan(&p.ID)
}

// PointsForTrip returns the trip's points in ascending timestamp order.
func (s *Store) PointsForTrip(ctx context.Context, tripID int64) ([]GpsPoint, error) {
	return s.queryPoints(ctx, `
		SELECT `+pointColumns+`
		FROM gps_points
		WHERE trip_id=$1
		ORDER BY recorded_at, id
	`, tripID)
}

func (s *Store) AllPoints(ctx context.Context) ([]GpsPoint, error) {
	return s.queryPoints(ctx, `
		SELECT `+pointColumns+`
		FROM gps_points
		ORDER BY recorded_at, id
	`)
}

func (s *Store) queryPoints(ctx context.Context, query string, args ...any) ([]GpsPoint, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []GpsPoint{}
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func scanTrip(row pgx.Row) (Trip, error) {
	var t Trip
	err := row.Scan(&t.ID, &t.VehicleID, &t.UserID, &t.StartTime, &t.EndTime, &t.StartLocation, &t.EndLocation,
		&t.DistanceKm, &t.MaxSpeedKmh, &t.FuelUsedLiters, &t.FuelCost)
	return t, err
}

func scanPoint(row pgx.Row) (GpsPoint, error) {
	var p GpsPoint
	err := row.Scan(&p.ID, &p.VehicleID, &p.Latitude, &p.Longitude, &p.SpeedKmh, &p.Timestamp, &p.TripID)
	return p, err
}
