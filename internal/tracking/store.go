package tracking

import (
	"context"

	"github.com/AutoMind-2527/Backend/internal/db"
	"github.com/AutoMind-2527/Backend/internal/trip"
	"github.com/AutoMind-2527/Backend/internal/vehicle"

	"github.com/jackc/pgx/v5"
)

// Store is the set of reads and writes one ingestion performs. All calls made
// through a Store handed out by Repository.InTx belong to one transaction.
type Store interface {
	FindVehicle(ctx context.Context, id int64) (vehicle.Vehicle, error)
	IncrementOdometer(ctx context.Context, vehicleID int64, deltaKm float64) error
	FindLastPoint(ctx context.Context, vehicleID int64) (trip.GpsPoint, bool, error)
	FindOpenTrip(ctx context.Context, vehicleID int64) (trip.Trip, bool, error)
	InsertTrip(ctx context.Context, t *trip.Trip) error
	UpdateTrip(ctx context.Context, t trip.Trip) error
	UpdateEndLocation(ctx context.Context, tripID int64, label string) error
	InsertPoint(ctx context.Context, p *trip.GpsPoint) error
	PointsForTrip(ctx context.Context, tripID int64) ([]trip.GpsPoint, error)
}

type Repository interface {
	// InTx runs fn atomically: either everything fn wrote is kept or nothing.
	InTx(ctx context.Context, fn func(Store) error) error
	AllPoints(ctx context.Context) ([]trip.GpsPoint, error)
}

type PostgresRepository struct {
	db db.TxBeginner
}

func NewPostgresRepository(pool db.TxBeginner) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

func (r *PostgresRepository) InTx(ctx context.Context, fn func(Store) error) error {
	return db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(txStore{vehicles: vehicle.NewStore(tx), trips: trip.NewStore(tx)})
	})
}

func (r *PostgresRepository) AllPoints(ctx context.Context) ([]trip.GpsPoint, error) {
	return trip.NewStore(r.db).AllPoints(ctx)
}

type txStore struct {
	vehicles *vehicle.Store
	trips    *trip.Store
}

// FindVehicle row-locks the vehicle for the rest of the transaction.
func (s txStore) FindVehicle(ctx context.Context, id int64) (vehicle.Vehicle, error) {
	return s.vehicles.FindForUpdate(ctx, id)
}

func (s txStore) IncrementOdometer(ctx context.Context, vehicleID int64, deltaKm float64) error {
	return s.vehicles.IncrementOdometer(ctx, vehicleID, deltaKm)
}

func (s txStore) FindLastPoint(ctx context.Context, vehicleID int64) (trip.GpsPoint, bool, error) {
	return s.trips.FindLastPoint(ctx, vehicleID)
}

func (s txStore) FindOpenTrip(ctx context.Context, vehicleID int64) (trip.Trip, bool, error) {
	return s.trips.FindOpenTrip(ctx, vehicleID)
}

func (s txStore) InsertTrip(ctx context.Context, t *trip.Trip) error {
	return s.trips.InsertTrip(ctx, t)
}

func (s txStore) UpdateTrip(ctx context.Context, t trip.Trip) error {
	return s.trips.UpdateTrip(ctx, t)
}

func (s txStore) UpdateEndLocation(ctx context.Context, tripID int64, label string) error {
	return s.trips.UpdateEndLocation(ctx, tripID, label)
}

func (s txStore) InsertPoint(ctx context.Context, p *trip.GpsPoint) error {
	return s.trips.InsertPoint(ctx, p)
}

func (s txStore) PointsForTrip(ctx context.Context, tripID int64) ([]trip.GpsPoint, error) {
	return s.trips.PointsForTrip(ctx, tripID)
}
