package vehicle

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/AutoMind-2527/Backend/internal/db"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("vehicle not found")

const selectVehicle = `
	SELECT id, user_id, license_plate, brand, model, mileage_km, fuel_consumption
	FROM vehicles WHERE id=$1`

// Store is the vehicle registry. It runs against whatever Querier it is
// given, so the same code serves a pool and an open transaction.
type Store struct {
	db db.Querier
}

func NewStore(db db.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Find(ctx context.Context, id int64) (Vehicle, error) {
	return s.find(ctx, selectVehicle, id)
}

// FindForUpdate loads the vehicle and row-locks it until the surrounding
// transaction ends, serializing writers for that vehicle.
func (s *Store) FindForUpdate(ctx context.Context, id int64) (Vehicle, error) {
	return s.find(ctx, selectVehicle+` FOR UPDATE`, id)
}

func (s *Store) find(ctx context.Context, query string, id int64) (Vehicle, error) {
	var v Vehicle
	err := s.db.QueryRow(ctx, query, id).
		Scan(&v.ID, &v.UserID, &v.LicensePlate, &v.Brand, &v.Model, &v.MileageKm, &v.FuelConsumption)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vehicle{}, fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Vehicle{}, err
	}
	return v, nil
}

func (s *Store) IncrementOdometer(ctx context.Context, id int64, deltaKm float64) error {
	tag, err := s.db.Exec(ctx, `UPDATE vehicles SET mileage_km = mileage_km + $2 WHERE id=$1`, id, deltaKm)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	return nil
}

// NeedsService reports whether mileage sits within windowKm past a multiple
// of intervalKm.
func NeedsService(mileageKm, intervalKm, windowKm float64) bool {
	if intervalKm <= 0 || mileageKm < intervalKm {
		return false
	}
	return math.Mod(mileageKm, intervalKm) <= windowKm
}
