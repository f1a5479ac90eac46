package trip

import (
	"context"
	"errors"
	"fmt"

	"github.com/AutoMind-2527/Backend/internal/db"
	"github.com/AutoMind-2527/Backend/internal/vehicle"
)

var ErrInvalidTrip = errors.New("invalid trip")

type Service struct {
	store    *Store
	vehicles *vehicle.Store
}

func NewService(db db.Querier) *Service {
	return &Service{store: NewStore(db), vehicles: vehicle.NewStore(db)}
}

// GetWithPoints loads a trip together with its GPS points.
func (s *Service) GetWithPoints(ctx context.Context, id int64) (Trip, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Trip{}, err
	}
	points, err := s.store.PointsForTrip(ctx, id)
	if err != nil {
		return Trip{}, err
	}
	t.Points = points
	return t, nil
}

// Create stores a manually logged trip for a vehicle the caller owns, or any
// vehicle for an admin. The trip is closed from the start and belongs to the
// vehicle's owner.
func (s *Service) Create(ctx context.Context, callerID int64, isAdmin bool, req CreateRequest) (Trip, error) {
	if err := validateCreate(req); err != nil {
		return Trip{}, err
	}

	v, err := s.vehicles.Find(ctx, req.VehicleID)
	if err != nil {
		return Trip{}, err
	}
	if !isAdmin && v.UserID != callerID {
		return Trip{}, fmt.Errorf("vehicle %d: %w", req.VehicleID, vehicle.ErrNotFound)
	}

	end := req.EndTime
	t := Trip{
		VehicleID:     v.ID,
		UserID:        v.UserID,
		StartTime:     req.StartTime,
		EndTime:       &end,
		StartLocation: req.StartLocation,
		EndLocation:   req.EndLocation,
		DistanceKm:    req.DistanceKm,
	}
	if err := s.store.InsertTrip(ctx, &t); err != nil {
		return Trip{}, err
	}
	return t, nil
}

// Delete removes a trip the caller owns. Admins may delete any trip.
func (s *Service) Delete(ctx context.Context, callerID int64, isAdmin bool, id int64) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !isAdmin && t.UserID != callerID {
		return fmt.Errorf("trip %d: %w", id, ErrNotFound)
	}
	return s.store.Delete(ctx, id)
}

func validateCreate(req CreateRequest) error {
	switch {
	case req.VehicleID <= 0:
		return fmt.Errorf("%w: vehicle_id required", ErrInvalidTrip)
	case req.StartTime.IsZero() || req.EndTime.IsZero():
		return fmt.Errorf("%w: start_time and end_time required", ErrInvalidTrip)
	case req.EndTime.Before(req.StartTime):
		return fmt.Errorf("%w: end_time before start_time", ErrInvalidTrip)
	case req.DistanceKm < 0:
		return fmt.Errorf("%w: distance_km must not be negative", ErrInvalidTrip)
	}
	return nil
}
