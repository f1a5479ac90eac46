package vehicle

import (
	"context"

	"github.com/AutoMind-2527/Backend/internal/db"
)

type Service struct {
	store      *Store
	intervalKm float64
	windowKm   float64
}

func NewService(db db.Querier, intervalKm, windowKm float64) *Service {
	return &Service{store: NewStore(db), intervalKm: intervalKm, windowKm: windowKm}
}

func (s *Service) Get(ctx context.Context, id int64) (Vehicle, error) {
	return s.store.Find(ctx, id)
}

func (s *Service) ServiceStatus(ctx context.Context, id int64) (Vehicle, ServiceStatus, error) {
	v, err := s.store.Find(ctx, id)
	if err != nil {
		return Vehicle{}, ServiceStatus{}, err
	}
	return v, ServiceStatus{
		VehicleID:    v.ID,
		MileageKm:    v.MileageKm,
		NeedsService: NeedsService(v.MileageKm, s.intervalKm, s.windowKm),
	}, nil
}
