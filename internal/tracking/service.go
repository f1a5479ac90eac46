package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/AutoMind-2527/Backend/internal/geo"
	"github.com/AutoMind-2527/Backend/internal/lock"
	"github.com/AutoMind-2527/Backend/internal/trip"
	"github.com/AutoMind-2527/Backend/internal/vehicle"
)

var (
	ErrInvalidState = errors.New("tracking state invalid")
	ErrOutOfOrder   = errors.New("ping older than last recorded point")
)

const (
	DefaultInactivityThreshold = 30 * time.Second
	DefaultConsumption         = 7.0
	DefaultFuelPricePerLiter   = 1.6
	DefaultIngestTimeout       = 15 * time.Second
)

type Options struct {
	InactivityThreshold time.Duration
	// DefaultConsumption is used for previews and for vehicles without a
	// recorded consumption rate, in liters per 100 km.
	DefaultConsumption float64
	FuelPricePerLiter  float64
	// IngestTimeout bounds lock wait plus transaction for one ping.
	IngestTimeout time.Duration
}

// Publisher receives committed events. *stream.Hub implements it.
type Publisher interface {
	Broadcast(vehicleID string, payload []byte)
}

// Service is the trip segmentation engine. Every ping is handled under the
// vehicle's lock and inside one repository transaction.
type Service struct {
	repo      Repository
	locker    lock.Locker
	publisher Publisher
	opts      Options
	now       func() time.Time
}

func NewService(repo Repository, locker lock.Locker, publisher Publisher, opts Options) *Service {
	if opts.InactivityThreshold <= 0 {
		opts.InactivityThreshold = DefaultInactivityThreshold
	}
	if opts.DefaultConsumption <= 0 {
		opts.DefaultConsumption = DefaultConsumption
	}
	if opts.FuelPricePerLiter <= 0 {
		opts.FuelPricePerLiter = DefaultFuelPricePerLiter
	}
	if opts.IngestTimeout <= 0 {
		opts.IngestTimeout = DefaultIngestTimeout
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Service{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// Ingest records one ping: it closes the vehicle's open trip when the gap to
// the previous point exceeds the inactivity threshold, opens a trip when none
// is open, refreshes the open trip's end location and stores the point.
func (s *Service) Ingest(ctx context.Context, p Ping) (Result, error) {
	now := s.now().UTC()
	if p.Timestamp != nil {
		now = p.Timestamp.UTC()
	}

	res, err := s.ingestLocked(ctx, p, now)
	if err != nil {
		return Result{}, err
	}

	// published after the lock is released, so events of one vehicle from
	// concurrent requests may interleave
	s.publish(res)
	return res, nil
}

func (s *Service) ingestLocked(ctx context.Context, p Ping, now time.Time) (Result, error) {
	unlock, err := s.locker.Lock(ctx, strconv.FormatInt(p.VehicleID, 10))
	if err != nil {
		return Result{}, fmt.Errorf("vehicle %d: %w", p.VehicleID, err)
	}
	defer unlock()

	var res Result
	err = s.repo.InTx(ctx, func(st Store) error {
		res = Result{}

		v, err := st.FindVehicle(ctx, p.VehicleID)
		if err != nil {
			return err
		}

		last, hasLast, err := st.FindLastPoint(ctx, v.ID)
		if err != nil {
			return err
		}
		if hasLast && now.Before(last.Timestamp) {
			return fmt.Errorf("vehicle %d: ping at %s, last point at %s: %w",
				v.ID, now.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339), ErrOutOfOrder)
		}

		open, hasOpen, err := st.FindOpenTrip(ctx, v.ID)
		if errors.Is(err, trip.ErrMultipleOpenTrips) {
			log.Printf("tracking: invariant violated: %v", err)
			return fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		if err != nil {
			return err
		}

		if hasOpen && hasLast && now.Sub(last.Timestamp) > s.opts.InactivityThreshold {
			closed, err := s.closeTrip(ctx, st, v, open, now)
			if err != nil {
				return err
			}
			res.ClosedTrip = &closed
			hasOpen = false
		}

		label := geo.Label(p.Lat, p.Lon)
		if !hasOpen {
			open = trip.Trip{
				VehicleID:     v.ID,
				UserID:        v.UserID,
				StartTime:     now,
				StartLocation: label,
				EndLocation:   label,
			}
			if err := st.InsertTrip(ctx, &open); err != nil {
				return err
			}
			res.OpenedTrip = true
		}

		if err := st.UpdateEndLocation(ctx, open.ID, label); err != nil {
			return err
		}

		tripID := open.ID
		point := trip.GpsPoint{
			VehicleID: v.ID,
			Latitude:  p.Lat,
			Longitude: p.Lon,
			SpeedKmh:  p.SpeedKmh,
			Timestamp: now,
			TripID:    &tripID,
		}
		if err := st.InsertPoint(ctx, &point); err != nil {
			return err
		}
		res.Point = point
		res.TripID = tripID
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) closeTrip(ctx context.Context, st Store, v vehicle.Vehicle, t trip.Trip, now time.Time) (trip.Trip, error) {
	points, err := st.PointsForTrip(ctx, t.ID)
	if err != nil {
		return trip.Trip{}, err
	}
	closed := Close(t, points, s.consumptionFor(v), s.opts.FuelPricePerLiter, now)
	if err := st.UpdateTrip(ctx, closed); err != nil {
		return trip.Trip{}, err
	}
	if err := st.IncrementOdometer(ctx, v.ID, closed.DistanceKm); err != nil {
		return trip.Trip{}, err
	}
	return closed, nil
}

func (s *Service) consumptionFor(v vehicle.Vehicle) float64 {
	if v.FuelConsumption > 0 {
		return v.FuelConsumption
	}
	return s.opts.DefaultConsumption
}

// Preview estimates a straight-line trip with the default rates. Nothing is
// stored.
func (s *Service) Preview(req PreviewRequest) Preview {
	distance := geo.HaversineKm(req.StartLat, req.StartLon, req.EndLat, req.EndLon)
	fuel := FuelUsed(distance, s.opts.DefaultConsumption)
	return Preview{
		VehicleID:      req.VehicleID,
		StartLat:       req.StartLat,
		StartLon:       req.StartLon,
		EndLat:         req.EndLat,
		EndLon:         req.EndLon,
		DistanceKm:     distance,
		FuelUsedLiters: fuel,
		FuelCost:       fuel * s.opts.FuelPricePerLiter,
	}
}

func (s *Service) ListPoints(ctx context.Context) ([]trip.GpsPoint, error) {
	return s.repo.AllPoints(ctx)
}

func (s *Service) publish(res Result) {
	if s.publisher == nil {
		return
	}
	vehicleID := res.Point.VehicleID
	channel := strconv.FormatInt(vehicleID, 10)

	if res.ClosedTrip != nil {
		s.send(channel, Event{Type: EventTripClosed, VehicleID: vehicleID, TripID: res.ClosedTrip.ID, Trip: res.ClosedTrip})
	}
	point := res.Point
	s.send(channel, Event{Type: EventPing, VehicleID: vehicleID, TripID: res.TripID, Point: &point})
}

func (s *Service) send(channel string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("tracking: encode %s event: %v", ev.Type, err)
		return
	}
	s.publisher.Broadcast(channel, payload)
}
