package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/AutoMind-2527/Backend/internal/lock"
	"github.com/AutoMind-2527/Backend/internal/trip"
	"github.com/AutoMind-2527/Backend/internal/vehicle"
)

var errInjected = errors.New("injected store failure")

type memState struct {
	vehicles  map[int64]vehicle.Vehicle
	trips     []trip.Trip
	points    []trip.GpsPoint
	nextTrip  int64
	nextPoint int64
}

func (s memState) clone() memState {
	c := memState{
		vehicles:  make(map[int64]vehicle.Vehicle, len(s.vehicles)),
		trips:     append([]trip.Trip(nil), s.trips...),
		points:    append([]trip.GpsPoint(nil), s.points...),
		nextTrip:  s.nextTrip,
		nextPoint: s.nextPoint,
	}
	for id, v := range s.vehicles {
		c.vehicles[id] = v
	}
	return c
}

// memRepo is an in-memory Repository. Operations hit shared state one at a
// time; a failed transaction restores the snapshot taken when it began, so
// rollback tests must not run concurrently with other writers.
type memRepo struct {
	mu     sync.Mutex
	state  memState
	failOn string
}

func newMemRepo(vehicles ...vehicle.Vehicle) *memRepo {
	r := &memRepo{state: memState{vehicles: map[int64]vehicle.Vehicle{}}}
	for _, v := range vehicles {
		r.state.vehicles[v.ID] = v
	}
	return r
}

func (r *memRepo) InTx(ctx context.Context, fn func(Store) error) error {
	r.mu.Lock()
	snapshot := r.state.clone()
	r.mu.Unlock()

	if err := fn(&memStore{repo: r}); err != nil {
		r.mu.Lock()
		r.state = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) AllPoints(ctx context.Context) ([]trip.GpsPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	points := append([]trip.GpsPoint{}, r.state.points...)
	sortPoints(points)
	return points, nil
}

func (r *memRepo) vehicle(id int64) vehicle.Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.vehicles[id]
}

func (r *memRepo) tripsFor(vehicleID int64) []trip.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []trip.Trip
	for _, t := range r.state.trips {
		if t.VehicleID == vehicleID {
			out = append(out, t)
		}
	}
	return out
}

func (r *memRepo) openTrips(vehicleID int64) int {
	n := 0
	for _, t := range r.tripsFor(vehicleID) {
		if t.IsOpen() {
			n++
		}
	}
	return n
}

func (r *memRepo) pointsFor(tripID int64) []trip.GpsPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []trip.GpsPoint
	for _, p := range r.state.points {
		if p.TripID != nil && *p.TripID == tripID {
			out = append(out, p)
		}
	}
	sortPoints(out)
	return out
}

func (r *memRepo) seedTrip(t trip.Trip) trip.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.nextTrip++
	t.ID = r.state.nextTrip
	r.state.trips = append(r.state.trips, t)
	return t
}

type memStore struct {
	repo *memRepo
}

func (s *memStore) fail(op string) error {
	if s.repo.failOn == op {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

func (s *memStore) FindVehicle(ctx context.Context, id int64) (vehicle.Vehicle, error) {
	if err := s.fail("FindVehicle"); err != nil {
		return vehicle.Vehicle{}, err
	}
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	v, ok := s.repo.state.vehicles[id]
	if !ok {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, vehicle.ErrNotFound)
	}
	return v, nil
}

func (s *memStore) IncrementOdometer(ctx context.Context, vehicleID int64, deltaKm float64) error {
	if err := s.fail("IncrementOdometer"); err != nil {
		return err
	}
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	v, ok := s.repo.state.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("vehicle %d: %w", vehicleID, vehicle.ErrNotFound)
	}
	v.MileageKm += deltaKm
	s.repo.state.vehicles[vehicleID] = v
	return nil
}

func (s *memStore) FindLastPoint(ctx context.Context, vehicleID int64) (trip.GpsPoint, bool, error) {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	var (
		last  trip.GpsPoint
		found bool
	)
	for _, p := range s.repo.state.points {
		if p.VehicleID != vehicleID {
			continue
		}
		if !found || p.Timestamp.After(last.Timestamp) || (p.Timestamp.Equal(last.Timestamp) && p.ID > last.ID) {
			last, found = p, true
		}
	}
	return last, found, nil
}

func (s *memStore) FindOpenTrip(ctx context.Context, vehicleID int64) (trip.Trip, bool, error) {
	// widen the window between the read and the following insert
	runtime.Gosched()
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	var open []trip.Trip
	for _, t := range s.repo.state.trips {
		if t.VehicleID == vehicleID && t.IsOpen() {
			open = append(open, t)
		}
	}
	switch len(open) {
	case 0:
		return trip.Trip{}, false, nil
	case 1:
		return open[0], true, nil
	default:
		return trip.Trip{}, false, fmt.Errorf("vehicle %d: %w", vehicleID, trip.ErrMultipleOpenTrips)
	}
}

func (s *memStore) InsertTrip(ctx context.Context, t *trip.Trip) error {
	if err := s.fail("InsertTrip"); err != nil {
		return err
	}
	runtime.Gosched()
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	s.repo.state.nextTrip++
	t.ID = s.repo.state.nextTrip
	s.repo.state.trips = append(s.repo.state.trips, *t)
	return nil
}

func (s *memStore) UpdateTrip(ctx context.Context, t trip.Trip) error {
	if err := s.fail("UpdateTrip"); err != nil {
		return err
	}
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	for i := range s.repo.state.trips {
		if s.repo.state.trips[i].ID == t.ID {
			t.Points = nil
			s.repo.state.trips[i] = t
			return nil
		}
	}
	return fmt.Errorf("trip %d: %w", t.ID, trip.ErrNotFound)
}

func (s *memStore) UpdateEndLocation(ctx context.Context, tripID int64, label string) error {
	if err := s.fail("UpdateEndLocation"); err != nil {
		return err
	}
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	for i := range s.repo.state.trips {
		if s.repo.state.trips[i].ID == tripID {
			s.repo.state.trips[i].EndLocation = label
			return nil
		}
	}
	return fmt.Errorf("trip %d: %w", tripID, trip.ErrNotFound)
}

func (s *memStore) InsertPoint(ctx context.Context, p *trip.GpsPoint) error {
	if err := s.fail("InsertPoint"); err != nil {
		return err
	}
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	s.repo.state.nextPoint++
	p.ID = s.repo.state.nextPoint
	s.repo.state.points = append(s.repo.state.points, *p)
	return nil
}

func (s *memStore) PointsForTrip(ctx context.Context, tripID int64) ([]trip.GpsPoint, error) {
	if err := s.fail("PointsForTrip"); err != nil {
		return nil, err
	}
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	var out []trip.GpsPoint
	for _, p := range s.repo.state.points {
		if p.TripID != nil && *p.TripID == tripID {
			out = append(out, p)
		}
	}
	sortPoints(out)
	return out, nil
}

func sortPoints(points []trip.GpsPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Timestamp.Equal(points[j].Timestamp) {
			return points[i].ID < points[j].ID
		}
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	keys   []string
}

func (p *recordingPublisher) Broadcast(vehicleID string, payload []byte) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	p.keys = append(p.keys, vehicleID)
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string) (func(), error) {
	return nil, lock.ErrNotAcquired
}

// stallingLocker never grants key until the caller gives up.
type stallingLocker struct {
	inner lock.Locker
	key   string
}

func (l stallingLocker) Lock(ctx context.Context, key string) (func(), error) {
	if key == l.key {
		<-ctx.Done()
		return nil, lock.ErrNotAcquired
	}
	return l.inner.Lock(ctx, key)
}

// watchedLocker reports whether any lock is currently held.
type watchedLocker struct {
	inner lock.Locker
	held  atomic.Bool
}

func (l *watchedLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlock, err := l.inner.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	l.held.Store(true)
	return func() {
		l.held.Store(false)
		unlock()
	}, nil
}

type lockCheckingPublisher struct {
	locker   *watchedLocker
	calls    int
	whenHeld int
}

func (p *lockCheckingPublisher) Broadcast(vehicleID string, payload []byte) {
	p.calls++
	if p.locker.held.Load() {
		p.whenHeld++
	}
}
