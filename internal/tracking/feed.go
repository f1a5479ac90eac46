package tracking

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// DecodeFeed parses a binary GTFS-realtime FeedMessage.
func DecodeFeed(body []byte) (*gtfs.FeedMessage, error) {
	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode gtfs-rt feed: %w", err)
	}
	return &feed, nil
}

// PingsFromFeed converts the feed's vehicle positions into pings, in feed
// order. Entities without a position or a positive numeric vehicle id are
// counted as skipped.
func PingsFromFeed(feed *gtfs.FeedMessage) ([]Ping, int) {
	if feed == nil {
		return nil, 0
	}

	pings := make([]Ping, 0, len(feed.Entity))
	skipped := 0
	for _, ent := range feed.Entity {
		if ent == nil || ent.Vehicle == nil {
			skipped++
			continue
		}
		vp := ent.Vehicle
		if vp.Vehicle == nil || vp.Position == nil {
			skipped++
			continue
		}
		id := vp.Vehicle.Id
		if id == nil || *id == "" {
			skipped++
			continue
		}
		vehicleID, err := strconv.ParseInt(*id, 10, 64)
		if err != nil || vehicleID <= 0 {
			skipped++
			continue
		}
		lat := vp.Position.Latitude
		lon := vp.Position.Longitude
		if lat == nil || lon == nil {
			skipped++
			continue
		}

		ping := Ping{
			VehicleID: vehicleID,
			Lat:       float64(*lat),
			Lon:       float64(*lon),
		}
		if speed := vp.Position.Speed; speed != nil && *speed >= 0 {
			// m/s on the wire
			kmh := float64(*speed) * 3.6
			ping.SpeedKmh = &kmh
		}
		if ts := vp.Timestamp; ts != nil && *ts > 0 {
			if *ts > math.MaxInt64 {
				skipped++
				continue
			}
			at := time.Unix(int64(*ts), 0).UTC()
			ping.Timestamp = &at
		}
		pings = append(pings, ping)
	}
	return pings, skipped
}

// IngestFeed ingests every vehicle position of the feed, each under its own
// timeout. A failing entity is counted and logged but does not stop the rest.
func (s *Service) IngestFeed(ctx context.Context, feed *gtfs.FeedMessage) FeedResult {
	pings, skipped := PingsFromFeed(feed)
	result := FeedResult{Skipped: skipped}
	for _, p := range pings {
		if err := validatePing(p); err != nil {
			result.Skipped++
			continue
		}
		if err := s.ingestWithTimeout(ctx, p); err != nil {
			log.Printf("gtfs-rt ingest vehicle %d: %v", p.VehicleID, err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("vehicle %d: %v", p.VehicleID, err))
			continue
		}
		result.Ingested++
	}
	return result
}

func (s *Service) ingestWithTimeout(parent context.Context, p Ping) error {
	ctx, cancel := context.WithTimeout(parent, s.opts.IngestTimeout)
	defer cancel()
	_, err := s.Ingest(ctx, p)
	return err
}
