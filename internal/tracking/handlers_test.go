package tracking

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/protobuf/proto"
)

func asUser(id int64, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func newTestApp(svc *Service, role string) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/gps"), svc, asUser(5, role))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	return resp
}

func TestIngestHandler(t *testing.T) {
	repo := newMemRepo(testVehicle())
	app := newTestApp(newTestService(repo, nil), "User")

	resp := postJSON(t, app, "/gps", `{"vehicle_id":1,"lat":48.3,"lon":14.28,"speed_kmh":30,"timestamp":"2024-05-01T08:00:00Z"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.TripID == 0 || !res.OpenedTrip || !res.Point.Timestamp.Equal(t0) {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestIngestHandlerErrors(t *testing.T) {
	repo := newMemRepo(testVehicle())
	svc := newTestService(repo, nil)
	app := newTestApp(svc, "User")
	mustIngest(t, svc, pingAt(1, 48.3, 14.28, t0))

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{`, http.StatusBadRequest},
		{"missing vehicle", `{"lat":48.3,"lon":14.28}`, http.StatusBadRequest},
		{"latitude", `{"vehicle_id":1,"lat":91,"lon":14.28}`, http.StatusBadRequest},
		{"longitude", `{"vehicle_id":1,"lat":48.3,"lon":-181}`, http.StatusBadRequest},
		{"speed", `{"vehicle_id":1,"lat":48.3,"lon":14.28,"speed_kmh":-1}`, http.StatusBadRequest},
		{"unknown vehicle", `{"vehicle_id":99,"lat":48.3,"lon":14.28}`, http.StatusNotFound},
		{"out of order", `{"vehicle_id":1,"lat":48.3,"lon":14.28,"timestamp":"2024-05-01T07:59:00Z"}`, http.StatusConflict},
	}
	for _, tc := range cases {
		resp := postJSON(t, app, "/gps", tc.body)
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
	}
}

func TestIngestHandlerLockAndStoreFailures(t *testing.T) {
	repo := newMemRepo(testVehicle())
	app := newTestApp(NewService(repo, failingLocker{}, nil, Options{}), "User")
	resp := postJSON(t, app, "/gps", `{"vehicle_id":1,"lat":48.3,"lon":14.28}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	repo.failOn = "InsertPoint"
	app = newTestApp(newTestService(repo, nil), "User")
	resp = postJSON(t, app, "/gps", `{"vehicle_id":1,"lat":48.3,"lon":14.28}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestListPointsHandler(t *testing.T) {
	repo := newMemRepo(testVehicle())
	svc := newTestService(repo, nil)
	mustIngest(t, svc, pingAt(1, 48.3, 14.28, t0))

	resp, err := newTestApp(svc, "User").Test(httptest.NewRequest(http.MethodGet, "/gps", nil))
	if err != nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin: %v", err)
	}

	resp, err = newTestApp(svc, "Admin").Test(httptest.NewRequest(http.MethodGet, "/gps", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin: %v", err)
	}
	var points []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil || len(points) != 1 {
		t.Fatalf("unexpected points: %v %v", points, err)
	}
}

func TestPreviewHandler(t *testing.T) {
	app := newTestApp(newTestService(newMemRepo(), nil), "User")

	resp := postJSON(t, app, "/gps/preview", `{"vehicle_id":3,"start_lat":48.0,"start_lon":14.0,"end_lat":48.1,"end_lon":14.1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var p Preview
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.VehicleID != 3 || !approx(p.DistanceKm, 13.375, 0.01) {
		t.Fatalf("unexpected preview: %+v", p)
	}

	req := httptest.NewRequest(http.MethodPost, "/gps/preview?vehicle_id=3&start_lat=48&start_lon=14&end_lat=48.1&end_lon=14.1", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("query preview: %v", err)
	}
	var q Preview
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !approx(q.DistanceKm, p.DistanceKm, 1e-9) || q.EndLat != 48.1 {
		t.Fatalf("unexpected query preview: %+v", q)
	}

	resp = postJSON(t, app, "/gps/preview", `{"start_lat":100}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestFeedHandler(t *testing.T) {
	repo := newMemRepo(testVehicle())
	app := newTestApp(newTestService(repo, nil), "User")

	body, err := proto.Marshal(testFeed(vehicleEntity("e1", "1", 48.5, 14.25, nil, uint64(t0.Unix()))))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/gps/feed/gtfsrt", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/x-protobuf")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("feed: %v", err)
	}
	var result FeedResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Ingested != 1 {
		t.Fatalf("unexpected result: %+v %v", result, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/gps/feed/gtfsrt", bytes.NewReader([]byte{0xff, 0xff}))
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for garbage feed: %v", err)
	}
}
