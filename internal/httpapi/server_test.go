package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotwo/platewatch/internal/config"
	"github.com/zerotwo/platewatch/internal/db"
	"github.com/zerotwo/platewatch/internal/models"
	"github.com/zerotwo/platewatch/internal/publish"
)

type fakeStore struct {
	verifications []models.VerificationEntry
	roster        []models.RosterEntry
	addErr        error
}

func (f *fakeStore) ListVerifications(_ context.Context, limit int) ([]models.VerificationEntry, error) {
	if limit > len(f.verifications) {
		limit = len(f.verifications)
	}
	return f.verifications[:limit], nil
}

func (f *fakeStore) ListRoster(context.Context) ([]models.RosterEntry, error) {
	return f.roster, nil
}

func (f *fakeStore) AddRosterEntry(_ context.Context, entry models.RosterEntry) (models.RosterEntry, error) {
	if f.addErr != nil {
		return entry, f.addErr
	}
	entry.ID = int64(len(f.roster) + 1)
	f.roster = append(f.roster, entry)
	return entry, nil
}

func (f *fakeStore) DeleteRosterEntry(_ context.Context, holderID string) (bool, error) {
	for i, e := range f.roster {
		if e.HolderID == holderID {
			f.roster = append(f.roster[:i], f.roster[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type testServer struct {
	srv      *Server
	store    *fakeStore
	snapshot *publish.Snapshot
	flagged  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	flagged := t.TempDir()
	store := &fakeStore{}
	snapshot := &publish.Snapshot{Path: filepath.Join(t.TempDir(), "latest_sensor.json")}
	cfg := config.Config{FlaggedDir: flagged, ListLimit: 100, Port: 8080}

	return &testServer{
		srv:      New(cfg, store, snapshot),
		store:    store,
		snapshot: snapshot,
		flagged:  flagged,
	}
}

func (ts *testServer) do(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRealtimeNow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/realtime/now", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no snapshot published yet")

	temp := 98.6
	require.NoError(t, ts.snapshot.Publish(models.TelemetryFrame{
		Distance:    8.5,
		Temperature: &temp,
		ObservedAt:  time.Now().UTC(),
	}))

	w = ts.do(http.MethodGet, "/api/v1/realtime/now", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.SensorSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Distance)
	assert.Equal(t, 8.5, *resp.Data.Distance)
	assert.Nil(t, resp.Data.Battery)
}

func TestListVerifications(t *testing.T) {
	ts := newTestServer(t)
	ts.store.verifications = []models.VerificationEntry{
		{ID: 2, ScannedPlate: "ZZZ999", MatchFound: false},
		{ID: 1, ScannedPlate: "ABC123", MatchFound: true},
	}

	w := ts.do(http.MethodGet, "/api/v1/verifications?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []models.VerificationEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ZZZ999", resp.Data[0].ScannedPlate)

	w = ts.do(http.MethodGet, "/api/v1/verifications?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRosterLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/v1/roster", `{"holder_id":"S-1001","name":"Dana Whitmore"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "plate is required")

	w = ts.do(http.MethodPost, "/api/v1/roster",
		`{"holder_id":"S-1001","name":"Dana Whitmore","vehicle_color":"Silver","plate":"ABC123"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/roster", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.RosterEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ABC123", resp.Data[0].Plate)

	w = ts.do(http.MethodDelete, "/api/v1/roster/S-1001", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodDelete, "/api/v1/roster/S-1001", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRosterDuplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.store.addErr = db.ErrDuplicate

	w := ts.do(http.MethodPost, "/api/v1/roster",
		`{"holder_id":"S-1001","name":"Dana Whitmore","plate":"ABC123"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListFlagged(t *testing.T) {
	ts := newTestServer(t)

	names := []string{
		"capture_20260825_110000_aa.jpg",
		"capture_20260825_120000_bb.jpg",
		"capture_20260825_090000_cc.jpg",
	}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(ts.flagged, name), []byte("img"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(ts.flagged, "notes.txt"), []byte("skip"), 0o644))

	w := ts.do(http.MethodGet, "/api/v1/flagged?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "capture_20260825_120000_bb.jpg", resp.Data[0])
	assert.Equal(t, "capture_20260825_110000_aa.jpg", resp.Data[1])
}

func TestBearerAuth(t *testing.T) {
	flagged := t.TempDir()
	cfg := config.Config{FlaggedDir: flagged, ListLimit: 100, Port: 8080, BearerToken: "sekrit"}
	srv := New(cfg, &fakeStore{}, &publish.Snapshot{Path: filepath.Join(t.TempDir(), "s.json")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/roster", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
