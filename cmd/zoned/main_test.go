package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/zonekit/internal/config"
	"github.com/udisondev/zonekit/internal/engine"
	"github.com/udisondev/zonekit/internal/feed"
	"github.com/udisondev/zonekit/internal/geo"
	"github.com/udisondev/zonekit/internal/zone"
)

// fakeStore records persistence calls so handler wiring is observable
// without a database.
type fakeStore struct {
	saved   []zone.Definition
	deleted []int32
	stored  map[int32]zone.Definition
}

func newFakeStore() *fakeStore {
	return &fakeStore{stored: make(map[int32]zone.Definition)}
}

func (f *fakeStore) Load(_ context.Context, id int32) (zone.Definition, bool, error) {
	def, ok := f.stored[id]
	return def, ok, nil
}

func (f *fakeStore) SaveAll(_ context.Context, defs []zone.Definition) error {
	f.saved = append(f.saved, defs...)
	for _, def := range defs {
		f.stored[def.ID] = def
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int32) (bool, error) {
	f.deleted = append(f.deleted, id)
	_, ok := f.stored[id]
	delete(f.stored, id)
	return ok, nil
}

func newTestMux(t *testing.T, st zoneStore) (*engine.Manager, *http.ServeMux) {
	t.Helper()
	src := engine.NewMemSource()
	mgr, err := engine.New(src, engine.Options{})
	require.NoError(t, err)
	return mgr, newMux(mgr, src, feed.NewServer(), st)
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestMux_ZoneCRUD(t *testing.T) {
	fake := newFakeStore()
	mgr, mux := newTestMux(t, fake)

	def := zone.Definition{Name: "arena", Type: zone.KindCircle, Enabled: true, X: 0, Y: 0, Radius: 25}
	rec := doJSON(t, mux, http.MethodPost, "/zones", def)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]int32
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"]
	require.NotZero(t, id)

	// Создание дошло до хранилища с выданным id.
	require.Len(t, fake.saved, 1)
	assert.Equal(t, id, fake.saved[0].ID)
	assert.Equal(t, "arena", fake.saved[0].Name)

	rec = doJSON(t, mux, http.MethodGet, "/zones/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got zone.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "arena", got.Name)

	rec = doJSON(t, mux, http.MethodDelete, "/zones/1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int32{id}, fake.deleted)
	_, ok := mgr.Zone(id)
	assert.False(t, ok)

	rec = doJSON(t, mux, http.MethodGet, "/zones/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMux_ZoneLoadedFromStoreFallback(t *testing.T) {
	fake := newFakeStore()
	// Зона лежит в хранилище, но не импортирована в движок.
	fake.stored[7] = zone.Definition{ID: 7, Name: "vault", Type: zone.KindCircle, Enabled: true, Radius: 5}
	_, mux := newTestMux(t, fake)

	rec := doJSON(t, mux, http.MethodGet, "/zones/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got zone.Definition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int32(7), got.ID)
	assert.Equal(t, "vault", got.Name)
}

func TestMux_ZoneCreateInvalid(t *testing.T) {
	fake := newFakeStore()
	_, mux := newTestMux(t, fake)

	def := zone.Definition{Name: "broken", Type: "hexagon", Enabled: true}
	rec := doJSON(t, mux, http.MethodPost, "/zones", def)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, fake.saved)
}

func TestMux_BadZoneID(t *testing.T) {
	_, mux := newTestMux(t, newFakeStore())

	rec := doJSON(t, mux, http.MethodGet, "/zones/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/zones/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMux_WithoutStore(t *testing.T) {
	mgr, mux := newTestMux(t, nil)

	def := zone.Definition{Name: "mem-only", Type: zone.KindCircle, Enabled: true, Radius: 10}
	rec := doJSON(t, mux, http.MethodPost, "/zones", def)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/zones/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := mgr.Zone(1)
	assert.False(t, ok)

	rec = doJSON(t, mux, http.MethodGet, "/zones/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMux_Positions(t *testing.T) {
	mgr, mux := newTestMux(t, nil)

	rec := doJSON(t, mux, http.MethodPost, "/positions", positionUpdate{AgentID: "a", X: 1, Y: 2, Z: 3})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"a"}, mgr.TrackedAgents())

	rec = doJSON(t, mux, http.MethodPost, "/positions", positionUpdate{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/positions/a", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, mgr.TrackedAgents())
}

func TestEngineOptions_Quadtree(t *testing.T) {
	opts := engineOptions(config.Engine{
		Index: "quadtree",
		Quadtree: config.QuadtreeConfig{
			MinX: -1000, MinY: -500, MaxX: 1000, MaxY: 500,
			Capacity: 4, MaxDepth: 6,
		},
	})

	assert.Equal(t, "quadtree", opts.Index)
	assert.Equal(t, geo.BBox{MinX: -1000, MinY: -500, MaxX: 1000, MaxY: 500}, opts.QuadtreeBounds)
	assert.Equal(t, 4, opts.QuadtreeCapacity)
	assert.Equal(t, 6, opts.QuadtreeMaxDepth)
}
