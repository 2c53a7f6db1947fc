package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philo-kim/moniterdc-sub001/internal/db"
)

const (
	parentID = "11111111-1111-4111-8111-111111111111"
	childID  = "22222222-2222-4222-8222-222222222222"
	percID   = "33333333-3333-4333-8333-333333333333"
)

type fakeStore struct {
	pingErr     error
	worldviews  []db.Worldview
	links       []db.PerceptionWorldviewLink
	clusters    []db.LogicCluster
	lastFilter  db.WorldviewFilter
	lastLinks   db.LinkFilter
	statsTopN   int
	clusterSize int
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) QueryWorldviewStats(_ context.Context, now time.Time, topN int) (*db.WorldviewStats, error) {
	f.statsTopN = topN
	return &db.WorldviewStats{GeneratedAt: now, Totals: db.StatsTotals{Worldviews: int64(len(f.worldviews))}}, nil
}

func (f *fakeStore) ListWorldviews(_ context.Context, filter db.WorldviewFilter) ([]db.Worldview, error) {
	f.lastFilter = filter
	return f.worldviews, nil
}

func (f *fakeStore) CountWorldviews(context.Context, db.WorldviewFilter) (int64, error) {
	return int64(len(f.worldviews)), nil
}

func (f *fakeStore) GetWorldview(_ context.Context, id string) (*db.Worldview, error) {
	for i := range f.worldviews {
		if f.worldviews[i].ID == id {
			return &f.worldviews[i], nil
		}
	}
	return nil, db.ErrWorldviewNotFound
}

func (f *fakeStore) ListLinks(_ context.Context, filter db.LinkFilter) ([]db.PerceptionWorldviewLink, error) {
	f.lastLinks = filter
	return f.links, nil
}

func (f *fakeStore) ListClusters(_ context.Context, limit int) ([]db.LogicCluster, error) {
	f.clusterSize = limit
	return f.clusters, nil
}

func newTestStore() *fakeStore {
	parent := parentID
	return &fakeStore{
		worldviews: []db.Worldview{
			{ID: parentID, Title: "정부 불신", Level: 1, Version: 2},
			{
				ID:                childID,
				Title:             "정부 불신 > 감시",
				Level:             2,
				Version:           2,
				ParentWorldviewID: &parent,
				Embedding:         db.NewVector([]float32{0.1, 0.2}),
				TotalPerceptions:  1,
			},
		},
		links: []db.PerceptionWorldviewLink{
			{PerceptionID: percID, WorldviewID: childID, RelevanceScore: 0.93, Method: "hierarchy"},
		},
		clusters: []db.LogicCluster{
			{ID: "c1", ClusterName: "의료 관련 논리들", Strategy: "keyword", Keywords: db.StringList{"의료"}, LogicCount: 3},
		},
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doGet(t *testing.T, store Store, target string) (int, envelope) {
	t.Helper()
	srv := NewServer(store, zerolog.Nop(), Options{})
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func TestNewServerDefaults(t *testing.T) {
	srv := NewServer(&fakeStore{}, zerolog.Nop(), Options{Host: "  "})
	assert.Equal(t, "0.0.0.0", srv.opts.Host)
	assert.Equal(t, 8090, srv.opts.Port)
	assert.Equal(t, 10*time.Second, srv.opts.ReadTimeout)
	assert.Equal(t, 30*time.Second, srv.opts.WriteTimeout)
}

func TestHealth(t *testing.T) {
	code, body := doGet(t, newTestStore(), "/api/v1/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body.Status)

	code, body = doGet(t, &fakeStore{pingErr: errors.New("down")}, "/api/v1/health")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "error", body.Status)
}

func TestStatsTopValidation(t *testing.T) {
	store := newTestStore()
	code, _ := doGet(t, store, "/api/v1/stats?top=5")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, store.statsTopN)

	code, body := doGet(t, store, "/api/v1/stats?top=abc")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "fail", body.Status)
}

func TestWorldviewsListFiltersAndPaginates(t *testing.T) {
	store := newTestStore()
	code, body := doGet(t, store, "/api/v1/worldviews?level=2&version=2&page=2&page_size=1&parent_id="+parentID)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, []int16{2}, store.lastFilter.Levels)
	assert.Equal(t, 2, store.lastFilter.Version)
	assert.Equal(t, parentID, store.lastFilter.ParentID)
	assert.Equal(t, 1, store.lastFilter.Limit)
	assert.Equal(t, 1, store.lastFilter.Offset)
	assert.False(t, store.lastFilter.IncludeArchived)

	var data struct {
		Items      []worldviewItem `json:"items"`
		Pagination struct {
			TotalItems int64 `json:"total_items"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.Items, 2)
	assert.False(t, data.Items[0].HasEmbedding)
	assert.True(t, data.Items[1].HasEmbedding)
	assert.Equal(t, int64(2), data.Pagination.TotalItems)
	assert.Equal(t, 2, data.Pagination.TotalPages)
}

func TestWorldviewsListRejectsBadParams(t *testing.T) {
	for _, target := range []string{
		"/api/v1/worldviews?level=3",
		"/api/v1/worldviews?page_size=1000",
		"/api/v1/worldviews?parent_id=nope",
	} {
		code, body := doGet(t, newTestStore(), target)
		assert.Equal(t, http.StatusBadRequest, code, target)
		assert.Equal(t, "fail", body.Status, target)
	}
}

func TestWorldviewDetail(t *testing.T) {
	store := newTestStore()
	code, body := doGet(t, store, "/api/v1/worldviews/"+childID)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, childID, store.lastLinks.WorldviewID)
	assert.Equal(t, defaultLinkLimit, store.lastLinks.Limit)

	var data struct {
		Worldview worldviewItem `json:"worldview"`
		Links     []linkItem    `json:"links"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "정부 불신 > 감시", data.Worldview.Title)
	require.Len(t, data.Links, 1)
	assert.InDelta(t, 0.93, data.Links[0].RelevanceScore, 1e-9)
}

func TestWorldviewDetailNotFound(t *testing.T) {
	code, body := doGet(t, newTestStore(), "/api/v1/worldviews/44444444-4444-4444-8444-444444444444")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Worldview not found", body.Message)

	code, _ = doGet(t, newTestStore(), "/api/v1/worldviews/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPerceptionLinks(t *testing.T) {
	store := newTestStore()
	code, _ := doGet(t, store, "/api/v1/perceptions/"+percID+"/links?method=hierarchy")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, percID, store.lastLinks.PerceptionID)
	assert.Equal(t, "hierarchy", store.lastLinks.Method)
}

func TestClusters(t *testing.T) {
	store := newTestStore()
	code, body := doGet(t, store, "/api/v1/clusters")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 50, store.clusterSize)

	var data struct {
		Items []clusterItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, "의료 관련 논리들", data.Items[0].Name)
	assert.Equal(t, 3, data.Items[0].LogicCount)
}

func TestUnknownRouteUsesJSend(t *testing.T) {
	code, body := doGet(t, newTestStore(), "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "fail", body.Status)
}

func TestParsePositiveInt(t *testing.T) {
	v, err := parsePositiveInt("", 7, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = parsePositiveInt("11", 7, 1, 10)
	assert.Error(t, err)

	_, err = parsePositiveInt("x", 7, 1, 10)
	assert.Error(t, err)
}
