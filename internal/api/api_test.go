package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/dnd-master-desktop/internal/appstore"
	"github.com/MJE43/dnd-master-desktop/internal/campaign"
	"github.com/MJE43/dnd-master-desktop/internal/kvstore"
	"github.com/MJE43/dnd-master-desktop/internal/logging"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestServer(t *testing.T, token string) (*Server, *appstore.Store) {
	t.Helper()
	store := appstore.New(kvstore.NewMemory(), appstore.WithLogger(logging.Discard()))
	srv := New(store, Options{Token: token, Logger: logging.Discard(), DB: fakePinger{}})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")
	w := do(t, srv.Routes(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, HealthStatusHealthy, resp.Status)
	assert.Equal(t, HealthStatusHealthy, resp.Checks["database"].Status)
	assert.True(t, resp.AutoSave)
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	store := appstore.New(kvstore.NewMemory(), appstore.WithLogger(logging.Discard()))
	srv := New(store, Options{Logger: logging.Discard(), DB: fakePinger{err: errors.New("database is locked")}})
	defer srv.Shutdown(context.Background())

	w := do(t, srv.Routes(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type lockedStorage struct{ *kvstore.Memory }

func (lockedStorage) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errors.New("database is locked")
}

func TestUnloadedDocumentRejectsWrites(t *testing.T) {
	mem := kvstore.NewMemory()
	store := appstore.New(lockedStorage{mem}, appstore.WithLogger(logging.Discard()))
	require.Error(t, store.Load(context.Background()))
	srv := New(store, Options{Logger: logging.Discard(), DB: fakePinger{}})
	defer srv.Shutdown(context.Background())
	h := srv.Routes()

	w := do(t, h, http.MethodPost, "/api/v1/maps", `{"name":"Crypt"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, CodeNotLoaded, decodeError(t, w).Error.Code)
	assert.Zero(t, mem.Writes())

	w = do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, HealthStatusUnhealthy, resp.Checks["document"].Status)
}

func TestTokenRequired(t *testing.T) {
	srv, _ := newTestServer(t, "secret")
	h := srv.Routes()

	w := do(t, h, http.MethodGet, "/api/v1/maps", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthorized, decodeError(t, w).Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/maps", nil)
	req.Header.Set("X-Api-Token", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = do(t, h, http.MethodGet, "/api/v1/maps?token=secret", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMapCRUD(t *testing.T) {
	srv, store := newTestServer(t, "")
	h := srv.Routes()

	w := do(t, h, http.MethodPost, "/api/v1/maps", `{"name":"Crypt","width":22,"height":28,"cellSize":50,"cellType":"square"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var m campaign.GameMap
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	require.NotEmpty(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())

	w = do(t, h, http.MethodGet, "/api/v1/maps/"+m.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPatch, "/api/v1/maps/"+m.ID, `{"name":"Deep crypt"}`)
	require.Equal(t, http.StatusOK, w.Code)
	got, _ := store.GetMapByID(m.ID)
	assert.Equal(t, "Deep crypt", got.Name)
	assert.Equal(t, 22, got.Width)

	w = do(t, h, http.MethodGet, "/api/v1/maps", "")
	var list listResponse[campaign.GameMap]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	w = do(t, h, http.MethodDelete, "/api/v1/maps/"+m.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/maps/"+m.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, w).Error.Code)
}

func TestPatchErrors(t *testing.T) {
	srv, store := newTestServer(t, "")
	h := srv.Routes()

	w := do(t, h, http.MethodPatch, "/api/v1/characters/missing", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, err := store.AddCharacter(context.Background(), campaign.Character{Name: "Lia"})
	require.NoError(t, err)
	w = do(t, h, http.MethodPatch, "/api/v1/characters/"+c.ID, `[1]`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, decodeError(t, w).Error.Code)

	w = do(t, h, http.MethodPost, "/api/v1/characters", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreaturesAndSeed(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Routes()

	w := do(t, h, http.MethodPost, "/api/v1/creatures/seed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"seeded":true,"creatures":3}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/v1/creatures/seed", "")
	assert.JSONEq(t, `{"seeded":false,"creatures":3}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/v1/creatures/custom", `{"name":"Bog hag","isCustom":false}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var cc campaign.Creature
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cc))
	assert.True(t, cc.IsCustom)

	w = do(t, h, http.MethodGet, "/api/v1/creatures", "")
	var all listResponse[campaign.Creature]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, 4, all.Total)

	w = do(t, h, http.MethodGet, "/api/v1/creatures/goblin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodGet, "/api/v1/creatures/custom", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCharacterWealth(t *testing.T) {
	srv, store := newTestServer(t, "")
	c, err := store.AddCharacter(context.Background(), campaign.Character{
		Name: "Lia",
		Inventory: []campaign.InventoryItem{
			{Name: "Gem", Value: 50, Weight: 0.1, Quantity: 2},
		},
	})
	require.NoError(t, err)

	w := do(t, srv.Routes(), http.MethodGet, "/api/v1/characters/"+c.ID+"/wealth", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"characterId":"`+c.ID+`","items":2,"value":"100","weight":"0.2"}`, w.Body.String())
}

func TestExportImport(t *testing.T) {
	srv, store := newTestServer(t, "")
	h := srv.Routes()
	_, err := store.AddGameSession(context.Background(), campaign.GameSession{Name: "Raid"})
	require.NoError(t, err)

	w := do(t, h, http.MethodGet, "/api/v1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dnd-master-backup-")
	exported := w.Body.String()

	other, otherStore := newTestServer(t, "")
	w = do(t, other.Routes(), http.MethodPost, "/api/v1/import", exported)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.Data(), otherStore.Data())

	w = do(t, h, http.MethodPost, "/api/v1/import", "[]")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidFormat, decodeError(t, w).Error.Code)
	assert.Len(t, store.GameSessions(), 1)
}

func TestImportMultipart(t *testing.T) {
	srv, store := newTestServer(t, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "dnd-master-backup-2026-01-01.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(`{"maps":[{"id":"m1","name":"Imported"}]}`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	m, ok := store.GetMapByID("m1")
	require.True(t, ok)
	assert.Equal(t, "Imported", m.Name)
}

func TestSettings(t *testing.T) {
	srv, store := newTestServer(t, "")
	h := srv.Routes()

	w := do(t, h, http.MethodPatch, "/api/v1/settings", `{"language":"en-GB"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, campaign.LanguageEN, store.Settings().Language)

	w = do(t, h, http.MethodGet, "/api/v1/settings", "")
	var s campaign.AppSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, campaign.ThemeDark, s.Theme)

	w = do(t, h, http.MethodPatch, "/api/v1/settings", `{"language":"de"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "language", decodeError(t, w).Error.Field)
	assert.Equal(t, campaign.LanguageEN, store.Settings().Language)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := do(t, srv.Routes(), http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, w).Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Routes()
	do(t, h, http.MethodGet, "/api/v1/maps", "")

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dnd_master_http_requests_total")
}

func TestEventsFeed(t *testing.T) {
	srv, store := newTestServer(t, "secret")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events?token=secret"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.hub.count() == 1 }, time.Second, 10*time.Millisecond)

	m, err := store.AddMap(context.Background(), campaign.GameMap{Name: "Live"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ch appstore.Change
	require.NoError(t, conn.ReadJSON(&ch))
	assert.Equal(t, appstore.CollectionMaps, ch.Collection)
	assert.Equal(t, appstore.OpAdd, ch.Op)
	assert.Equal(t, m.ID, ch.ID)
}

func TestEventsRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t, "secret")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEventsDropsClientThatStopsAnsweringPings(t *testing.T) {
	oldWait, oldPeriod := pongWait, pingPeriod
	pongWait, pingPeriod = 300*time.Millisecond, 100*time.Millisecond
	t.Cleanup(func() { pongWait, pingPeriod = oldWait, oldPeriod })

	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events"

	// Never reads, so pings go unanswered.
	silent, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer silent.Close()
	require.Eventually(t, func() bool { return srv.hub.count() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return srv.hub.count() == 0 }, 2*time.Second, 20*time.Millisecond)

	// Reading lets the default ping handler answer with pongs.
	live, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer live.Close()
	go func() {
		for {
			if _, _, err := live.ReadMessage(); err != nil {
				return
			}
		}
	}()
	require.Eventually(t, func() bool { return srv.hub.count() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(4 * pongWait)
	assert.Equal(t, 1, srv.hub.count())
}
