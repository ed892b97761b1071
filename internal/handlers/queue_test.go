package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual_queue/internal/auth"
	"virtual_queue/internal/events"
	"virtual_queue/internal/logger"
	"virtual_queue/internal/models"
	"virtual_queue/internal/queue"
	"virtual_queue/internal/storage/memory"
	"virtual_queue/internal/ws"
)

var testSecret = []byte("handlers-test")

type testServer struct {
	*httptest.Server
	engine *queue.Engine
	store  *memory.Store
	hub    *ws.Hub
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub()
	go hub.Run(ctx)

	store := memory.New()
	engine, err := queue.New(store, store,
		queue.WithSink(events.Multi{hub}),
		queue.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)

	r := gin.New()
	New(engine, store).Register(r, auth.StaffMiddleware(testSecret), hub.QueueWebSocketHandler)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		_ = engine.Stop(context.Background())
		cancel()
	})
	return &testServer{Server: srv, engine: engine, store: store, hub: hub}
}

func staffToken(t *testing.T, tenantID string) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, "staff-1", tenantID, auth.RoleStaff, time.Hour)
	require.NoError(t, err)
	return token
}

// do отправляет запрос и разбирает JSON-ответ в out, если он задан.
func (ts *testServer) do(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func (ts *testServer) createQueue(t *testing.T, token string, req QueueRequest) *models.Queue {
	t.Helper()
	var q models.Queue
	code := ts.do(t, http.MethodPost, "/api/staff/queues", token, req, &q)
	require.Equal(t, http.StatusCreated, code)
	return &q
}

func TestQueueFlow(t *testing.T) {
	ts := setupTestServer(t)
	token := staffToken(t, "clinic")

	q := ts.createQueue(t, token, QueueRequest{
		Name:           "Регистратура",
		Capacity:       1,
		PriorityPolicy: []string{"vip", "normal"},
		DefaultTier:    "normal",
	})
	assert.Equal(t, "clinic", q.TenantID)
	assert.True(t, q.IsActive)

	// 1. Два участника встают в очередь.
	var ivan, petr SessionStatusResponse
	code := ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "ivan"}, &ivan)
	require.Equal(t, http.StatusOK, code)
	code = ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "petr"}, &petr)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, ivan.Rank)
	assert.Equal(t, 2, petr.Rank)
	assert.Equal(t, int64(2*300), petr.EstimatedWaitSeconds)

	// Повторный запрос возвращает ту же сессию.
	var again SessionStatusResponse
	ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "ivan"}, &again)
	assert.Equal(t, ivan.Session.ID, again.Session.ID)

	// 2. Иван подписывается на свои события.
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/queues/" + q.ID + "/ws?session_id=" + ivan.Session.ID
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer wsConn.Close()
	require.Eventually(t, func() bool { return ts.hub.ClientCount(q.ID) == 1 }, time.Second, 10*time.Millisecond)

	// 3. Сотрудник вызывает участников; мест только одно.
	var rel ReleaseResponse
	code = ts.do(t, http.MethodPost, "/api/staff/queues/"+q.ID+"/release", token, ReleaseRequest{Count: 5}, &rel)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, rel.Released, 1)
	assert.Equal(t, ivan.Session.ID, rel.Released[0].ID)

	// Событие вступления могло прийти после подписки; ждём вызова.
	wsConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ws.WSMessage
	for msg.EventType != events.SessionCalled {
		_, raw, err := wsConn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, ivan.Session.ID, msg.Data.SessionID)
	}

	var status SessionStatusResponse
	ts.do(t, http.MethodGet, "/api/sessions/"+petr.Session.ID, "", nil, &status)
	assert.Equal(t, 1, status.Rank)

	// 4. Обслуживание Ивана.
	code = ts.do(t, http.MethodPost, "/api/staff/sessions/"+ivan.Session.ID+"/complete", token, nil, nil)
	assert.Equal(t, http.StatusConflict, code, "нельзя завершить без check-in")
	code = ts.do(t, http.MethodPost, "/api/staff/sessions/"+ivan.Session.ID+"/checkin", token, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var done models.UserSession
	code = ts.do(t, http.MethodPost, "/api/staff/sessions/"+ivan.Session.ID+"/complete", token, nil, &done)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StateCompleted, done.State)

	// 5. Пётр уходит.
	code = ts.do(t, http.MethodPost, "/api/sessions/"+petr.Session.ID+"/leave", "", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var errResp struct{ Code string }
	code = ts.do(t, http.MethodPost, "/api/sessions/"+petr.Session.ID+"/leave", "", nil, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_STATE", errResp.Code)

	var qs QueueStatusResponse
	code = ts.do(t, http.MethodGet, "/api/staff/queues/"+q.ID+"/status", token, nil, &qs)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, qs.Waiting)
	assert.Empty(t, qs.Serving)
	assert.Equal(t, 1, qs.SlotsAvailable)
}

func TestStaffEndpointsRequireOwnTenant(t *testing.T) {
	ts := setupTestServer(t)
	own := staffToken(t, "clinic")
	foreign := staffToken(t, "bank")

	q := ts.createQueue(t, own, QueueRequest{Name: "Касса", Capacity: 1, PriorityPolicy: []string{"normal"}})
	var s SessionStatusResponse
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "u"}, &s))

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/staff/queues/"+q.ID+"/status", "", nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/staff/queues/"+q.ID+"/status", foreign, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/staff/queues/"+q.ID+"/release", foreign, ReleaseRequest{Count: 1}, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/staff/sessions/"+s.Session.ID+"/priority", foreign, PriorityRequest{Tier: "normal"}, nil))

	var list []models.Queue
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/staff/queues", foreign, nil, &list))
	assert.Empty(t, list)
}

func TestJoinErrors(t *testing.T) {
	ts := setupTestServer(t)
	token := staffToken(t, "clinic")
	q := ts.createQueue(t, token, QueueRequest{Name: "Окно", Capacity: 1, MaxActive: 1, PriorityPolicy: []string{"normal"}})

	var e struct{ Code string }
	code := ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", map[string]string{"tenant_id": "clinic"}, &e)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", e.Code)

	code = ts.do(t, http.MethodPost, "/api/queues/missing/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "u"}, &e)
	assert.Equal(t, http.StatusNotFound, code)

	code = ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "a", PriorityTier: "vip"}, &e)
	assert.Equal(t, http.StatusBadRequest, code)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "a"}, nil))
	code = ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "b"}, &e)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CAPACITY_EXCEEDED", e.Code)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/staff/queues/"+q.ID+"/deactivate", token, nil, nil))
	code = ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "c"}, &e)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "QUEUE_INACTIVE", e.Code)
}

func TestUpdateQueueAndUserQueues(t *testing.T) {
	ts := setupTestServer(t)
	token := staffToken(t, "clinic")
	q1 := ts.createQueue(t, token, QueueRequest{Name: "Терапевт", Capacity: 2, PriorityPolicy: []string{"vip", "normal"}})
	q2 := ts.createQueue(t, token, QueueRequest{Name: "Хирург", Capacity: 2, PriorityPolicy: []string{"vip", "normal"}})

	var a, b SessionStatusResponse
	ts.do(t, http.MethodPost, "/api/queues/"+q1.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "anna", PriorityTier: "normal"}, &a)
	ts.do(t, http.MethodPost, "/api/queues/"+q1.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "boris", PriorityTier: "vip"}, &b)
	ts.do(t, http.MethodPost, "/api/queues/"+q2.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "anna"}, nil)
	require.Equal(t, 1, b.Rank)

	var updated models.Queue
	code := ts.do(t, http.MethodPut, "/api/staff/queues/"+q1.ID, token, QueueRequest{
		Name:           "Терапевт",
		Capacity:       2,
		PriorityPolicy: []string{"normal", "vip"},
	}, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"normal", "vip"}, updated.PriorityPolicy)

	var st SessionStatusResponse
	ts.do(t, http.MethodGet, "/api/sessions/"+a.Session.ID, "", nil, &st)
	assert.Equal(t, 1, st.Rank)

	var items []UserQueueItem
	code = ts.do(t, http.MethodGet, "/profile/queues?tenant_id=clinic&user_identifier=anna", "", nil, &items)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, items, 2)

	code = ts.do(t, http.MethodGet, "/profile/queues?tenant_id=clinic", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var moved models.UserSession
	code = ts.do(t, http.MethodPost, "/api/staff/sessions/"+b.Session.ID+"/priority", token, PriorityRequest{Tier: "normal"}, &moved)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "normal", moved.PriorityTier)
	assert.Equal(t, 2, moved.Rank, "anna arrived first")
}

func TestQueueSessionsHistory(t *testing.T) {
	ts := setupTestServer(t)
	token := staffToken(t, "clinic")
	q := ts.createQueue(t, token, QueueRequest{Name: "Касса", Capacity: 1, PriorityPolicy: []string{"normal"}})

	var anna, oleg SessionStatusResponse
	ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "anna"}, &anna)
	ts.do(t, http.MethodPost, "/api/queues/"+q.ID+"/join", "", JoinRequest{TenantID: "clinic", UserIdentifier: "oleg"}, &oleg)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/sessions/"+anna.Session.ID+"/leave", "", nil, nil))
	require.NoError(t, ts.engine.Flush(context.Background()))

	var dropped []models.UserSession
	code := ts.do(t, http.MethodGet, "/api/staff/queues/"+q.ID+"/sessions?state=dropped", token, nil, &dropped)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, dropped, 1)
	assert.Equal(t, anna.Session.ID, dropped[0].ID)

	var all []models.UserSession
	ts.do(t, http.MethodGet, "/api/staff/queues/"+q.ID+"/sessions", token, nil, &all)
	assert.Len(t, all, 2)

	var errResp struct{ Code string }
	code = ts.do(t, http.MethodGet, "/api/staff/queues/"+q.ID+"/sessions?state=lost", token, nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)

	code = ts.do(t, http.MethodGet, "/api/staff/queues/"+q.ID+"/sessions", staffToken(t, "bank"), nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
