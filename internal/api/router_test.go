package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Corphon/CampaignDesk/internal/errors"
	"github.com/Corphon/CampaignDesk/internal/models"
	"github.com/Corphon/CampaignDesk/internal/platform"
	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/Corphon/CampaignDesk/internal/utils"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu        sync.Mutex
	ideaCalls []models.IdeasRequest
	draftReqs []models.DraftRequest
	specErr   error
}

func (s *stubBackend) GenerateIdeas(ctx context.Context, req models.IdeasRequest) ([]models.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ideaCalls = append(s.ideaCalls, req)
	return []models.Idea{{ID: 1, Text: "Cold brew"}, {ID: 3, Text: "Latte art"}}, nil
}

func (s *stubBackend) GenerateDraft(ctx context.Context, req models.DraftRequest) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftReqs = append(s.draftReqs, req)
	return &models.Draft{DraftID: models.NewDraftID("17"), Draft: "Hello\nWorld"}, nil
}

func (s *stubBackend) SpecializeDraft(ctx context.Context, req models.SpecializeRequest) (*models.Specialization, error) {
	if s.specErr != nil {
		return nil, s.specErr
	}
	return &models.Specialization{Platform: req.Platform, SpecializedDraft: req.Platform + " version"}, nil
}

func (s *stubBackend) History(ctx context.Context) ([]models.Campaign, error) {
	return []models.Campaign{}, nil
}

type testServer struct {
	srv     *httptest.Server
	client  *http.Client
	backend *stubBackend
	metrics *utils.Metrics
	hub     *WebSocketManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := logtest.NewNullLogger()
	metrics := utils.NewMetrics()
	stub := &stubBackend{}
	platforms := platform.Default()

	sessions := workflow.NewManager(func(id string) *workflow.Session {
		return workflow.NewSession(workflow.Options{ID: id, Backend: stub, Platforms: platforms, Logger: logger, Metrics: metrics})
	}, func(n int) { metrics.ActiveSessions.Set(float64(n)) })

	hub := NewWebSocketManager(logger, metrics)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	handler := NewHandler(HandlerOptions{
		Sessions:    sessions,
		Platforms:   platforms,
		Render:      render.Options{Location: time.UTC},
		Concurrency: 2,
		Hub:         hub,
		Logger:      logger,
	})
	r, err := SetupRouter(RouterOptions{Handler: handler, Sessions: sessions, Metrics: metrics, Logger: logger, DebugMode: true})
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{srv: srv, client: &http.Client{Jar: jar}, backend: stub, metrics: metrics, hub: hub}
}

func (ts *testServer) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	}
	resp, err := ts.client.Post(ts.srv.URL+path, "application/json", reader)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := ts.client.Get(ts.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodePanels(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body PanelsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Panels
}

func decodeError(t *testing.T, resp *http.Response) *APIError {
	t.Helper()
	var body APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	return body.Error
}

func TestIndexPageStartsSession(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(page), `id="ideas-panel"`)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	u, _ := url.Parse(ts.srv.URL)
	cookies := ts.client.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
}

func TestEmptyTopicIsNoContent(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.postJSON(t, "/ui/ideas", map[string]string{"topic": "   "})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, ts.backend.ideaCalls)
}

func TestIdeasFormSubmission(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.client.PostForm(ts.srv.URL+"/ui/ideas", url.Values{"topic": {"coffee"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	panels := decodePanels(t, resp)
	ideas := panels[render.IdeasPanelID]
	assert.Equal(t, 2, strings.Count(ideas, render.WriteDraftLabel))
	assert.Contains(t, ideas, `data-idea-id="3"`)
	assert.Contains(t, panels[render.SpecialistPanelID], "hidden")
	assert.Equal(t, []models.IdeasRequest{{Topic: "coffee"}}, ts.backend.ideaCalls)
}

func TestDraftAndSpecializeFlow(t *testing.T) {
	ts := newTestServer(t)
	decodePanels(t, ts.postJSON(t, "/ui/ideas", map[string]string{"topic": "coffee"}))

	panels := decodePanels(t, ts.postJSON(t, "/ui/draft", map[string]interface{}{"idea_id": 3, "idea_text": "Latte art"}))
	assert.Contains(t, panels[render.DraftPanelID], "Hello<br/>World")
	assert.Equal(t, 5, strings.Count(panels[render.SpecialistPanelID], `class="specialize"`))
	assert.Contains(t, panels[render.SpecialistPanelID], `data-draft-id="17"`)
	require.Len(t, ts.backend.draftReqs, 1)
	assert.Equal(t, models.DraftRequest{Topic: "coffee", IdeaID: 3, IdeaText: "Latte art"}, ts.backend.draftReqs[0])

	panels = decodePanels(t, ts.postJSON(t, "/ui/specialize/TikTok", nil))
	box := panels[render.ResultID("tiktok")]
	assert.Contains(t, box, "<h4>Tiktok</h4>")
	assert.Contains(t, box, "tiktok version")

	panels = decodePanels(t, ts.postJSON(t, "/ui/specialize-all", nil))
	assert.Equal(t, 5, strings.Count(panels[render.SpecialistPanelID], `class="specialist-result"`))
}

func TestSpecializeFailureRendersIntoBox(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.specErr = apperrors.NewStatusError("boom", http.StatusBadGateway)
	decodePanels(t, ts.postJSON(t, "/ui/ideas", map[string]string{"topic": "coffee"}))
	decodePanels(t, ts.postJSON(t, "/ui/draft", map[string]string{"idea_id": "1", "idea_text": "Cold brew"}))

	panels := decodePanels(t, ts.postJSON(t, "/ui/specialize/blog", nil))
	assert.Contains(t, panels[render.ResultID("blog")], "Failed to generate the Blog version. Please try again.")
}

func TestInputErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.postJSON(t, "/ui/specialize/twitter", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, ErrorNoDraft, decodeError(t, resp).Code)

	resp = ts.postJSON(t, "/ui/specialize/myspace", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ErrorUnknownPlatform, decodeError(t, resp).Code)

	decodePanels(t, ts.postJSON(t, "/ui/ideas", map[string]string{"topic": "coffee"}))
	resp = ts.postJSON(t, "/ui/draft", map[string]string{"idea_id": "three", "idea_text": "X"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, ErrorInvalidIdea, decodeError(t, resp).Code)
	assert.Empty(t, ts.backend.draftReqs)
}

func TestDraftForWhitespaceIdeaText(t *testing.T) {
	ts := newTestServer(t)
	decodePanels(t, ts.postJSON(t, "/ui/ideas", map[string]string{"topic": "coffee"}))

	panels := decodePanels(t, ts.postJSON(t, "/ui/draft", map[string]interface{}{"idea_id": 4, "idea_text": " "}))
	assert.Contains(t, panels[render.DraftPanelID], "Hello")
	require.Len(t, ts.backend.draftReqs, 1)
	assert.Equal(t, " ", ts.backend.draftReqs[0].IdeaText)
}

func TestHistoryPanel(t *testing.T) {
	ts := newTestServer(t)
	panels := decodePanels(t, ts.get(t, "/ui/history"))
	assert.Contains(t, panels[render.HistoryPanelID], render.NoCampaignsText)
}

func TestStateAndPlatforms(t *testing.T) {
	ts := newTestServer(t)

	var state struct {
		Success bool           `json:"success"`
		Data    workflow.State `json:"data"`
	}
	resp := ts.get(t, "/ui/state")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.True(t, state.Success)
	assert.Equal(t, workflow.StatusIdle, state.Data.Ideas.Status)

	var platforms struct {
		Data []platform.Platform `json:"data"`
	}
	resp = ts.get(t, "/ui/platforms")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&platforms))
	require.Len(t, platforms.Data, 5)
	assert.Equal(t, "twitter", platforms.Data[0].Key)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/")

	resp := ts.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.get(t, "/metrics")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "campaigndesk_http_requests_total")
	assert.Contains(t, string(body), "campaigndesk_active_sessions 1")
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestWebSocketPushesPanelUpdates(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/")

	u, _ := url.Parse(ts.srv.URL)
	header := http.Header{}
	for _, c := range ts.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	var hello map[string]interface{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])

	decodePanels(t, ts.postJSON(t, "/ui/ideas", map[string]string{"topic": "coffee"}))

	seen := false
	for !seen {
		var msg PanelMessage
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "panel" && msg.Panel == render.IdeasPanelID && strings.Contains(msg.HTML, "Latte art") {
			seen = true
		}
	}

	require.Eventually(t, func() bool {
		return ts.hub.GetStatus()["connections"] == 1
	}, time.Second, 10*time.Millisecond)
}
