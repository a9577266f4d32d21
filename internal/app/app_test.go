package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Corphon/CampaignDesk/internal/backend"
	"github.com/Corphon/CampaignDesk/internal/config"
	"github.com/Corphon/CampaignDesk/internal/di"
	"github.com/Corphon/CampaignDesk/internal/models"
	"github.com/Corphon/CampaignDesk/internal/utils"
	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyBackend struct{}

func (emptyBackend) GenerateIdeas(context.Context, models.IdeasRequest) ([]models.Idea, error) {
	return nil, nil
}
func (emptyBackend) GenerateDraft(context.Context, models.DraftRequest) (*models.Draft, error) {
	return nil, nil
}
func (emptyBackend) SpecializeDraft(context.Context, models.SpecializeRequest) (*models.Specialization, error) {
	return nil, nil
}
func (emptyBackend) History(context.Context) ([]models.Campaign, error) {
	return []models.Campaign{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                  "0",
		DebugMode:             true,
		BackendURL:            "http://backend.invalid",
		BackendTimeout:        time.Second,
		SpecializeConcurrency: 2,
		SessionTTL:            time.Hour,
		DisplayTimezone:       "UTC",
		TimestampLayout:       config.DefaultTimestampLayout,
	}
}

func testLogger() *utils.Logger {
	base, _ := logtest.NewNullLogger()
	return utils.NewLogger(base)
}

func TestBuildServices(t *testing.T) {
	c, err := BuildServices(testConfig(), testLogger())
	require.NoError(t, err)

	assert.NoError(t, c.Require(di.ServiceConfig, di.ServiceLogger, di.ServiceMetrics, di.ServiceBackend, di.ServicePlatforms))
	client, err := di.Resolve[backend.API](c, di.ServiceBackend)
	require.NoError(t, err)
	assert.Equal(t, "http://backend.invalid", client.(*backend.Client).BaseURL())

	factory, err := SessionFactory(c)
	require.NoError(t, err)
	s := factory("abc")
	assert.Equal(t, "abc", s.ID())
	assert.Equal(t, 5, s.Platforms().Len())
}

func TestBuildServicesRejectsMissingPlatformsFile(t *testing.T) {
	cfg := testConfig()
	cfg.PlatformsFile = "/nonexistent/platforms.yaml"
	_, err := BuildServices(cfg, testLogger())
	assert.Error(t, err)
}

func TestNewRequiresServices(t *testing.T) {
	_, err := New(testConfig(), testLogger(), di.NewContainer())
	assert.Error(t, err)
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	logger := testLogger()
	c, err := BuildServices(cfg, logger)
	require.NoError(t, err)
	c.Register(di.ServiceBackend, backend.API(emptyBackend{}))

	a, err := New(cfg, logger, c)
	require.NoError(t, err)
	return a
}

func TestHandlerServesPage(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CampaignDesk")
	assert.NotEmpty(t, rec.Header().Get("Set-Cookie"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	a := newTestApp(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestCleanupInterval(t *testing.T) {
	assert.Equal(t, time.Minute, cleanupInterval(time.Minute))
	assert.Equal(t, 30*time.Minute, cleanupInterval(2*time.Hour))
}
