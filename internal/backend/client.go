// internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Corphon/CampaignDesk/internal/errors"
	"github.com/Corphon/CampaignDesk/internal/models"
	"github.com/Corphon/CampaignDesk/internal/utils"
	"github.com/sirupsen/logrus"
)

// Endpoint paths of the content backend.
const (
	PathGenerateIdeas   = "/generate-ideas"
	PathGenerateDraft   = "/generate-draft"
	PathSpecializeDraft = "/specialize-draft"
	PathHistory         = "/api/history"
)

// API is what the workflow needs from the backend.
type API interface {
	GenerateIdeas(ctx context.Context, req models.IdeasRequest) ([]models.Idea, error)
	GenerateDraft(ctx context.Context, req models.DraftRequest) (*models.Draft, error)
	SpecializeDraft(ctx context.Context, req models.SpecializeRequest) (*models.Specialization, error)
	History(ctx context.Context) ([]models.Campaign, error)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, overrides Timeout
	Logger     logrus.FieldLogger
	Metrics    *utils.Metrics
}

// Client talks JSON to the content backend. It never retries: a failed call
// is returned once and the caller decides what to show.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
	metrics *utils.Metrics
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, apperrors.NewValidationError("backend base URL is required", nil)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Transport: defaultTransport(), Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		log:     logger,
		metrics: opts.Metrics,
	}, nil
}

// defaultTransport caps connections per host so a stalled backend cannot pile up sockets.
func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxConnsPerHost:     32,
		MaxIdleConnsPerHost: 8,
		MaxIdleConns:        32,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// GenerateIdeas posts {topic}. An empty idea list is an error.
func (c *Client) GenerateIdeas(ctx context.Context, req models.IdeasRequest) ([]models.Idea, error) {
	var resp models.IdeasResponse
	if err := c.do(ctx, http.MethodPost, PathGenerateIdeas, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.GeneratedIdeas) == 0 {
		return nil, c.empty(PathGenerateIdeas, "backend returned no ideas")
	}
	return resp.GeneratedIdeas, nil
}

// GenerateDraft posts {topic, idea_id, idea_text}.
func (c *Client) GenerateDraft(ctx context.Context, req models.DraftRequest) (*models.Draft, error) {
	var resp models.DraftResponse
	if err := c.do(ctx, http.MethodPost, PathGenerateDraft, req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Draft) == "" {
		return nil, c.empty(PathGenerateDraft, "backend returned an empty draft")
	}
	return &resp, nil
}

// SpecializeDraft posts {draft_id, draft_text, platform} and returns the
// variant, keyed by the platform it was requested for.
func (c *Client) SpecializeDraft(ctx context.Context, req models.SpecializeRequest) (*models.Specialization, error) {
	var resp models.SpecializeResponse
	if err := c.do(ctx, http.MethodPost, PathSpecializeDraft, req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.SpecializedDraft) == "" {
		return nil, c.empty(PathSpecializeDraft, "backend returned an empty "+req.Platform+" draft")
	}
	return &models.Specialization{Platform: req.Platform, SpecializedDraft: resp.SpecializedDraft}, nil
}

// History fetches all campaigns in server order. An empty list is not an error.
func (c *Client) History(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := c.do(ctx, http.MethodGet, PathHistory, nil, &campaigns); err != nil {
		return nil, err
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	return campaigns, nil
}

func (c *Client) empty(path, message string) error {
	c.log.WithField("endpoint", path).Warn(message)
	return apperrors.NewEmptyError(message)
}

// do sends one request and decodes a 2xx JSON body into out.
// Non-2xx bodies are drained and discarded without parsing.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) (err error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = string(apperrors.TypeOf(err))
		}
		c.metrics.ObserveBackend(path, outcome, time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		data, marshalErr := json.Marshal(in)
		if marshalErr != nil {
			return apperrors.NewValidationError("encode request for "+path, marshalErr)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.NewTransportError("build request for "+path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("endpoint", path).Error("backend request failed")
		return apperrors.NewTransportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		c.log.WithFields(logrus.Fields{
			"endpoint": path,
			"status":   resp.StatusCode,
		}).Error("backend returned non-success status")
		return apperrors.NewStatusError(fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode), resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.WithError(err).WithField("endpoint", path).Error("backend response is not valid JSON")
		return apperrors.NewDecodeError("decode "+path+" response", err)
	}

	c.log.WithFields(logrus.Fields{
		"endpoint": path,
		"elapsed":  time.Since(start).String(),
	}).Debug("backend request completed")
	return nil
}
