package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
)

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// APIError represents a rejection response from the remote service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API error (%d): %s", e.StatusCode, e.Message)
}

// HTTPClient talks to the remote analysis service over HTTP with bearer
// token authentication.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient creates a remote client against the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func familyPath(t domain.JobType) string {
	switch t {
	case domain.JobIngestion:
		return "ingestion"
	case domain.JobVoting:
		return "votes"
	case domain.JobSearch:
		return "search"
	}
	return string(t)
}

func (c *HTTPClient) Submit(ctx context.Context, cred string, jobType domain.JobType, payload json.RawMessage) (*SubmitOutcome, error) {
	if cred == "" {
		return nil, domain.ErrNoCredential
	}

	endpoint := fmt.Sprintf("%s/api/v1/%s", c.baseURL, familyPath(jobType))
	body, err := c.do(ctx, http.MethodPost, endpoint, cred, payload)
	if err != nil {
		return nil, err
	}

	outcome := &SubmitOutcome{}
	if err := json.Unmarshal(body, outcome); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	return outcome, nil
}

func (c *HTTPClient) Status(ctx context.Context, cred string, jobType domain.JobType, remoteID string) (*StatusReport, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%s/%s", c.baseURL, familyPath(jobType), url.PathEscape(remoteID))
	return c.fetchStatus(ctx, cred, endpoint)
}

func (c *HTTPClient) EngineStatus(ctx context.Context, cred string, engine domain.Engine, remoteID string) (*StatusReport, error) {
	endpoint := fmt.Sprintf("%s/api/v1/analysis/%s/%s", c.baseURL, engine, url.PathEscape(remoteID))
	return c.fetchStatus(ctx, cred, endpoint)
}

func (c *HTTPClient) EngineResult(ctx context.Context, cred string, engine domain.Engine, remoteID string) (json.RawMessage, error) {
	if cred == "" {
		return nil, domain.ErrNoCredential
	}

	endpoint := fmt.Sprintf("%s/api/v1/analysis/%s/%s/result", c.baseURL, engine, url.PathEscape(remoteID))
	body, err := c.do(ctx, http.MethodGet, endpoint, cred, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *HTTPClient) FetchInbox(ctx context.Context, cred string, limit int, unreadOnly bool) (*Inbox, error) {
	if cred == "" {
		return nil, domain.ErrNoCredential
	}

	endpoint := fmt.Sprintf("%s/api/v1/notifications?limit=%d&unread_only=%s",
		c.baseURL, limit, strconv.FormatBool(unreadOnly))
	body, err := c.do(ctx, http.MethodGet, endpoint, cred, nil)
	if err != nil {
		return nil, err
	}

	inbox := &Inbox{}
	if err := json.Unmarshal(body, inbox); err != nil {
		return nil, fmt.Errorf("decode inbox response: %w", err)
	}
	return inbox, nil
}

func (c *HTTPClient) MarkRead(ctx context.Context, cred string, notificationID string, markAll bool) error {
	if cred == "" {
		return domain.ErrNoCredential
	}

	payload, err := json.Marshal(map[string]any{
		"notification_id": notificationID,
		"mark_all":        markAll,
	})
	if err != nil {
		return fmt.Errorf("marshal mark-read request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/notifications/read", c.baseURL)
	_, err = c.do(ctx, http.MethodPatch, endpoint, cred, payload)
	return err
}

func (c *HTTPClient) SendNotification(ctx context.Context, cred string, note *domain.Notification) error {
	if cred == "" {
		return domain.ErrNoCredential
	}

	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/notifications/send", c.baseURL)
	_, err = c.do(ctx, http.MethodPost, endpoint, cred, payload)
	return err
}

// fetchStatus wraps every failure mode of a status poll in TransportError so
// callers can tell "the call broke" apart from "the remote said failed".
func (c *HTTPClient) fetchStatus(ctx context.Context, cred, endpoint string) (*StatusReport, error) {
	if cred == "" {
		return nil, domain.ErrNoCredential
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, cred, nil)
	if err != nil {
		return nil, &TransportError{Op: "status poll", Err: err}
	}

	report := &StatusReport{}
	if err := json.Unmarshal(body, report); err != nil {
		return nil, &TransportError{Op: "decode status", Err: err}
	}
	return report, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint, cred string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Debug("Remote call rejected",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}
