// Package apiclient is the JSON HTTP client for the capture hand-off API.
// Both device-side flows use it: the desktop polling loop and the mobile
// capture state machine.
package apiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stayfinder/capture-app/internal/domain"
)

// APIError carries the status code and structured error message returned by
// the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// SessionState is the server's view of a session as returned by GET.
type SessionState struct {
	SessionID   string        `json:"sessionId"`
	Photos      []PhotoRecord `json:"photos"`
	PhotoCount  int           `json:"photoCount"`
	TargetCount int           `json:"targetCount"`
	CreatedAt   time.Time     `json:"createdAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

// PhotoRecord is one captured photo as rendered in session state.
type PhotoRecord struct {
	Filename    string             `json:"filename"`
	ImageData   []byte             `json:"imageData"`
	PreviewData []byte             `json:"previewData,omitempty"`
	Location    domain.GeoLocation `json:"location"`
	CapturedAt  time.Time          `json:"capturedAt"`
}

// SessionInfo is the response to a session create.
type SessionInfo struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Client talks to the capture hand-off API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given API origin. A nil httpClient selects a
// default with a 30s timeout (photo payloads can be slow on mobile links).
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// CreateSession asks the server for a new capture session.
func (c *Client) CreateSession(ctx context.Context, ownerRef string, targetCount int) (*SessionInfo, error) {
	body := map[string]interface{}{}
	if ownerRef != "" {
		body["ownerRef"] = ownerRef
	}
	if targetCount > 0 {
		body["targetCount"] = targetCount
	}

	var info SessionInfo
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/sessions", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetSession fetches the current session state.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionState, error) {
	var state SessionState
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/sessions/"+sessionID, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// UploadPhoto submits one captured photo with its location. The server
// assigns the filename and sequence position; the returned count is the
// authoritative number of photos in the session.
func (c *Client) UploadPhoto(ctx context.Context, sessionID string, image []byte, location domain.GeoLocation) (int, string, error) {
	body := map[string]interface{}{
		"sessionId": sessionID,
		"photo":     base64.StdEncoding.EncodeToString(image),
		"location": map[string]float64{
			"latitude":  location.Latitude,
			"longitude": location.Longitude,
			"accuracy":  location.AccuracyMeters,
		},
	}

	var result struct {
		PhotoCount int    `json:"photoCount"`
		Filename   string `json:"filename"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/photos", body, &result); err != nil {
		return 0, "", err
	}
	return result.PhotoCount, result.Filename, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
