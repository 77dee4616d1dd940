package correlator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// newTrackingID mints the id attached to one outbound request so failures
// can be traced across the client, gateway and notification stream.
func newTrackingID() string {
	return uuid.NewString()
}

// HTTPRequester sends correlated requests to the task/agent API gateway.
type HTTPRequester struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPRequester creates a requester for the given gateway base URL.
func NewHTTPRequester(baseURL, token string) *HTTPRequester {
	return &HTTPRequester{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Do sends the request. Non-2xx responses are transport failures: the
// gateway acknowledged nothing, so no notification will ever arrive.
func (r *HTTPRequester) Do(ctx context.Context, req Request) error {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, r.baseURL+req.Path, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("TrackingID", req.TrackingID)
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
