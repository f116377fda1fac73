package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kolah/parley/internal/model"
)

const maxResponseBody = 4 << 20 // 4 MiB

// Client is the net/http-backed transport.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send executes the descriptor and folds every failure mode into the result.
func (c *Client) Send(ctx context.Context, d model.RequestDescriptor) model.AttemptResult {
	req, err := HTTPRequest(ctx, d)
	if err != nil {
		return model.AttemptResult{
			Kind:    model.ErrEncoding,
			Message: "building request: " + err.Error(),
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return model.AttemptResult{
			StatusCode: resp.StatusCode,
			Kind:       model.ErrEncoding,
			Message:    "reading response body: " + err.Error(),
		}
	}

	result := model.AttemptResult{
		StatusCode: resp.StatusCode,
		RawBody:    string(raw),
		Kind:       model.KindForStatus(resp.StatusCode),
	}
	if result.Kind != model.ErrNone {
		result.Message = http.StatusText(resp.StatusCode)
	}

	// Body decode is best effort; a non-JSON body is still a valid result.
	if len(raw) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			result.Body = decoded
		}
	}
	return result
}

func classifyTransportError(err error) model.AttemptResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.AttemptResult{Kind: model.ErrTimeout, Message: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.AttemptResult{Kind: model.ErrTimeout, Message: err.Error()}
	}
	return model.AttemptResult{Kind: model.ErrConnection, Message: err.Error()}
}
