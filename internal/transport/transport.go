// Package transport performs the actual HTTP call for a request descriptor.
// Connection and timeout failures never escape as Go errors; they come back as
// typed AttemptResult kinds so the retry controller sees one failure taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/kolah/parley/internal/model"
)

// Transport sends one request descriptor and reports the attempt outcome.
type Transport interface {
	Send(ctx context.Context, d model.RequestDescriptor) model.AttemptResult
}

// HTTPRequest converts a descriptor into an *http.Request.
func HTTPRequest(ctx context.Context, d model.RequestDescriptor) (*http.Request, error) {
	var body *bytes.Reader
	if d.Body != nil {
		encoded, err := json.Marshal(d.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, string(d.Method), d.TargetURL, body)
	if err != nil {
		return nil, err
	}

	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}
	if len(d.Query) > 0 {
		q := req.URL.Query()
		for k, v := range d.Query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	return req, nil
}
