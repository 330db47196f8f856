package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultRemoteTimeout bounds a single call to the model server.
const DefaultRemoteTimeout = 3 * time.Second

// RemoteClassifier calls an external model server:
//
//	POST <endpoint> {"text": "..."} -> {"label": "...", "confidence": 0.93, "scores": [...]}
type RemoteClassifier struct {
	Endpoint string
	Client   *http.Client
}

// NewRemoteClassifier returns a classifier with a traced HTTP client.
func NewRemoteClassifier(endpoint string, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteClassifier{
		Endpoint: endpoint,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type remoteRequest struct {
	Text string `json:"text"`
}

// Classify posts text to the endpoint. Transport failures and non-2xx
// answers are returned as errors; the caller decides how to degrade.
func (r *RemoteClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	body, err := json.Marshal(remoteRequest{Text: text})
	if err != nil {
		return Prediction{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("intent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("intent: call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Prediction{}, fmt.Errorf("intent: classifier status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var p Prediction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
		return Prediction{}, fmt.Errorf("intent: decode classifier response: %w", err)
	}
	p.Confidence = clamp01(p.Confidence)
	return p, nil
}
