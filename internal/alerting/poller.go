package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quotedesk/quotedesk/internal/httpclient"
)

// remoteSample is the wire shape of one sample from a remote metrics API.
type remoteSample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PollerDeps wires the remote metric poller.
type PollerDeps struct {
	Client   *httpclient.Client
	Store    Store
	Resource string
	Interval time.Duration
}

// StartMetricPoller periodically pulls samples from a remote metrics API and
// records them for rule evaluation, for deployments where metrics are not
// pushed to /v1/metrics. Runs until ctx is cancelled.
func StartMetricPoller(ctx context.Context, deps PollerDeps) {
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	t := time.NewTicker(deps.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := pollOnce(ctx, deps); err != nil {
				log.Error().Err(err).Str("resource", deps.Resource).Msg("metric poll failed")
			}
		}
	}
}

// pollOnce fetches the current samples and stores them. Reads bypass the
// client cache so every tick sees fresh values.
func pollOnce(ctx context.Context, deps PollerDeps) error {
	resp, err := deps.Client.Do(ctx, &httpclient.Request{
		Method:   http.MethodGet,
		Resource: deps.Resource,
		NoCache:  true,
	})
	if err != nil {
		return fmt.Errorf("fetch remote samples: %w", err)
	}

	var samples []remoteSample
	if err := json.Unmarshal(resp.Body, &samples); err != nil {
		return fmt.Errorf("parse remote samples: %w", err)
	}

	now := time.Now().UTC()
	for _, s := range samples {
		if s.Name == "" {
			continue
		}
		if err := deps.Store.InsertSample(ctx, &MetricSample{Name: s.Name, Value: s.Value, RecordedAt: now}); err != nil {
			return fmt.Errorf("record sample %s: %w", s.Name, err)
		}
	}
	return nil
}
