package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	service "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/internal/domain/types"
	"github.com/okian/defend100/pkg/logger"
)

// Target receives samples.
type Target interface {
	Submit(ctx context.Context, s Sample) (duplicate bool, err error)
}

// Recorder is the part of the service a LocalTarget needs.
type Recorder interface {
	SetValue(ctx context.Context, req service.SetRequest) (types.SetResult, error)
	Progress(date progress.DateKey) types.ProgressView
}

// LocalTarget records samples directly into an in-process service.
type LocalTarget struct {
	rec Recorder
}

// NewLocalTarget wraps rec.
func NewLocalTarget(rec Recorder) *LocalTarget {
	return &LocalTarget{rec: rec}
}

// Submit implements Target.
func (t *LocalTarget) Submit(ctx context.Context, s Sample) (bool, error) {
	res, err := t.rec.SetValue(ctx, service.SetRequest{
		WriteID: s.WriteID,
		Date:    string(s.Date),
		Key:     s.Key,
		Value:   s.Value,
	})
	if err != nil {
		return false, err
	}
	return res.Duplicate, nil
}

// HTTPTarget posts samples to a running API.
type HTTPTarget struct {
	client *http.Client
	url    string
}

// NewHTTPTarget creates a target for the API at baseURL.
func NewHTTPTarget(baseURL string, timeout time.Duration) *HTTPTarget {
	return &HTTPTarget{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(baseURL, "/") + "/progress",
	}
}

// Submit implements Target. 201 is a new write and 200 a duplicate.
func (t *HTTPTarget) Submit(ctx context.Context, s Sample) (bool, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("failed to marshal sample: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var res types.SetResult
		if err := json.Unmarshal(data, &res); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
		return res.Duplicate, nil
	default:
		return false, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(data)))
	}
}

// Submit sends samples to target with workers concurrent submitters. Per
// sample failures are counted, not returned; only cancellation aborts.
func Submit(ctx context.Context, target Target, samples []Sample, workers int) (*Stats, error) {
	stats := &Stats{Generated: len(samples), StartTime: time.Now()}
	if workers < 1 {
		workers = 1
	}
	log := logger.GetOrNop()
	log.Info(ctx, "submitting samples", logger.Int("samples", len(samples)), logger.Int("workers", workers))

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	sampleChan := make(chan Sample, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range sampleChan {
				dup, err := target.Submit(ctx, s)
				atomic.AddInt64(&submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					log.Debug(ctx, "sample failed",
						logger.String("date", string(s.Date)),
						logger.String("key", string(s.Key)),
						logger.Error(err),
					)
				case dup:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&successful, 1)
				}
			}
		}()
	}

	var cancelled error
feed:
	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case sampleChan <- s:
		}
	}
	close(sampleChan)
	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Successful = int(atomic.LoadInt64(&successful))
	stats.Duplicate = int(atomic.LoadInt64(&duplicate))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
	)
	if cancelled != nil {
		return stats, fmt.Errorf("context cancelled during submission: %w", cancelled)
	}
	return stats, nil
}
