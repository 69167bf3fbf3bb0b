package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/internal/domain/types"
	"github.com/okian/defend100/pkg/logger"
)

// Reader reads back the recorded values of a day.
type Reader interface {
	Values(ctx context.Context, date progress.DateKey) (map[goals.Key]float64, error)
}

// Mismatch is a sample whose value was not found as recorded.
type Mismatch struct {
	Date     progress.DateKey
	Key      goals.Key
	Want     float64
	Got      float64
	Recorded bool
}

func (m Mismatch) String() string {
	if !m.Recorded {
		return fmt.Sprintf("%s %s: want %v, missing", m.Date, m.Key, m.Want)
	}
	return fmt.Sprintf("%s %s: want %v, got %v", m.Date, m.Key, m.Want, m.Got)
}

// Values implements Reader.
func (t *LocalTarget) Values(_ context.Context, date progress.DateKey) (map[goals.Key]float64, error) {
	return t.rec.Progress(date).Values, nil
}

// Values implements Reader through GET /progress/{date}.
func (t *HTTPTarget) Values(ctx context.Context, date progress.DateKey) (map[goals.Key]float64, error) {
	url := strings.TrimSuffix(t.url, "/progress") + "/progress/" + string(date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var view types.ProgressView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return view.Values, nil
}

// Verify reads back every sampled day and reports samples whose value is
// not what was recorded. The last sample of a date and key wins.
func Verify(ctx context.Context, r Reader, samples []Sample) ([]Mismatch, error) {
	want := make(map[progress.DateKey]map[goals.Key]float64)
	for _, s := range samples {
		if want[s.Date] == nil {
			want[s.Date] = make(map[goals.Key]float64)
		}
		want[s.Date][s.Key] = s.Value
	}
	dates := make([]progress.DateKey, 0, len(want))
	for d := range want {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	var out []Mismatch
	for _, d := range dates {
		got, err := r.Values(ctx, d)
		if err != nil {
			return out, fmt.Errorf("read %s: %w", d, err)
		}
		for _, k := range goals.Keys {
			w, ok := want[d][k]
			if !ok {
				continue
			}
			g, recorded := got[k]
			if !recorded || g != w {
				out = append(out, Mismatch{Date: d, Key: k, Want: w, Got: g, Recorded: recorded})
			}
		}
	}

	log := logger.GetOrNop()
	if len(out) > 0 {
		log.Warn(ctx, "seed verification found mismatches", logger.Int("mismatches", len(out)))
		return out, fmt.Errorf("%w: %d of %d samples", ErrMismatch, len(out), len(samples))
	}
	log.Info(ctx, "seed verification passed", logger.Int("days", len(dates)))
	return nil, nil
}
