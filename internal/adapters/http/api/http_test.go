package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/defend100/internal/adapters/http/api"
	"github.com/okian/defend100/internal/adapters/repository"
	service "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/internal/domain/types"
	"github.com/okian/defend100/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newMux(opts ...api.Option) (*http.ServeMux, *service.Service) {
	svc := service.New(
		service.WithStore(repository.NewMemoryStore()),
		service.WithClock(progress.ClockFunc(func() time.Time {
			return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
		})),
		service.WithLocation(time.UTC),
	)
	So(svc.Start(context.Background()), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc, opts...).Register(context.Background(), mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Health(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, svc := newMux()
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("Then health, metrics and stats respond", func() {
			So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			exposition := do(mux, http.MethodGet, "/metrics", "").Body.String()
			So(exposition, ShouldContainSubstring, "defend100_")
			So(exposition, ShouldContainSubstring, "go_goroutines")

			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			decode(w, &stats)
			So(stats["started"], ShouldEqual, true)
			So(stats["level"], ShouldEqual, 1.0)
			So(stats, ShouldContainKey, "maxHistoryDays")
		})
	})
}

func TestServer_Progress(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, svc := newMux()
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When posting two values for one day", func() {
			w1 := do(mux, http.MethodPost, "/progress", `{"date":"2024-05-01","key":"hydration","value":2500}`)
			w2 := do(mux, http.MethodPost, "/progress", `{"write_id":"abc","date":"2024-05-01","key":"activity","value":5000}`)

			Convey("Then each returns the rescored day", func() {
				So(w1.Code, ShouldEqual, http.StatusCreated)
				So(w2.Code, ShouldEqual, http.StatusCreated)
				var res types.SetResult
				decode(w2, &res)
				So(res.Score, ShouldEqual, 70)
				So(res.Previous, ShouldEqual, 100)
				So(string(res.Transition), ShouldEqual, "down")
			})

			Convey("Then a retried write ID is acknowledged as duplicate", func() {
				w := do(mux, http.MethodPost, "/progress", `{"write_id":"abc","date":"2024-05-01","key":"activity","value":1}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				var res types.SetResult
				decode(w, &res)
				So(res.Duplicate, ShouldBeTrue)
				So(res.Score, ShouldEqual, 70)
			})

			Convey("Then the day can be read back", func() {
				w := do(mux, http.MethodGet, "/progress/2024-05-01", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var view types.ProgressView
				decode(w, &view)
				So(view.Score, ShouldEqual, 70)
				So(len(view.Values), ShouldEqual, 2)

				w = do(mux, http.MethodGet, "/score/2024-05-01", "")
				So(w.Body.String(), ShouldContainSubstring, `"band":"success"`)

				w = do(mux, http.MethodGet, "/audit/2024-05-01", "")
				So(w.Body.String(), ShouldContainSubstring, `"points":-30`)
			})

			Convey("Then history, rank and profile include the day", func() {
				var days []types.DayScore
				decode(do(mux, http.MethodGet, "/history?limit=5", ""), &days)
				So(len(days), ShouldEqual, 1)
				So(days[0].Score, ShouldEqual, 70)

				So(do(mux, http.MethodGet, "/rank", "").Body.String(), ShouldContainSubstring, `"current_xp":70`)
				So(do(mux, http.MethodGet, "/profile", "").Body.String(), ShouldContainSubstring, `"total_xp":70`)
			})
		})

		Convey("When posting without a date", func() {
			w := do(mux, http.MethodPost, "/progress", `{"key":"tasks","value":5}`)

			Convey("Then today is used", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, `"date":"2024-05-10"`)
				So(do(mux, http.MethodGet, "/progress/today", "").Body.String(), ShouldContainSubstring, `"tasks":5`)
			})
		})

		Convey("When requests are invalid", func() {
			cases := []struct {
				method, path, body, code string
				status                   int
			}{
				{http.MethodPost, "/progress", `{"key":"hydration"`, "bad_request", http.StatusBadRequest},
				{http.MethodPost, "/progress", `{"key":"hydration"}`, "bad_request", http.StatusBadRequest},
				{http.MethodPost, "/progress", `{"key":"sleep","value":1}`, "unknown_goal", http.StatusBadRequest},
				{http.MethodPost, "/progress", `{"date":"01/05/2024","key":"tasks","value":1}`, "bad_request", http.StatusBadRequest},
				{http.MethodPost, "/progress", `{"key":"tasks","value":1,"extra":true}`, "bad_request", http.StatusBadRequest},
				{http.MethodGet, "/progress/2024-02-30", "", "invalid_date", http.StatusBadRequest},
				{http.MethodGet, "/history?limit=-1", "", "bad_request", http.StatusBadRequest},
			}

			Convey("Then each gets the error envelope", func() {
				for _, c := range cases {
					w := do(mux, c.method, c.path, c.body)
					So(w.Code, ShouldEqual, c.status)
					var e envelope
					decode(w, &e)
					So(e.Code, ShouldEqual, c.code)
					So(e.Message, ShouldNotBeEmpty)
				}
			})
		})
	})
}

func TestServer_Goals(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, svc := newMux()
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When reading the goals", func() {
			w := do(mux, http.MethodGet, "/goals", "")
			var table map[string]map[string]any
			decode(w, &table)

			Convey("Then every goal is listed with its threshold alias", func() {
				So(len(table), ShouldEqual, 6)
				So(table["hydration"]["target"], ShouldEqual, 2500.0)
				So(table["screen_time"]["limit"], ShouldEqual, 3.5)
			})
		})

		Convey("When patching one goal", func() {
			w := do(mux, http.MethodPatch, "/goals/activity", `{"weight":1,"target":8000}`)

			Convey("Then the effective configuration is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"weight":1`)
				So(w.Body.String(), ShouldContainSubstring, `"target":8000`)
			})
		})

		Convey("When patching with invalid input", func() {
			So(do(mux, http.MethodPatch, "/goals/sleep", `{"weight":1}`).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPatch, "/goals/activity", `{"weight":0}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPatch, "/goals/activity", `{"target":-5}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When saving a whole document", func() {
			w := do(mux, http.MethodPut, "/goals", `{"calories":{"isActive":false},"tasks":{"weight":-1},"sleep":{"weight":2}}`)

			Convey("Then invalid fields are reported and unknown goals ignored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Violations []string `json:"violations"`
				}
				decode(w, &resp)
				So(len(resp.Violations), ShouldEqual, 1)

				var active []map[string]any
				decode(do(mux, http.MethodGet, "/goals/active", ""), &active)
				So(len(active), ShouldEqual, 5)
			})
		})

		Convey("When saving a malformed document", func() {
			w := do(mux, http.MethodPut, "/goals", `{"tasks":{"weight":"heavy"}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_RateLimit(t *testing.T) {
	Convey("Given an API limited to one write", t, func() {
		mux, svc := newMux(api.WithRateLimit(0.001, 1))
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When two writes arrive back to back", func() {
			first := do(mux, http.MethodPost, "/progress", `{"key":"tasks","value":1}`)
			second := do(mux, http.MethodPost, "/progress", `{"key":"tasks","value":2}`)

			Convey("Then the second is rejected and reads are unaffected", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				var e envelope
				decode(second, &e)
				So(e.Code, ShouldEqual, "rate_limited")
				So(do(mux, http.MethodGet, "/rank", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}
