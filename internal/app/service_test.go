package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/adapters/repository"
	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/model"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/internal/domain/scoring"
	"github.com/okian/defend100/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func fixedClock() progress.Clock {
	return progress.ClockFunc(func() time.Time { return fixedNow })
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func boolp(v bool) *bool        { return &v }

type results struct {
	mu  sync.Mutex
	all []model.WriteResult
}

func (r *results) sink(res model.WriteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, res)
}

func (r *results) failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.all {
		if !res.OK() {
			n++
		}
	}
	return n
}

func startService(store repository.Store, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithStore(store),
		service.WithClock(fixedClock()),
		service.WithLocation(time.UTC),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithClock(fixedClock()), service.WithLocation(time.UTC))

		Convey("When mutating before Start", func() {
			_, err := svc.SetValue(context.Background(), service.SetRequest{Key: goals.Hydration, Value: 1})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting and stopping", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it reports being stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_SetValue(t *testing.T) {
	Convey("Given a started service with the default goals", t, func() {
		store := repository.NewMemoryStore()
		svc := startService(store)
		ctx := context.Background()
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When hydration meets its target", func() {
			res, err := svc.SetValue(ctx, service.SetRequest{Date: "2024-05-01", Key: goals.Hydration, Value: 2500})
			So(err, ShouldBeNil)

			Convey("Then the day is perfect and nothing changed", func() {
				So(res.Score, ShouldEqual, 100)
				So(res.Previous, ShouldEqual, 100)
				So(res.Transition, ShouldEqual, scoring.TransitionNone)
				So(res.Queued, ShouldBeTrue)
			})

			Convey("And activity is recorded at half its target", func() {
				res, err := svc.SetValue(ctx, service.SetRequest{Date: "2024-05-01", Key: goals.Activity, Value: 5000})
				So(err, ShouldBeNil)

				Convey("Then the score drops to 70 and the band goes down", func() {
					So(res.Score, ShouldEqual, 70)
					So(res.Previous, ShouldEqual, 100)
					So(res.Transition, ShouldEqual, scoring.TransitionDown)
					So(res.Entry, ShouldResemble, progress.Entry{goals.Hydration: 2500, goals.Activity: 5000})
					So(svc.ScoreForDate("2024-05-01"), ShouldEqual, 70)
				})

				Convey("Then the write-behind persists every value", func() {
					So(svc.Stop(ctx), ShouldBeNil)
					all, err := store.LoadAllProgress(ctx)
					So(err, ShouldBeNil)
					So(all["2024-05-01"], ShouldResemble, progress.Entry{goals.Hydration: 2500, goals.Activity: 5000})
					xp, found, err := store.LoadCumulativeXP(ctx)
					So(err, ShouldBeNil)
					So(found, ShouldBeTrue)
					So(xp, ShouldEqual, 70)
				})
			})
		})

		Convey("When no date is given", func() {
			res, err := svc.SetValue(ctx, service.SetRequest{Key: goals.ScreenTime, Value: 7})
			So(err, ShouldBeNil)

			Convey("Then today in the configured zone is used", func() {
				So(res.Date, ShouldEqual, progress.DateKey("2024-05-10"))
				So(res.Score, ShouldEqual, 0)
				So(svc.Progress(svc.Today()).Band, ShouldEqual, scoring.BandFail)
			})
		})

		Convey("When the same write ID is sent twice", func() {
			req := service.SetRequest{WriteID: "w-1", Date: "2024-05-02", Key: goals.Recovery, Value: 8}
			first, err := svc.SetValue(ctx, req)
			So(err, ShouldBeNil)
			req.Value = 2
			second, err := svc.SetValue(ctx, req)
			So(err, ShouldBeNil)

			Convey("Then the retry is not applied again", func() {
				So(first.Duplicate, ShouldBeFalse)
				So(second.Duplicate, ShouldBeTrue)
				So(second.Entry[goals.Recovery], ShouldEqual, 8.0)
				So(second.Transition, ShouldEqual, scoring.TransitionNone)
			})
		})

		Convey("When the request is invalid", func() {
			_, errKey := svc.SetValue(ctx, service.SetRequest{Key: "sleep", Value: 1})
			_, errDate := svc.SetValue(ctx, service.SetRequest{Date: "2024-13-01", Key: goals.Tasks, Value: 1})
			_, errValue := svc.SetValue(ctx, service.SetRequest{WriteID: "w-nan", Key: goals.Tasks, Value: posInf()})

			Convey("Then each error is typed and nothing is recorded", func() {
				So(errors.Is(errKey, goals.ErrUnknownKey), ShouldBeTrue)
				So(errors.Is(errDate, progress.ErrInvalidDate), ShouldBeTrue)
				So(errors.Is(errValue, progress.ErrInvalidValue), ShouldBeTrue)
				So(svc.History(), ShouldBeEmpty)
			})

			Convey("Then a rejected write ID can be retried", func() {
				res, err := svc.SetValue(ctx, service.SetRequest{WriteID: "w-nan", Key: goals.Tasks, Value: 1})
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
			})
		})
	})
}

func posInf() float64 {
	var zero float64
	return 1 / zero
}

func TestService_Goals(t *testing.T) {
	Convey("Given a service with a recorded day", t, func() {
		store := repository.NewMemoryStore()
		svc := startService(store)
		ctx := context.Background()
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.SetValue(ctx, service.SetRequest{Date: "2024-05-01", Key: goals.ScreenTime, Value: 7})
		So(err, ShouldBeNil)
		So(svc.History()["2024-05-01"], ShouldEqual, 0)

		Convey("When the screen time limit is relaxed", func() {
			cfg, err := svc.UpdateGoal(ctx, goals.ScreenTime, goals.Override{Threshold: floatp(7)})
			So(err, ShouldBeNil)

			Convey("Then past days are rescored retroactively", func() {
				So(cfg.Threshold, ShouldEqual, 7.0)
				So(svc.History()["2024-05-01"], ShouldEqual, 100)
				So(svc.RankInfo().CurrentXP, ShouldEqual, 100.0)
			})
		})

		Convey("When an invalid single goal update is sent", func() {
			_, err := svc.UpdateGoal(ctx, goals.Hydration, goals.Override{Weight: intp(0)})

			Convey("Then it is rejected and the table is unchanged", func() {
				So(errors.Is(err, goals.ErrInvalidOverride), ShouldBeTrue)
				cfg, _ := svc.Goals().Get(goals.Hydration)
				So(cfg.Weight, ShouldEqual, 2)
			})
		})

		Convey("When a whole overrides document is saved", func() {
			table, violations, err := svc.SaveGoals(ctx, goals.Overrides{
				goals.Activity: {Active: boolp(false)},
				goals.Tasks:    {Weight: intp(-3)},
			})
			So(err, ShouldBeNil)

			Convey("Then valid fields apply and invalid ones are reported", func() {
				So(len(violations), ShouldEqual, 1)
				act, _ := table.Get(goals.Activity)
				So(act.Active, ShouldBeFalse)
				So(len(svc.ActiveGoals()), ShouldEqual, goals.Count-1)
			})

			Convey("Then the overrides reach the store", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				o, found, err := store.LoadGoalOverrides(ctx)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(*o[goals.Activity].Active, ShouldBeFalse)
			})
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a service loaded with a stored history", t, func() {
		store := repository.NewMemoryStore(repository.WithSeedProgress(map[progress.DateKey]progress.Entry{
			"2024-05-07": {goals.Hydration: 2500},
			"2024-05-08": {goals.Hydration: 2500, goals.Activity: 5000},
			"2024-05-09": {goals.ScreenTime: 7},
		}))
		svc := startService(store)
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("Then history is ordered oldest first and can be limited", func() {
			days := svc.HistoryDays(0)
			So(len(days), ShouldEqual, 3)
			So(days[0].Date, ShouldEqual, progress.DateKey("2024-05-07"))
			So(days[2].Score, ShouldEqual, 0)

			last := svc.HistoryDays(2)
			So(len(last), ShouldEqual, 2)
			So(last[0].Date, ShouldEqual, progress.DateKey("2024-05-08"))
			So(last[0].Band, ShouldEqual, scoring.BandSuccess)
		})

		Convey("Then the rank reflects the summed scores", func() {
			r := svc.RankInfo()
			So(r.CurrentXP, ShouldEqual, 170.0)
			So(r.Level, ShouldEqual, 1)
		})

		Convey("Then the audit explains a day", func() {
			a := svc.Audit("2024-05-08")
			So(a.Score, ShouldEqual, 70)
			So(len(a.Deductions), ShouldEqual, 1)
		})

		Convey("Then the profile summarises the history", func() {
			p := svc.Profile()
			So(p.TotalXP, ShouldEqual, 170)
			So(p.Summary.TotalDays, ShouldEqual, 3)
			So(p.Summary.CurrentStreak, ShouldEqual, 0)
			So(p.Summary.Week[6].Date, ShouldEqual, progress.DateKey("2024-05-10"))
		})

		Convey("Then stats describe the session", func() {
			stats := svc.GetStats()
			So(stats["trackedDays"], ShouldEqual, 3)
			So(stats["writerCount"], ShouldEqual, 1)
		})
	})
}

type malformedBlob struct{ goals, progress []byte }

func (b malformedBlob) Get(_ context.Context, key string) ([]byte, bool, error) {
	switch key {
	case repository.KeyGoals:
		return b.goals, b.goals != nil, nil
	case repository.KeyProgress:
		return b.progress, b.progress != nil, nil
	}
	return nil, false, nil
}

func (malformedBlob) Put(context.Context, string, []byte) error { return nil }
func (malformedBlob) Close() error                              { return nil }

type brokenStore struct{ *repository.MemoryStore }

var errBackend = errors.New("backend unavailable")

func (brokenStore) LoadAllProgress(context.Context) (map[progress.DateKey]progress.Entry, error) {
	return nil, errBackend
}

func TestService_StartFallbacks(t *testing.T) {
	Convey("Given stored data that cannot be decoded", t, func() {
		blob := malformedBlob{goals: []byte("{not json"), progress: []byte("[1,2")}
		svc := startService(repository.NewBlobStore(blob, "test"))
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("Then the defaults and an empty history are used", func() {
			So(svc.Goals(), ShouldResemble, goals.Defaults())
			So(svc.History(), ShouldBeEmpty)
		})
	})

	Convey("Given a backend that fails to load", t, func() {
		svc := service.New(service.WithStore(brokenStore{repository.NewMemoryStore()}))

		Convey("Then Start fails", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, errBackend), ShouldBeTrue)
		})
	})
}

func TestService_StoredXP(t *testing.T) {
	Convey("Given a service started on an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := startService(store)
		_, hadXP := svc.GetStats()["storedXP"]
		So(hadXP, ShouldBeFalse)

		Convey("When days are recorded and the writes drain", func() {
			_, err := svc.SetValue(ctx, service.SetRequest{Date: "2024-05-01", Key: goals.Hydration, Value: 2500})
			So(err, ShouldBeNil)
			_, err = svc.SetValue(ctx, service.SetRequest{Date: "2024-05-02", Key: goals.Activity, Value: 5000})
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then stats report the XP that was last persisted", func() {
				So(svc.GetStats()["storedXP"], ShouldEqual, 150)
			})
		})
	})
}

func TestService_WriteFailures(t *testing.T) {
	Convey("Given a store whose writes fail", t, func() {
		store := repository.NewMemoryStore()
		var got results
		svc := startService(store, service.WithResultSink(got.sink))
		ctx := context.Background()
		store.FailWrites(errBackend)

		Convey("When a value is recorded", func() {
			res, err := svc.SetValue(ctx, service.SetRequest{Date: "2024-05-03", Key: goals.Tasks, Value: 5})
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then memory keeps the value and the failures are reported", func() {
				So(res.Score, ShouldEqual, 100)
				So(svc.History()["2024-05-03"], ShouldEqual, 100)
				So(got.failed(), ShouldEqual, 2)
				So(svc.GetStats()["failedWrites"], ShouldEqual, int64(2))
				all, _ := store.LoadAllProgress(ctx)
				So(all, ShouldBeEmpty)
			})
		})
	})
}
