package progress_test

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDateKeys(t *testing.T) {
	Convey("Given date key helpers", t, func() {
		Convey("Then canonical keys parse and others do not", func() {
			d, err := progress.ParseDateKey("2024-02-29")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, progress.DateKey("2024-02-29"))

			for _, bad := range []string{"2023-02-29", "2024-2-1", "24-01-01", "", "2024-01-01T00:00:00Z"} {
				_, err := progress.ParseDateKey(bad)
				So(errors.Is(err, progress.ErrInvalidDate), ShouldBeTrue)
			}
		})

		Convey("Then AddDays crosses month and year boundaries", func() {
			d, err := progress.DateKey("2023-12-31").AddDays(1)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, progress.DateKey("2024-01-01"))
			d, _ = progress.DateKey("2024-03-01").AddDays(-1)
			So(d, ShouldEqual, progress.DateKey("2024-02-29"))
		})

		Convey("Then today follows the local calendar of the configured zone", func() {
			// 23:30 UTC on May 1st is already May 2nd in Istanbul (UTC+3).
			instant := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
			clock := progress.ClockFunc(func() time.Time { return instant })
			istanbul := time.FixedZone("TRT", 3*60*60)
			newYork := time.FixedZone("EDT", -4*60*60)

			So(progress.Today(clock, time.UTC), ShouldEqual, progress.DateKey("2024-05-01"))
			So(progress.Today(clock, istanbul), ShouldEqual, progress.DateKey("2024-05-02"))
			So(progress.Today(clock, newYork), ShouldEqual, progress.DateKey("2024-05-01"))
		})
	})
}

func TestStore(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := progress.NewStore()
		day := progress.DateKey("2024-05-01")

		Convey("When reading an unknown date", func() {
			e := store.Get(day)

			Convey("Then the entry is empty, not nil-panicking", func() {
				So(len(e), ShouldEqual, 0)
				_, ok := e.Value(goals.Hydration)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When recording values", func() {
			_, err := store.Set(day, goals.Hydration, 1000)
			So(err, ShouldBeNil)
			e, err := store.Set(day, goals.Hydration, 2500)
			So(err, ShouldBeNil)
			_, err = store.Set(day, goals.Tasks, 0)
			So(err, ShouldBeNil)

			Convey("Then the last write wins and a recorded zero is present", func() {
				So(e[goals.Hydration], ShouldEqual, 2500)
				got := store.Get(day)
				So(got[goals.Hydration], ShouldEqual, 2500)
				v, ok := got.Value(goals.Tasks)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 0)
			})

			Convey("Then returned entries are copies", func() {
				got := store.Get(day)
				got[goals.Activity] = 1
				_, ok := store.Get(day)[goals.Activity]
				So(ok, ShouldBeFalse)
			})

			Convey("Then recording the same value twice is idempotent", func() {
				first := store.Get(day)
				_, _ = store.Set(day, goals.Hydration, 2500)
				So(store.Get(day), ShouldResemble, first)
			})
		})

		Convey("When recording invalid input", func() {
			_, err := store.Set("2024-13-01", goals.Hydration, 1)
			So(errors.Is(err, progress.ErrInvalidDate), ShouldBeTrue)
			_, err = store.Set(day, goals.Key("mood"), 1)
			So(errors.Is(err, goals.ErrUnknownKey), ShouldBeTrue)
			_, err = store.Set(day, goals.Hydration, math.NaN())
			So(errors.Is(err, progress.ErrInvalidValue), ShouldBeTrue)
			So(store.Len(), ShouldEqual, 0)
		})

		Convey("When replacing from persisted data", func() {
			dropped := store.Replace(map[progress.DateKey]progress.Entry{
				"2024-05-02": {goals.Activity: 4000, goals.Key("mood"): 3},
				"2024-05-01": {goals.Recovery: math.Inf(1), goals.Tasks: 2},
				"yesterday":  {goals.Tasks: 1},
			})

			Convey("Then invalid dates, keys and values are dropped", func() {
				So(dropped, ShouldEqual, 3)
				So(store.Dates(), ShouldResemble, []progress.DateKey{"2024-05-01", "2024-05-02"})
				So(store.Get("2024-05-01"), ShouldResemble, progress.Entry{goals.Tasks: 2})
				So(len(store.All()), ShouldEqual, 2)
			})
		})

		Convey("When writing concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _ = store.Set(day, goals.Keys[i%goals.Count], float64(i))
				}(i)
			}
			wg.Wait()

			Convey("Then every key ends up recorded", func() {
				So(len(store.Get(day)), ShouldEqual, goals.Count)
			})
		})
	})
}
