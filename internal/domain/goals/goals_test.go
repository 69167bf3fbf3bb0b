package goals_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/defend100/internal/domain/goals"
	. "github.com/smartystreets/goconvey/convey"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func boolp(v bool) *bool        { return &v }

func TestDefaults(t *testing.T) {
	Convey("Given the default table", t, func() {
		table := goals.Defaults()

		Convey("Then it holds exactly six active goals in canonical order", func() {
			all := table.All()
			So(len(all), ShouldEqual, goals.Count)
			for i, c := range all {
				So(c.Key, ShouldEqual, goals.Keys[i])
				So(c.Active, ShouldBeTrue)
				So(c.Weight, ShouldBeGreaterThan, 0)
				So(c.HasThreshold(), ShouldBeTrue)
			}
			So(len(table.Active()), ShouldEqual, goals.Count)
			So(table.TotalActiveWeight(), ShouldEqual, 12)
		})

		Convey("Then direction is attached to the definition", func() {
			for _, k := range []goals.Key{goals.Hydration, goals.Activity, goals.Recovery, goals.Tasks} {
				So(goals.DirectionOf(k), ShouldEqual, goals.Maximize)
			}
			So(goals.DirectionOf(goals.ScreenTime), ShouldEqual, goals.Minimize)
			So(goals.DirectionOf(goals.Calories), ShouldEqual, goals.Minimize)
		})

		Convey("Then the reference thresholds are in place", func() {
			hyd, _ := table.Get(goals.Hydration)
			So(hyd.Threshold, ShouldEqual, 2500)
			So(hyd.Weight, ShouldEqual, 2)
			act, _ := table.Get(goals.Activity)
			So(act.Threshold, ShouldEqual, 10000)
			So(act.Weight, ShouldEqual, 3)
			st, _ := table.Get(goals.ScreenTime)
			So(st.Threshold, ShouldEqual, 3.5)
		})
	})

	Convey("Given key parsing", t, func() {
		k, err := goals.ParseKey("screen_time")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, goals.ScreenTime)

		_, err = goals.ParseKey("sleep")
		So(errors.Is(err, goals.ErrUnknownKey), ShouldBeTrue)
	})
}

func TestMerge(t *testing.T) {
	Convey("Given the defaults and a partial override", t, func() {
		overrides := goals.Overrides{
			goals.Hydration: {Weight: intp(3)},
			goals.Tasks:     {Active: boolp(false)},
		}

		Convey("When merging", func() {
			table, violations := goals.Merge(goals.Defaults(), overrides)

			Convey("Then only the set fields change", func() {
				So(violations, ShouldBeEmpty)
				hyd, _ := table.Get(goals.Hydration)
				So(hyd.Weight, ShouldEqual, 3)
				So(hyd.Threshold, ShouldEqual, 2500)
				So(hyd.Unit, ShouldEqual, "ml")
				So(hyd.Active, ShouldBeTrue)

				tasks, _ := table.Get(goals.Tasks)
				So(tasks.Active, ShouldBeFalse)
				So(tasks.Weight, ShouldEqual, 1)

				act, _ := table.Get(goals.Activity)
				def, _ := goals.Default(goals.Activity)
				So(act, ShouldResemble, def)
			})
		})
	})

	Convey("Given overrides that would break the invariants", t, func() {
		overrides := goals.Overrides{
			goals.Activity:   {Weight: intp(0), Threshold: floatp(12000)},
			goals.ScreenTime: {Threshold: floatp(math.Inf(1))},
			goals.Recovery:   {Threshold: floatp(-1)},
		}
		table, violations := goals.Merge(goals.Defaults(), overrides)

		Convey("Then the invalid fields keep their defaults", func() {
			So(len(violations), ShouldEqual, 3)
			act, _ := table.Get(goals.Activity)
			So(act.Weight, ShouldEqual, 3)
			So(act.Threshold, ShouldEqual, 12000)
			st, _ := table.Get(goals.ScreenTime)
			So(st.Threshold, ShouldEqual, 3.5)
			rec, _ := table.Get(goals.Recovery)
			So(rec.Threshold, ShouldEqual, 8)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given stored override payloads", t, func() {
		Convey("When the payload is empty", func() {
			table, _, err := goals.Load(nil)
			So(err, ShouldBeNil)
			So(table, ShouldResemble, goals.Defaults())
		})

		Convey("When the payload is a valid partial table", func() {
			payload := []byte(`{
				"hydration": {"weight": 1, "target": 3000},
				"screen_time": {"limit": 2, "isActive": false},
				"mood": {"weight": 9}
			}`)
			table, violations, err := goals.Load(payload)

			Convey("Then fields merge and unknown keys are ignored", func() {
				So(err, ShouldBeNil)
				So(violations, ShouldBeEmpty)
				hyd, _ := table.Get(goals.Hydration)
				So(hyd.Weight, ShouldEqual, 1)
				So(hyd.Threshold, ShouldEqual, 3000)
				st, _ := table.Get(goals.ScreenTime)
				So(st.Threshold, ShouldEqual, 2)
				So(st.Active, ShouldBeFalse)
				So(st.Weight, ShouldEqual, 2)
			})
		})

		Convey("When target and limit are both present", func() {
			table, _, err := goals.Load([]byte(`{"calories": {"target": 1800, "limit": 2500}}`))
			So(err, ShouldBeNil)
			cal, _ := table.Get(goals.Calories)
			So(cal.Threshold, ShouldEqual, 1800)
		})

		Convey("When the payload cannot be parsed", func() {
			table, _, err := goals.Load([]byte(`{"hydration": {"weight": 3`))

			Convey("Then the whole load falls back to defaults", func() {
				So(errors.Is(err, goals.ErrMalformed), ShouldBeTrue)
				So(table, ShouldResemble, goals.Defaults())
			})
		})

		Convey("When one goal has the wrong shape", func() {
			table, _, err := goals.Load([]byte(`{"hydration": {"weight": 3}, "activity": {"weight": "heavy"}}`))

			Convey("Then no partial data is used", func() {
				So(errors.Is(err, goals.ErrMalformed), ShouldBeTrue)
				hyd, _ := table.Get(goals.Hydration)
				So(hyd.Weight, ShouldEqual, 2)
			})
		})

		Convey("When the payload is not an object", func() {
			_, _, err := goals.Load([]byte(`[1,2,3]`))
			So(errors.Is(err, goals.ErrMalformed), ShouldBeTrue)
		})

		Convey("When stored weights are out of range", func() {
			payload := []byte(`{
				"hydration": {"weight": 4e18},
				"activity": {"weight": 4e18},
				"recovery": {"weight": -4e18},
				"tasks": {"weight": 1000000}
			}`)
			table, violations, err := goals.Load(payload)

			Convey("Then each is reported and the default weight is kept", func() {
				So(err, ShouldBeNil)
				So(violations, ShouldHaveLength, 3)
				for _, v := range violations {
					So(v.Field, ShouldEqual, "weight")
				}
				for _, k := range []goals.Key{goals.Hydration, goals.Activity, goals.Recovery} {
					c, _ := table.Get(k)
					def, _ := goals.Default(k)
					So(c.Weight, ShouldEqual, def.Weight)
				}
				tasks, _ := table.Get(goals.Tasks)
				So(tasks.Weight, ShouldEqual, goals.MaxWeight)
			})
		})
	})
}

func TestTableEditing(t *testing.T) {
	Convey("Given the defaults", t, func() {
		table := goals.Defaults()

		Convey("When editing a single goal", func() {
			edited, err := table.With(goals.Calories, goals.Override{Threshold: floatp(1900), Active: boolp(false)})
			So(err, ShouldBeNil)

			Convey("Then only that goal changes and the original is untouched", func() {
				cal, _ := edited.Get(goals.Calories)
				So(cal.Threshold, ShouldEqual, 1900)
				So(cal.Active, ShouldBeFalse)
				orig, _ := table.Get(goals.Calories)
				So(orig.Threshold, ShouldEqual, 2200)
				So(len(edited.Active()), ShouldEqual, 5)
			})
		})

		Convey("When the edit is invalid", func() {
			_, err := table.With(goals.Tasks, goals.Override{Weight: intp(-1)})
			So(errors.Is(err, goals.ErrInvalidOverride), ShouldBeTrue)
			_, err = table.With(goals.Tasks, goals.Override{Weight: intp(goals.MaxWeight + 1)})
			So(errors.Is(err, goals.ErrInvalidOverride), ShouldBeTrue)
			So(goals.Config{Weight: math.MaxInt}.EffectiveWeight(), ShouldEqual, goals.FallbackWeight)
			_, err = table.With(goals.Key("nope"), goals.Override{})
			So(errors.Is(err, goals.ErrUnknownKey), ShouldBeTrue)
		})

		Convey("When round-tripping through the stored form", func() {
			edited, _ := table.With(goals.ScreenTime, goals.Override{Threshold: floatp(2.5)})
			payload, err := json.Marshal(edited.Overrides())
			So(err, ShouldBeNil)
			So(string(payload), ShouldContainSubstring, `"screen_time":{"weight":2,"limit":2.5`)

			reloaded, _, err := goals.Load(payload)
			So(err, ShouldBeNil)
			So(reloaded, ShouldResemble, edited)
		})
	})
}
