package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithFormat(FormatJSON)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Named("scoring").Info(ctx, "score computed", String("date", "2024-05-01"), Int("score", 70))

			Convey("Then the record carries the fields and the logger name", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "score computed")
				So(rec["date"], ShouldEqual, "2024-05-01")
				So(rec["score"], ShouldEqual, float64(70))
				So(rec["logger"], ShouldEqual, "scoring")
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging an error field", func() {
			Get().Error(ctx, "save failed", Error(errors.New("disk full")))

			Convey("Then the error is rendered as its message", func() {
				So(buf.String(), ShouldContainSubstring, `"error":"disk full"`)
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then info records are dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When With is used", func() {
			Get().With(String("write_id", "w-1")).Debug(ctx, "debug hidden")
			So(SetLevelString("debug"), ShouldBeNil)
			Get().With(String("write_id", "w-1")).Debug(ctx, "debug shown")

			Convey("Then the bound field is emitted", func() {
				So(buf.String(), ShouldContainSubstring, `"write_id":"w-1"`)
				So(buf.String(), ShouldNotContainSubstring, "debug hidden")
			})
		})
	})

	Convey("Given invalid settings", t, func() {
		So(Init(WithFormat("xml")), ShouldNotBeNil)
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})

	Convey("Nop never panics", t, func() {
		So(func() { Nop().Named("x").With(Int("a", 1)).Info(context.Background(), "m") }, ShouldNotPanic)
	})
}
