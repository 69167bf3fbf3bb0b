package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/defend100/internal/domain/scoring"
	types "github.com/okian/defend100/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDayScore(t *testing.T) {
	Convey("Given a scored day", t, func() {
		d := types.NewDayScore("2024-05-01", 72)

		Convey("Then the band follows the score", func() {
			So(d.Band, ShouldEqual, scoring.BandSuccess)
		})

		Convey("Then it renders with snake_case fields", func() {
			b, err := json.Marshal(d)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"date":"2024-05-01","score":72,"band":"success"}`)
		})
	})
}
