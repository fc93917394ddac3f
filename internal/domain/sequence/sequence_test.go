package sequence_test

import (
	"testing"
	"time"

	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/sequence"
	. "github.com/smartystreets/goconvey/convey"
)

func punchAt(subject, clock string) model.Punch {
	ts, err := time.Parse("2006-01-02 15:04:05", "2024-03-11 "+clock)
	if err != nil {
		panic(err)
	}
	return model.Punch{SubjectCode: subject, Timestamp: ts, DeviceID: "dev-1"}
}

func logTypes(seq []model.SequencedPunch) []model.LogType {
	out := make([]model.LogType, len(seq))
	for i, sp := range seq {
		out[i] = sp.LogType
	}
	return out
}

func TestSequencer_Assign(t *testing.T) {
	Convey("Given a sequencer with default options", t, func() {
		s := sequence.New()

		Convey("When assigning an empty batch", func() {
			Convey("Then the output is empty and no error occurs", func() {
				So(s.Assign(nil), ShouldBeEmpty)
				So(s.Assign([]model.Punch{}), ShouldBeEmpty)
			})
		})

		Convey("When a subject punches once in a day", func() {
			seq := s.Assign([]model.Punch{punchAt("E2", "09:00:00")})

			Convey("Then the single punch is an arrival", func() {
				So(seq, ShouldHaveLength, 1)
				So(seq[0].LogType, ShouldEqual, model.LogIn)
			})
		})

		Convey("When a subject punches at 09:00, 12:00, 13:00 and 18:00", func() {
			seq := s.Assign([]model.Punch{
				punchAt("E1", "09:00:00"),
				punchAt("E1", "12:00:00"),
				punchAt("E1", "13:00:00"),
				punchAt("E1", "18:00:00"),
			})

			Convey("Then log types are IN, OUT, IN, OUT", func() {
				So(logTypes(seq), ShouldResemble, []model.LogType{
					model.LogIn, model.LogOut, model.LogIn, model.LogOut,
				})
			})
		})

		Convey("When punches arrive out of chronological order", func() {
			seq := s.Assign([]model.Punch{
				punchAt("E1", "18:00:00"),
				punchAt("E1", "09:00:00"),
				punchAt("E1", "12:00:00"),
			})

			Convey("Then they are ordered by timestamp before assignment", func() {
				So(seq[0].Timestamp.Hour(), ShouldEqual, 9)
				So(seq[1].Timestamp.Hour(), ShouldEqual, 12)
				So(seq[2].Timestamp.Hour(), ShouldEqual, 18)
				So(logTypes(seq), ShouldResemble, []model.LogType{
					model.LogIn, model.LogOut, model.LogOut,
				})
			})
		})

		Convey("When a group of five punches is assigned", func() {
			seq := s.Assign([]model.Punch{
				punchAt("E1", "08:00:00"),
				punchAt("E1", "10:00:00"),
				punchAt("E1", "12:00:00"),
				punchAt("E1", "14:00:00"),
				punchAt("E1", "19:00:00"),
			})

			Convey("Then interiors alternate strictly starting with OUT", func() {
				So(logTypes(seq), ShouldResemble, []model.LogType{
					model.LogIn, model.LogOut, model.LogIn, model.LogOut, model.LogOut,
				})
			})
		})

		Convey("When the source hints contradict the positional rule", func() {
			in := punchAt("E1", "09:00:00")
			in.SourceHint = model.HintOut
			mid := punchAt("E1", "12:00:00")
			mid.SourceHint = model.HintIn
			out := punchAt("E1", "18:00:00")
			out.SourceHint = model.HintIn

			seq := s.Assign([]model.Punch{in, mid, out})

			Convey("Then hints are ignored entirely", func() {
				So(logTypes(seq), ShouldResemble, []model.LogType{
					model.LogIn, model.LogOut, model.LogOut,
				})
			})
		})

		Convey("When punches span multiple subjects and days", func() {
			d1 := punchAt("E1", "09:00:00")
			d2 := punchAt("E1", "17:00:00")
			next := punchAt("E1", "09:30:00")
			next.Timestamp = next.Timestamp.AddDate(0, 0, 1)
			other := punchAt("A9", "11:00:00")

			seq := s.Assign([]model.Punch{d2, next, other, d1})

			Convey("Then each (subject, day) group is sequenced independently", func() {
				So(seq, ShouldHaveLength, 4)
				// Groups are emitted subject-then-day sorted.
				So(seq[0].SubjectCode, ShouldEqual, "A9")
				So(seq[0].LogType, ShouldEqual, model.LogIn)
				So(logTypes(seq[1:3]), ShouldResemble, []model.LogType{model.LogIn, model.LogOut})
				So(seq[3].Day(), ShouldEqual, "2024-03-12")
				So(seq[3].LogType, ShouldEqual, model.LogIn)
			})
		})

		Convey("When every punch in a group has the identical timestamp", func() {
			a := punchAt("E1", "09:00:00")
			a.RawID = "first"
			b := punchAt("E1", "09:00:00")
			b.RawID = "second"
			c := punchAt("E1", "09:00:00")
			c.RawID = "third"

			seq := s.Assign([]model.Punch{a, b, c})

			Convey("Then fetch order is preserved and the rule still applies", func() {
				So(seq[0].RawID, ShouldEqual, "first")
				So(seq[1].RawID, ShouldEqual, "second")
				So(seq[2].RawID, ShouldEqual, "third")
				So(logTypes(seq), ShouldResemble, []model.LogType{
					model.LogIn, model.LogOut, model.LogOut,
				})
			})
		})
	})

	Convey("Given a sequencer trusting source hints", t, func() {
		s := sequence.New(sequence.WithTrustSourceHint(true))

		Convey("When an interior punch carries a well-formed hint", func() {
			first := punchAt("E1", "08:00:00")
			second := punchAt("E1", "10:00:00")
			second.SourceHint = model.HintIn
			third := punchAt("E1", "12:00:00")
			last := punchAt("E1", "18:00:00")
			last.SourceHint = model.HintIn

			seq := s.Assign([]model.Punch{first, second, third, last})

			Convey("Then the hint wins for interiors and alternation continues from it", func() {
				So(logTypes(seq), ShouldResemble, []model.LogType{
					model.LogIn, model.LogIn, model.LogOut, model.LogOut,
				})
			})

			Convey("And the first and last punches stay structural", func() {
				So(seq[0].LogType, ShouldEqual, model.LogIn)
				So(seq[len(seq)-1].LogType, ShouldEqual, model.LogOut)
			})
		})
	})
}

func TestStructural(t *testing.T) {
	Convey("Given the structural assignment rule", t, func() {
		Convey("When the group is empty", func() {
			So(sequence.Structural(0), ShouldBeEmpty)
			So(sequence.Structural(-1), ShouldBeEmpty)
		})

		Convey("When the group has one punch", func() {
			So(sequence.Structural(1), ShouldResemble, []model.LogType{model.LogIn})
		})

		Convey("When the group has two punches", func() {
			So(sequence.Structural(2), ShouldResemble, []model.LogType{model.LogIn, model.LogOut})
		})

		Convey("When the group has six punches", func() {
			So(sequence.Structural(6), ShouldResemble, []model.LogType{
				model.LogIn, model.LogOut, model.LogIn, model.LogOut, model.LogIn, model.LogOut,
			})
		})

		Convey("When the group has an odd size", func() {
			types := sequence.Structural(5)

			Convey("Then the last punch is still forced to OUT", func() {
				So(types[0], ShouldEqual, model.LogIn)
				So(types[4], ShouldEqual, model.LogOut)
				So(types[1:4], ShouldResemble, []model.LogType{model.LogOut, model.LogIn, model.LogOut})
			})
		})
	})
}
