package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/fetch"
	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/store"
	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/transport"
	"github.com/iahsanshah/ZK-machine-Integration/internal/app"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/identity"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const scope = "10.0.0.5:8081"

var testNow = time.Date(2024, 3, 11, 20, 0, 0, 0, time.Local)

// stubTransport returns canned payloads, or fails, or blocks until released.
type stubTransport struct {
	raws    []transport.RawPunch
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubTransport) Fetch(ctx context.Context, _ transport.Window) ([]transport.RawPunch, error) {
	if s.started != nil {
		close(s.started)
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.raws, nil
}

func raw(subject, clock string) transport.RawPunch {
	return transport.RawPunch{"emp_code": subject, "punch_time": "2024-03-11 " + clock}
}

func resolver() identity.Resolver {
	return identity.Static{
		"E1": "HR-EMP-00001",
		"E2": "HR-EMP-00002",
	}
}

func newService(t transport.Transport, st store.Store, opts ...app.Option) *app.Service {
	base := []app.Option{
		app.WithClock(func() time.Time { return testNow }),
		app.WithNormalizer(fetch.New(fetch.WithClock(func() time.Time { return testNow }))),
	}
	return app.New(t, st, resolver(), append(base, opts...)...)
}

func TestService_RunCycle(t *testing.T) {
	Convey("Given a day of punches for one subject", t, func() {
		tr := &stubTransport{raws: []transport.RawPunch{
			raw("E1", "12:00:00"),
			raw("E1", "09:00:00"),
			raw("E1", "18:00:00"),
			raw("E1", "13:00:00"),
		}}
		st := store.NewMemoryStore()
		svc := newService(tr, st)

		Convey("When a cycle runs", func() {
			stats, err := svc.RunCycle(context.Background(), scope)

			Convey("Then four check-ins are created with inferred log types", func() {
				So(err, ShouldBeNil)
				So(stats.Fetched, ShouldEqual, 4)
				So(stats.Created, ShouldEqual, 4)
				So(stats.Skipped(), ShouldEqual, 0)

				listed, err := st.List(context.Background(), scope)
				So(err, ShouldBeNil)
				So(listed, ShouldHaveLength, 4)
				types := make([]string, len(listed))
				for i, c := range listed {
					So(c.Employee, ShouldEqual, "HR-EMP-00001")
					types[i] = c.LogType
				}
				So(types, ShouldResemble, []string{"IN", "OUT", "IN", "OUT"})
			})

			Convey("And the watermark advances to the cycle end", func() {
				state, err := st.GetSyncState(context.Background(), scope)
				So(err, ShouldBeNil)
				So(state.LastSync.Equal(testNow), ShouldBeTrue)
				So(state.TotalSynced, ShouldEqual, 4)
			})

			Convey("And a second cycle over the same batch creates nothing", func() {
				again, err := svc.RunCycle(context.Background(), scope)
				So(err, ShouldBeNil)
				So(again.Created, ShouldEqual, 0)
				So(again.SkippedDuplicate, ShouldEqual, 4)
				So(st.Count(), ShouldEqual, 4)
			})
		})
	})

	Convey("Given a batch with unresolvable and malformed punches", t, func() {
		tr := &stubTransport{raws: []transport.RawPunch{
			raw("E1", "09:00:00"),
			raw("GHOST", "09:30:00"),
			{"punch_time": "2024-03-11 10:00:00"}, // no subject code
		}}
		st := store.NewMemoryStore()
		svc := newService(tr, st)

		Convey("When a cycle runs", func() {
			stats, err := svc.RunCycle(context.Background(), scope)

			Convey("Then bad punches are counted, not fatal", func() {
				So(err, ShouldBeNil)
				So(stats.Malformed, ShouldEqual, 1)
				So(stats.SkippedUnresolved, ShouldEqual, 1)
				So(stats.Created, ShouldEqual, 1)
				So(st.Count(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given an unreachable transport", t, func() {
		tr := &stubTransport{err: transport.ErrUnreachable}
		st := store.NewMemoryStore()
		svc := newService(tr, st)

		Convey("When a cycle runs", func() {
			_, err := svc.RunCycle(context.Background(), scope)

			Convey("Then the cycle aborts with zero writes and no watermark", func() {
				So(errors.Is(err, transport.ErrUnreachable), ShouldBeTrue)
				So(st.Count(), ShouldEqual, 0)
				_, stateErr := st.GetSyncState(context.Background(), scope)
				So(errors.Is(stateErr, store.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a cycle already running for a scope", t, func() {
		tr := &stubTransport{
			raws:    []transport.RawPunch{raw("E1", "09:00:00")},
			started: make(chan struct{}),
			release: make(chan struct{}),
		}
		st := store.NewMemoryStore()
		svc := newService(tr, st)

		done := make(chan error, 1)
		go func() {
			_, err := svc.RunCycle(context.Background(), scope)
			done <- err
		}()
		<-tr.started

		Convey("When a second cycle starts on the same scope", func() {
			_, err := svc.RunCycle(context.Background(), scope)

			Convey("Then it fails fast with ErrScopeBusy", func() {
				So(errors.Is(err, app.ErrScopeBusy), ShouldBeTrue)
			})
		})

		close(tr.release)
		So(<-done, ShouldBeNil)
	})

	Convey("Given an empty window", t, func() {
		tr := &stubTransport{}
		st := store.NewMemoryStore()
		svc := newService(tr, st)

		Convey("When a cycle runs", func() {
			stats, err := svc.RunCycle(context.Background(), scope)

			Convey("Then it succeeds and still advances the watermark", func() {
				So(err, ShouldBeNil)
				So(stats.Created, ShouldEqual, 0)
				state, stateErr := st.GetSyncState(context.Background(), scope)
				So(stateErr, ShouldBeNil)
				So(state.LastSync.Equal(testNow), ShouldBeTrue)
			})
		})
	})
}

func TestService_Sync(t *testing.T) {
	Convey("Given sequenced punches", t, func() {
		st := store.NewMemoryStore()
		svc := newService(&stubTransport{}, st)
		ts := time.Date(2024, 3, 11, 9, 0, 0, 0, time.Local)
		batch := []model.SequencedPunch{
			{Punch: model.Punch{SubjectCode: "E1", Timestamp: ts, DeviceID: scope}, LogType: model.LogIn},
			{Punch: model.Punch{SubjectCode: "E1", Timestamp: ts, DeviceID: scope}, LogType: model.LogOut},
		}

		Convey("When the same batch is synced twice", func() {
			first, err := svc.Sync(context.Background(), scope, batch)
			So(err, ShouldBeNil)
			second, err := svc.Sync(context.Background(), scope, batch)
			So(err, ShouldBeNil)

			Convey("Then the second run is a no-op", func() {
				So(first.Created, ShouldEqual, 2)
				So(second.Created, ShouldEqual, 0)
				So(second.SkippedDuplicate, ShouldEqual, 2)
				So(st.Count(), ShouldEqual, 2)
			})

			Convey("And a same-second IN and OUT are distinct records", func() {
				So(st.Count(), ShouldEqual, 2)
			})
		})
	})
}

func TestService_RederiveLogTypes(t *testing.T) {
	Convey("Given persisted check-ins with wrong log types", t, func() {
		st := store.NewMemoryStore()
		svc := newService(&stubTransport{}, st)
		ctx := context.Background()

		seed := func(emp, clock, lt string) {
			ts, _ := time.ParseInLocation("2006-01-02 15:04:05", "2024-03-11 "+clock, time.Local)
			_, err := st.Create(ctx, store.Checkin{
				Employee: emp, Timestamp: ts, LogType: lt, DeviceID: scope,
			})
			So(err, ShouldBeNil)
		}
		// Everything was recorded as IN by a buggy source.
		seed("HR-EMP-00001", "09:00:00", "IN")
		seed("HR-EMP-00001", "12:00:00", "IN")
		seed("HR-EMP-00001", "13:00:00", "IN")
		seed("HR-EMP-00001", "18:00:00", "IN")
		seed("HR-EMP-00002", "09:00:00", "OUT")

		Convey("When the rederive pass runs", func() {
			updated, err := svc.RederiveLogTypes(ctx, scope)

			Convey("Then divergent records are rewritten structurally", func() {
				So(err, ShouldBeNil)
				So(updated, ShouldEqual, 3) // positions 2 and 4 of E1, plus E2's lone punch

				listed, err := st.List(ctx, scope)
				So(err, ShouldBeNil)
				types := make([]string, len(listed))
				for i, c := range listed {
					types[i] = c.LogType
				}
				So(types, ShouldResemble, []string{"IN", "OUT", "IN", "OUT", "IN"})
			})

			Convey("And a second run updates nothing", func() {
				again, err := svc.RederiveLogTypes(ctx, scope)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, 0)
			})
		})
	})
}

func TestService_PurgeDuplicates(t *testing.T) {
	Convey("Given duplicate check-ins from a prior bug", t, func() {
		st := store.NewMemoryStore()
		svc := newService(&stubTransport{}, st)
		ctx := context.Background()
		ts := time.Date(2024, 3, 11, 9, 0, 0, 0, time.Local)
		created := time.Date(2024, 3, 11, 21, 0, 0, 0, time.Local)

		keeper, err := st.Create(ctx, store.Checkin{
			Employee: "HR-EMP-00001", Timestamp: ts, LogType: "IN",
			DeviceID: scope, CreatedAt: created,
		})
		So(err, ShouldBeNil)
		_, err = st.Create(ctx, store.Checkin{
			Employee: "HR-EMP-00001", Timestamp: ts, LogType: "IN",
			DeviceID: scope, CreatedAt: created.Add(time.Minute),
		})
		So(err, ShouldBeNil)
		// Same second, different direction: not a duplicate.
		_, err = st.Create(ctx, store.Checkin{
			Employee: "HR-EMP-00001", Timestamp: ts, LogType: "OUT",
			DeviceID: scope, CreatedAt: created,
		})
		So(err, ShouldBeNil)

		Convey("When the purge pass runs", func() {
			deleted, err := svc.PurgeDuplicates(ctx, scope)

			Convey("Then only the later-created duplicate is removed", func() {
				So(err, ShouldBeNil)
				So(deleted, ShouldEqual, 1)

				listed, err := st.List(ctx, scope)
				So(err, ShouldBeNil)
				So(listed, ShouldHaveLength, 2)
				So(listed[0].ID, ShouldEqual, keeper)
			})

			Convey("And a second run deletes nothing", func() {
				again, err := svc.PurgeDuplicates(ctx, scope)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, 0)
			})
		})
	})
}
