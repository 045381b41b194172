package admin_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/okian/podium/internal/admin"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/schema"
	"github.com/smartystreets/goconvey/convey"
)

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateAll(_ context.Context) { f.calls++ }

func testStore(t *testing.T) repository.Store {
	t.Helper()
	s, err := schema.New(
		[]model.Subject{{ID: 1, Name: "Alpha"}},
		[]model.Criterion{{Name: "craft", MaxPoints: 10}},
	)
	if err != nil {
		t.Fatalf("failed to build schema: %v", err)
	}
	store, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "scores.csv"), s, repository.WithFsync(false))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	batch, err := s.BuildBatch("rater-1", "", map[int]map[string]int{1: {"craft": 7}})
	if err != nil {
		t.Fatalf("failed to build batch: %v", err)
	}
	if err := store.Append(context.Background(), batch); err != nil {
		t.Fatalf("failed to append batch: %v", err)
	}
	return store
}

func TestControl(t *testing.T) {
	convey.Convey("Given an admin control", t, func() {
		ctx := context.Background()
		store := testStore(t)
		inv := &fakeInvalidator{}

		ctl, err := admin.New(admin.DigestOf("hunter2"), store, admin.WithSessionInvalidator(inv))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When authenticating", func() {
			convey.Convey("Then the right secret passes and anything else fails", func() {
				convey.So(ctl.Authenticate("hunter2"), convey.ShouldBeTrue)
				convey.So(ctl.Authenticate("hunter3"), convey.ShouldBeFalse)
				convey.So(ctl.Authenticate(""), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When resetting with the right secret", func() {
			err := ctl.Reset(ctx, "hunter2")

			convey.Convey("Then the store is wiped and sessions invalidated", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.Count(ctx), convey.ShouldEqual, 0)
				convey.So(store.HasSubmitted(ctx, "rater-1"), convey.ShouldBeFalse)
				convey.So(inv.calls, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When resetting with a wrong secret", func() {
			err := ctl.Reset(ctx, "wrong")

			convey.Convey("Then nothing is touched", func() {
				convey.So(err, convey.ShouldWrap, admin.ErrBadSecret)
				convey.So(store.Count(ctx), convey.ShouldEqual, 1)
				convey.So(inv.calls, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When exporting with the right secret", func() {
			var buf bytes.Buffer
			err := ctl.Export(ctx, "hunter2", &buf)

			convey.Convey("Then the tabular form is streamed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(buf.String(), convey.ShouldContainSubstring, "rater_id,device_id,subject_id,subject_name,craft,total")
				convey.So(buf.String(), convey.ShouldContainSubstring, "rater-1")
			})
		})

		convey.Convey("When exporting with a wrong secret", func() {
			var buf bytes.Buffer
			err := ctl.Export(ctx, "wrong", &buf)

			convey.Convey("Then nothing is written", func() {
				convey.So(err, convey.ShouldWrap, admin.ErrBadSecret)
				convey.So(buf.Len(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestNew(t *testing.T) {
	convey.Convey("Given digest material", t, func() {
		store := testStore(t)

		convey.Convey("When the digest is not hex", func() {
			_, err := admin.New("not-a-digest", store)
			convey.So(err, convey.ShouldWrap, admin.ErrBadDigest)
		})

		convey.Convey("When the digest has the wrong length", func() {
			_, err := admin.New("deadbeef", store)
			convey.So(err, convey.ShouldWrap, admin.ErrBadDigest)
		})

		convey.Convey("When the digest is a proper SHA-256", func() {
			_, err := admin.New(admin.DigestOf("s"), store)
			convey.So(err, convey.ShouldBeNil)
		})
	})
}
