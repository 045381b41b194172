package dedupe_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/smartystreets/goconvey/convey"
)

func TestInMemoryIndex(t *testing.T) {
	convey.Convey("Given an empty identity index", t, func() {
		ctx := context.Background()
		idx := dedupe.NewInMemoryIndex(dedupe.WithSizeHint(64))

		convey.Convey("When nothing was recorded", func() {
			convey.Convey("Then no identity should be seen", func() {
				convey.So(idx.Seen(ctx, "rater-1"), convey.ShouldBeFalse)
				convey.So(idx.Size(), convey.ShouldEqual, 0)
				convey.So(idx.Version(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When recording an identity", func() {
			already := idx.SeenAndRecord(ctx, "rater-1")

			convey.Convey("Then the first record reports unseen", func() {
				convey.So(already, convey.ShouldBeFalse)
				convey.So(idx.Seen(ctx, "rater-1"), convey.ShouldBeTrue)
				convey.So(idx.Size(), convey.ShouldEqual, 1)
			})

			convey.Convey("Then a second record reports seen", func() {
				convey.So(idx.SeenAndRecord(ctx, "rater-1"), convey.ShouldBeTrue)
				convey.So(idx.Size(), convey.ShouldEqual, 1)
			})

			convey.Convey("Then the version moved", func() {
				convey.So(idx.Version(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When forgetting an identity", func() {
			idx.SeenAndRecord(ctx, "rater-1")
			before := idx.Version()
			idx.Forget(ctx, "rater-1")

			convey.Convey("Then it can be recorded again", func() {
				convey.So(idx.Seen(ctx, "rater-1"), convey.ShouldBeFalse)
				convey.So(idx.SeenAndRecord(ctx, "rater-1"), convey.ShouldBeFalse)
			})

			convey.Convey("Then the version moved", func() {
				convey.So(idx.Version(), convey.ShouldBeGreaterThan, before)
			})
		})

		convey.Convey("When forgetting an unknown identity", func() {
			before := idx.Version()
			idx.Forget(ctx, "unknown")

			convey.Convey("Then the version should not move", func() {
				convey.So(idx.Version(), convey.ShouldEqual, before)
			})
		})

		convey.Convey("When resetting", func() {
			idx.SeenAndRecord(ctx, "rater-1")
			idx.SeenAndRecord(ctx, "rater-2")
			before := idx.Version()
			idx.Reset(ctx)

			convey.Convey("Then every identity is forgotten and the version moved", func() {
				convey.So(idx.Size(), convey.ShouldEqual, 0)
				convey.So(idx.Seen(ctx, "rater-1"), convey.ShouldBeFalse)
				convey.So(idx.Version(), convey.ShouldBeGreaterThan, before)
			})
		})
	})
}

func TestSeenAndRecordConcurrent(t *testing.T) {
	convey.Convey("Given many goroutines racing on one identity", t, func() {
		ctx := context.Background()
		idx := dedupe.NewInMemoryIndex()

		const goroutines = 64
		var wins atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if !idx.SeenAndRecord(ctx, "contested") {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		convey.Convey("Then exactly one goroutine records it", func() {
			convey.So(wins.Load(), convey.ShouldEqual, 1)
			convey.So(idx.Size(), convey.ShouldEqual, 1)
		})
	})
}
