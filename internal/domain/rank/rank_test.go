package rank_test

import (
	"testing"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rank"
	"github.com/smartystreets/goconvey/convey"
)

func rating(rater string, subject int, name string, total int) model.Rating {
	return model.Rating{
		RaterID:     rater,
		SubjectID:   subject,
		SubjectName: name,
		Scores:      map[string]int{"craft": total},
		Total:       total,
	}
}

func TestAggregate(t *testing.T) {
	convey.Convey("Given ratings from two raters over two subjects", t, func() {
		ratings := []model.Rating{
			rating("rater-a", 1, "Alpha", 8),
			rating("rater-a", 2, "Beta", 6),
			rating("rater-b", 1, "Alpha", 9),
			rating("rater-b", 2, "Beta", 9),
		}

		convey.Convey("When aggregating", func() {
			rows := rank.Aggregate(ratings)

			convey.Convey("Then means, ranks and extremes should be exact", func() {
				convey.So(rows, convey.ShouldHaveLength, 2)

				convey.So(rows[0].Rank, convey.ShouldEqual, 1)
				convey.So(rows[0].SubjectID, convey.ShouldEqual, 1)
				convey.So(rows[0].SubjectName, convey.ShouldEqual, "Alpha")
				convey.So(rows[0].MeanTotal, convey.ShouldEqual, 8.5)
				convey.So(rows[0].RaterCount, convey.ShouldEqual, 2)
				convey.So(rows[0].MaxTotal, convey.ShouldEqual, 9)
				convey.So(rows[0].MinTotal, convey.ShouldEqual, 8)

				convey.So(rows[1].Rank, convey.ShouldEqual, 2)
				convey.So(rows[1].SubjectID, convey.ShouldEqual, 2)
				convey.So(rows[1].MeanTotal, convey.ShouldEqual, 7.5)
			})
		})

		convey.Convey("When aggregating the same ratings in another order", func() {
			reversed := []model.Rating{ratings[3], ratings[1], ratings[2], ratings[0]}
			rows := rank.Aggregate(ratings)
			rowsReversed := rank.Aggregate(reversed)

			convey.Convey("Then the output should be identical", func() {
				convey.So(rowsReversed, convey.ShouldResemble, rows)
			})
		})
	})

	convey.Convey("Given subjects with equal means", t, func() {
		ratings := []model.Rating{
			rating("rater-a", 7, "Gamma", 5),
			rating("rater-a", 3, "Delta", 5),
		}

		convey.Convey("When aggregating", func() {
			rows := rank.Aggregate(ratings)

			convey.Convey("Then ties break by ascending subject id with dense ranks", func() {
				convey.So(rows, convey.ShouldHaveLength, 2)
				convey.So(rows[0].SubjectID, convey.ShouldEqual, 3)
				convey.So(rows[0].Rank, convey.ShouldEqual, 1)
				convey.So(rows[1].SubjectID, convey.ShouldEqual, 7)
				convey.So(rows[1].Rank, convey.ShouldEqual, 2)
			})
		})
	})

	convey.Convey("Given totals whose mean does not terminate", t, func() {
		ratings := []model.Rating{
			rating("rater-a", 1, "Alpha", 1),
			rating("rater-b", 1, "Alpha", 1),
			rating("rater-c", 1, "Alpha", 0),
		}

		convey.Convey("When aggregating", func() {
			rows := rank.Aggregate(ratings)

			convey.Convey("Then the mean should round to two decimals", func() {
				convey.So(rows, convey.ShouldHaveLength, 1)
				convey.So(rows[0].MeanTotal, convey.ShouldEqual, 0.67)
			})
		})
	})

	convey.Convey("Given no ratings", t, func() {
		convey.Convey("When aggregating", func() {
			rows := rank.Aggregate(nil)

			convey.Convey("Then no rows should be produced", func() {
				convey.So(rows, convey.ShouldBeEmpty)
			})
		})
	})

	convey.Convey("Given a subject no one rated", t, func() {
		ratings := []model.Rating{
			rating("rater-a", 1, "Alpha", 4),
		}

		convey.Convey("When aggregating", func() {
			rows := rank.Aggregate(ratings)

			convey.Convey("Then only rated subjects should appear", func() {
				convey.So(rows, convey.ShouldHaveLength, 1)
				convey.So(rows[0].SubjectID, convey.ShouldEqual, 1)
			})
		})
	})
}
