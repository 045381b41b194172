package config_test

import (
	"testing"

	"github.com/okian/podium/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DataFile, convey.ShouldEqual, "scores.csv")
			convey.So(cfg.RosterFile, convey.ShouldEqual, "roster.yaml")
			convey.So(cfg.IdentityPolicy, convey.ShouldEqual, "hybrid")
			convey.So(cfg.StoreFsync, convey.ShouldBeTrue)
			convey.So(cfg.RaterSizeHint, convey.ShouldEqual, 1024)
			convey.So(cfg.AdminSecretDigest, convey.ShouldBeEmpty)
		})
	})
}
