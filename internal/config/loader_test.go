package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/prive/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given a default configuration", t, func() {
		cfg := config.New()

		Convey("Then the defaults are sensible", func() {
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.DBPath, ShouldBeEmpty)
			So(cfg.SaveRetries, ShouldEqual, 3)
		})
	})
}

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the defaults come through", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.SaveRetries, ShouldEqual, 3)
		})
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PRIVE_ADDR", ":8080")
	t.Setenv("PRIVE_LOG_LEVEL", "debug")
	t.Setenv("PRIVE_SAVE_RETRIES", "5")

	Convey("Given PRIVE_* environment variables", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then they override the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8080")
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.SaveRetries, ShouldEqual, 5)
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "addr: \":7070\"\ndb_path: /tmp/reputation.db\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("PRIVE_CONFIG", path)

	Convey("Given a YAML config file", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then its values layer over the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.DBPath, ShouldEqual, "/tmp/reputation.db")
			So(cfg.LogLevel, ShouldEqual, "info")
		})
	})
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("PRIVE_CONFIG", path)
	t.Setenv("PRIVE_ADDR", ":6060")

	Convey("Given a file and an environment override for the same key", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the environment wins", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
		})
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("PRIVE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	Convey("Given a config path that does not exist", t, func() {
		_, err := config.Load(context.Background())

		So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
	})
}

func TestLoadBlankAddr(t *testing.T) {
	t.Setenv("PRIVE_ADDR", "")

	Convey("Given a blanked-out listen address", t, func() {
		_, err := config.Load(context.Background())

		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestLoadNegativeRetries(t *testing.T) {
	t.Setenv("PRIVE_SAVE_RETRIES", "-1")

	Convey("Given a negative retry budget", t, func() {
		_, err := config.Load(context.Background())

		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}
