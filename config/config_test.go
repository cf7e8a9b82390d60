package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm/logger"
)

func resetConfig(t *testing.T) {
	t.Helper()
	cfg, loaded = AppConfig{}, false
	t.Cleanup(func() { cfg, loaded = AppConfig{}, false })
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	resetConfig(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("POSTS_PER_PAGE", "10")
	t.Setenv("ADMIN_USERNAMES", " root , ops ,")
	t.Setenv("LOG_COMPRESS", "true")

	c := Load()

	if c.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", c.JWTSecret)
	}
	if c.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want sqlite", c.DBDriver)
	}
	if c.PostsPerPage != 10 {
		t.Errorf("PostsPerPage = %d, want 10", c.PostsPerPage)
	}
	if want := []string{"root", "ops"}; !reflect.DeepEqual(c.AdminUsernames, want) {
		t.Errorf("AdminUsernames = %v, want %v", c.AdminUsernames, want)
	}
	if !c.LogCompress {
		t.Error("LogCompress = false, want true")
	}
	if c.AppPort != "8080" || c.TokenTTLHours != 72 || c.RedisPort != 6379 || c.RedisHost != "" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if Get().JWTSecret != "s3cret" {
		t.Error("Get did not return the cached configuration")
	}
}

func TestLoadDefaultDBPort(t *testing.T) {
	cases := []struct {
		driver, port, want string
	}{
		{"", "", "3306"},
		{"mysql", "", "3306"},
		{"postgres", "", "5432"},
		{"sqlite", "", ""},
		{"postgres", "6543", "6543"},
	}
	for _, tc := range cases {
		t.Run(tc.driver+"/"+tc.port, func(t *testing.T) {
			resetConfig(t)
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv("DB_DRIVER", tc.driver)
			t.Setenv("DB_PORT", tc.port)

			if got := Load().DBPort; got != tc.want {
				t.Errorf("DBPort = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLoadJSONConfig(t *testing.T) {
	raw := map[string]any{
		"app": map[string]any{
			"AppPort":        "9000",
			"PostsPerPage":   3,
			"AdminUsernames": []any{"admin"},
		},
		"database":  map[string]any{"Driver": "postgres", "DBHost": "db.internal"},
		"redis":     map[string]any{"RedisHost": "cache", "RedisPort": 6380},
		"log":       map[string]any{"Level": "debug", "MaxBackups": 9},
		"JWTSecret": "flat-secret",
	}
	b, _ := json.Marshal(raw)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatal(err)
	}
	if c.AppPort != "9000" || c.PostsPerPage != 3 || c.JWTSecret != "flat-secret" {
		t.Errorf("app section: %+v", c)
	}
	if c.DBDriver != "postgres" || c.DBHost != "db.internal" {
		t.Errorf("database section: %+v", c)
	}
	if c.RedisHost != "cache" || c.RedisPort != 6380 {
		t.Errorf("redis section: %+v", c)
	}
	if c.LogLevel != "debug" || c.LogMaxBackups != 9 {
		t.Errorf("log section: %+v", c)
	}
	if !reflect.DeepEqual(c.AdminUsernames, []string{"admin"}) {
		t.Errorf("AdminUsernames = %v", c.AdminUsernames)
	}

	t.Run("missing file is ignored", func(t *testing.T) {
		var c AppConfig
		if err := loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid json is reported", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		_ = os.WriteFile(bad, []byte("{nope"), 0o600)
		var c AppConfig
		if err := loadJSONConfig(bad, &c); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestDialectorFor(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := dialectorFor(AppConfig{DBDriver: driver, DBName: "blog"})
		if err != nil {
			t.Errorf("%s: unexpected error: %v", driver, err)
			continue
		}
		if d.Name() != driver {
			t.Errorf("got dialector %q, want %q", d.Name(), driver)
		}
	}

	d, err := dialectorFor(AppConfig{DBDriver: "postgres", DBHost: "db", DBName: "blog"})
	if err != nil {
		t.Fatal(err)
	}
	if dsn := d.(*postgres.Dialector).DSN; !strings.Contains(dsn, "port=5432") {
		t.Errorf("postgres dsn %q lacks the default port", dsn)
	}

	if _, err := dialectorFor(AppConfig{DBDriver: "oracle"}); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}

func TestOpenDatabaseSQLite(t *testing.T) {
	db, err := OpenDatabase(AppConfig{DBDriver: "sqlite", DatabaseURI: "file::memory:", LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"users", "posts"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s missing", table)
		}
	}
	for _, col := range []string{"id", "title", "content", "date_posted", "author_id"} {
		if !db.Migrator().HasColumn("posts", col) {
			t.Errorf("posts.%s missing", col)
		}
	}
}

func TestToGormLogLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"debug":  logger.Info,
		"info":   logger.Warn,
		"":       logger.Warn,
		"error":  logger.Error,
		"silent": logger.Silent,
		"bogus":  logger.Warn,
	}
	for in, want := range cases {
		if got := toGormLogLevel(in); got != want {
			t.Errorf("toGormLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
