package utils

import (
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "utils-test-secret")
	os.Exit(m.Run())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "correct-horse" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "correct-horse") {
		t.Error("matching password rejected")
	}
	if CheckPassword(hash, "battery-staple") {
		t.Error("wrong password accepted")
	}
	if CheckPassword("", "correct-horse") {
		t.Error("empty hash accepted")
	}
	if _, err := HashPassword(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("got %v, want ErrPasswordTooLong", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Subject != "42" {
		t.Errorf("got %+v", claims)
	}

	t.Run("tampered", func(t *testing.T) {
		if _, err := ParseToken(token + "x"); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("expired", func(t *testing.T) {
		old, err := GenerateToken(42, "alice", -time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseToken(old); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestTokenBlacklistInMemory(t *testing.T) {
	if GetRedis() != nil {
		t.Skip("redis configured; in-memory fallback not used")
	}
	BlacklistToken("revoked", time.Now().Add(time.Minute))
	BlacklistToken("lapsed", time.Now().Add(-time.Minute))

	if !IsTokenBlacklisted("revoked") {
		t.Error("revoked token not blacklisted")
	}
	if IsTokenBlacklisted("lapsed") {
		t.Error("expired entry still blacklisted")
	}
	if IsTokenBlacklisted("never-seen") {
		t.Error("unknown token blacklisted")
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"keeps safe markup", Sanitize, "<p>hello</p>", "<p>hello</p>"},
		{"drops scripts", Sanitize, "<p>hi</p><script>alert(1)</script>", "<p>hi</p>"},
		{"strips tags", StripTags, "<b>Bold</b> move", "Bold move"},
		{"keeps ampersands readable", StripTags, "Fish & Chips", "Fish & Chips"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fn(tc.in); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewRollingFileLogger(t *testing.T) {
	t.Run("empty path falls back to the global logger", func(t *testing.T) {
		l, err := NewRollingFileLogger("", "info", 0, 0, 0, false)
		if err != nil || l != Logger {
			t.Errorf("got %v, %v", l, err)
		}
	})

	t.Run("writes to the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "gin.log")
		l, err := NewRollingFileLogger(path, "info", 1, 1, 1, false)
		if err != nil {
			t.Fatal(err)
		}
		l.Info("hello")
		_ = l.Sync()

		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(b), `"msg":"hello"`) {
			t.Errorf("log file content %q", b)
		}
	})
}

func TestParseLevel(t *testing.T) {
	if parseLevel("warn").String() != "warn" || parseLevel("nonsense").String() != "info" {
		t.Error("unexpected level mapping")
	}
}

func TestServerStop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("got %d, want 204", resp.StatusCode)
	}

	srv.Stop()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve returned %v after Stop", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}

	// second Stop is a no-op
	srv.Stop()
}

func TestServerServeError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ln.Close()

	srv := NewServer(ln.Addr().String(), http.NotFoundHandler())
	if err := srv.Serve(ln); err == nil {
		t.Fatal("expected an error from a closed listener")
	}
	select {
	case <-srv.done:
	default:
		t.Error("done left open after Serve failed")
	}
	srv.Stop()
}
