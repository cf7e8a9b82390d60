package controllers

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		page, size         string
		wantPage, wantSize int
	}{
		{"", "", 1, 5},
		{"3", "10", 3, 10},
		{"0", "0", 1, 5},
		{"-2", "101", 1, 5},
		{"x", "y", 1, 5},
		{"2", "100", 2, 100},
	}
	for _, tc := range cases {
		page, size := parsePagination(tc.page, tc.size, 5)
		if page != tc.wantPage || size != tc.wantSize {
			t.Errorf("parsePagination(%q, %q) = %d, %d; want %d, %d", tc.page, tc.size, page, size, tc.wantPage, tc.wantSize)
		}
	}
}

func TestParseID(t *testing.T) {
	cases := map[string]struct {
		id int64
		ok bool
	}{
		"42":   {42, true},
		" 7 ":  {7, true},
		"0":    {0, false},
		"-1":   {0, false},
		"abc":  {0, false},
		"":     {0, false},
		"9e99": {0, false},
	}
	for in, want := range cases {
		id, ok := parseID(in)
		if id != want.id || ok != want.ok {
			t.Errorf("parseID(%q) = %d, %v; want %d, %v", in, id, ok, want.id, want.ok)
		}
	}
}

func TestValidUsername(t *testing.T) {
	for _, s := range []string{"alice", "a.b+c-d_e@f", "User42"} {
		if !validUsername(s) {
			t.Errorf("%q rejected", s)
		}
	}
	for _, s := range []string{"", "with space", "semi;colon", "名前"} {
		if validUsername(s) {
			t.Errorf("%q accepted", s)
		}
	}
}

func TestBindMessage(t *testing.T) {
	v := validator.New()
	check := func(req interface{}, want string) {
		t.Helper()
		if got := bindMessage(v.Struct(req)); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}

	check(struct {
		Title string `validate:"required"`
	}{}, "title is required")
	check(struct {
		Title string `validate:"max=3"`
	}{Title: "long"}, "title must be at most 3 characters")
	check(struct {
		Password string `validate:"min=8"`
	}{Password: "short"}, "password must be at least 8 characters")
	check(struct {
		Email string `validate:"email"`
	}{Email: "nope"}, "email must be a valid email address")

	if got := bindMessage(errors.New("EOF")); got != "invalid request payload" {
		t.Errorf("got %q", got)
	}
}

func TestAdmins(t *testing.T) {
	a := NewAdmins([]string{" Root ", "", "ops"})
	for _, name := range []string{"root", "ROOT", "ops"} {
		if !a.Has(name) {
			t.Errorf("%q not an admin", name)
		}
	}
	for _, name := range []string{"", "alice", " root"} {
		if a.Has(name) {
			t.Errorf("%q is an admin", name)
		}
	}
	if NewAdmins(nil).Has("root") {
		t.Error("empty set reported an admin")
	}
}
