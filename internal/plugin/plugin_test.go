package plugin

import (
	"errors"
	"testing"
	"time"
)

type params struct {
	Status   string        `mapstructure:"status"`
	Limit    int           `mapstructure:"limit"`
	SubGroup string        `mapstructure:"subGroup"`
	Every    time.Duration `mapstructure:"every"`
}

func TestDecode(t *testing.T) {
	var p params
	err := Decode(map[string]any{
		"type":     "ignored",
		"status":   "ERROR",
		"limit":    "2",
		"subgroup": "category",
		"every":    "5s",
	}, &p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Status != "ERROR" || p.Limit != 2 || p.SubGroup != "category" || p.Every != 5*time.Second {
		t.Fatalf("unexpected decode: %+v", p)
	}
}

func TestDecode_UnusedKey(t *testing.T) {
	var p params
	if err := Decode(map[string]any{"stauts": "ERROR"}, &p); err == nil {
		t.Fatalf("want error for misspelled key")
	}
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer Recover("builder", &err)
		panic("boom")
	}
	err := run()
	if err == nil || errors.Is(err, ErrUnknownType) {
		t.Fatalf("want panic error, got %v", err)
	}
}

func TestNames(t *testing.T) {
	got := Names(map[string]int{"b": 1, "a": 2})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Names = %v", got)
	}
}
