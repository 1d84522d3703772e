package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestStoreChecker_PingerHealthy(t *testing.T) {
	c := StoreChecker(fakePinger{})
	if c.Name != "store" {
		t.Errorf("Name = %q, want store", c.Name)
	}
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStoreChecker_PingerUnhealthy(t *testing.T) {
	c := StoreChecker(fakePinger{err: errors.New("connection refused")})
	if err := c.Check(context.Background()); err == nil {
		t.Error("expected error from failing pinger")
	}
}

func TestStoreChecker_NonPingerAlwaysHealthy(t *testing.T) {
	c := StoreChecker(struct{}{})
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("unexpected error for non-pinger store: %v", err)
	}
}

func TestProviderChecker(t *testing.T) {
	ok := ProviderChecker("whisper", true)
	if ok.Name != "provider:whisper" {
		t.Errorf("Name = %q, want provider:whisper", ok.Name)
	}
	if err := ok.Check(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := ProviderChecker("google", false)
	if err := missing.Check(context.Background()); err == nil {
		t.Error("expected error for unconfigured provider")
	}
}
