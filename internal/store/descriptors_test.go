package store

import (
	"errors"
	"testing"

	"github.com/hearthd/hearth/internal/model"
)

func TestRegisterAndListCapabilities(t *testing.T) {
	s := openTestStore(t)

	d := model.CapabilityDescriptor{
		Name:       "weather_sentinel",
		Tier:       model.TierGenerated,
		SourcePath: "/forge/forge_gen_weather_sentinel.go",
	}
	if err := s.RegisterCapability(d); err != nil {
		t.Fatalf("RegisterCapability: %v", err)
	}

	if err := s.RegisterCapability(d); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("duplicate register = %v, want ErrAlreadyRegistered", err)
	}

	list, err := s.ListCapabilities()
	if err != nil {
		t.Fatalf("ListCapabilities: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 capability, got %d", len(list))
	}
	if list[0].Tier != model.TierGenerated || list[0].TierLabel != "generated" {
		t.Errorf("descriptor tier = %v/%q, want generated", list[0].Tier, list[0].TierLabel)
	}
	if list[0].RegisteredAt.IsZero() {
		t.Error("registered_at not set")
	}
}

func TestPromoteIsMonotonicAndOnce(t *testing.T) {
	s := openTestStore(t)

	if err := s.RegisterCapability(model.CapabilityDescriptor{
		Name: "weather_sentinel", Tier: model.TierGenerated,
	}); err != nil {
		t.Fatalf("RegisterCapability: %v", err)
	}

	d, err := s.PromoteCapability("weather_sentinel")
	if err != nil {
		t.Fatalf("PromoteCapability: %v", err)
	}
	if d.Tier != model.TierCore {
		t.Errorf("tier after promotion = %v, want core", d.Tier)
	}
	if d.PromotedAt == nil {
		t.Error("promoted_at not set")
	}

	// Exactly once: a second promotion must fail.
	if _, err := s.PromoteCapability("weather_sentinel"); err == nil {
		t.Error("second promotion succeeded")
	}
}

func TestPromoteUnknownCapability(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.PromoteCapability("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("promote unknown = %v, want ErrNotFound", err)
	}
}

func TestPromoteCoreCapabilityRejected(t *testing.T) {
	s := openTestStore(t)
	if err := s.RegisterCapability(model.CapabilityDescriptor{
		Name: "calendar", Tier: model.TierCore,
	}); err != nil {
		t.Fatalf("RegisterCapability: %v", err)
	}
	if _, err := s.PromoteCapability("calendar"); err == nil {
		t.Error("promotion of a core capability succeeded")
	}
}
