package model

import "testing"

func TestTierRoundTrip(t *testing.T) {
	tests := []struct {
		tier  TrustTier
		label string
	}{
		{TierCore, "core"},
		{TierImport, "import"},
		{TierGenerated, "generated"},
	}

	for _, tt := range tests {
		if got := tt.tier.String(); got != tt.label {
			t.Errorf("TrustTier(%d).String() = %q, want %q", tt.tier, got, tt.label)
		}
		if got := ParseTier(tt.label); got != tt.tier {
			t.Errorf("ParseTier(%q) = %v, want %v", tt.label, got, tt.tier)
		}
	}
}

func TestParseTierFailsClosed(t *testing.T) {
	// Unknown labels must parse as the least trusted tier.
	for _, s := range []string{"", "admin", "CORE", "trusted"} {
		if got := ParseTier(s); got != TierGenerated {
			t.Errorf("ParseTier(%q) = %v, want TierGenerated", s, got)
		}
	}
}

func TestNineSlotsClassified(t *testing.T) {
	if len(Slots) != 9 {
		t.Fatalf("expected 9 slots, got %d", len(Slots))
	}
	for _, s := range Slots {
		if !KnownSlot(s) {
			t.Errorf("slot %q missing from SlotClass", s)
		}
	}
}

func TestSlotClassification(t *testing.T) {
	tests := []struct {
		slot Slot
		sens Sensitivity
	}{
		{SlotIdentity, SensCoreOnly},
		{SlotPolicy, SensCoreOnly},
		{SlotVault, SensCoreOnly},
		{SlotSecurity, SensRestricted},
		{SlotAudit, SensRestricted},
		{SlotKnowledge, SensOpen},
		{SlotSchedule, SensOpen},
		{SlotPreferences, SensOpen},
		{SlotScratch, SensOpen},
	}

	for _, tt := range tests {
		if got := SlotClass[tt.slot]; got != tt.sens {
			t.Errorf("SlotClass[%q] = %v, want %v", tt.slot, got, tt.sens)
		}
	}
}

func TestUnknownSlotRejected(t *testing.T) {
	if KnownSlot("mailbox") {
		t.Error("KnownSlot accepted an undeclared slot")
	}
}
