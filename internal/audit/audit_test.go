package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecordChainsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	entries := []Entry{
		{Event: EventSafetyTransition, Trigger: "manual", NewState: "autonomous"},
		{Event: EventSynthesis, ModuleID: "forge_gen_weather_sentinel", Message: "compiled"},
		{Event: EventOverreach, Capability: "weather_sentinel", Tier: "generated", Slot: "identity", Denied: true},
	}
	for _, e := range entries {
		if err := log.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := log.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	if got[0].PrevHash != GenesisHash {
		t.Errorf("first entry prev_hash = %q, want genesis", got[0].PrevHash)
	}
	for i, e := range got {
		if e.Timestamp == "" {
			t.Errorf("entry %d missing timestamp", i)
		}
	}

	res := Verify(path)
	if !res.Valid {
		t.Errorf("Verify failed: %s (line %d)", res.Error, res.ErrorLine)
	}
	if res.Lines != len(entries) {
		t.Errorf("Verify counted %d lines, want %d", res.Lines, len(entries))
	}
}

func TestOpenRecoversChainTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := log.Record(Entry{Event: EventSafetyTransition, Trigger: "manual"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	log.Close()

	// Reopen and continue the chain.
	log2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := log2.Record(Entry{Event: EventSafetyTransition, Trigger: "kill_switch"}); err != nil {
		t.Fatalf("Record after reopen: %v", err)
	}
	log2.Close()

	res := Verify(path)
	if !res.Valid {
		t.Errorf("chain broken after reopen: %s (line %d)", res.Error, res.ErrorLine)
	}
	if res.Lines != 2 {
		t.Errorf("expected 2 lines, got %d", res.Lines)
	}
	if res.Events[string(EventSafetyTransition)] != 2 {
		t.Errorf("event tally = %v, want 2 safety transitions", res.Events)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := log.Record(Entry{Event: EventSynthesis, ModuleID: "forge_gen_x"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tampered := []byte(string(data[:20]) + "X" + string(data[21:]))
	if err := os.WriteFile(path, tampered, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	res := Verify(path)
	if res.Valid {
		t.Error("Verify accepted a tampered log")
	}
}

func TestVerifyMissingFile(t *testing.T) {
	res := Verify(filepath.Join(t.TempDir(), "absent.jsonl"))
	if res.Valid {
		t.Error("Verify accepted a missing file")
	}
}
