package capability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
)

func TestReloadRebuildsGeneratedHandlers(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	srcPath := filepath.Join(dir, "forge_gen_weather_sentinel.go")
	if err := os.WriteFile(srcPath, []byte(sentinelSource), 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	err = st.RegisterCapability(model.CapabilityDescriptor{
		Name:         "weather_sentinel",
		Tier:         model.TierGenerated,
		SourcePath:   srcPath,
		RegisteredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RegisterCapability: %v", err)
	}

	reg := NewRegistry(st, zap.NewNop())
	if _, ok := reg.Handler("weather_sentinel"); ok {
		t.Fatal("handler present before reload")
	}

	loaded, err := reg.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if loaded != 1 {
		t.Errorf("loaded = %d, want 1", loaded)
	}
	if _, ok := reg.Handler("weather_sentinel"); !ok {
		t.Error("handler missing after reload")
	}
}

func TestReloadSkipsBrokenSource(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	broken := filepath.Join(dir, "forge_gen_broken.go")
	if err := os.WriteFile(broken, []byte("package capability\nfunc {"), 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	for _, d := range []model.CapabilityDescriptor{
		{Name: "broken", Tier: model.TierGenerated, SourcePath: broken, RegisteredAt: time.Now().UTC()},
		{Name: "native_only", Tier: model.TierCore, RegisteredAt: time.Now().UTC()},
	} {
		if err := st.RegisterCapability(d); err != nil {
			t.Fatalf("RegisterCapability(%s): %v", d.Name, err)
		}
	}

	reg := NewRegistry(st, zap.NewNop())
	loaded, err := reg.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if loaded != 0 {
		t.Errorf("loaded = %d, want 0", loaded)
	}
}
