package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestCandidatesOrder(t *testing.T) {
	t.Setenv(EnvFileVar, "/etc/worldview/prod.env")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env", "")
	if err := fs.Parse([]string{"--env", "config/local.env"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	got := loader.Candidates()
	want := []string{"/etc/worldview/prod.env", "config/local.env", "local.env", ".env"}
	if len(got) != len(want) {
		t.Fatalf("unexpected candidates: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected candidates: %v", got)
		}
	}
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	t.Setenv(EnvFileVar, "")
	t.Setenv("WORLDVIEW_TEST_VALUE", "before")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("WORLDVIEW_TEST_VALUE=after\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, path, "")
	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if loaded != path {
		t.Fatalf("unexpected loaded path %q", loaded)
	}
	if os.Getenv("WORLDVIEW_TEST_VALUE") != "after" {
		t.Fatalf("expected env file to override existing value")
	}
}
