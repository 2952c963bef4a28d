package artifacts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewCreatesLayout(t *testing.T) {
	base := t.TempDir()

	dir, err := New(base, "", "run-1", "dashboard-title")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got, want := dir.Root(), filepath.Join(base, "run-1"); got != want {
		t.Fatalf("Root() = %s, want %s", got, want)
	}
	for _, sub := range []string{"screenshots", "downloads"} {
		if info, err := os.Stat(filepath.Join(dir.Root(), sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory, stat error = %v", sub, err)
		}
	}

	if got, want := dir.ScreenshotPath("a.png"), filepath.Join(base, "run-1", "screenshots", "a.png"); got != want {
		t.Fatalf("ScreenshotPath() = %s, want %s", got, want)
	}
	if got := dir.ScreenshotPath("/abs/a.png"); got != "/abs/a.png" {
		t.Fatalf("ScreenshotPath() kept absolute path as %s", got)
	}
	if got, want := dir.DownloadPath("../evil/dashboard-config-2024-01-01.json"), filepath.Join(base, "run-1", "downloads", "dashboard-config-2024-01-01.json"); got != want {
		t.Fatalf("DownloadPath() = %s, want %s", got, want)
	}
}

func TestScreenshotDirOverride(t *testing.T) {
	shots := filepath.Join(t.TempDir(), "shots")

	dir, err := New(t.TempDir(), shots, "run-2", "x")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got, want := dir.ScreenshotPath("full.png"), filepath.Join(shots, "full.png"); got != want {
		t.Fatalf("ScreenshotPath() = %s, want %s", got, want)
	}
	if _, err := os.Stat(shots); err != nil {
		t.Fatalf("screenshot dir not created: %v", err)
	}
}

func TestWriteReadManifest(t *testing.T) {
	dir, err := New(t.TempDir(), "", "run-3", "dashboard-admin")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	dir.AddScreenshot("final", dir.ScreenshotPath("final.png"))
	dir.AddDownload("export", "dashboard-config-2024-05-01.json", dir.DownloadPath("dashboard-config-2024-05-01.json"))

	if err := dir.WriteManifest(); err != nil {
		t.Fatalf("WriteManifest() error = %v", err)
	}
	if _, err := os.Stat(dir.ManifestPath() + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp manifest left behind: %v", err)
	}

	m, err := ReadManifest(dir.ManifestPath())
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if m.RunID != "run-3" || m.Scenario != "dashboard-admin" {
		t.Fatalf("unexpected manifest header: %+v", m)
	}
	if len(m.Screenshots) != 1 || m.Screenshots[0].Step != "final" {
		t.Fatalf("unexpected screenshots: %+v", m.Screenshots)
	}
	if len(m.Downloads) != 1 || m.Downloads[0].SuggestedFilename != "dashboard-config-2024-05-01.json" {
		t.Fatalf("unexpected downloads: %+v", m.Downloads)
	}
}

func TestNewRequiresRunID(t *testing.T) {
	if _, err := New(t.TempDir(), "", "", "x"); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestBaseDirFromEnv(t *testing.T) {
	runDir := t.TempDir()
	t.Setenv("UIPROBE_RUN_DIR", runDir)

	got, err := BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if got != runDir {
		t.Fatalf("BaseDir() = %s, want %s", got, runDir)
	}
}
