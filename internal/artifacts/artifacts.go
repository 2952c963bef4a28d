package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	defaultRunDirName = ".uiprobe"
	manifestName      = "manifest.json"
	screenshotsDir    = "screenshots"
	downloadsDir      = "downloads"
)

// Screenshot is one image captured during a run.
type Screenshot struct {
	Step string `json:"step"`
	Path string `json:"path"`
}

// Download is one file the application handed to the browser.
type Download struct {
	Step              string `json:"step"`
	SuggestedFilename string `json:"suggested_filename"`
	Path              string `json:"path"`
}

// Manifest lists everything a run left on disk.
type Manifest struct {
	RunID       string       `json:"run_id"`
	Scenario    string       `json:"scenario"`
	CreatedAt   string       `json:"created_at"`
	Screenshots []Screenshot `json:"screenshots"`
	Downloads   []Download   `json:"downloads"`
}

// Dir is the artifacts directory of a single run: <base>/<run-id>.
type Dir struct {
	root          string
	screenshotDir string

	mu       sync.Mutex
	manifest Manifest
}

// New creates <base>/<runID> with its screenshots and downloads
// subdirectories. When screenshotDir is non-empty, relative screenshot paths
// resolve there instead of under the run directory.
func New(base, screenshotDir, runID, scenario string) (*Dir, error) {
	if runID == "" {
		return nil, errors.New("runID is required")
	}
	if base == "" {
		runDir, err := BaseDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(runDir, "artifacts")
	}

	root := filepath.Join(base, runID)
	if screenshotDir == "" {
		screenshotDir = filepath.Join(root, screenshotsDir)
	}
	for _, dir := range []string{root, screenshotDir, filepath.Join(root, downloadsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifacts directory %s: %w", dir, err)
		}
	}

	return &Dir{
		root:          root,
		screenshotDir: screenshotDir,
		manifest: Manifest{
			RunID:       runID,
			Scenario:    scenario,
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
			Screenshots: []Screenshot{},
			Downloads:   []Download{},
		},
	}, nil
}

func (d *Dir) Root() string { return d.root }

// ScreenshotPath resolves p for a screenshot. Absolute paths are kept.
func (d *Dir) ScreenshotPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.screenshotDir, p)
}

// DownloadPath returns where a download with the given suggested name is saved.
func (d *Dir) DownloadPath(name string) string {
	return filepath.Join(d.root, downloadsDir, filepath.Base(name))
}

func (d *Dir) AddScreenshot(step, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manifest.Screenshots = append(d.manifest.Screenshots, Screenshot{Step: step, Path: path})
}

func (d *Dir) AddDownload(step, name, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manifest.Downloads = append(d.manifest.Downloads, Download{Step: step, SuggestedFilename: name, Path: path})
}

// Manifest returns a copy of the manifest collected so far.
func (d *Dir) Manifest() Manifest {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.manifest
	m.Screenshots = append([]Screenshot{}, d.manifest.Screenshots...)
	m.Downloads = append([]Download{}, d.manifest.Downloads...)
	return m
}

// ManifestPath is the location of manifest.json for this run.
func (d *Dir) ManifestPath() string {
	return filepath.Join(d.root, manifestName)
}

// WriteManifest writes manifest.json through a temp file and rename so a
// reader never sees a partial document.
func (d *Dir) WriteManifest() error {
	data, err := json.MarshalIndent(d.Manifest(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := d.ManifestPath()
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to finalize manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.RunID == "" {
		return Manifest{}, fmt.Errorf("manifest %s missing run_id", path)
	}
	return m, nil
}

// BaseDir is $UIPROBE_RUN_DIR, or .uiprobe under the working directory.
func BaseDir() (string, error) {
	if dir := os.Getenv("UIPROBE_RUN_DIR"); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve UIPROBE_RUN_DIR %s: %w", dir, err)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return filepath.Join(cwd, defaultRunDirName), nil
}
