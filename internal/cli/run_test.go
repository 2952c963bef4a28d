package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/driver/drivertest"
)

const testBaseURL = "http://app.test"

func init() {
	color.NoColor = true
}

func useFakeBrowser(t *testing.T, setup func(p *drivertest.Page)) *drivertest.Launcher {
	t.Helper()
	l := &drivertest.Launcher{Setup: setup}
	prev := newLauncher
	newLauncher = func(*slog.Logger) driver.Launcher { return l }
	t.Cleanup(func() { newLauncher = prev })
	return l
}

// chdirTemp keeps a uiprobe.yaml in the developer's checkout out of the test.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeScenario(t *testing.T, dir, expectedURL string) string {
	t.Helper()
	doc := `version: 1
name: where
steps:
  - name: open
    action: navigate
    url: /
  - name: current url
    action: url
    assertions:
      - type: equals
        expected: "` + expectedURL + `"
`
	path := filepath.Join(dir, "where.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestNewRunCmd(t *testing.T) {
	cmd := NewRunCmd()

	assert.Equal(t, "run [scenario|file...]", cmd.Use)
	for _, name := range []string{"headless", "base-url", "screenshot-dir", "artifacts-dir", "timeout", "browser", "slow-mo",
		"var", "var-file", "env-file", "parallel", "json", "record", "history-db", "trace-file", "install"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "http://localhost:5173", cmd.Flags().Lookup("base-url").DefValue)
	assert.Equal(t, "false", cmd.Flags().Lookup("headless").DefValue)
}

func TestRunJSONAndRecord(t *testing.T) {
	dir := chdirTemp(t)
	launcher := useFakeBrowser(t, nil)
	scenario := writeScenario(t, dir, "{{ .vars.base_url }}/")
	db := filepath.Join(dir, "history.db")
	traces := filepath.Join(dir, "trace.json")

	args := []string{"run", scenario, "--base-url", testBaseURL, "--artifacts-dir", filepath.Join(dir, "artifacts"),
		"--json", "--record", "--history-db", db, "--trace-file", traces}
	out, err := execute(t, args...)
	require.NoError(t, err)

	var reports []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "where", reports[0]["scenario"])
	assert.Equal(t, true, reports[0]["success"])
	firstID := reports[0]["run_id"].(string)

	require.Len(t, launcher.Sessions, 1)
	assert.Equal(t, 1, launcher.Sessions[0].Closes())

	spans, err := os.ReadFile(traces)
	require.NoError(t, err)
	assert.Contains(t, string(spans), "scenario where")

	out, err = execute(t, args[:len(args)-2]...)
	require.NoError(t, err)
	reports = nil
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	secondID := reports[0]["run_id"].(string)

	out, err = execute(t, "history", "list", "--history-db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "where")
	assert.Contains(t, out, "✓ PASSED")
	assert.Contains(t, out, "1/1")

	out, err = execute(t, "history", "diff", firstID, secondID, "--history-db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No differences in outcomes.")

	out, err = execute(t, "history", "show", firstID, "--history-db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "=== where ===")
}

func TestRunFailureExitsNonZero(t *testing.T) {
	dir := chdirTemp(t)
	useFakeBrowser(t, nil)
	scenario := writeScenario(t, dir, "http://elsewhere/")

	out, err := execute(t, "run", scenario, "--base-url", testBaseURL, "--artifacts-dir", filepath.Join(dir, "artifacts"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScenariosFailed))
	assert.Contains(t, out, "=== Final Summary ===")
	assert.Contains(t, out, "✗")
}

func TestRunUnknownScenario(t *testing.T) {
	chdirTemp(t)
	useFakeBrowser(t, nil)

	_, err := execute(t, "run", "no-such-scenario")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown scenario "no-such-scenario"`)
}

func TestRunVarsAndEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	useFakeBrowser(t, nil)

	doc := `version: 1
name: vars
vars:
  path: /default
steps:
  - name: open
    action: navigate
    url: "{{ .vars.path }}"
  - name: current url
    action: url
    assertions:
      - type: equals
        expected: "{{ .vars.base_url }}{{ .vars.path }}"
      - type: contains
        expected: "{{ .env.UIPROBE_TEST_SEGMENT }}"
`
	scenario := filepath.Join(dir, "vars.yaml")
	require.NoError(t, os.WriteFile(scenario, []byte(doc), 0644))
	varFile := filepath.Join(dir, "vars.yml")
	require.NoError(t, os.WriteFile(varFile, []byte("path: /from-file\n"), 0644))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("UIPROBE_TEST_SEGMENT=cli\n"), 0644))
	t.Cleanup(func() { _ = os.Unsetenv("UIPROBE_TEST_SEGMENT") })

	_, err := execute(t, "run", scenario, "--base-url", testBaseURL, "--artifacts-dir", filepath.Join(dir, "a"),
		"--var-file", varFile, "--var", "path=/admin/cli", "--env-file", envFile)
	assert.NoError(t, err)
}

func TestScenarioCmd(t *testing.T) {
	dir := chdirTemp(t)
	useFakeBrowser(t, func(p *drivertest.Page) {
		p.Route(testBaseURL+"/", func(p *drivertest.Page) {
			p.Set(".header-title", &drivertest.Node{Text: "未来筑家 智慧交付大屏"})
			p.Set(".panel", &drivertest.Node{}, &drivertest.Node{})
		})
	})

	cmd := NewScenarioCmd("dashboard-title")
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--base-url", testBaseURL, "--artifacts-dir", filepath.Join(dir, "a")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "=== dashboard-title ===")
	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
}

func TestValidateCmd(t *testing.T) {
	dir := chdirTemp(t)

	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "All 6 built-in scenario(s) passed validation")

	good := writeScenario(t, dir, "x")
	out, err = execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "All 1 file(s) passed validation")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: 1\nname: bad\nsteps:\n  - name: x\n    action: teleport\n"), 0644))
	_, err = execute(t, "validate", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed for 1 file(s)")
}

func TestListCmd(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "dashboard-admin")
	assert.Contains(t, out, "fullscreen-layout")
}

func TestVersionCmd(t *testing.T) {
	t.Setenv("UIPROBE_VERSION", "")
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "uiprobe dev\n", out)
}

func TestHistoryListEmpty(t *testing.T) {
	dir := chdirTemp(t)
	out, err := execute(t, "history", "list", "--history-db", filepath.Join(dir, "h.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No recorded runs found.")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "N/A"},
		{250, "250ms"},
		{1500, "1.5s"},
		{125000, "2m5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(msDuration(tt.ms)))
	}
}

func msDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
