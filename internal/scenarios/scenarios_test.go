package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketship-ai/uiprobe/internal/dsl"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"admin-navigation",
		"basic-autosave",
		"dashboard-admin",
		"dashboard-title",
		"fullscreen-layout",
		"trend-add-point",
	}, Names())
}

func TestBuiltinScenariosAreValid(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			data, err := Source(name)
			require.NoError(t, err)
			require.NoError(t, dsl.ValidateYAMLWithSchema(data))

			s, err := Get(name)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name, "file name and scenario name must agree")
			assert.NotEmpty(t, s.Steps)
		})
	}
}

func TestDashboardAdminCoversWorkflow(t *testing.T) {
	s, err := Get("dashboard-admin")
	require.NoError(t, err)

	actions := map[string]bool{}
	for _, step := range s.Steps {
		actions[step.Action] = true
	}
	for _, want := range []string{"navigate", "click", "fill", "dialog", "download", "upload", "storage", "hover_all", "screenshot"} {
		assert.True(t, actions[want], "missing %s step", want)
	}
	assert.Equal(t, "admin", s.Vars["admin_password"])
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown scenario "nope"`)
	assert.Contains(t, err.Error(), "dashboard-title")
}

func TestAll(t *testing.T) {
	all, err := All()
	require.NoError(t, err)
	assert.Len(t, all, len(Names()))
}

func TestResolve(t *testing.T) {
	s, err := Resolve("trend-add-point")
	require.NoError(t, err)
	assert.Equal(t, "trend-add-point", s.Name)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	doc := "version: 1\nname: custom\nsteps:\n  - name: where\n    action: url\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	s, err = Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", s.Name)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
