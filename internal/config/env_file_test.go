package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("valid env file", func(t *testing.T) {
		envPath := filepath.Join(tmpDir, ".env")
		content := `# dashboard under test
UIPROBE_BASE_URL=http://localhost:4173
ADMIN_PASSWORD=admin

EMPTY_VALUE=
QUOTED_VALUE="value with spaces"
SINGLE_QUOTED='single quoted value'
export EXPORTED=yes
`
		require.NoError(t, os.WriteFile(envPath, []byte(content), 0644))

		env, err := LoadEnvFile(envPath)
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:4173", env["UIPROBE_BASE_URL"])
		assert.Equal(t, "admin", env["ADMIN_PASSWORD"])
		assert.Equal(t, "", env["EMPTY_VALUE"])
		assert.Equal(t, "value with spaces", env["QUOTED_VALUE"])
		assert.Equal(t, "single quoted value", env["SINGLE_QUOTED"])
		assert.Equal(t, "yes", env["EXPORTED"])
	})

	t.Run("invalid format", func(t *testing.T) {
		envPath := filepath.Join(tmpDir, ".env.invalid")
		content := "VALID_KEY=value\nINVALID_LINE_NO_EQUALS\n"
		require.NoError(t, os.WriteFile(envPath, []byte(content), 0644))

		_, err := LoadEnvFile(envPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid line 2")
	})

	t.Run("empty key", func(t *testing.T) {
		envPath := filepath.Join(tmpDir, ".env.empty")
		require.NoError(t, os.WriteFile(envPath, []byte("VALID=value\n=empty_key_value\n"), 0644))

		_, err := LoadEnvFile(envPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty key")
	})

	t.Run("non-existent file", func(t *testing.T) {
		_, err := LoadEnvFile(filepath.Join(tmpDir, "non-existent.env"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open env file")
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("UIPROBE_TEST_PRESET", "from-shell")

	err := ApplyEnv(map[string]string{
		"UIPROBE_TEST_PRESET": "from-file",
		"UIPROBE_TEST_NEW":    "from-file",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Unsetenv("UIPROBE_TEST_NEW") })

	assert.Equal(t, "from-shell", os.Getenv("UIPROBE_TEST_PRESET"))
	assert.Equal(t, "from-file", os.Getenv("UIPROBE_TEST_NEW"))
}
