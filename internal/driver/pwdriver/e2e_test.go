package pwdriver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/failure"
)

const testPage = `<!doctype html>
<html><head><meta charset="utf-8"></head><body>
<h1 class="header-title">智慧交付大屏</h1>
<div class="panel">a</div><div class="panel">b</div>
<input type="number" value="1234">
<span class="save-status">编辑中</span>
<button class="admin-btn" onclick="document.querySelector('.save-status').textContent='✓ 已保存'">保存</button>
<a class="export" download="dashboard-config-2026-10-19.json" href="data:application/json,%7B%7D">导出</a>
<script>localStorage.setItem('dashboardData', JSON.stringify({version: '1.0.0'}));</script>
</body></html>`

// The adapter needs a real browser, so this only runs with UIPROBE_E2E=1.
func TestPlaywrightSession(t *testing.T) {
	if os.Getenv("UIPROBE_E2E") != "1" {
		t.Skip("set UIPROBE_E2E=1 to run against a real browser")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, testPage)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	session, err := NewLauncher(nil).Launch(ctx, driver.LaunchOptions{
		Browser:        "chromium",
		Headless:       true,
		Viewport:       driver.Viewport{Width: 1280, Height: 720},
		DefaultTimeout: 5 * time.Second,
		Install:        os.Getenv("UIPROBE_E2E_INSTALL") == "1",
	})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, session.Close())
		assert.NoError(t, session.Close(), "close must be idempotent")
	}()

	page := session.Page()
	stepCtx := func() context.Context {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		t.Cleanup(cancel)
		return c
	}

	require.NoError(t, page.Navigate(stepCtx(), srv.URL))
	require.NoError(t, page.WaitForLoad(stepCtx(), "networkidle"))
	assert.Equal(t, srv.URL+"/", page.URL())

	title, err := page.Find(stepCtx(), driver.Target{Selector: ".header-title"})
	require.NoError(t, err)
	text, err := title.TextContent(stepCtx())
	require.NoError(t, err)
	assert.Equal(t, "智慧交付大屏", text)

	n, err := page.Count(stepCtx(), driver.Target{Selector: ".panel"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = page.Find(stepCtx(), driver.Target{Selector: ".panel"})
	assert.Equal(t, failure.PreconditionFailed, failure.KindOf(err), "two matches without nth")

	short, cancelShort := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancelShort()
	_, err = page.Find(short, driver.Target{Selector: ".missing"})
	assert.Equal(t, failure.ElementNotFound, failure.KindOf(err))

	input, err := page.Find(stepCtx(), driver.Target{Selector: `input[type="number"]`})
	require.NoError(t, err)
	require.NoError(t, input.Fill(stepCtx(), "9999"))
	value, err := input.InputValue(stepCtx())
	require.NoError(t, err)
	assert.Equal(t, "9999", value)

	btn, err := page.Find(stepCtx(), driver.Target{Selector: ".admin-btn", HasText: "保存"})
	require.NoError(t, err)
	require.NoError(t, btn.Click(stepCtx()))
	status, err := page.Find(stepCtx(), driver.Target{Selector: ".save-status"})
	require.NoError(t, err)
	text, err = status.TextContent(stepCtx())
	require.NoError(t, err)
	assert.Contains(t, text, "已保存")

	stored, err := page.Evaluate(stepCtx(), `() => window.localStorage.getItem("dashboardData")`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, stored.(string))

	export, err := page.Find(stepCtx(), driver.Target{Selector: ".export"})
	require.NoError(t, err)
	require.NoError(t, export.Click(stepCtx()))
	require.NoError(t, session.Downloads().WaitFor(stepCtx(), 1))
	dl := session.Downloads().All()[0]
	assert.Equal(t, "dashboard-config-2026-10-19.json", dl.SuggestedFilename())
	saved := filepath.Join(t.TempDir(), dl.SuggestedFilename())
	require.NoError(t, dl.SaveAs(saved))

	shot := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, page.Screenshot(stepCtx(), shot, true))
	info, err := os.Stat(shot)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
