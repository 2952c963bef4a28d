package harness

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketship-ai/uiprobe/internal/artifacts"
	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/driver/drivertest"
	"github.com/rocketship-ai/uiprobe/internal/report"
	"github.com/rocketship-ai/uiprobe/internal/scenarios"
)

const exportName = "dashboard-config-2026-10-19.json"

func key(t driver.Target) string { return drivertest.Key(t) }

func tab(name string) string {
	return key(driver.Target{Selector: ".admin-tab", HasText: name})
}

// app is a scripted fake of the dashboard and its admin page, complete
// enough for the built-in workflow scenarios.
type app struct {
	uploaded *drivertest.Node
	unlocked bool
}

func (a *app) setup(p *drivertest.Page) {
	p.Route(baseURL+"/", a.dashboard)
	p.Route(baseURL+"/admin", a.admin)
	p.HandleEvaluate(func(script string) (interface{}, error) {
		switch {
		case strings.Contains(script, "localStorage"):
			data, _ := json.Marshal(map[string]interface{}{"version": "1.0.0", "lastModified": "2026-10-19T08:00:00Z"})
			return string(data), nil
		case strings.Contains(script, ".admin-tab"):
			return []interface{}{"基础数据", "趋势数据", "新闻动态", "工地实况", "🔒 高级配置"}, nil
		case strings.Contains(script, "leftColumnFits"):
			return map[string]interface{}{"availableHeight": 960.0, "leftColumnFits": true, "rightColumnFits": true}, nil
		case strings.Contains(script, "lastLeftPanel"):
			panel := map[string]interface{}{"bottom": 1040.0, "visible": true}
			return map[string]interface{}{"lastLeftPanel": panel, "lastRightPanel": panel, "containerBottom": 1060.0}, nil
		}
		return nil, nil
	})
}

func (a *app) dashboard(p *drivertest.Page) {
	p.Set(".header-title", &drivertest.Node{Text: " 未来筑家 · 智慧交付大屏 "})
	p.Set(".panel", &drivertest.Node{}, &drivertest.Node{}, &drivertest.Node{}, &drivertest.Node{})
	p.Set(".fullscreen-btn", &drivertest.Node{})
	p.Set(".admin-link", &drivertest.Node{OnClick: func(p *drivertest.Page) {
		p.SetURL(baseURL + "/admin")
		a.admin(p)
	}})
}

func (a *app) admin(p *drivertest.Page) {
	for _, name := range []string{"基础数据", "趋势数据", "新闻动态", "工地实况"} {
		p.Set(tab(name), &drivertest.Node{Text: name})
	}
	p.Set(tab("高级配置"), &drivertest.Node{Text: "高级配置", OnClick: func(p *drivertest.Page) {
		d := p.EmitDialog("请输入管理密码")
		if d.Accepted && d.Answer == "admin" {
			a.unlocked = true
			p.Set(".admin-section:visible", &drivertest.Node{})
		}
	}})
	zero := 0
	p.Set(key(driver.Target{Selector: ".lock-icon", Within: &driver.Target{Selector: ".admin-tab", HasText: "高级配置"}}), &drivertest.Node{})

	p.Set(".save-status", &drivertest.Node{Text: "编辑中"})
	p.Set(`input[type="number"]`,
		&drivertest.Node{Value: "1234", OnFill: func(p *drivertest.Page, _ string) {
			p.Set(".save-status", &drivertest.Node{Text: "✓ 已保存"})
		}},
		&drivertest.Node{Value: "56"},
	)

	editor := `.admin-array-editor input[type="number"]`
	p.Set(editor, &drivertest.Node{}, &drivertest.Node{}, &drivertest.Node{})
	p.Set(".admin-btn-add", &drivertest.Node{OnClick: func(p *drivertest.Page) {
		p.Append(editor, &drivertest.Node{})
	}})

	p.Set(".news-item-editor", &drivertest.Node{}, &drivertest.Node{})
	p.Set(key(driver.Target{Selector: "input", Within: &driver.Target{Selector: ".news-item-editor", Nth: &zero}}),
		&drivertest.Node{Value: "标题"}, &drivertest.Node{Value: "内容"})
	p.Set(".site-item-editor", &drivertest.Node{}, &drivertest.Node{}, &drivertest.Node{})

	p.Set(key(driver.Target{Selector: ".admin-btn", HasText: "导出"}), &drivertest.Node{OnClick: func(p *drivertest.Page) {
		p.EmitDownload(exportName)
	}})
	a.uploaded = &drivertest.Node{}
	p.Set(key(driver.Target{Selector: `input[type="file"]`, Within: &driver.Target{Selector: ".admin-btn", HasText: "导入"}}), a.uploaded)
	p.Set(key(driver.Target{Selector: ".admin-btn.danger", HasText: "重置"}), &drivertest.Node{})
	p.Set(".admin-btn", &drivertest.Node{}, &drivertest.Node{}, &drivertest.Node{}, &drivertest.Node{})
	p.Set(".back-btn", &drivertest.Node{OnClick: func(p *drivertest.Page) {
		p.SetURL(baseURL + "/")
	}})
}

func TestBuiltinDashboardAdminWorkflow(t *testing.T) {
	scenario, err := scenarios.Get("dashboard-admin")
	require.NoError(t, err)

	a := &app{}
	f := newFixture(t, a.setup, Config{})
	rep := f.runner.Run(context.Background(), scenario)

	for _, res := range rep.Results {
		assert.True(t, res.Passed, "%s: %s", res.Step, res.Message)
	}
	for _, step := range rep.Steps {
		assert.NotEqual(t, report.StatusFailed, step.Status, "%s: %s", step.Name, step.Error)
	}
	require.True(t, rep.Success())
	assert.True(t, a.unlocked, "password prompt answered")
	f.assertReleasedOnce(t)

	m, err := artifacts.ReadManifest(filepath.Join(rep.Artifacts, "manifest.json"))
	require.NoError(t, err)
	require.Len(t, m.Downloads, 1)
	assert.Equal(t, exportName, m.Downloads[0].SuggestedFilename)
	require.Len(t, a.uploaded.Files, 1)
	assert.Equal(t, m.Downloads[0].Path, a.uploaded.Files[0], "import uses the exported file")
	assert.Len(t, m.Screenshots, 1)
}

func TestBuiltinFullscreenLayout(t *testing.T) {
	scenario, err := scenarios.Get("fullscreen-layout")
	require.NoError(t, err)

	f := newFixture(t, (&app{}).setup, Config{})
	rep := f.runner.Run(context.Background(), scenario)

	for _, res := range rep.Results {
		assert.True(t, res.Passed, "%s: %s", res.Step, res.Message)
	}
	assert.True(t, rep.Success())
	assert.Equal(t, driver.Viewport{Width: 1920, Height: 1080}, f.launcher.Options[0].Viewport)
}
