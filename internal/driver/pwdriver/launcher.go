// Package pwdriver implements the driver interfaces on playwright-go.
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/failure"
)

const (
	defaultWindowWidth  = 1920
	defaultWindowHeight = 1080
)

// Launcher starts playwright sessions.
type Launcher struct {
	logger *slog.Logger
}

// NewLauncher returns a Launcher that logs driver events to logger.
func NewLauncher(logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{logger: logger}
}

// Launch starts the playwright driver, a browser, a context and a page. On any
// error everything created so far is released before returning.
func (l *Launcher) Launch(ctx context.Context, opts driver.LaunchOptions) (driver.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Wrap(failure.SessionAcquisitionFailed, "launch", err)
	}

	browserName := strings.ToLower(opts.Browser)
	if browserName == "" {
		browserName = "chromium"
	}

	if opts.Install {
		l.logger.Info("installing playwright browsers", "browser", browserName)
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{browserName}}); err != nil {
			return nil, failure.Wrap(failure.SessionAcquisitionFailed, "install playwright", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, failure.Wrap(failure.SessionAcquisitionFailed, "start playwright", err)
	}

	s := &session{
		pw:        pw,
		downloads: driver.NewDownloads(),
		dialogs:   driver.NewDialogPolicy(),
		logger:    l.logger,
	}

	browserType, err := pickBrowser(pw, browserName)
	if err != nil {
		_ = s.Close()
		return nil, failure.Wrap(failure.SessionAcquisitionFailed, "launch", err)
	}

	s.browser, err = browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = s.Close()
		return nil, failure.Wrap(failure.SessionAcquisitionFailed, "launch "+browserName, err)
	}

	width, height := opts.Viewport.Width, opts.Viewport.Height
	if width <= 0 {
		width = defaultWindowWidth
	}
	if height <= 0 {
		height = defaultWindowHeight
	}

	s.context, err = s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:        &playwright.Size{Width: width, Height: height},
		AcceptDownloads: playwright.Bool(true),
	})
	if err != nil {
		_ = s.Close()
		return nil, failure.Wrap(failure.SessionAcquisitionFailed, "create browser context", err)
	}

	pwPage, err := s.context.NewPage()
	if err != nil {
		_ = s.Close()
		return nil, failure.Wrap(failure.SessionAcquisitionFailed, "create page", err)
	}
	if opts.DefaultTimeout > 0 {
		pwPage.SetDefaultTimeout(float64(opts.DefaultTimeout.Milliseconds()))
	}

	pwPage.OnDownload(func(d playwright.Download) {
		l.logger.Debug("download started", "suggested_filename", d.SuggestedFilename())
		s.downloads.Add(download{d})
	})
	pwPage.OnDialog(func(d playwright.Dialog) {
		if err := s.dialogs.Handle(dialog{d}); err != nil {
			l.logger.Warn("failed to answer dialog", "type", d.Type(), "error", err)
		}
	})

	s.page = &page{p: pwPage}
	l.logger.Debug("browser session ready", "browser", browserName, "headless", opts.Headless, "width", width, "height", height)
	return s, nil
}

func pickBrowser(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch name {
	case "chromium", "chrome":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	default:
		return nil, fmt.Errorf("unsupported browser %q", name)
	}
}

type session struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	context   playwright.BrowserContext
	page      *page
	downloads *driver.Downloads
	dialogs   *driver.DialogPolicy
	logger    *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (s *session) Page() driver.Page             { return s.page }
func (s *session) Downloads() *driver.Downloads  { return s.downloads }
func (s *session) Dialogs() *driver.DialogPolicy { return s.dialogs }

// Close releases page, context, browser and the playwright driver in that
// order. Later calls return the first call's result.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			if err := s.page.p.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close page: %w", err))
			}
		}
		if s.context != nil {
			if err := s.context.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close context: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop playwright: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

type download struct{ d playwright.Download }

func (d download) SuggestedFilename() string { return d.d.SuggestedFilename() }
func (d download) SaveAs(path string) error  { return d.d.SaveAs(path) }

type dialog struct{ d playwright.Dialog }

func (d dialog) Type() string                   { return d.d.Type() }
func (d dialog) Message() string                { return d.d.Message() }
func (d dialog) Accept(promptText string) error { return d.d.Accept(promptText) }
func (d dialog) Dismiss() error                 { return d.d.Dismiss() }
