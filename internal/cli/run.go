package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/rocketship-ai/uiprobe/internal/config"
	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/driver/pwdriver"
	"github.com/rocketship-ai/uiprobe/internal/dsl"
	"github.com/rocketship-ai/uiprobe/internal/harness"
	"github.com/rocketship-ai/uiprobe/internal/history"
	"github.com/rocketship-ai/uiprobe/internal/report"
	"github.com/rocketship-ai/uiprobe/internal/scenarios"
	"github.com/rocketship-ai/uiprobe/internal/telemetry"
)

// ErrScenariosFailed is returned when at least one scenario did not succeed.
// The summary has already been printed by then.
var ErrScenariosFailed = errors.New("one or more scenarios failed")

// newLauncher is swapped out by tests.
var newLauncher = func(logger *slog.Logger) driver.Launcher {
	return pwdriver.NewLauncher(logger)
}

// NewRunCmd creates a new run command
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario|file...]",
		Short: "Run scenarios against the dashboard",
		Long: `Run built-in scenarios by name or scenario files by path. With no
arguments every built-in scenario runs.

Examples:
  uiprobe run dashboard-title
  uiprobe run --headless --base-url http://localhost:4173 dashboard-admin
  uiprobe run ./scenarios/custom.yaml --var admin_password=secret
  uiprobe run --parallel 3 --json --record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, args)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("headless", false, "Run the browser without a window")
	flags.String("base-url", harness.DefaultBaseURL, "Base URL of the dashboard under test")
	flags.String("browser", "chromium", "Browser engine (chromium, firefox, webkit)")
	flags.Duration("timeout", harness.DefaultTimeout, "Default per-step timeout")
	flags.Duration("slow-mo", 0, "Delay between browser operations")
	flags.String("screenshot-dir", "", "Directory for screenshots (default: <artifacts>/<run-id>/screenshots)")
	flags.String("artifacts-dir", "", "Directory for run artifacts (default: .uiprobe/artifacts)")
	flags.Int("parallel", 1, "Number of scenarios to run at once")
	flags.Bool("install", false, "Install the browser before launching")
	flags.String("history-db", "", "History database path (default: .uiprobe/history.db)")
	flags.String("trace-file", "", "Write OpenTelemetry spans as JSON to this file")
	flags.StringToStringP("var", "v", nil, "Set variables (can be used multiple times: --var key=value --var nested.key=value)")
	flags.String("var-file", "", "Load variables from YAML file")
	flags.String("env-file", "", "Load environment variables from a .env file")
	flags.String("config", "", "Config file (default: ./uiprobe.yaml when present)")
	flags.Bool("json", false, "Print the reports as JSON instead of the summary")
	flags.Bool("record", false, "Save the reports to the history database")
}

func runScenarios(cmd *cobra.Command, refs []string) error {
	flags := cmd.Flags()

	var fileEnv map[string]string
	if envFile, _ := flags.GetString("env-file"); envFile != "" {
		env, err := config.LoadEnvFile(envFile)
		if err != nil {
			return err
		}
		if err := config.ApplyEnv(env); err != nil {
			return err
		}
		fileEnv = env
		Logger.Debug("loaded env file", "path", envFile, "count", len(env))
	}

	configFile, _ := flags.GetString("config")
	cfg, err := config.Load(flags, configFile)
	if err != nil {
		return err
	}

	cliVars, err := flags.GetStringToString("var")
	if err != nil {
		return err
	}
	varFile, _ := flags.GetString("var-file")
	fileVars, err := loadVarFile(varFile)
	if err != nil {
		return err
	}

	list, err := loadScenarios(refs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	provider, err := telemetry.Setup(cfg.TraceFile, version())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			Logger.Warn("failed to flush traces", "error", err)
		}
	}()

	asJSON, _ := flags.GetBool("json")
	out := cmd.OutOrStdout()
	narration := out
	if asJSON {
		narration = cmd.ErrOrStderr()
	}

	runner := harness.NewRunner(newLauncher(Logger), harness.Config{
		BaseURL:       cfg.BaseURL,
		Launch:        cfg.LaunchOptions(),
		Timeout:       cfg.Timeout,
		ArtifactsDir:  cfg.ArtifactsDir,
		ScreenshotDir: cfg.ScreenshotDir,
		FileVars:      fileVars,
		CLIVars:       cliVars,
		Env:           fileEnv,
	},
		harness.WithLogger(Logger),
		harness.WithNarrator(report.NewNarrator(narration)),
	)

	Logger.Debug("running scenarios", "count", len(list), "parallel", cfg.Parallel, "base_url", cfg.BaseURL)
	reports := runner.RunAll(ctx, list, cfg.Parallel)

	if record, _ := flags.GetBool("record"); record {
		if err := recordReports(ctx, cfg.HistoryDB, reports); err != nil {
			return err
		}
	}

	if err := writeReports(out, asJSON, reports); err != nil {
		return err
	}
	if !harness.Success(reports) {
		return ErrScenariosFailed
	}
	return nil
}

func loadScenarios(refs []string) ([]dsl.Scenario, error) {
	if len(refs) == 0 {
		return scenarios.All()
	}
	list := make([]dsl.Scenario, 0, len(refs))
	for _, ref := range refs {
		s, err := scenarios.Resolve(ref)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

func loadVarFile(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variable file: %w", err)
	}
	var vars map[string]interface{}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("failed to parse variable file: %w", err)
	}
	return vars, nil
}

func recordReports(ctx context.Context, path string, reports []*report.RunReport) error {
	// Recording happens after an interrupt too; the reports are final.
	ctx = context.WithoutCancel(ctx)
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, rep := range reports {
		if err := store.Save(ctx, rep); err != nil {
			return err
		}
		Logger.Debug("recorded run", "run_id", rep.RunID, "scenario", rep.Scenario)
	}
	return nil
}

func writeReports(w io.Writer, asJSON bool, reports []*report.RunReport) error {
	if asJSON {
		return report.WriteJSON(w, reports...)
	}
	report.WriteSummary(w, reports...)
	return nil
}
