package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rocketship-ai/uiprobe/internal/dsl"
	"github.com/rocketship-ai/uiprobe/internal/scenarios"
)

// NewValidateCmd creates a new validate command
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file_or_directory...]",
		Short: "Validate scenario files against the JSON schema",
		Long: `Validate one or more scenario files without running them. With no
arguments the built-in scenarios are validated.

Examples:
  uiprobe validate scenario.yaml         # Validate a single file
  uiprobe validate ./scenarios/          # Validate all YAML files in a directory
  uiprobe validate                       # Validate the built-in scenarios`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		for _, name := range scenarios.Names() {
			data, err := scenarios.Source(name)
			if err == nil {
				err = validateDocument(data)
			}
			if err != nil {
				return fmt.Errorf("built-in scenario %s: %w", name, err)
			}
		}
		fmt.Fprintf(out, "✅ All %d built-in scenario(s) passed validation\n", len(scenarios.Names()))
		return nil
	}

	var files []string
	totalValid := 0
	totalInvalid := 0

	for _, arg := range args {
		stat, err := os.Stat(arg)
		if err != nil {
			Logger.Error("failed to access path", "path", arg, "error", err)
			totalInvalid++
			continue
		}

		if stat.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && (filepath.Ext(path) == ".yaml" || filepath.Ext(path) == ".yml") {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				Logger.Error("failed to scan directory", "path", arg, "error", err)
				totalInvalid++
				continue
			}
		} else {
			files = append(files, arg)
		}
	}

	if len(files) == 0 && totalInvalid == 0 {
		return fmt.Errorf("no YAML files found to validate")
	}

	Logger.Info("validating files", "count", len(files))

	for _, file := range files {
		if err := validateFile(file); err != nil {
			Logger.Error("validation failed", "file", file, "error", err)
			totalInvalid++
		} else {
			Logger.Info("validation passed", "file", file)
			totalValid++
		}
	}

	Logger.Info("validation complete", "valid", totalValid, "invalid", totalInvalid, "total", len(files))

	if totalInvalid > 0 {
		return fmt.Errorf("validation failed for %d file(s)", totalInvalid)
	}

	fmt.Fprintf(out, "✅ All %d file(s) passed validation\n", totalValid)
	return nil
}

func validateFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return validateDocument(data)
}

func validateDocument(data []byte) error {
	if err := dsl.ValidateYAMLWithSchema(data); err != nil {
		return err
	}
	scenario, err := dsl.ParseYAML(data)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	Logger.Debug("scenario details",
		"name", scenario.Name,
		"steps", len(scenario.Steps),
		"description", scenario.Description,
	)
	return nil
}
