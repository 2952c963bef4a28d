package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra/doc"

	"github.com/rocketship-ai/uiprobe/internal/cli"
	"github.com/rocketship-ai/uiprobe/internal/dsl"
)

const outDir = "./docs/reference"

func main() {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	rootCmd := cli.NewRootCmd()
	if err := doc.GenMarkdownTree(rootCmd, outDir); err != nil {
		log.Fatal(err)
	}

	schema := filepath.Join(outDir, "scenario.schema.json")
	if err := os.WriteFile(schema, []byte(dsl.GetJSONSchema()+"\n"), 0o644); err != nil {
		log.Fatal(err)
	}
}
