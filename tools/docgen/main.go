// Package main generates the CLI reference and the OpenAPI document from the
// game-price-tracker command tree and API routes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/game-price-tracker/cmd/game-price-tracker/cmd"
	"github.com/donaldgifford/game-price-tracker/internal/api/handlers"
)

func main() {
	cliDir := flag.String("cli", "docs/cli", "output directory for generated CLI markdown")
	openapiFile := flag.String("openapi", "docs/openapi.yaml", "output path for the OpenAPI document")
	flag.Parse()

	if err := genCLI(*cliDir); err != nil {
		log.Fatalf("generating CLI docs: %v", err)
	}
	if err := genOpenAPI(*openapiFile); err != nil {
		log.Fatalf("generating OpenAPI document: %v", err)
	}

	fmt.Printf("CLI docs generated in %s/, OpenAPI document written to %s\n", *cliDir, *openapiFile)
}

func genCLI(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	root := cmd.Root()
	root.DisableAutoGenTag = true
	return doc.GenMarkdownTree(root, dir)
}

func genOpenAPI(path string) error {
	api := humaecho.New(echo.New(), handlers.APIConfig(cmd.Version))
	handlers.RegisterRoutes(api,
		handlers.NewPriceHandler(nil, "", nil),
		handlers.NewQuotaHandler(nil),
	)

	data, err := api.OpenAPI().YAML()
	if err != nil {
		return fmt.Errorf("encoding OpenAPI: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
