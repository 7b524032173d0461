package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"archlint/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize archlint configuration",
	Long:  "Creates a .archlint/ directory with default configuration and a starter rule document in the current repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .archlint directory)")
	rootCmd.AddCommand(initCmd)
}

const starterRules = `version: 2
rules: []

# Example rules:
#
# rules:
#   - name: billing-must-not-touch-auth
#     description: billing reaches auth through the gateway only
#     severity: error
#     deny:
#       from: { ref_id: billing }
#       to: { ref_id: auth }
#       unless_relations: [depends-on]
#
#   - name: no-service-cycles
#     forbid_cycles:
#       relations: [uses, depends-on]
#       max_depth: 10
`

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	archDir := filepath.Join(cwd, ".archlint")
	if _, statErr := os.Stat(archDir); statErr == nil {
		if !initForce {
			// Idempotent behavior: already initialized is success (CI-friendly)
			fmt.Println("archlint already initialized.")
			fmt.Printf("Configuration at: %s\n", filepath.Join(archDir, "config.json"))
			fmt.Println("\nRun 'archlint init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(archDir); removeErr != nil {
			return fmt.Errorf("failed to remove existing .archlint directory: %w", removeErr)
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(cwd); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	rulesPath := filepath.Join(cwd, cfg.Rules.Path)
	if _, statErr := os.Stat(rulesPath); os.IsNotExist(statErr) {
		if writeErr := os.WriteFile(rulesPath, []byte(starterRules), 0644); writeErr != nil {
			return fmt.Errorf("failed to write starter rule document: %w", writeErr)
		}
	}

	fmt.Println("archlint initialized.")
	fmt.Printf("Configuration: %s\n", filepath.Join(archDir, "config.json"))
	fmt.Printf("Rule document: %s\n", rulesPath)
	return nil
}
