package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Ontobridge configuration",
	Long: `Manage Ontobridge configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (ONTOBRIDGE_*, loaded from .env if present)
3. Config file (~/.ontobridge/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, env vars and flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		// Never echo secrets
		if cfg.LLM.APIKey != "" {
			cfg.LLM.APIKey = "********"
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Print(string(yamlData))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.ontobridge/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath, err := writeDefaultConfig(filepath.Join(home, ".ontobridge"))
		if err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  ontobridge config show\n")
		return nil
	},
}

const configHeader = `# Ontobridge Configuration File
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (ONTOBRIDGE_*, e.g. ONTOBRIDGE_ALIGNMENT_TOP_K=5)
#   3. This config file
#   4. Built-in defaults
#
# API keys are better kept in the environment:
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export OLLAMA_BASE_URL=http://localhost:11434

`

// writeDefaultConfig writes config.yaml into dir and refuses to overwrite an existing file
func writeDefaultConfig(dir string) (string, error) {
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s\nUse 'ontobridge config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("error marshaling config: %w", err)
	}

	if err := util.WriteFileAtomic(configPath, append([]byte(configHeader), yamlData...), 0o644); err != nil {
		return "", fmt.Errorf("error writing config: %w", err)
	}
	return configPath, nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
