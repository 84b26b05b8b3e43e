package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/futureCreator/vflow/internal/assets"
	"github.com/futureCreator/vflow/internal/config"
	"github.com/spf13/cobra"
)

var (
	initMinimal bool
	initProject bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize vflow configuration",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initMinimal, "minimal", false, "Write the config without explanatory comments")
	initCmd.Flags().BoolVar(&initProject, "project", false, "Write .vflow/config.yaml in the current directory instead of ~/.vflow")
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir := config.Dir
	if !initProject {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home dir: %w", err)
		}
		configDir = filepath.Join(home, config.Dir)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	name := "config.yaml"
	if initMinimal {
		name = "config.minimal.yaml"
	}
	content, err := assets.LoadTemplate(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Put pipelines in .vflow/pipelines/<name>.flow or run a file with `vflow run file.flow`.")
	return nil
}
