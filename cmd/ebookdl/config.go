package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ebookdl/pkg/config"
	"ebookdl/pkg/ui"
)

var configForce bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ebookdl configuration.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (EBOOKDL_*)
  - .env files (./.env and ~/.ebookdl.env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with all options set to their defaults.

The file is created at the path given with --config, or in the per-user
configuration directory.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// pathCmd represents the config path command
var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show where configuration and data files live",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(pathCmd)

	initCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
}

// defaultConfigPath returns --config or <config dir>/config.yaml
func defaultConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := defaultConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit download.folder to choose where files are saved")
	fmt.Println("2. Run 'ebookdl config show' to check the result")
	fmt.Println("3. Start downloading with 'ebookdl download <url>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	cfgPath, err := defaultConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		return err
	}
	historyPath, err := cfg.HistoryPath()
	if err != nil {
		return err
	}

	ui.PrintInfo("Config directory", dir)
	ui.PrintInfo("Config file", cfgPath)
	ui.PrintInfo("History database", historyPath)
	ui.PrintInfo("Credentials file", filepath.Join(dir, "credentials.enc"))
	ui.PrintInfo("Download folder", cfg.Download.Folder)
	return nil
}
