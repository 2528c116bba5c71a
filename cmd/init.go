package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"llmunify/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and its schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		_, statErr := os.Stat(cfg.Database.Path)
		existed := statErr == nil

		e, err := openEnv(cmd.Context())
		if err != nil {
			return fmt.Errorf("init failed: %w", err)
		}
		defer e.Close()

		v, err := e.db.StoredSchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		if err := writeDefaultConfig(e.db.Path()); err != nil {
			e.logger.Warn("could not write config file", "err", err)
		}
		if existed {
			fmt.Printf("Already initialized — %s (schema v%d)\n", e.db.Path(), v)
			return nil
		}
		fmt.Printf("Initialized database at %s (schema v%d)\n", e.db.Path(), v)
		return nil
	},
}

// writeDefaultConfig records dbPath in ~/.llmunify/config.toml unless a
// config file is already in use.
func writeDefaultConfig(dbPath string) error {
	if flagConfig != "" {
		return nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	cfg := config.Default()
	cfg.Database.Path = dbPath
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote config to %s\n", path)
	return nil
}
