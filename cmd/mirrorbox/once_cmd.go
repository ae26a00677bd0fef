package main

import (
	"errors"
	"fmt"

	"github.com/mirrorbox/mirrorbox/internal/client"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newOnceCmd())
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single reconcile pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}

			cmd.SilenceUsage = true

			logger, closeLogs, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLogs()

			c, err := client.New(cfg, logger)
			if err != nil {
				return err
			}

			ok, err := c.SyncOnce()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("%s: some operations failed, see %s\n", red("WARN"), cfg.LogDir)
				return errors.New("sync pass completed with failures")
			}
			return nil
		},
	}
}
