package main

import (
	"github.com/spf13/cobra"

	"github.com/JonnyShabli/ghsync/internal/models"
)

var runCmd = &cobra.Command{
	Use:   "run [job...]",
	Short: "Run the named jobs once, or every configured job when none is named",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.logger.Sync() }()

		names := args
		if len(names) == 0 {
			names = a.cfg.JobNames()
		}

		jobs := make([]models.JobConfig, 0, len(names))
		for _, name := range names {
			j, err := a.cfg.Job(name)
			if err != nil {
				return err
			}
			jobs = append(jobs, j)
		}

		for _, j := range jobs {
			if _, err := a.runner.Run(cmd.Context(), j); err != nil {
				return err
			}
		}
		return nil
	},
}
