package main

import (
	"github.com/spf13/cobra"
	"lpmanager/pkg/config"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent journaled actions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			j, err := openJournal(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(entries)
		},
	}
	cmd.Flags().Int("limit", 20, "entries to show, 0 for all")
	return cmd
}
