package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/labeleval/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and their configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		reg := buildRegistry(ctx, st)
		status := reg.Status()

		for _, id := range provider.All() {
			svc := reg.Get(id)
			state := "not configured"
			if status[id] {
				state = "configured"
			}
			fmt.Printf("  %-14s %-16s %s\n", id, state, svc.DisplayName())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
