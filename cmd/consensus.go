package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/labeleval/internal/consensus"
)

var consensusCmd = &cobra.Command{
	Use:   "consensus <evaluation-id>",
	Short: "Recompute field consensus for a stored evaluation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		evaluationID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := st.GetResults(ctx, evaluationID)
		if err != nil {
			return err
		}

		fields, err := consensus.LoadFields(cfg.Consensus.FieldsFile)
		if err != nil {
			return err
		}

		ec := consensus.CalculateEvaluationConsensus(evaluationID, results, fields)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ec)
	},
}

func init() {
	rootCmd.AddCommand(consensusCmd)
}
