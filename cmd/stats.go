package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/labeleval/internal/consensus"
	"github.com/sells-group/labeleval/internal/provider"
	"github.com/sells-group/labeleval/internal/store"
)

var (
	statsLimit int
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Provider accuracy and agreement distribution over stored evaluations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		evaluations, err := loadEvaluationConsensus(cmd, st, statsLimit)
		if err != nil {
			return err
		}

		var accuracies []consensus.ProviderAccuracy
		for _, id := range provider.All() {
			accuracies = append(accuracies, consensus.CalculateProviderAccuracy(id, evaluations))
		}
		dist := consensus.CalculateDistribution(evaluations)

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"evaluations":       len(evaluations),
				"provider_accuracy": accuracies,
				"distribution":      dist,
			})
		}

		fmt.Printf("Across %d evaluations:\n\n", len(evaluations))
		fmt.Println("Provider accuracy vs consensus:")
		for _, pa := range accuracies {
			fmt.Printf("  %-14s %4d/%-4d fields  %.1f%%\n", pa.Provider, pa.MatchedConsensus, pa.TotalFields, pa.Accuracy)
		}
		fmt.Println("\nAgreement distribution:")
		fmt.Printf("  full (5)     %d\n", dist.Full)
		fmt.Printf("  strong (4)   %d\n", dist.Strong)
		fmt.Printf("  majority (3) %d\n", dist.Majority)
		fmt.Printf("  split (<3)   %d\n", dist.Split)
		fmt.Printf("  total        %d\n", dist.Total)
		return nil
	},
}

// loadEvaluationConsensus recomputes consensus for the most recent stored
// evaluations.
func loadEvaluationConsensus(cmd *cobra.Command, st store.Store, limit int) ([]consensus.EvaluationConsensus, error) {
	ctx := cmd.Context()

	fields, err := consensus.LoadFields(cfg.Consensus.FieldsFile)
	if err != nil {
		return nil, err
	}

	rows, err := st.ListEvaluations(ctx, store.EvaluationFilter{Limit: limit})
	if err != nil {
		return nil, err
	}

	var out []consensus.EvaluationConsensus
	for _, e := range rows {
		results, err := st.GetResults(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, consensus.CalculateEvaluationConsensus(e.ID, results, fields))
	}
	return out, nil
}

func init() {
	statsCmd.Flags().IntVar(&statsLimit, "limit", 100, "number of recent evaluations to include")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print stats as JSON")
	rootCmd.AddCommand(statsCmd)
}
