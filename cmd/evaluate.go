package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/labeleval/internal/consensus"
	"github.com/sells-group/labeleval/internal/orchestrator"
)

var (
	evalImage      string
	evalProviders  []string
	evalSequential bool
	evalNoSave     bool
	evalJSON       bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run a label image through the configured AI providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		image, err := os.ReadFile(evalImage)
		if err != nil {
			return eris.Wrapf(err, "read image %s", evalImage)
		}
		mimeType := detectImageMIME(evalImage, image)

		subset, err := parseProviders(evalProviders)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		reg := buildRegistry(ctx, st)
		orch := orchestrator.New(reg, subset)
		if len(orch.Services()) == 0 {
			return eris.New("no configured providers to run")
		}

		evaluationID := uuid.New().String()
		zap.L().Info("starting evaluation",
			zap.String("evaluation_id", evaluationID),
			zap.String("image", evalImage),
			zap.Int("providers", len(orch.Services())),
		)

		var run *orchestrator.Run
		if evalSequential {
			run = orch.AnalyzeSequential(ctx, image, mimeType, evaluationID, cfg.Orchestrator.SequentialDelay())
		} else {
			run = orch.AnalyzeParallel(ctx, image, mimeType, evaluationID)
		}

		if !evalNoSave {
			if err := st.SaveRun(ctx, run, filepath.Base(evalImage), mimeType); err != nil {
				return eris.Wrap(err, "save run")
			}
		}

		fields, err := consensus.LoadFields(cfg.Consensus.FieldsFile)
		if err != nil {
			return err
		}
		ec := consensus.CalculateEvaluationConsensus(evaluationID, run.Results, fields)

		if evalJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"run":       run,
				"consensus": ec,
			})
		}

		printRunSummary(run, ec)
		return nil
	},
}

// detectImageMIME prefers the file extension and falls back to content
// sniffing for extensionless files.
func detectImageMIME(path string, data []byte) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}

func printRunSummary(run *orchestrator.Run, ec consensus.EvaluationConsensus) {
	fmt.Printf("Evaluation %s\n", run.EvaluationID)
	fmt.Printf("  %d succeeded, %d failed in %dms\n\n", run.SuccessCount, run.FailureCount, run.TotalDurationMS)

	for _, r := range run.Results {
		status := "ok"
		if !r.Success {
			status = "FAILED: " + r.Error
		}
		fmt.Printf("  %-14s %6dms  %s\n", r.Provider, r.DurationMS, status)
	}

	fmt.Printf("\nConsensus: %d/%d fields (%.1f%%)\n", ec.FieldsWithConsensus, ec.TotalFields, ec.ConsensusRate)
	for _, fc := range ec.FieldResults {
		marker := " "
		if fc.HasConsensus {
			marker = "*"
		}
		fmt.Printf("  %s %-45s %d/%d agree\n", marker, fc.Field, fc.AgreementCount, fc.TotalProviders)
	}
}

func init() {
	evaluateCmd.Flags().StringVar(&evalImage, "image", "", "label image file (required)")
	evaluateCmd.Flags().StringSliceVar(&evalProviders, "providers", nil, "provider subset (default: all configured)")
	evaluateCmd.Flags().BoolVar(&evalSequential, "sequential", false, "call providers one at a time with a delay")
	evaluateCmd.Flags().BoolVar(&evalNoSave, "no-save", false, "skip persisting the run")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print full results as JSON")
	_ = evaluateCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(evaluateCmd)
}
