package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/labeleval/internal/consensus"
	"github.com/sells-group/labeleval/internal/provider"
	"github.com/sells-group/labeleval/internal/store"
)

var (
	reportOut   string
	reportLimit int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export an XLSX accuracy report over stored evaluations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.ListEvaluations(ctx, store.EvaluationFilter{Limit: reportLimit})
		if err != nil {
			return err
		}
		evaluations, err := loadEvaluationConsensus(cmd, st, reportLimit)
		if err != nil {
			return err
		}

		f := xlsx.NewFile()
		if err := writeEvaluationSheet(f, rows); err != nil {
			return err
		}
		if err := writeAccuracySheet(f, evaluations); err != nil {
			return err
		}
		if err := writeFieldSheet(f, evaluations); err != nil {
			return err
		}

		if err := f.Save(reportOut); err != nil {
			return eris.Wrapf(err, "save report %s", reportOut)
		}

		fmt.Printf("Wrote %s (%d evaluations)\n", reportOut, len(rows))
		return nil
	},
}

func writeEvaluationSheet(f *xlsx.File, rows []store.Evaluation) error {
	sheet, err := f.AddSheet("Evaluations")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Image", "Product", "Succeeded", "Failed", "Duration (ms)", "Created"} {
		header.AddCell().Value = h
	}

	for _, e := range rows {
		r := sheet.AddRow()
		r.AddCell().Value = e.ID
		r.AddCell().Value = e.ImageName
		r.AddCell().Value = e.ProductName
		r.AddCell().SetInt(e.SuccessCount)
		r.AddCell().SetInt(e.FailureCount)
		r.AddCell().SetInt64(e.TotalDurationMS)
		r.AddCell().Value = e.CreatedAt.Format("2006-01-02 15:04:05")
	}
	return nil
}

func writeAccuracySheet(f *xlsx.File, evaluations []consensus.EvaluationConsensus) error {
	sheet, err := f.AddSheet("Provider Accuracy")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Provider", "Fields Scored", "Matched Consensus", "Accuracy (%)"} {
		header.AddCell().Value = h
	}

	for _, id := range provider.All() {
		pa := consensus.CalculateProviderAccuracy(id, evaluations)
		r := sheet.AddRow()
		r.AddCell().Value = string(pa.Provider)
		r.AddCell().SetInt(pa.TotalFields)
		r.AddCell().SetInt(pa.MatchedConsensus)
		r.AddCell().SetFloatWithFormat(pa.Accuracy, "0.0")
	}
	return nil
}

func writeFieldSheet(f *xlsx.File, evaluations []consensus.EvaluationConsensus) error {
	sheet, err := f.AddSheet("Field Consensus")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Evaluation", "Field", "Agreement", "Providers", "Rate (%)", "Has Consensus"} {
		header.AddCell().Value = h
	}

	for _, ec := range evaluations {
		for _, fc := range ec.FieldResults {
			r := sheet.AddRow()
			r.AddCell().Value = ec.EvaluationID
			r.AddCell().Value = fc.Field
			r.AddCell().SetInt(fc.AgreementCount)
			r.AddCell().SetInt(fc.TotalProviders)
			r.AddCell().SetFloatWithFormat(fc.AgreementRate, "0.0")
			r.AddCell().SetBool(fc.HasConsensus)
		}
	}
	return nil
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "labeleval-report.xlsx", "output file path")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 100, "number of recent evaluations to include")
	rootCmd.AddCommand(reportCmd)
}
