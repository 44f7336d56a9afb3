package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/labeleval/internal/prompt"
)

var (
	promptProvider string
	promptType     string
	promptFile     string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect and update stored prompts",
}

var promptsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active prompt for a provider and type",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		t, err := parsePromptType(promptType)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		content, err := st.ActivePrompt(ctx, promptProvider, t)
		if err != nil {
			return err
		}
		if content == "" {
			content = prompt.Default(t)
		}
		fmt.Println(content)
		return nil
	},
}

var promptsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the active prompt for a provider and type",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		t, err := parsePromptType(promptType)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(promptFile)
		if err != nil {
			return eris.Wrapf(err, "read prompt file %s", promptFile)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SetPrompt(ctx, promptProvider, t, string(content)); err != nil {
			return err
		}

		scope := promptProvider
		if scope == "" {
			scope = "all providers"
		}
		fmt.Printf("Updated %s prompt for %s\n", t, scope)
		return nil
	},
}

func parsePromptType(s string) (prompt.Type, error) {
	switch prompt.Type(s) {
	case prompt.TypeExtraction, prompt.TypeFormulation:
		return prompt.Type(s), nil
	default:
		return "", eris.Errorf("unknown prompt type: %s", s)
	}
}

func init() {
	for _, c := range []*cobra.Command{promptsShowCmd, promptsSetCmd} {
		c.Flags().StringVar(&promptProvider, "provider", "", "provider name (empty = catch-all prompt)")
		c.Flags().StringVar(&promptType, "type", string(prompt.TypeExtraction), "prompt type (extraction or formulation)")
	}
	promptsSetCmd.Flags().StringVar(&promptFile, "file", "", "file containing the new prompt text (required)")
	_ = promptsSetCmd.MarkFlagRequired("file")

	promptsCmd.AddCommand(promptsShowCmd, promptsSetCmd)
	rootCmd.AddCommand(promptsCmd)
}
