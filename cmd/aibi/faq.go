package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IlliaSobcko/AIBI-Project/internal/statepaths"
	"github.com/IlliaSobcko/AIBI-Project/knowledge"
)

func newFAQCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faq",
		Short: "Regenerate the dynamic instructions from approved replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := knowledge.FromViper()
			res, err := store.GenerateFAQ(statepaths.DynamicInstructionsPath())
			if errors.Is(err, knowledge.ErrNoPatterns) {
				fmt.Fprintln(cmd.OutOrStdout(), "No approved replies yet; nothing to generate.")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Dynamic instructions regenerated.\nPatterns: %d\nTopics: %d\nFile: %s\n",
				res.TotalPatterns, res.Topics, res.Path)
			return nil
		},
	}
}
