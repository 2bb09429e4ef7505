package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"filestore/internal/client"
)

const noFilesMessage = "No files currently stored"

func newWordCountCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "wc",
		Short: "Print the number of words in each stored file",
		Args:  cobra.NoArgs,
		RunE: run(newClient, func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) error {
			counts, err := c.WordCount(ctx)
			if errors.Is(err, client.ErrNoFiles) {
				fmt.Fprintln(cmd.OutOrStdout(), noFilesMessage)
				return nil
			}
			if err != nil {
				return err
			}
			for _, fc := range counts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s wordcount = %d\n", fc.Name, fc.Words)
			}
			return nil
		}),
	}
}

func newFreqWordsCmd(newClient clientFactory) *cobra.Command {
	var (
		limit int
		order string
	)
	cmd := &cobra.Command{
		Use:   "freq-words",
		Short: "Print the most or least frequent words across all stored files",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(order) {
			case "asc", "desc":
				return nil
			}
			return fmt.Errorf("--order must be asc or desc, got %q", order)
		},
		RunE: run(newClient, func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) error {
			rows, err := c.WordFrequency(ctx, limit, order)
			if errors.Is(err, client.ErrNoFiles) {
				fmt.Fprintln(cmd.OutOrStdout(), noFilesMessage)
				return nil
			}
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", r.Count, r.Word)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of words to print")
	cmd.Flags().StringVar(&order, "order", "asc", "sort order by count, asc or desc")
	return cmd
}
