package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filestore/internal/client"
)

func newAddCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE...",
		Short: "Store new files",
		Long:  `Store new files. Fails if a file with the same name is already stored.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: run(newClient, func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) error {
			res, err := c.Add(ctx, args)
			if err != nil {
				return err
			}
			printPut(cmd, res)
			return nil
		}),
	}
}

func newUpdateCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "update FILE...",
		Short: "Store files, replacing existing ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(newClient, func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) error {
			res, err := c.Update(ctx, args)
			if err != nil {
				return err
			}
			printPut(cmd, res)
			return nil
		}),
	}
}

func printPut(cmd *cobra.Command, res client.PutResult) {
	out := cmd.OutOrStdout()
	for _, name := range res.Deduplicated {
		fmt.Fprintf(out, "%s: already on server, copied\n", name)
	}
	if len(res.Uploaded) > 0 {
		fmt.Fprintf(out, "%s (%d file(s), %s sent)\n", res.Message, len(res.Uploaded), humanize.Bytes(uint64(res.BytesSent)))
	}
}

func newListCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Short:   "List stored files",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunE: run(newClient, func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) error {
			names, err := c.List(ctx)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		}),
	}
}

func newRemoveCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:     "rm FILE...",
		Short:   "Delete stored files",
		Aliases: []string{"remove"},
		Args:    cobra.MinimumNArgs(1),
		RunE: run(newClient, func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) error {
			return c.Remove(ctx, args)
		}),
	}
}
