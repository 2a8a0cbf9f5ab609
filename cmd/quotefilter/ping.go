package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPingCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the quote site is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			c, err := rt.client()
			if err != nil {
				return err
			}
			start := time.Now()
			if err := c.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is up (%s)\n", rt.cfg.Server.BaseURL, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
