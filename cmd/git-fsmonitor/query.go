package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func queryCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "query <token>",
		Short: "Send a literal token and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := sendQuery(*env.socketPath, args[0], 2*time.Second)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func flushCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Force a resync for testing purposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := sendQuery(*env.socketPath, "flush", 2*time.Second)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
