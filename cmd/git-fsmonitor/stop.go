package main

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
)

func stopCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the fsmonitor daemon to quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isListening(*env.socketPath) {
				fmt.Fprintln(cmd.OutOrStdout(), "fsmonitor not running")
				return nil
			}
			if _, err := sendQuery(*env.socketPath, "quit", time.Second); err != nil {
				return err
			}

			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 20 * time.Millisecond
			bo.MaxElapsedTime = 5 * time.Second
			err := backoff.Retry(func() error {
				if !isListening(*env.socketPath) {
					return nil
				}
				return fmt.Errorf("listener socket still present")
			}, bo)
			if err != nil {
				return fmt.Errorf("git-fsmonitor: daemon did not stop: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "fsmonitor stopped")
			return nil
		},
	}
}
