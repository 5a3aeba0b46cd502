package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
)

func startCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Spawn the fsmonitor daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if isListening(*env.socketPath) {
				fmt.Fprintln(cmd.OutOrStdout(), "fsmonitor already running")
				return nil
			}

			self, err := os.Executable()
			if err != nil {
				return fmt.Errorf("git-fsmonitor: locating self: %w", err)
			}
			child := exec.Command(self, "run", "--root", *env.root, "--socket", *env.socketPath, "--config", *env.configPath)
			child.Stdout = nil
			child.Stderr = nil
			if err := child.Start(); err != nil {
				return fmt.Errorf("git-fsmonitor: spawning daemon: %w", err)
			}
			// Detach: the foreground CLI does not wait for the daemon to exit.
			go child.Wait()

			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 20 * time.Millisecond
			bo.MaxElapsedTime = 5 * time.Second
			err = backoff.Retry(func() error {
				if isListening(*env.socketPath) {
					return nil
				}
				return fmt.Errorf("daemon not yet listening")
			}, bo)
			if err != nil {
				return fmt.Errorf("git-fsmonitor: daemon did not become ready: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "fsmonitor started")
			return nil
		},
	}
}
