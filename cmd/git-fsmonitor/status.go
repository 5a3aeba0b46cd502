package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

func isRunningCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "is-running",
		Short: "Report whether the fsmonitor daemon is listening",
		RunE: func(cmd *cobra.Command, args []string) error {
			if isListening(*env.socketPath) {
				fmt.Fprintln(cmd.OutOrStdout(), "running")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "not running")
			os.Exit(1)
			return nil
		},
	}
}

func isSupportedCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "is-supported",
		Short: "Report whether fsmonitor is supported on this platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			// internal/fsbackend provides an fsnotify-backed adapter on
			// every platform fsnotify itself supports, plus a native
			// ReadDirectoryChangesW adapter on Windows.
			switch runtime.GOOS {
			case "linux", "darwin", "windows", "freebsd":
				fmt.Fprintln(cmd.OutOrStdout(), "supported")
				return nil
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "unsupported")
				os.Exit(1)
				return nil
			}
		},
	}
}
