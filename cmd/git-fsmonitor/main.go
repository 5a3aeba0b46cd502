// git-fsmonitor is the filesystem-monitor daemon's CLI: it can spawn/run
// the daemon, stop it, issue ad-hoc queries, force a resync, and answer
// supported/running probes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var root string
	var socketPath string
	var configPath string

	cmd := &cobra.Command{
		Use:   "git-fsmonitor",
		Short: "Filesystem-monitor daemon for a working directory",
	}
	cmd.PersistentFlags().StringVar(&root, "root", ".", "working directory to monitor")
	cmd.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath(), "IPC socket path")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (parafsconfig)")

	env := &cliEnv{root: &root, socketPath: &socketPath, configPath: &configPath}

	cmd.AddCommand(
		startCmd(env),
		runCmd(env),
		stopCmd(env),
		queryCmd(env),
		queryIndexCmd(env),
		flushCmd(env),
		isRunningCmd(env),
		isSupportedCmd(env),
	)
	return cmd
}

// cliEnv carries the persistent flags down to each subcommand's RunE.
type cliEnv struct {
	root       *string
	socketPath *string
	configPath *string
}

func defaultSocketPath() string {
	dir := os.Getenv("TMPDIR")
	if dir == "" {
		dir = "/tmp"
	}
	return dir + "/git-fsmonitor.sock"
}
