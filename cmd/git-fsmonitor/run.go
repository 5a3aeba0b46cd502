package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gitkit/parafs/internal/fsmonitor"
	"github.com/gitkit/parafs/internal/parafsconfig"
)

func runCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the fsmonitor daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			pcfg, err := parafsconfig.Load(*env.configPath)
			if err != nil {
				return err
			}
			return runForeground(*env.root, *env.socketPath, pcfg)
		},
	}
}

func runForeground(root, socketPath string, pcfg parafsconfig.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	n := uint64(0)
	sessionID := func() string {
		if pcfg.ForcedToken != "" {
			return pcfg.ForcedToken
		}
		n++
		return fmt.Sprintf("%d-%d", os.Getpid(), n)
	}

	cfg := fsmonitor.RunConfig{
		Config: fsmonitor.Config{
			DotGitName:    pcfg.DotGitName,
			CookiePrefix:  pcfg.CookiePrefix,
			CombineLimit:  pcfg.CombineLimit,
			TruncateDelay: pcfg.TruncateDelay,
			NewSessionID:  sessionID,
		},
		Root:        root,
		SocketPath:  socketPath,
		IPCThreads:  pcfg.IPCThreads,
		ClientDelay: pcfg.ClientDelay,
		Log:         logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("fsmonitor starting", "root", root, "socket", socketPath)
	return fsmonitor.Run(ctx, cfg)
}
