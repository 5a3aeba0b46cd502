package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitkit/parafs/internal/fsindex"
)

func queryIndexCmd(env *cliEnv) *cobra.Command {
	var indexExtPath string
	cmd := &cobra.Command{
		Use:   "query-index",
		Short: "Query using the token stored in the index file's fsmonitor extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(indexExtPath)
			if err != nil {
				return fmt.Errorf("git-fsmonitor: reading index extension: %w", err)
			}
			ext, err := fsindex.Decode(data)
			if err != nil {
				return fmt.Errorf("git-fsmonitor: decoding index extension: %w", err)
			}

			var token string
			switch ext.Version {
			case fsindex.VersionToken:
				token = ext.Token
			default:
				// A v1 extension carries a plain timestamp, not a daemon
				// session token; sending it as-is will not parse and the
				// daemon correctly responds trivially.
				token = strconv.FormatInt(ext.TimestampNanos, 10)
			}

			lines, err := sendQuery(*env.socketPath, token, 2*time.Second)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&indexExtPath, "index", ".git/index.fsmonitor", "path to the stored index fsmonitor extension")
	return cmd
}
