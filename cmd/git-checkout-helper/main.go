// git-checkout-helper is the background process a parallel checkout
// coordinator spawns over stdin/stdout. It reads queue/write/get1/mget
// commands on stdin and writes result records on stdout, running a preload
// thread and a writer thread pool internally.
//
// Usage:
//
//	git-checkout-helper --child=N --preload=K --writers=W [--automatic] --objects=<dir>
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gitkit/parafs/internal/convert"
	"github.com/gitkit/parafs/internal/helperserver"
	"github.com/gitkit/parafs/internal/item"
	"github.com/gitkit/parafs/internal/objectstore"
	"github.com/gitkit/parafs/internal/smudge"
)

var (
	child     = flag.Int("child", 0, "identity/trace label assigned by the foreground")
	preload   = flag.Int("preload", 100, "in-memory preload window size")
	writers   = flag.Int("writers", 4, "writer thread pool size")
	automatic = flag.Bool("automatic", false, "start with the write watermark already authorized to AUTO")
	objects   = flag.String("objects", ".", "directory the object store reads blob bytes from")
)

func main() {
	flag.Parse()

	verbose := os.Getenv("GIT_TEST_CHECKOUT_HELPER_VERBOSE") != ""
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger = logger.With("child", *child)

	store := objectstore.NewDirStore(*objects)
	s := helperserver.New(store, convert.PassthroughClassifier{}, convert.IdentityConverter{}, smudge.Write, *preload, *writers)

	if *automatic {
		s.Authorize(item.Auto)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("helper starting", "preload", *preload, "writers", *writers, "automatic", *automatic)
	if err := helperserver.ServeWire(ctx, s, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		logger.Error("helper exiting with protocol error", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Info("helper completed", "items", s.CompletedCount())
}
