package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fzft/go-static-server/config"
	"github.com/fzft/go-static-server/log"
	"github.com/fzft/go-static-server/node"
	"github.com/fzft/go-static-server/stats"
	"github.com/fzft/go-static-server/version"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	switch {
	case errors.Is(err, config.ErrHelp):
		fmt.Print(buildInfo())
		fmt.Print(config.Help(args[0]))
		return 0
	case errors.Is(err, config.ErrUsage):
		fmt.Print(config.Usage(args[0]))
		return 0
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := log.InitLogger(cfg.Verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer log.Logger.Sync()

	s := node.NewServer(cfg)
	if err := s.Listen(); err != nil {
		fmt.Fprintf(os.Stderr, "Server setup error: %v\n", err)
		return exitCode(err)
	}

	fmt.Fprintf(os.Stdout, "HTTP server is using TCP port %d\nHTTPS server is using TCP port -1\n", s.Port())
	os.Stdout.Sync()

	if err := s.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return exitCode(err)
	}

	counters := s.Counters()
	fields := []zap.Field{zap.Object("stats", counters)}
	if n, err := stats.MemoryUsage(); err == nil {
		fields = append(fields, zap.Int64("memory", n))
	}
	log.Logger.Info("server stopped", fields...)
	fmt.Println("Server exiting cleanly.")
	return 0
}

func buildInfo() string {
	return fmt.Sprintf("Static web server v=%s sha=%s:%s build=%s\n",
		version.Version, version.GitSHA1(), version.GitDirty(), version.BuildIDRaw())
}

// exitCode uses the OS error number behind err when there is one.
func exitCode(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}
