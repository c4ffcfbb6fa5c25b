package node

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/fzft/go-static-server/config"
	"github.com/fzft/go-static-server/log"
	"github.com/fzft/go-static-server/stats"
	"go.uber.org/zap"
)

type Server struct {
	cfg      *config.Config
	counters stats.Counters
	port     int
	poll     *Poll
}

func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Listen checks the root directory, binds the listening socket and prepares
// the event loop. Errors keep the underlying errno reachable with errors.As.
func (s *Server) Listen() error {
	if err := checkRoot(s.cfg.Root); err != nil {
		log.Logger.Error("Couldn't access root folder", zap.Error(err))
		return err
	}

	ip, err := s.cfg.IP()
	if err != nil {
		return err
	}

	fd, port, err := listen(ip, s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		log.Logger.Error("listen error", zap.Error(err))
		return err
	}

	poll, err := NewPoll(fd, s.cfg, &s.counters)
	if err != nil {
		CloseFd(fd)
		return err
	}

	s.port = port
	s.poll = poll
	log.Logger.Info("listening", zap.String("addr", s.cfg.Address), zap.Int("port", port), zap.Int("fd", fd))
	return nil
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "opendir", Path: root, Err: syscall.ENOTDIR}
	}
	f, err := os.Open(root)
	if err != nil {
		return err
	}
	return f.Close()
}

// Port is the bound TCP port, valid after Listen.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) Counters() *stats.Counters {
	return &s.counters
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then closes every
// connection. It returns an error only if the event loop itself failed.
func (s *Server) Run(ctx context.Context) error {
	if s.poll == nil {
		return fmt.Errorf("server is not listening")
	}
	reactor := NewReactor(s.poll)

	err := reactor.Run(ctx)
	log.Logger.Info("shutting down server", zap.Object("stats", &s.counters))
	return err
}
