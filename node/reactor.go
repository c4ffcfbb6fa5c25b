package node

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fzft/go-static-server/log"
	"go.uber.org/zap"
)

// Reactor ties the event loop to process signals and a context. Either one
// stops the loop; the loop then finishes its current iteration.
type Reactor struct {
	poll   *Poll
	signal chan os.Signal
}

func NewReactor(poll *Poll) *Reactor {
	return &Reactor{
		poll:   poll,
		signal: make(chan os.Signal, 1),
	}
}

// Run blocks until the loop exits.
func (r *Reactor) Run(ctx context.Context) error {
	signal.Notify(r.signal, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.signal)
	defer log.Logger.Info("reactor closed")

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case sig := <-r.signal:
			log.Logger.Info("signal received", zap.String("signal", sig.String()))
			r.poll.Stop()
		case <-ctx.Done():
			r.poll.Stop()
		case <-done:
		}
	}()

	return r.poll.Run()
}
