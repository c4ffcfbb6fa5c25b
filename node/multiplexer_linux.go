//go:build linux
// +build linux

package node

import (
	"os"

	"github.com/fzft/go-static-server/list"
	"golang.org/x/sys/unix"
)

// Multiplexer turns the connection table into epoll interest and waits for
// readiness.
type Multiplexer struct {
	*Registry
	events []unix.EpollEvent
	ready  map[int]uint32
}

func NewMultiplexer() (*Multiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &Multiplexer{
		Registry: NewRegistry(epfd),
		ready:    make(map[int]uint32),
	}, nil
}

// interest is the readiness a connection waits for in its current state.
func interest(c *Connection) uint32 {
	switch {
	case c.listener:
		return readEvents
	case c.pending:
		return 0
	case c.stage == StageSending:
		return writeEvents
	default:
		return readEvents
	}
}

// Refresh brings the epoll interest of every connection in line with its
// stage: readers want read readiness, senders write readiness, the listener
// always read readiness. A connection that cannot be registered is handed to
// drop, which returns the node to continue from; only a listener failure is
// returned.
func (m *Multiplexer) Refresh(t *Table, drop func(*list.Node[*Connection], error) *list.Node[*Connection]) error {
	node := t.Front()
	for node != nil {
		conn := node.Value
		if err := m.want(conn.fd, interest(conn)); err != nil {
			if conn.listener || drop == nil {
				return err
			}
			node = drop(node, err)
			continue
		}
		node = node.Next
	}
	return nil
}

// Wait blocks until at least one registered fd is actionable and returns how
// many are. maxFd bounds the number of events collected in one call. An
// interrupted wait is reported as zero ready fds.
func (m *Multiplexer) Wait(maxFd int) (int, error) {
	if need := maxFd + 1; len(m.events) < need {
		m.events = make([]unix.EpollEvent, need)
	}
	clear(m.ready)

	n, err := unix.EpollWait(m.epollFd, m.events, -1)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, os.NewSyscallError("epoll_wait", err)
	}

	for i := 0; i < n; i++ {
		ev := &m.events[i]
		m.ready[int(ev.Fd)] = ev.Events
	}
	return n, nil
}

// Ready reports whether fd was actionable in the last Wait.
func (m *Multiplexer) Ready(fd int) (uint32, bool) {
	ev, ok := m.ready[fd]
	return ev, ok
}

func (m *Multiplexer) Close() error {
	return os.NewSyscallError("close", unix.Close(m.epollFd))
}
