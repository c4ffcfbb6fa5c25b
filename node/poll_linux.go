//go:build linux
// +build linux

package node

import (
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/fzft/go-static-server/config"
	"github.com/fzft/go-static-server/list"
	"github.com/fzft/go-static-server/log"
	"github.com/fzft/go-static-server/proto"
	"github.com/fzft/go-static-server/stats"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

type acceptFunc func(fd int) (int, unix.Sockaddr, error)

func accept4(fd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}

// Poll is the event loop. It owns the connection table and every socket in
// it; only Stop may be called from another goroutine.
type Poll struct {
	cfg      *config.Config
	counters *stats.Counters
	table    *Table
	mux      *Multiplexer
	parser   *Parser
	files    *filePool // nil when file reads run inline

	// efd wakes the loop for shutdown and finished file jobs. efdMu guards
	// its closing against late wakes from Stop and the file workers.
	efd       int
	efdMu     sync.RWMutex
	efdClosed bool
	stopping  atomic.Bool
	iteration uint64
	accept    acceptFunc
}

func NewPoll(listenFd int, cfg *config.Config, counters *stats.Counters) (*Poll, error) {
	mux, err := NewMultiplexer()
	if err != nil {
		log.Logger.Error("Failed to create epoll", zap.Error(err))
		return nil, err
	}

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		mux.Close()
		log.Logger.Error("Failed to create eventfd", zap.Error(err))
		return nil, os.NewSyscallError("eventfd", err)
	}

	// Register the eventfd to epoll for read events
	if err := mux.want(efd, readEvents); err != nil {
		CloseFd(efd)
		mux.Close()
		log.Logger.Error("Failed to add eventfd to epoll", zap.Error(err))
		return nil, err
	}

	p := &Poll{
		cfg:      cfg,
		counters: counters,
		table:    NewTable(listenFd, cfg.BufferSize),
		mux:      mux,
		parser:   NewParser(cfg, counters),
		efd:      efd,
		accept:   accept4,
	}
	if cfg.Workers > 0 {
		p.files = newFilePool(cfg.Workers, p.parser, p.wake)
	}
	return p, nil
}

// Run drives the loop until Stop is called or the multiplexer fails, then
// closes every connection.
func (p *Poll) Run() (err error) {
	defer func() {
		err = multierr.Append(err, p.closeGracefully())
	}()

	for !p.stopping.Load() {
		if err := p.iterate(); err != nil {
			log.Logger.Error("epoll wait error", zap.Error(err))
			return err
		}
	}
	log.Logger.Info("Received stop signal. Exiting event loop.")
	return nil
}

// Stop asks the loop to exit once its current iteration completes.
func (p *Poll) Stop() {
	p.stopping.Store(true)
	p.wake()
}

// wake bumps the eventfd counter. It does nothing once the loop closed it.
func (p *Poll) wake() {
	p.efdMu.RLock()
	defer p.efdMu.RUnlock()
	if p.efdClosed {
		return
	}
	var one uint64 = 1
	if _, err := unix.Write(p.efd, (*(*[8]byte)(unsafe.Pointer(&one)))[:]); err != nil && !IsTemporaryError(err) {
		log.Logger.Error("Failed to write to event fd", zap.Error(err))
	}
}

// iterate runs one pass: refresh interest, wait, then walk the table once,
// servicing each ready connection at most once.
func (p *Poll) iterate() error {
	p.iteration++

	if err := p.mux.Refresh(p.table, p.fail); err != nil {
		return err
	}

	maxFd := p.table.MaxFd()
	if p.efd > maxFd {
		maxFd = p.efd
	}
	remaining, err := p.mux.Wait(maxFd)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return nil
	}

	if _, ok := p.mux.Ready(p.efd); ok {
		remaining--
		p.handleWake()
	}
	p.dispatch(remaining)
	return nil
}

// dispatch walks the table once and services up to remaining ready
// connections, one action each. Connections accepted during this iteration
// wait for the next one.
func (p *Poll) dispatch(remaining int) {
	node := p.table.Front()
	for node != nil && remaining > 0 {
		conn := node.Value
		if _, ok := p.mux.Ready(conn.fd); !ok || conn.born == p.iteration || conn.pending {
			node = node.Next
			continue
		}
		remaining--

		switch {
		case conn.listener:
			p.acceptOne()
			node = node.Next
		case conn.stage == StageReading:
			node = p.handleRead(node)
		default:
			node = p.handleWrite(node)
		}
	}
}

// acceptOne accepts a single pending connection. Failures are counted but
// never stop the loop.
func (p *Poll) acceptOne() {
	listenFd := p.table.Listener().fd
	connFd, sa, err := p.accept(listenFd)
	if err != nil {
		if IsTemporaryError(err) {
			return
		}
		p.counters.IncrErrors()
		log.Logger.Error("Client failed to connect", zap.Error(os.NewSyscallError("accept", err)))
		return
	}

	conn, err := p.table.Insert(connFd, p.counters.NextClient())
	if err != nil {
		p.counters.IncrErrors()
		log.Logger.DPanic("insert connection", zap.Error(err))
		CloseFd(connFd)
		return
	}
	conn.born = p.iteration
	conn.ip = sockaddrIP(sa)

	log.Logger.Info("Added new client", zap.Object("client", conn), zap.String("ip", conn.ip))
	if ce := log.Logger.Check(zap.DebugLevel, "memory usage"); ce != nil {
		if n, err := stats.MemoryUsage(); err == nil {
			ce.Write(zap.Int64("bytes", n))
		}
	}
}

func sockaddrIP(sa unix.Sockaddr) string {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(addr.Addr[:]).String()
	case *unix.SockaddrInet6:
		return net.IP(addr.Addr[:]).String()
	default:
		return ""
	}
}

// handleRead accumulates request bytes. A complete request is parsed and the
// connection moves on to sending. It returns the node to continue from.
func (p *Poll) handleRead(node *list.Node[*Connection]) *list.Node[*Connection] {
	conn := node.Value

	n, err := unix.Read(conn.fd, conn.buf.Free())
	if err != nil {
		if IsTemporaryError(err) {
			return node.Next
		}
		p.counters.IncrErrors()
		log.Logger.Warn("read error", zap.Object("client", conn), zap.Error(err))
		return p.remove(node)
	}
	if n == 0 {
		log.Logger.Info("Client closed remotely", zap.Object("client", conn))
		return p.remove(node)
	}
	if err := conn.buf.Commit(n); err != nil {
		p.counters.IncrErrors()
		log.Logger.Error("read overflow", zap.Object("client", conn), zap.Error(err))
		return p.remove(node)
	}
	log.Logger.Debug("client read", zap.Object("client", conn), zap.Int("bytes", n))

	if !proto.RequestComplete(conn.buf.Bytes(), conn.buf.Cap()) {
		return node.Next
	}

	p.counters.IncrRequests()
	if p.offload(conn, jobParse) {
		return node.Next
	}
	if err := p.parser.Parse(conn); err != nil {
		return p.fail(node, err)
	}
	conn.stage = StageSending
	return node.Next
}

// handleWrite sends what it can of the current chunk, refilling the buffer
// from the source once the chunk is fully sent. The connection is removed
// after the last byte of the source is written.
func (p *Poll) handleWrite(node *list.Node[*Connection]) *list.Node[*Connection] {
	conn := node.Value

	if conn.buf.Drained() {
		if conn.eof {
			return p.finish(node)
		}
		if p.offload(conn, jobRefill) {
			return node.Next
		}
		if err := conn.refill(); err != nil {
			return p.fail(node, err)
		}
		if conn.buf.Len() == 0 {
			return p.finish(node)
		}
	}

	n, err := unix.Write(conn.fd, conn.buf.Pending())
	if err != nil {
		if IsTemporaryError(err) {
			return node.Next
		}
		p.counters.IncrErrors()
		log.Logger.Warn("write error", zap.Object("client", conn), zap.Error(err))
		return p.remove(node)
	}
	conn.buf.Advance(n)
	conn.sent += int64(n)
	log.Logger.Debug("client sent", zap.Object("client", conn), zap.Int("bytes", n))

	if conn.eof && conn.buf.Drained() {
		return p.finish(node)
	}
	return node.Next
}

// offload hands a file job to the pool. It reports false when there is no
// pool or its queue is full; the caller then runs the job inline.
func (p *Poll) offload(conn *Connection, kind jobKind) bool {
	if p.files == nil {
		return false
	}
	if !p.files.trySubmit(&fileJob{kind: kind, conn: conn}) {
		return false
	}
	conn.pending = true
	return true
}

// handleWake consumes the eventfd and applies finished file jobs.
func (p *Poll) handleWake() {
	var buf uint64
	if _, err := unix.Read(p.efd, (*(*[8]byte)(unsafe.Pointer(&buf)))[:]); err != nil && !IsTemporaryError(err) {
		log.Logger.Error("Failed to read from event fd", zap.Error(err))
	}
	if p.files == nil {
		return
	}

	for _, job := range p.files.drain() {
		conn := job.conn
		conn.pending = false
		node, ok := p.table.Lookup(conn.fd)
		if !ok || node.Value != conn {
			continue
		}

		switch {
		case job.err != nil:
			p.fail(node, job.err)
		case job.kind == jobParse:
			conn.stage = StageSending
		case conn.buf.Len() == 0:
			p.finish(node)
		}
	}
}

// fail drops a connection whose response could not be produced or whose
// interest could not be registered.
func (p *Poll) fail(node *list.Node[*Connection], err error) *list.Node[*Connection] {
	p.counters.IncrErrors()
	log.Logger.Error("response failed", zap.Object("client", node.Value), zap.Error(err))
	return p.remove(node)
}

func (p *Poll) finish(node *list.Node[*Connection]) *list.Node[*Connection] {
	log.Logger.Debug("response complete", zap.Object("client", node.Value))
	return p.remove(node)
}

// remove unregisters and closes a connection, returning the node after it.
func (p *Poll) remove(node *list.Node[*Connection]) *list.Node[*Connection] {
	conn := node.Value
	if err := p.mux.unregister(conn.fd); err != nil {
		log.Logger.Debug("Failed to delete fd from epoll", zap.Int("fd", conn.fd), zap.Error(err))
	}
	next, err := p.table.Remove(node)
	if err != nil {
		log.Logger.Warn("close client", zap.Object("client", conn), zap.Error(err))
	}
	log.Logger.Info("Removed client", zap.Object("client", conn))
	return next
}

// closeGracefully order: file workers, connections and listener, eventfd, epoll
func (p *Poll) closeGracefully() error {
	if p.files != nil {
		p.files.close()
		p.files.drain()
	}

	var err error
	if cerr := p.table.CloseAll(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close connections: %w", cerr))
	}
	p.efdMu.Lock()
	if !p.efdClosed {
		p.efdClosed = true
		if cerr := CloseFd(p.efd); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close eventfd: %w", cerr))
		}
	}
	p.efdMu.Unlock()
	if cerr := p.mux.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close epoll: %w", cerr))
	}
	return err
}
