//go:build linux
// +build linux

package node

import (
	"os"

	"golang.org/x/sys/unix"
)

// https://copyconstruct.medium.com/the-method-to-epolls-madness-d9d2d6378642

const (
	readEvents  = unix.EPOLLPRI | unix.EPOLLIN
	writeEvents = unix.EPOLLOUT
)

// Registry is a wrapper around epoll. It keeps track of the interest set of
// every fd registered to epoll so only real changes reach the kernel.
type Registry struct {
	epollFd  int
	epollSet map[int]uint32
}

func NewRegistry(epollFd int) *Registry {
	return &Registry{
		epollFd:  epollFd,
		epollSet: make(map[int]uint32),
	}
}

// want sets the interest of fd to events. Zero events removes fd from epoll.
func (r *Registry) want(fd int, events uint32) (err error) {
	cur, ok := r.epollSet[fd]

	switch {
	case events == 0 && !ok:
		return nil
	case events == 0:
		err = r.Delete(fd)
		delete(r.epollSet, fd)
		return err
	case !ok:
		err = r.Add(fd, events)
	case cur != events:
		err = r.Mod(fd, events)
	default:
		return nil
	}

	if err != nil {
		return err
	}
	r.epollSet[fd] = events
	return nil
}

// unregister removes fd from epoll. The fd is forgotten even if the kernel
// already dropped it.
func (r *Registry) unregister(fd int) error {
	if _, ok := r.epollSet[fd]; !ok {
		return nil
	}
	delete(r.epollSet, fd)
	return r.Delete(fd)
}

// registered returns the interest of fd, or 0.
func (r *Registry) registered(fd int) uint32 {
	return r.epollSet[fd]
}

func (r *Registry) Add(fd int, events uint32) error {
	return os.NewSyscallError("epoll_ctl add",
		unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events}))
}

func (r *Registry) Mod(fd int, events uint32) error {
	return os.NewSyscallError("epoll_ctl mod",
		unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events}))
}

func (r *Registry) Delete(fd int) error {
	return os.NewSyscallError("epoll_ctl del", unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_DEL, fd, nil))
}
