//go:build linux
// +build linux

package node

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listen opens a non-blocking TCP listening socket on ip:port and returns it
// with the port actually bound. A nil ip binds every IPv4 address.
func listen(ip net.IP, port int, backlog int) (fd int, boundPort int, err error) {
	family := unix.AF_INET
	var sa unix.Sockaddr
	switch {
	case ip == nil:
		sa = &unix.SockaddrInet4{Port: port}
	case ip.To4() != nil:
		sa4 := &unix.SockaddrInet4{Port: port}
		copy(sa4.Addr[:], ip.To4())
		sa = sa4
	default:
		family = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: port}
		copy(sa6.Addr[:], ip.To16())
		sa = sa6
	}

	fd, err = unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, 0, os.NewSyscallError("socket", err)
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
			fd = -1
		}
	}()

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fd, 0, os.NewSyscallError("setsockopt", err)
	}
	if err = unix.Bind(fd, sa); err != nil {
		return fd, 0, os.NewSyscallError("bind", err)
	}
	if err = unix.Listen(fd, backlog); err != nil {
		return fd, 0, os.NewSyscallError("listen", err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		return fd, 0, os.NewSyscallError("getsockname", err)
	}
	switch addr := bound.(type) {
	case *unix.SockaddrInet4:
		boundPort = addr.Port
	case *unix.SockaddrInet6:
		boundPort = addr.Port
	}
	return fd, boundPort, nil
}
