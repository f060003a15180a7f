// internal/hotplug/netlink_linux.go
//go:build linux

package hotplug

import (
	"context"
	"errors"
	"fmt"

	"github.com/loopholelabs/logging/types"
	"golang.org/x/sys/unix"
)

const ueventBufferSize = 8192

// Netlink listens to kernel uevents on NETLINK_KOBJECT_UEVENT.
type Netlink struct {
	log types.Logger
}

func NewNetlink(log types.Logger) *Netlink { return &Netlink{log: log} }

func (n *Netlink) Run(ctx context.Context, h Handler) error {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return fmt.Errorf("hotplug: netlink socket: %w", err)
	}
	defer unix.Close(fd)

	// group 1 is the kernel broadcast group
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		return fmt.Errorf("hotplug: netlink bind: %w", err)
	}
	if n.log != nil {
		n.log.Info().Msg("hotplug: listening for usb uevents")
	}

	buf := make([]byte, ueventBufferSize)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		if ctx.Err() != nil {
			return nil
		}
		// Short poll timeout so cancellation is noticed.
		ready, err := unix.Poll(fds, 200)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("hotplug: poll: %w", err)
		}
		if ready == 0 {
			continue
		}

		for {
			nr, _, err := unix.Recvfrom(fd, buf, 0)
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				break
			}
			if err != nil {
				return fmt.Errorf("hotplug: recv: %w", err)
			}
			ev := ParseUEvent(buf[:nr])
			if Dispatch(ev, h) && n.log != nil {
				n.log.Debug().Str("devpath", ev.DevPath).Int("action", int(ev.Action)).Msg("hotplug: usb event")
			}
		}
	}
}
