// internal/hotplug/netlink_other.go
//go:build !linux

package hotplug

import (
	"context"
	"errors"

	"github.com/loopholelabs/logging/types"
)

// Netlink is only available on Linux.
type Netlink struct{}

func NewNetlink(types.Logger) *Netlink { return &Netlink{} }

func (*Netlink) Run(context.Context, Handler) error {
	return errors.New("hotplug: netlink uevents are only available on linux")
}
