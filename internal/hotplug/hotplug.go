// internal/hotplug/hotplug.go
package hotplug

import (
	"bytes"
	"context"
	"strconv"
	"strings"
)

// Handler receives payload-free notifications; it re-enumerates to learn detail.
type Handler interface {
	OnArrival()
	OnRemoval()
}

// Source delivers notifications to h until ctx is done.
type Source interface {
	Run(ctx context.Context, h Handler) error
}

// ---- manual ----

// Manual is fed by its owner (CLI, HTTP, tests).
type Manual struct {
	ch chan bool // true = arrival
}

func NewManual() *Manual { return &Manual{ch: make(chan bool, 16)} }

// Arrive queues an arrival. A full queue drops the notification;
// the handler re-enumerates on the next one anyway.
func (m *Manual) Arrive() { m.push(true) }

// Remove queues a removal.
func (m *Manual) Remove() { m.push(false) }

func (m *Manual) push(arrival bool) {
	select {
	case m.ch <- arrival:
	default:
	}
}

func (m *Manual) Run(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case arrival := <-m.ch:
			if arrival {
				h.OnArrival()
			} else {
				h.OnRemoval()
			}
		}
	}
}

// ---- uevent ----

type Action uint8

const (
	ActionOther Action = iota
	ActionAdd
	ActionRemove
)

// UEvent is the subset of a kernel uevent the bridge looks at.
type UEvent struct {
	Action    Action
	DevPath   string
	Subsystem string
	DevType   string
	VendorID  uint16 // from PRODUCT, 0 if absent
	ProductID uint16
}

// STVendorID is the USB vendor of ST-LINK probes.
const STVendorID = 0x0483

// ParseUEvent decodes a NUL-separated kernel uevent datagram.
func ParseUEvent(data []byte) UEvent {
	var ev UEvent
	for _, field := range bytes.Split(data, []byte{0}) {
		s := string(field)
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			// header line: action@devpath
			if a, p, ok := strings.Cut(s, "@"); ok && ev.DevPath == "" {
				ev.Action = parseAction(a)
				ev.DevPath = p
			}
			continue
		}
		switch k {
		case "ACTION":
			ev.Action = parseAction(v)
		case "DEVPATH":
			ev.DevPath = v
		case "SUBSYSTEM":
			ev.Subsystem = v
		case "DEVTYPE":
			ev.DevType = v
		case "PRODUCT":
			// vid/pid/bcdDevice, hex without leading zeros
			parts := strings.Split(v, "/")
			if len(parts) >= 2 {
				vid, err1 := strconv.ParseUint(parts[0], 16, 16)
				pid, err2 := strconv.ParseUint(parts[1], 16, 16)
				if err1 == nil && err2 == nil {
					ev.VendorID, ev.ProductID = uint16(vid), uint16(pid)
				}
			}
		}
	}
	return ev
}

func parseAction(s string) Action {
	switch s {
	case "add":
		return ActionAdd
	case "remove":
		return ActionRemove
	}
	return ActionOther
}

// Relevant reports whether ev is a whole-device USB add/remove that may
// concern a probe. Events without a PRODUCT are kept.
func (ev UEvent) Relevant() bool {
	if ev.Subsystem != "usb" || ev.DevType != "usb_device" {
		return false
	}
	if ev.Action != ActionAdd && ev.Action != ActionRemove {
		return false
	}
	return ev.VendorID == 0 || ev.VendorID == STVendorID
}

// Dispatch forwards a relevant event to h.
func Dispatch(ev UEvent, h Handler) bool {
	if !ev.Relevant() {
		return false
	}
	if ev.Action == ActionAdd {
		h.OnArrival()
	} else {
		h.OnRemoval()
	}
	return true
}
