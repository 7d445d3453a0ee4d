//go:build linux

package netinfo

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// System reads interface state over netlink.
type System struct{}

// Lookup returns the state, first IPv4 address and MAC of iface.
func (System) Lookup(iface string) (Info, error) {
	info := Info{Interface: iface, SSID: ssid()}

	link, err := netlink.LinkByName(iface)
	if err != nil {
		return info, fmt.Errorf("interface %s not found: %w", iface, err)
	}
	attrs := link.Attrs()
	// Some WiFi drivers never report an operstate; fall back to the admin flag.
	info.Up = attrs.OperState == netlink.OperUp ||
		(attrs.OperState == netlink.OperUnknown && attrs.Flags&net.FlagUp != 0)
	if attrs.HardwareAddr != nil {
		info.MAC = attrs.HardwareAddr.String()
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return info, fmt.Errorf("list addresses on %s: %w", iface, err)
	}
	if len(addrs) > 0 {
		info.IP = addrs[0].IP.String()
	}
	return info, nil
}
