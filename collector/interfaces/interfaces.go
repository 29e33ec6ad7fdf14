// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package interfaces collects the network interfaces of a target's network
// namespace, including their addresses.
package interfaces

import (
	"context"
	"fmt"
	"sort"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/vishvananda/netlink"
)

// Name of this feature.
const Name = "interfaces"

func init() {
	collector.Register(Name, &Feature{})
}

// Interface is a single network interface.
type Interface struct {
	Index     int      `cbor:"index"`
	Name      string   `cbor:"name"`
	Type      string   `cbor:"type"`
	MTU       int      `cbor:"mtu"`
	HWAddr    string   `cbor:"hwaddr,omitempty"`
	Flags     string   `cbor:"flags"`
	OperState string   `cbor:"operstate"`
	Master    int      `cbor:"master,omitempty"`
	Addresses []string `cbor:"addresses"` // in CIDR notation.
}

// Feature collects the [Interface] list, sorted by interface index. It
// needs to be run in the target's network namespace only, as it talks
// RTNETLINK.
type Feature struct{}

func (f *Feature) Namespaces() []nsenter.Kind { return []nsenter.Kind{nsenter.Net} }

func (f *Feature) Collect(ctx context.Context, opts collector.Options) (any, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("cannot list network interfaces, reason: %w", err)
	}
	ifaces := make([]Interface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		iface := Interface{
			Index:     attrs.Index,
			Name:      attrs.Name,
			Type:      link.Type(),
			MTU:       attrs.MTU,
			Flags:     attrs.Flags.String(),
			OperState: attrs.OperState.String(),
			Master:    attrs.MasterIndex,
			Addresses: []string{},
		}
		if len(attrs.HardwareAddr) != 0 {
			iface.HWAddr = attrs.HardwareAddr.String()
		}
		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			return nil, fmt.Errorf("cannot list addresses of network interface %q, reason: %w",
				attrs.Name, err)
		}
		for _, addr := range addrs {
			iface.Addresses = append(iface.Addresses, addr.IPNet.String())
		}
		ifaces = append(ifaces, iface)
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Index < ifaces[j].Index })
	return ifaces, nil
}
