package reconcile

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
	"meraki-sync/core/meraki"
	"meraki-sync/core/settings"
)

// Interface names created by enrichment.
const (
	WANInterface        = "wan1"
	ManagementInterface = "Management"
)

type primaryPolicy int

const (
	primaryNever primaryPolicy = iota
	// primaryIfUnset keeps an existing primary address of the device.
	primaryIfUnset
	primaryAlways
)

// enrichDevice adds interfaces, addresses and SSIDs to an applied device. Auto mode only.
func (r *runner) enrichDevice(ctx context.Context, site siteRef, network meraki.Network, d meraki.Device, name string, deviceID uint, inv *inventory) {
	family := d.ProductPrefix()
	hasWAN := family == "MX" && d.WAN1IP != ""

	if r.comp.Interfaces {
		if hasWAN {
			wan := ledger.InterfacePayload{
				DeviceSerial: d.Serial,
				DeviceName:   name,
				Name:         WANInterface,
				Type:         "1000base-t",
				Enabled:      true,
				Description:  "WAN 1",
			}
			if ifaceID, ok := r.syncInterface(ctx, deviceID, wan); ok {
				r.syncIPAddress(ctx, ifaceID, hostAddress(d.WAN1IP), wan, primaryAlways)
			}
		}
		switch family {
		case "MS":
			r.syncSwitchPorts(ctx, d, name, deviceID)
		case "MX":
			r.syncSVIs(ctx, d, name, deviceID, inv)
		}
		if d.LanIP != "" {
			mgmt := ledger.InterfacePayload{
				DeviceSerial: d.Serial,
				DeviceName:   name,
				Name:         ManagementInterface,
				Type:         "other",
				Enabled:      true,
				MAC:          d.MAC,
			}
			if ifaceID, ok := r.syncInterface(ctx, deviceID, mgmt); ok {
				r.syncIPAddress(ctx, ifaceID, hostAddress(d.LanIP), mgmt, primaryIfUnset)
			}
		}
	}

	if family == "MR" && r.comp.SSIDs {
		r.syncSSIDs(ctx, site, network, d, name, deviceID, inv)
	}
}

func (r *runner) syncInterface(ctx context.Context, deviceID uint, p ledger.InterfacePayload) (uint, bool) {
	current, err := r.currentInterface(ctx, deviceID, p)
	var id uint
	if err == nil {
		_, id, err = r.submit(ctx, p.Name, p.DeviceSerial+"/"+p.Name, p, current)
	}
	if err != nil {
		r.fail("Failed to sync interface %s of device %s: %v", p.Name, p.DeviceName, err)
		return 0, false
	}
	return id, true
}

func (r *runner) syncIPAddress(ctx context.Context, ifaceID uint, address string, iface ledger.InterfacePayload, policy primaryPolicy) {
	if !r.comp.IPAddresses || address == "" {
		return
	}
	p := ledger.IPAddressPayload{
		Address:      address,
		DeviceSerial: iface.DeviceSerial,
		DeviceName:   iface.DeviceName,
		Interface:    iface.Name,
	}

	dev, err := r.store.FindDevice(ctx, iface.DeviceSerial)
	if err != nil {
		r.fail("Failed to sync IP address %s of device %s: %v", address, iface.DeviceName, err)
		return
	}
	current, existing, err := r.currentIPAddress(ctx, ifaceID, dev.PrimaryIP4ID, p)
	if err != nil {
		r.fail("Failed to sync IP address %s of device %s: %v", address, iface.DeviceName, err)
		return
	}
	switch policy {
	case primaryAlways:
		p.Primary = true
	case primaryIfUnset:
		p.Primary = dev.PrimaryIP4ID == nil || (existing != nil && *dev.PrimaryIP4ID == existing.ID)
	}

	if _, _, err := r.submit(ctx, address, address, p, current); err != nil {
		r.fail("Failed to sync IP address %s of device %s: %v", address, iface.DeviceName, err)
	}
}

func (r *runner) syncSwitchPorts(ctx context.Context, d meraki.Device, name string, deviceID uint) {
	ports, err := r.client.ListSwitchPorts(ctx, d.Serial)
	if err != nil {
		r.progress(ledger.LevelWarning, "Switch ports of %s unavailable: %v", name, err)
		return
	}
	for _, port := range ports {
		p := ledger.InterfacePayload{
			DeviceSerial: d.Serial,
			DeviceName:   name,
			Name:         "Port " + port.PortID,
			Type:         "1000base-t",
			Enabled:      port.Enabled,
			Description:  port.Name,
			UntaggedVID:  int(port.VLAN),
			PoE:          port.PoEEnabled,
		}
		switch {
		case port.Type != "trunk":
			p.Mode = "access"
		case strings.EqualFold(strings.TrimSpace(port.AllowedVLANs), "all"):
			p.Mode = "tagged-all"
		default:
			p.Mode = "tagged"
			p.TaggedVIDs = parseVLANList(port.AllowedVLANs)
		}
		r.syncInterface(ctx, deviceID, p)
	}
}

// syncSVIs creates one virtual interface per appliance VLAN that has a gateway address.
func (r *runner) syncSVIs(ctx context.Context, d meraki.Device, name string, deviceID uint, inv *inventory) {
	if inv.vlansErr != nil {
		return
	}
	for _, v := range inv.vlans {
		if v.ApplianceIP == "" {
			continue
		}
		p := ledger.InterfacePayload{
			DeviceSerial: d.Serial,
			DeviceName:   name,
			Name:         fmt.Sprintf("VLAN %d", int(v.ID)),
			Type:         "virtual",
			Enabled:      true,
			Description:  v.Name,
			UntaggedVID:  int(v.ID),
		}
		if ifaceID, ok := r.syncInterface(ctx, deviceID, p); ok {
			r.syncIPAddress(ctx, ifaceID, gatewayAddress(v.ApplianceIP, v.Subnet), p, primaryNever)
		}
	}
}

// syncSSIDs stages the enabled SSIDs of the network for an access point and records
// their names on the device.
func (r *runner) syncSSIDs(ctx context.Context, site siteRef, network meraki.Network, d meraki.Device, name string, deviceID uint, inv *inventory) {
	ssids, err := r.networkSSIDs(ctx, network.ID, inv)
	if err != nil {
		r.progress(ledger.LevelWarning, "SSIDs of network %s unavailable: %v", network.Name, err)
		return
	}
	var names []string
	for _, s := range ssids {
		if !s.Enabled {
			continue
		}
		p := ledger.SSIDPayload{
			Number:         s.Number,
			Name:           r.settings.TransformName(settings.CategorySSID, s.Name),
			Enabled:        s.Enabled,
			AuthMode:       s.AuthMode,
			EncryptionMode: s.EncryptionMode,
			BandSelection:  s.BandSelection,
			Visible:        s.Visible,
			DeviceSerial:   d.Serial,
			DeviceName:     name,
			Site:           site.Name,
		}
		current, err := r.currentSSID(ctx, deviceID, p)
		if err == nil {
			_, _, err = r.submit(ctx, p.Name, fmt.Sprintf("%s/ssid/%d", d.Serial, s.Number), p, current)
		}
		if err != nil {
			r.fail("Failed to sync SSID %s of device %s: %v", p.Name, name, err)
			continue
		}
		r.acc.ssids++
		names = append(names, p.Name)
	}
	if len(names) == 0 {
		return
	}
	if err := r.store.SetCustomFields(ctx, dcim.KindDevice, deviceID, map[string]any{"ssids": names}); err != nil {
		r.fail("Failed to record SSIDs on device %s: %v", name, err)
	}
}

// hostAddress renders a bare address as a host prefix.
func hostAddress(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ""
	}
	return netip.PrefixFrom(addr, addr.BitLen()).String()
}

// gatewayAddress renders ip with the length of subnet, or as a host prefix.
func gatewayAddress(ip, subnet string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ""
	}
	bits := addr.BitLen()
	if p, err := netip.ParsePrefix(strings.TrimSpace(subnet)); err == nil && p.Addr().Is4() == addr.Is4() {
		bits = p.Bits()
	}
	return netip.PrefixFrom(addr, bits).String()
}

// parseVLANList expands an allowed-VLAN list such as "1,3,10-12". Invalid entries are dropped.
func parseVLANList(s string) []int {
	var out []int
	seen := make(map[int]struct{})
	add := func(v int) {
		if v < 1 || v > 4094 {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			continue
		}
		if !isRange {
			add(start)
			continue
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil || end < start {
			continue
		}
		if start < 1 {
			start = 1
		}
		if end > 4094 {
			end = 4094
		}
		for v := start; v <= end; v++ {
			add(v)
		}
	}
	return out
}
