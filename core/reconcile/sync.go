package reconcile

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
	"meraki-sync/core/meraki"
	"meraki-sync/core/settings"

	"go.uber.org/zap"
)

// Manufacturer is the manufacturer of every synced device type.
const Manufacturer = "Cisco Meraki"

var firmwareProducts = map[string]string{
	"MX": "appliance",
	"MS": "switch",
	"MR": "wireless",
	"MV": "camera",
	"MG": "cellularGateway",
	"MT": "sensor",
}

func (r *runner) syncOrganization(ctx context.Context, org meraki.Organization, idx, total int) {
	statuses := r.deviceStatuses(ctx, org)

	networks, err := r.client.ListNetworks(ctx, org.ID)
	if err != nil {
		r.fail("Failed to list networks of organization %s: %v", org.Name, err)
		return
	}
	scoped := make([]meraki.Network, 0, len(networks))
	for _, n := range networks {
		if r.scope.includes(n.ID) {
			scoped = append(scoped, n)
		}
	}
	r.progress(ledger.LevelInfo, "Organization %s: %d network(s) in scope", org.Name, len(scoped))

	var prefetched map[string]*inventory
	if r.settings.EnableMultithreading && r.settings.MaxWorkerThreads > 1 && len(scoped) > 1 {
		prefetched = r.prefetch(ctx, scoped, r.settings.MaxWorkerThreads)
	}

	span := 90 / total
	base := idx * span
	for j, network := range scoped {
		if ctx.Err() != nil {
			return
		}
		inv, ok := prefetched[network.ID]
		if !ok {
			inv = r.fetchInventory(ctx, network)
		}
		r.operation(fmt.Sprintf("Syncing network %s", network.Name), base+(j+1)*span/len(scoped))
		r.syncNetwork(ctx, org, network, inv, statuses)
	}
}

// deviceStatuses indexes the organization status table by serial. Failure only disables backfill.
func (r *runner) deviceStatuses(ctx context.Context, org meraki.Organization) map[string]meraki.DeviceStatus {
	rows, err := r.client.GetDeviceStatuses(ctx, org.ID)
	if err != nil {
		r.progress(ledger.LevelWarning, "Device statuses of organization %s unavailable: %v", org.Name, err)
		return nil
	}
	out := make(map[string]meraki.DeviceStatus, len(rows))
	for _, row := range rows {
		out[row.Serial] = row
	}
	return out
}

func (r *runner) syncNetwork(ctx context.Context, org meraki.Organization, network meraki.Network, inv *inventory, statuses map[string]meraki.DeviceStatus) {
	if inv.devicesErr != nil {
		r.fail("Failed to list devices of network %s: %v", network.Name, inv.devicesErr)
		return
	}
	if len(inv.devices) == 0 {
		r.progress(ledger.LevelInfo, "Skipping network %s: no devices", network.Name)
		return
	}

	resolved, ok := r.rules.TransformNetworkName(network.Name)
	if !ok {
		r.progress(ledger.LevelInfo, "Skipping network %s: no naming rule matched", network.Name)
		return
	}
	siteName := r.settings.TransformName(settings.CategorySite, resolved)

	site, err := r.syncSite(ctx, org, network, siteName)
	if err != nil {
		r.fail("Failed to sync site %s: %v", siteName, err)
		return
	}
	r.acc.networks++

	if r.comp.VLANs {
		r.syncVLANs(ctx, site, network, inv)
	}
	if r.comp.Prefixes {
		r.syncPrefixes(ctx, site, network, inv)
	}
	if r.comp.Devices {
		devices := make([]meraki.Device, len(inv.devices))
		var fw *meraki.FirmwareInfo
		for i, d := range inv.devices {
			devices[i] = backfill(d, statuses, nil)
			if devices[i].Firmware == "" && fw == nil {
				fw = r.networkFirmware(ctx, network.ID, inv)
			}
		}
		for _, d := range devices {
			r.syncDevice(ctx, site, network, backfill(d, nil, fw), inv)
		}
	}
}

// submit stages a change and, in auto mode, applies it. The returned id is zero
// when the change was only staged.
func (r *runner) submit(ctx context.Context, name, identifier string, proposed, current ledger.Payload) (*ledger.StagedChange, uint, error) {
	change, err := r.ledger.Stage(r.persist, r.session.ID, decideAction(proposed, current), name, identifier, proposed, current)
	if err != nil {
		return nil, 0, err
	}
	r.acc.staged++
	if r.mode != ledger.ModeAuto {
		return change, 0, nil
	}
	id, err := r.applyChange(ctx, r.persist, r.applier, change)
	return change, id, err
}

func (r *runner) syncSite(ctx context.Context, org meraki.Organization, network meraki.Network, name string) (siteRef, error) {
	if !r.comp.Sites {
		if r.mode != ledger.ModeAuto {
			return siteRef{Name: name}, nil
		}
		existing, err := r.store.FindSite(ctx, name)
		if err != nil {
			return siteRef{}, fmt.Errorf("site component disabled and site not present: %w", err)
		}
		r.acc.track(dcim.KindSite, existing.ID)
		return siteRef{Name: name, ID: existing.ID}, nil
	}

	p := ledger.SitePayload{
		Name:        name,
		Slug:        dcim.Slugify(name),
		Description: fmt.Sprintf("Meraki Network - %s", org.Name),
		Comments:    fmt.Sprintf("Meraki Network ID: %s\nTimezone: %s", network.ID, orNA(network.TimeZone)),
		Timezone:    network.TimeZone,
		NetworkID:   network.ID,
		Tags:        r.settings.Tags(settings.CategorySite),
	}
	current, err := r.currentSite(ctx, name)
	if err != nil {
		return siteRef{}, err
	}
	_, id, err := r.submit(ctx, name, name, p, current)
	if err != nil {
		return siteRef{}, err
	}
	r.acc.track(dcim.KindSite, id)
	return siteRef{Name: name, ID: id}, nil
}

func (r *runner) syncVLANs(ctx context.Context, site siteRef, network meraki.Network, inv *inventory) {
	if inv.vlansErr != nil {
		r.fail("Failed to list VLANs of network %s: %v", network.Name, inv.vlansErr)
		r.acc.markIncomplete(dcim.KindVLAN, site.ID)
		return
	}
	group := vlanGroupName(site.Name)
	for _, v := range inv.vlans {
		vid := int(v.ID)
		name := v.Name
		if name == "" {
			name = fmt.Sprintf("VLAN %d", vid)
		}
		p := ledger.VLANPayload{
			VID:         vid,
			Name:        r.settings.TransformName(settings.CategoryVLAN, name),
			Site:        site.Name,
			Group:       group,
			Description: "Subnet: " + orNA(v.Subnet),
			Tags:        r.settings.Tags(settings.CategoryVLAN),
		}
		current, err := r.currentVLAN(ctx, group, vid)
		if err == nil {
			var id uint
			_, id, err = r.submit(ctx, p.Name, fmt.Sprintf("%s/%d", group, vid), p, current)
			if err == nil {
				r.acc.track(dcim.KindVLAN, id)
				r.acc.vlans++
				continue
			}
		}
		r.fail("Failed to sync VLAN %d of site %s: %v", vid, site.Name, err)
		r.acc.markIncomplete(dcim.KindVLAN, site.ID)
	}
}

func (r *runner) syncPrefixes(ctx context.Context, site siteRef, network meraki.Network, inv *inventory) {
	if inv.subnetsErr != nil {
		r.fail("Failed to list subnets of network %s: %v", network.Name, inv.subnetsErr)
		r.acc.markIncomplete(dcim.KindPrefix, site.ID)
		return
	}
	group := vlanGroupName(site.Name)
	for _, s := range inv.subnets {
		cidr, err := canonicalCIDR(s.CIDR)
		if err != nil {
			r.fail("Invalid subnet %q on VLAN %d of network %s: %v", s.CIDR, s.VLANID, network.Name, err)
			continue
		}
		if !r.rules.ShouldSyncPrefix(cidr) {
			r.logger.Debug("Prefix filtered", zap.String("prefix", cidr))
			continue
		}
		p := ledger.PrefixPayload{
			Prefix:      cidr,
			VID:         s.VLANID,
			Site:        site.Name,
			Description: fmt.Sprintf("VLAN %d: %s", s.VLANID, s.VLANName),
			Tags:        r.settings.Tags(settings.CategoryPrefix),
		}
		if s.VLANID > 0 {
			p.VLANGroup = group
		}
		current, err := r.currentPrefix(ctx, cidr, group)
		if err == nil {
			var change *ledger.StagedChange
			var id uint
			change, id, err = r.submit(ctx, cidr, cidr, p, current)
			if err == nil {
				r.acc.track(dcim.KindPrefix, id)
				r.acc.prefixes++
				if change.Action == ledger.ActionUpdate {
					r.acc.updatedPrefixes++
				}
				continue
			}
		}
		r.fail("Failed to sync prefix %s of site %s: %v", cidr, site.Name, err)
		r.acc.markIncomplete(dcim.KindPrefix, site.ID)
	}
}

func (r *runner) syncDevice(ctx context.Context, site siteRef, network meraki.Network, d meraki.Device, inv *inventory) {
	p := r.devicePayload(site, network, d)

	if r.mode == ledger.ModeAuto {
		if err := r.syncDeviceType(ctx, p.Manufacturer, p.Model); err != nil {
			r.fail("Failed to sync device type %s: %v", p.Model, err)
			r.acc.markIncomplete(dcim.KindDevice, site.ID)
			return
		}
	}

	current, err := r.currentDevice(ctx, d.Serial)
	var id uint
	if err == nil {
		_, id, err = r.submit(ctx, p.Name, d.Serial, p, current)
	}
	if err != nil {
		r.fail("Failed to sync device %s (%s): %v", p.Name, d.Serial, err)
		r.acc.markIncomplete(dcim.KindDevice, site.ID)
		return
	}
	r.acc.track(dcim.KindDevice, id)
	r.acc.devices++

	if r.mode == ledger.ModeAuto {
		r.enrichDevice(ctx, site, network, d, p.Name, id, inv)
	}
}

// syncDeviceType stages the device type of a model once per run. Review and dry-run
// runs carry model and manufacturer on the device item instead.
func (r *runner) syncDeviceType(ctx context.Context, manufacturer, model string) error {
	key := manufacturer + "/" + model
	if r.deviceTypes == nil {
		r.deviceTypes = make(map[string]struct{})
	}
	if _, done := r.deviceTypes[key]; done {
		return nil
	}
	p := ledger.DeviceTypePayload{Model: model, Manufacturer: manufacturer, Slug: dcim.Slugify(model)}
	current, err := r.currentDeviceType(ctx, manufacturer, model)
	if err != nil {
		return err
	}
	if _, _, err := r.submit(ctx, model, key, p, current); err != nil {
		return err
	}
	r.deviceTypes[key] = struct{}{}
	return nil
}

func (r *runner) devicePayload(site siteRef, network meraki.Network, d meraki.Device) ledger.DevicePayload {
	name := d.Name
	if name == "" {
		name = d.Serial
	}
	status := dcim.StatusActive
	if d.Status == "offline" || d.Status == "dormant" {
		status = dcim.StatusOffline
	}
	return ledger.DevicePayload{
		Name:         r.settings.TransformName(settings.CategoryDevice, name),
		Serial:       d.Serial,
		Model:        d.Model,
		Manufacturer: Manufacturer,
		Role:         r.settings.RoleFor(d.ProductPrefix()),
		Site:         site.Name,
		Status:       status,
		MAC:          d.MAC,
		LANIP:        d.LanIP,
		WAN1IP:       d.WAN1IP,
		WAN2IP:       d.WAN2IP,
		Firmware:     d.Firmware,
		ProductType:  d.ProductType,
		NetworkID:    network.ID,
		Address:      d.Address,
		Comments: fmt.Sprintf("MAC: %s\nLAN IP: %s\nFirmware: %s\nProduct Type: %s",
			orNA(d.MAC), orNA(d.LanIP), orNA(d.Firmware), orNA(d.ProductType)),
		Tags: r.settings.Tags(settings.CategoryDevice),
	}
}

// backfill fills status, addresses and firmware the device listing left empty.
func backfill(d meraki.Device, statuses map[string]meraki.DeviceStatus, fw *meraki.FirmwareInfo) meraki.Device {
	if st, ok := statuses[d.Serial]; ok {
		if d.Status == "" {
			d.Status = st.Status
		}
		if d.LanIP == "" {
			d.LanIP = st.LanIP
		}
		if d.WAN1IP == "" {
			d.WAN1IP = st.WAN1IP
		}
		if d.WAN2IP == "" {
			d.WAN2IP = st.WAN2IP
		}
		if d.Firmware == "" {
			d.Firmware = st.Firmware
		}
	}
	if d.Firmware == "" && fw != nil {
		product := d.ProductType
		if product == "" {
			product = firmwareProducts[d.ProductPrefix()]
		}
		d.Firmware = fw.CurrentVersion(product)
	}
	return d
}

// canonicalCIDR masks host bits, e.g. "10.0.0.1/24" becomes "10.0.0.0/24".
func canonicalCIDR(s string) (string, error) {
	p, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return p.Masked().String(), nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
