package reconcile

import (
	"context"
	"errors"
	"reflect"

	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
)

// decideAction compares the proposal with what the store holds.
// Tags are left out since tagging only ever adds.
func decideAction(proposed, current ledger.Payload) ledger.Action {
	if current == nil {
		return ledger.ActionCreate
	}
	if reflect.DeepEqual(normalized(proposed), normalized(current)) {
		return ledger.ActionSkip
	}
	return ledger.ActionUpdate
}

func normalized(p ledger.Payload) ledger.Payload {
	switch p := p.(type) {
	case ledger.SitePayload:
		p.Tags = nil
		return p
	case ledger.DevicePayload:
		p.Tags = nil
		return p
	case ledger.VLANPayload:
		p.Tags = nil
		return p
	case ledger.PrefixPayload:
		p.Tags = nil
		return p
	case ledger.InterfacePayload:
		if len(p.TaggedVIDs) == 0 {
			p.TaggedVIDs = nil
		}
		return p
	default:
		return p
	}
}

// missing turns dcim.ErrNotFound into a nil error so callers stage a create.
func missing(err error) (bool, error) {
	if errors.Is(err, dcim.ErrNotFound) {
		return true, nil
	}
	return false, err
}

func (r *runner) currentSite(ctx context.Context, name string) (ledger.Payload, error) {
	site, err := r.store.FindSite(ctx, name)
	if gone, err := missing(err); gone || err != nil {
		return nil, err
	}
	return ledger.SitePayload{
		Name:        site.Name,
		Slug:        site.Slug,
		Description: site.Description,
		Comments:    site.Comments,
		Timezone:    site.TimeZone,
		NetworkID:   field(site.CustomFields, "network_id"),
	}, nil
}

func (r *runner) currentDeviceType(ctx context.Context, manufacturer, model string) (ledger.Payload, error) {
	dt, err := r.store.FindDeviceType(ctx, manufacturer, model)
	if gone, err := missing(err); gone || err != nil {
		return nil, err
	}
	return ledger.DeviceTypePayload{Model: dt.ModelName, Manufacturer: manufacturer, Slug: dt.Slug}, nil
}

func (r *runner) currentDevice(ctx context.Context, serial string) (ledger.Payload, error) {
	dev, err := r.store.DescribeDevice(ctx, serial)
	if gone, err := missing(err); gone || err != nil {
		return nil, err
	}
	cf := dev.CustomFields
	return ledger.DevicePayload{
		Name:         dev.Name,
		Serial:       dev.Serial,
		Model:        dev.ModelName,
		Manufacturer: dev.Manufacturer,
		Role:         dev.RoleName,
		Site:         dev.SiteName,
		Status:       dev.Status,
		MAC:          field(cf, "mac"),
		LANIP:        field(cf, "lan_ip"),
		WAN1IP:       field(cf, "wan1_ip"),
		WAN2IP:       field(cf, "wan2_ip"),
		Firmware:     field(cf, "firmware"),
		ProductType:  field(cf, "product_type"),
		NetworkID:    field(cf, "network_id"),
		Address:      field(cf, "address"),
		Comments:     dev.Comments,
	}, nil
}

func (r *runner) currentVLAN(ctx context.Context, group string, vid int) (ledger.Payload, error) {
	v, err := r.store.FindVLAN(ctx, group, vid)
	if gone, err := missing(err); gone || err != nil {
		return nil, err
	}
	siteName, err := r.siteName(ctx, v.SiteID)
	if err != nil {
		return nil, err
	}
	return ledger.VLANPayload{
		VID:         v.VID,
		Name:        v.Name,
		Site:        siteName,
		Group:       group,
		Description: v.Description,
	}, nil
}

// currentPrefix reports the VLAN of a prefix within group, the only group the sync assigns.
func (r *runner) currentPrefix(ctx context.Context, cidr, group string) (ledger.Payload, error) {
	p, err := r.store.FindPrefix(ctx, cidr)
	if gone, err := missing(err); gone || err != nil {
		return nil, err
	}
	siteName, err := r.siteName(ctx, p.SiteID)
	if err != nil {
		return nil, err
	}
	out := ledger.PrefixPayload{Prefix: p.Prefix, Site: siteName, Description: p.Description}
	if p.VLANID != nil {
		v, err := r.store.GetVLAN(ctx, *p.VLANID)
		if gone, err := missing(err); err != nil {
			return nil, err
		} else if !gone {
			out.VID = v.VID
			out.VLANGroup = group
		}
	}
	return out, nil
}

func (r *runner) currentInterface(ctx context.Context, deviceID uint, proposed ledger.InterfacePayload) (ledger.Payload, error) {
	iface, err := r.store.FindInterface(ctx, deviceID, proposed.Name)
	if gone, err := missing(err); gone || err != nil {
		return nil, err
	}
	return ledger.InterfacePayload{
		DeviceSerial: proposed.DeviceSerial,
		DeviceName:   proposed.DeviceName,
		Name:         iface.Name,
		Type:         iface.Type,
		Enabled:      iface.Enabled,
		MAC:          iface.MAC,
		Description:  iface.Description,
		Mode:         iface.Mode,
		UntaggedVID:  iface.UntaggedVID,
		TaggedVIDs:   []int(iface.TaggedVIDs),
		PoE:          iface.PoE,
	}, nil
}

// currentIPAddress reports the interface name only when the address sits on ifaceID.
func (r *runner) currentIPAddress(ctx context.Context, ifaceID uint, primaryID *uint, proposed ledger.IPAddressPayload) (ledger.Payload, *dcim.IPAddress, error) {
	ip, err := r.store.FindIPAddress(ctx, proposed.Address)
	if gone, err := missing(err); gone || err != nil {
		return nil, nil, err
	}
	out := ledger.IPAddressPayload{
		Address:      ip.Address,
		DeviceSerial: proposed.DeviceSerial,
		DeviceName:   proposed.DeviceName,
		Primary:      primaryID != nil && *primaryID == ip.ID,
		Description:  ip.Description,
	}
	if ip.InterfaceID != nil && *ip.InterfaceID == ifaceID {
		out.Interface = proposed.Interface
	}
	return out, ip, nil
}

func (r *runner) currentSSID(ctx context.Context, deviceID uint, proposed ledger.SSIDPayload) (ledger.Payload, error) {
	w, err := r.store.FindWirelessLAN(ctx, deviceID, proposed.Number)
	if gone, err := missing(err); gone || err != nil {
		return nil, err
	}
	return ledger.SSIDPayload{
		Number:         w.Number,
		Name:           w.SSID,
		Enabled:        w.Enabled,
		AuthMode:       w.AuthMode,
		EncryptionMode: w.EncryptionMode,
		BandSelection:  w.BandSelection,
		Visible:        w.Visible,
		DeviceSerial:   proposed.DeviceSerial,
		DeviceName:     proposed.DeviceName,
		Site:           proposed.Site,
	}, nil
}

func (r *runner) siteName(ctx context.Context, id uint) (string, error) {
	if id == 0 {
		return "", nil
	}
	site, err := r.store.GetSite(ctx, id)
	if gone, err := missing(err); gone || err != nil {
		return "", err
	}
	return site.Name, nil
}

// field reads a string custom field; absent and non-string values read as empty.
func field(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
