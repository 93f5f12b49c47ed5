package reconcile

import (
	"context"
	"errors"
	"fmt"

	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// applier writes payloads to the destination store.
type applier struct {
	store dcim.Store
	cache *lookupCache
}

// applyChange approves a pending change, applies its final data and records the outcome.
// The change is marked failed when apply fails; the apply error is returned.
func (e *Engine) applyChange(ctx, persist context.Context, ap *applier, c *ledger.StagedChange) (uint, error) {
	if c.Status == ledger.ItemPending {
		if err := e.ledger.TransitionChange(persist, c, ledger.ItemApproved); err != nil {
			return 0, err
		}
	}

	p, err := c.FinalData()
	if err == nil {
		unlock := e.locks.Lock(string(c.ItemType) + ":" + c.ObjectIdentifier)
		var id uint
		id, err = ap.apply(ctx, p)
		unlock()
		if err == nil {
			return id, e.ledger.MarkApplied(persist, c, id)
		}
	}

	if markErr := e.ledger.MarkFailed(persist, c, err); markErr != nil {
		e.logger.Warn("Could not mark change failed", zap.Uint("change_id", c.ID), zap.Error(markErr))
	}
	return 0, err
}

// apply writes p and returns the id of the destination object.
func (a *applier) apply(ctx context.Context, p ledger.Payload) (uint, error) {
	switch p := p.(type) {
	case ledger.SitePayload:
		return a.site(ctx, p)
	case ledger.DeviceTypePayload:
		return a.deviceType(ctx, p.Manufacturer, p.Model, p.Slug)
	case ledger.DevicePayload:
		return a.device(ctx, p)
	case ledger.VLANPayload:
		return a.vlan(ctx, p)
	case ledger.PrefixPayload:
		return a.prefix(ctx, p)
	case ledger.InterfacePayload:
		return a.iface(ctx, p)
	case ledger.IPAddressPayload:
		return a.ipAddress(ctx, p)
	case ledger.SSIDPayload:
		return a.ssid(ctx, p)
	default:
		return 0, fmt.Errorf("%w: cannot apply %T", ledger.ErrInvalidPayload, p)
	}
}

func (a *applier) site(ctx context.Context, p ledger.SitePayload) (uint, error) {
	site := &dcim.Site{
		Name:        p.Name,
		Slug:        p.Slug,
		Status:      dcim.StatusActive,
		Description: p.Description,
		Comments:    p.Comments,
		TimeZone:    p.Timezone,
	}
	if err := a.store.UpsertSite(ctx, site); err != nil {
		return 0, err
	}
	if p.NetworkID != "" {
		if err := a.store.SetCustomFields(ctx, dcim.KindSite, site.ID, map[string]any{"network_id": p.NetworkID}); err != nil {
			return 0, err
		}
	}
	if err := a.store.TagObject(ctx, dcim.KindSite, site.ID, p.Tags); err != nil {
		return 0, err
	}
	return site.ID, nil
}

func (a *applier) device(ctx context.Context, p ledger.DevicePayload) (uint, error) {
	siteID, err := a.siteID(ctx, p.Site)
	if err != nil {
		return 0, err
	}
	typeID, err := a.deviceType(ctx, p.Manufacturer, p.Model, "")
	if err != nil {
		return 0, err
	}
	roleID, err := a.cache.id(ctx, "role:"+p.Role, func(ctx context.Context) (uint, error) {
		role, err := a.store.EnsureDeviceRole(ctx, p.Role)
		if err != nil {
			return 0, err
		}
		return role.ID, nil
	})
	if err != nil {
		return 0, err
	}

	dev := &dcim.Device{
		Name:         p.Name,
		Serial:       p.Serial,
		DeviceTypeID: typeID,
		RoleID:       roleID,
		SiteID:       siteID,
		Status:       p.Status,
		Comments:     p.Comments,
	}
	if err := a.store.UpsertDevice(ctx, dev); err != nil {
		return 0, err
	}
	fields := map[string]any{
		"mac":          p.MAC,
		"lan_ip":       p.LANIP,
		"wan1_ip":      p.WAN1IP,
		"wan2_ip":      p.WAN2IP,
		"firmware":     p.Firmware,
		"product_type": p.ProductType,
		"network_id":   p.NetworkID,
		"address":      p.Address,
	}
	if err := a.store.SetCustomFields(ctx, dcim.KindDevice, dev.ID, fields); err != nil {
		return 0, err
	}
	if err := a.store.TagObject(ctx, dcim.KindDevice, dev.ID, p.Tags); err != nil {
		return 0, err
	}
	return dev.ID, nil
}

func (a *applier) deviceType(ctx context.Context, manufacturer, model, slug string) (uint, error) {
	if model == "" {
		return 0, errors.New("device model is empty")
	}
	if manufacturer == "" {
		manufacturer = Manufacturer
	}
	mfrID, err := a.cache.id(ctx, "manufacturer:"+manufacturer, func(ctx context.Context) (uint, error) {
		m, err := a.store.EnsureManufacturer(ctx, manufacturer)
		if err != nil {
			return 0, err
		}
		return m.ID, nil
	})
	if err != nil {
		return 0, err
	}
	return a.cache.id(ctx, "device_type:"+manufacturer+"/"+model, func(ctx context.Context) (uint, error) {
		dt, err := a.store.EnsureDeviceType(ctx, mfrID, model, slug)
		if err != nil {
			return 0, err
		}
		return dt.ID, nil
	})
}

func (a *applier) vlan(ctx context.Context, p ledger.VLANPayload) (uint, error) {
	siteID, err := a.siteID(ctx, p.Site)
	if err != nil {
		return 0, err
	}
	groupID, err := a.cache.id(ctx, "vlan_group:"+p.Group, func(ctx context.Context) (uint, error) {
		g, err := a.store.EnsureVLANGroup(ctx, p.Group, siteID)
		if err != nil {
			return 0, err
		}
		return g.ID, nil
	})
	if err != nil {
		return 0, err
	}
	v := &dcim.VLAN{
		VID:         p.VID,
		GroupID:     groupID,
		SiteID:      siteID,
		Name:        p.Name,
		Status:      dcim.StatusActive,
		Description: p.Description,
	}
	if err := a.store.UpsertVLAN(ctx, v); err != nil {
		return 0, err
	}
	if err := a.store.TagObject(ctx, dcim.KindVLAN, v.ID, p.Tags); err != nil {
		return 0, err
	}
	return v.ID, nil
}

func (a *applier) prefix(ctx context.Context, p ledger.PrefixPayload) (uint, error) {
	cidr, err := canonicalCIDR(p.Prefix)
	if err != nil {
		return 0, fmt.Errorf("%w: prefix %q: %v", ledger.ErrInvalidPayload, p.Prefix, err)
	}
	siteID, err := a.siteID(ctx, p.Site)
	if err != nil {
		return 0, err
	}
	var vlanID *uint
	if p.VID > 0 && p.VLANGroup != "" {
		v, err := a.store.FindVLAN(ctx, p.VLANGroup, p.VID)
		switch {
		case err == nil:
			vlanID = &v.ID
		case !errors.Is(err, dcim.ErrNotFound):
			return 0, err
		}
	}
	prefix := &dcim.Prefix{
		Prefix:      cidr,
		SiteID:      siteID,
		VLANID:      vlanID,
		Status:      dcim.StatusActive,
		Description: p.Description,
	}
	if err := a.store.UpsertPrefix(ctx, prefix); err != nil {
		return 0, err
	}
	if err := a.store.TagObject(ctx, dcim.KindPrefix, prefix.ID, p.Tags); err != nil {
		return 0, err
	}
	return prefix.ID, nil
}

func (a *applier) iface(ctx context.Context, p ledger.InterfacePayload) (uint, error) {
	dev, err := a.deviceBySerial(ctx, p.DeviceSerial)
	if err != nil {
		return 0, err
	}
	iface := &dcim.Interface{
		DeviceID:    dev.ID,
		Name:        p.Name,
		Type:        p.Type,
		Enabled:     p.Enabled,
		MAC:         p.MAC,
		Description: p.Description,
		Mode:        p.Mode,
		UntaggedVID: p.UntaggedVID,
		TaggedVIDs:  datatypes.JSONSlice[int](p.TaggedVIDs),
		PoE:         p.PoE,
	}
	if err := a.store.UpsertInterface(ctx, iface); err != nil {
		return 0, err
	}
	return iface.ID, nil
}

func (a *applier) ipAddress(ctx context.Context, p ledger.IPAddressPayload) (uint, error) {
	dev, err := a.deviceBySerial(ctx, p.DeviceSerial)
	if err != nil {
		return 0, err
	}
	iface, err := a.store.FindInterface(ctx, dev.ID, p.Interface)
	if err != nil {
		return 0, fmt.Errorf("interface %s of device %s: %w", p.Interface, p.DeviceSerial, err)
	}
	ip := &dcim.IPAddress{
		Address:     p.Address,
		InterfaceID: &iface.ID,
		Status:      dcim.StatusActive,
		Description: p.Description,
	}
	if err := a.store.UpsertIPAddress(ctx, ip); err != nil {
		return 0, err
	}
	if p.Primary {
		if err := a.store.SetPrimaryIP(ctx, dev.ID, ip.ID); err != nil {
			return 0, err
		}
	}
	return ip.ID, nil
}

func (a *applier) ssid(ctx context.Context, p ledger.SSIDPayload) (uint, error) {
	dev, err := a.deviceBySerial(ctx, p.DeviceSerial)
	if err != nil {
		return 0, err
	}
	w := &dcim.WirelessLAN{
		DeviceID:       dev.ID,
		Number:         p.Number,
		SSID:           p.Name,
		Enabled:        p.Enabled,
		AuthMode:       p.AuthMode,
		EncryptionMode: p.EncryptionMode,
		BandSelection:  p.BandSelection,
		Visible:        p.Visible,
	}
	if err := a.store.UpsertWirelessLAN(ctx, w); err != nil {
		return 0, err
	}
	return w.ID, nil
}

func (a *applier) siteID(ctx context.Context, name string) (uint, error) {
	site, err := a.store.FindSite(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("site %q: %w", name, err)
	}
	return site.ID, nil
}

func (a *applier) deviceBySerial(ctx context.Context, serial string) (*dcim.Device, error) {
	dev, err := a.store.FindDevice(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", serial, err)
	}
	return dev, nil
}
