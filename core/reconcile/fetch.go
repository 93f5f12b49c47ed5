package reconcile

import (
	"context"
	"sync"

	"meraki-sync/core/meraki"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// inventory is what a network needs from the Dashboard. Errors are kept per call so
// that a failed VLAN listing does not hide the devices.
type inventory struct {
	devices    []meraki.Device
	devicesErr error

	vlans    []meraki.VLAN
	vlansErr error

	subnets    []meraki.Subnet
	subnetsErr error

	// firmware is fetched on first use and nil when unavailable.
	firmwareOnce sync.Once
	firmware     *meraki.FirmwareInfo

	ssidsOnce sync.Once
	ssids     []meraki.SSID
	ssidsErr  error
}

// fetchInventory loads the inventory of one network. Devices come first; a network
// without devices is not queried further.
func (r *runner) fetchInventory(ctx context.Context, network meraki.Network) *inventory {
	inv := &inventory{}
	inv.devices, inv.devicesErr = r.client.ListDevices(ctx, network.ID)
	if inv.devicesErr != nil || len(inv.devices) == 0 {
		return inv
	}

	if r.comp.VLANs || r.comp.Interfaces {
		inv.vlans, inv.vlansErr = r.client.ListVLANs(ctx, network.ID)
	}
	if r.comp.Prefixes {
		inv.subnets, inv.subnetsErr = r.client.ListSubnets(ctx, network.ID)
	}
	return inv
}

// prefetch loads the inventory of every network with at most workers concurrent fetches.
// Fetch errors are recorded per network; only ctx cancellation stops the group.
func (r *runner) prefetch(ctx context.Context, networks []meraki.Network, workers int) map[string]*inventory {
	results := make([]*inventory, len(networks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, network := range networks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.fetchInventory(gctx, network)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("Inventory prefetch interrupted", zap.Error(err))
	}

	out := make(map[string]*inventory, len(networks))
	for i, network := range networks {
		if results[i] != nil {
			out[network.ID] = results[i]
		}
	}
	return out
}

// networkSSIDs lists the SSIDs of a network once, on first use by an access point.
func (r *runner) networkSSIDs(ctx context.Context, networkID string, inv *inventory) ([]meraki.SSID, error) {
	inv.ssidsOnce.Do(func() {
		inv.ssids, inv.ssidsErr = r.client.ListSSIDs(ctx, networkID)
	})
	return inv.ssids, inv.ssidsErr
}

// networkFirmware reads the firmware of a network once. It is only needed when
// neither the device listing nor the status table carried a version.
func (r *runner) networkFirmware(ctx context.Context, networkID string, inv *inventory) *meraki.FirmwareInfo {
	inv.firmwareOnce.Do(func() {
		fw, err := r.client.GetFirmwareInfo(ctx, networkID)
		if err != nil {
			r.logger.Debug("Firmware info unavailable", zap.String("network", networkID), zap.Error(err))
			return
		}
		inv.firmware = fw
	})
	return inv.firmware
}
