package mocks

import (
	"context"

	"meraki-sync/core/meraki"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of meraki.Client
type Client struct {
	mock.Mock
}

func (m *Client) ListOrganizations(ctx context.Context) ([]meraki.Organization, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]meraki.Organization); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) GetOrganization(ctx context.Context, orgID string) (*meraki.Organization, error) {
	args := m.Called(ctx, orgID)
	if v, ok := args.Get(0).(*meraki.Organization); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListNetworks(ctx context.Context, orgID string) ([]meraki.Network, error) {
	args := m.Called(ctx, orgID)
	if v, ok := args.Get(0).([]meraki.Network); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListDevices(ctx context.Context, networkID string) ([]meraki.Device, error) {
	args := m.Called(ctx, networkID)
	if v, ok := args.Get(0).([]meraki.Device); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) GetDeviceStatuses(ctx context.Context, orgID string) ([]meraki.DeviceStatus, error) {
	args := m.Called(ctx, orgID)
	if v, ok := args.Get(0).([]meraki.DeviceStatus); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListVLANs(ctx context.Context, networkID string) ([]meraki.VLAN, error) {
	args := m.Called(ctx, networkID)
	if v, ok := args.Get(0).([]meraki.VLAN); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListSubnets(ctx context.Context, networkID string) ([]meraki.Subnet, error) {
	args := m.Called(ctx, networkID)
	if v, ok := args.Get(0).([]meraki.Subnet); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListSwitchPorts(ctx context.Context, serial string) ([]meraki.SwitchPort, error) {
	args := m.Called(ctx, serial)
	if v, ok := args.Get(0).([]meraki.SwitchPort); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListSSIDs(ctx context.Context, networkID string) ([]meraki.SSID, error) {
	args := m.Called(ctx, networkID)
	if v, ok := args.Get(0).([]meraki.SSID); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) GetFirmwareInfo(ctx context.Context, networkID string) (*meraki.FirmwareInfo, error) {
	args := m.Called(ctx, networkID)
	if v, ok := args.Get(0).(*meraki.FirmwareInfo); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListAppliancePorts(ctx context.Context, networkID string) ([]meraki.AppliancePort, error) {
	args := m.Called(ctx, networkID)
	if v, ok := args.Get(0).([]meraki.AppliancePort); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListInventoryDevices(ctx context.Context, orgID string) ([]meraki.InventoryDevice, error) {
	args := m.Called(ctx, orgID)
	if v, ok := args.Get(0).([]meraki.InventoryDevice); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
