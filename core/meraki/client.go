package meraki

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
)

// ErrNotFound is matched by errors for 404 responses.
var ErrNotFound = errors.New("meraki: not found")

// Client is the read-only view of the Dashboard inventory used by the sync engine.
// Endpoints that answer 404 when a feature is not configured return empty results.
type Client interface {
	ListOrganizations(ctx context.Context) ([]Organization, error)
	GetOrganization(ctx context.Context, orgID string) (*Organization, error)
	ListNetworks(ctx context.Context, orgID string) ([]Network, error)
	ListDevices(ctx context.Context, networkID string) ([]Device, error)
	GetDeviceStatuses(ctx context.Context, orgID string) ([]DeviceStatus, error)
	ListVLANs(ctx context.Context, networkID string) ([]VLAN, error)
	ListSubnets(ctx context.Context, networkID string) ([]Subnet, error)
	ListSwitchPorts(ctx context.Context, serial string) ([]SwitchPort, error)
	ListSSIDs(ctx context.Context, networkID string) ([]SSID, error)
	GetFirmwareInfo(ctx context.Context, networkID string) (*FirmwareInfo, error)
	ListAppliancePorts(ctx context.Context, networkID string) ([]AppliancePort, error)
	ListInventoryDevices(ctx context.Context, orgID string) ([]InventoryDevice, error)
}

// APIError is a non-2xx Dashboard response.
type APIError struct {
	StatusCode int
	Path       string
	Message    string

	retryAfter *backoff.RetryAfterError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("meraki: %s returned %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("meraki: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

// Is matches ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// Unwrap exposes the Retry-After hint to the retry loop.
func (e *APIError) Unwrap() error {
	if e.retryAfter == nil {
		return nil
	}
	return e.retryAfter
}

// Retryable reports whether the request should be attempted again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// SubnetsFromVLANs keeps the VLANs that carry a subnet.
func SubnetsFromVLANs(vlans []VLAN) []Subnet {
	subnets := make([]Subnet, 0, len(vlans))
	for _, v := range vlans {
		if v.Subnet == "" {
			continue
		}
		subnets = append(subnets, Subnet{
			VLANID:      int(v.ID),
			VLANName:    v.Name,
			CIDR:        v.Subnet,
			ApplianceIP: v.ApplianceIP,
		})
	}
	return subnets
}
