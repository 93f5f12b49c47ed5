package dcim

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that find nothing.
var ErrNotFound = errors.New("object not found")

// ObjectKind names a taggable destination object type.
type ObjectKind string

const (
	KindSite        ObjectKind = "site"
	KindDevice      ObjectKind = "device"
	KindVLAN        ObjectKind = "vlan"
	KindPrefix      ObjectKind = "prefix"
	KindInterface   ObjectKind = "interface"
	KindIPAddress   ObjectKind = "ip_address"
	KindWirelessLAN ObjectKind = "wireless_lan"
)

// Store is the destination source-of-truth. Upserts are idempotent on the natural
// key noted on each method and set the ID of the passed object.
type Store interface {
	FindSite(ctx context.Context, name string) (*Site, error)
	GetSite(ctx context.Context, id uint) (*Site, error)
	// UpsertSite is keyed by name.
	UpsertSite(ctx context.Context, site *Site) error

	EnsureManufacturer(ctx context.Context, name string) (*Manufacturer, error)
	FindDeviceType(ctx context.Context, manufacturer, model string) (*DeviceType, error)
	EnsureDeviceType(ctx context.Context, manufacturerID uint, model, slug string) (*DeviceType, error)
	EnsureDeviceRole(ctx context.Context, name string) (*DeviceRole, error)

	FindDevice(ctx context.Context, serial string) (*Device, error)
	// DescribeDevice resolves the device together with its type, role and site names.
	DescribeDevice(ctx context.Context, serial string) (*DeviceView, error)
	// UpsertDevice is keyed by serial. The primary IP is left untouched.
	UpsertDevice(ctx context.Context, device *Device) error
	SetPrimaryIP(ctx context.Context, deviceID, ipID uint) error

	EnsureVLANGroup(ctx context.Context, name string, siteID uint) (*VLANGroup, error)
	FindVLAN(ctx context.Context, group string, vid int) (*VLAN, error)
	GetVLAN(ctx context.Context, id uint) (*VLAN, error)
	// UpsertVLAN is keyed by (group, vid).
	UpsertVLAN(ctx context.Context, vlan *VLAN) error

	FindPrefix(ctx context.Context, cidr string) (*Prefix, error)
	// UpsertPrefix is keyed by the canonical CIDR.
	UpsertPrefix(ctx context.Context, prefix *Prefix) error

	FindInterface(ctx context.Context, deviceID uint, name string) (*Interface, error)
	// UpsertInterface is keyed by (device, name).
	UpsertInterface(ctx context.Context, iface *Interface) error

	FindIPAddress(ctx context.Context, address string) (*IPAddress, error)
	// UpsertIPAddress is keyed by address.
	UpsertIPAddress(ctx context.Context, ip *IPAddress) error

	FindWirelessLAN(ctx context.Context, deviceID uint, number int) (*WirelessLAN, error)
	// UpsertWirelessLAN is keyed by (device, number).
	UpsertWirelessLAN(ctx context.Context, wlan *WirelessLAN) error

	// TagObject attaches tags, creating them when missing. Existing tags stay.
	TagObject(ctx context.Context, kind ObjectKind, id uint, tags []string) error
	// SetCustomFields merges fields into a site or device.
	SetCustomFields(ctx context.Context, kind ObjectKind, id uint, fields map[string]any) error

	// ListManaged returns the ids of objects of kind carrying tag and belonging to one of siteIDs.
	ListManaged(ctx context.Context, kind ObjectKind, siteIDs []uint, tag string) ([]uint, error)
	// Delete removes objects and what hangs off them. It returns how many objects were deleted.
	Delete(ctx context.Context, kind ObjectKind, ids []uint) (int, error)
}

// DeviceView is a device joined with the names of what it references.
type DeviceView struct {
	Device
	ModelName    string
	Manufacturer string
	RoleName     string
	SiteName     string
}
