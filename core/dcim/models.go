package dcim

import (
	"time"

	"gorm.io/datatypes"
)

// Model is the common primary key and timestamps of every destination object.
type Model struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"last_updated"`
}

func (m *Model) GetID() uint   { return m.ID }
func (m *Model) SetID(id uint) { m.ID = id }

// Status values of destination objects.
const (
	StatusActive  = "active"
	StatusOffline = "offline"
	StatusPlanned = "planned"
)

type Manufacturer struct {
	Model
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
}

func (Manufacturer) TableName() string { return "dcim_manufacturers" }

type DeviceType struct {
	Model
	ManufacturerID uint   `gorm:"uniqueIndex:idx_device_type_model;not null" json:"manufacturer_id"`
	ModelName      string `gorm:"column:model;size:100;uniqueIndex:idx_device_type_model;not null" json:"model"`
	Slug           string `gorm:"size:100;not null" json:"slug"`
}

func (DeviceType) TableName() string { return "dcim_device_types" }

type DeviceRole struct {
	Model
	Name  string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug  string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Color string `gorm:"size:6" json:"color"`
}

func (DeviceRole) TableName() string { return "dcim_device_roles" }

type Site struct {
	Model
	Name         string            `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug         string            `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Status       string            `gorm:"size:50" json:"status"`
	Description  string            `gorm:"size:200" json:"description"`
	Comments     string            `gorm:"type:text" json:"comments"`
	TimeZone     string            `gorm:"size:64" json:"time_zone"`
	CustomFields datatypes.JSONMap `json:"custom_fields"`
}

func (Site) TableName() string { return "dcim_sites" }

type Device struct {
	Model
	Name         string            `gorm:"size:64" json:"name"`
	Serial       string            `gorm:"size:50;uniqueIndex;not null" json:"serial"`
	DeviceTypeID uint              `gorm:"not null" json:"device_type_id"`
	RoleID       uint              `gorm:"not null" json:"role_id"`
	SiteID       uint              `gorm:"index;not null" json:"site_id"`
	Status       string            `gorm:"size:50" json:"status"`
	Comments     string            `gorm:"type:text" json:"comments"`
	PrimaryIP4ID *uint             `gorm:"column:primary_ip4_id" json:"primary_ip4_id,omitempty"`
	CustomFields datatypes.JSONMap `json:"custom_fields"`
}

func (Device) TableName() string { return "dcim_devices" }

type VLANGroup struct {
	Model
	Name   string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug   string `gorm:"size:100;not null" json:"slug"`
	SiteID uint   `gorm:"index" json:"site_id"`
}

func (VLANGroup) TableName() string { return "ipam_vlan_groups" }

type VLAN struct {
	Model
	VID         int    `gorm:"column:vid;uniqueIndex:idx_vlan_group_vid;not null" json:"vid"`
	GroupID     uint   `gorm:"uniqueIndex:idx_vlan_group_vid;not null" json:"group_id"`
	SiteID      uint   `gorm:"index" json:"site_id"`
	Name        string `gorm:"size:64" json:"name"`
	Status      string `gorm:"size:50" json:"status"`
	Description string `gorm:"size:200" json:"description"`
}

func (VLAN) TableName() string { return "ipam_vlans" }

type Prefix struct {
	Model
	Prefix      string `gorm:"size:64;uniqueIndex;not null" json:"prefix"`
	SiteID      uint   `gorm:"index" json:"site_id"`
	VLANID      *uint  `gorm:"column:vlan_id" json:"vlan_id,omitempty"`
	Status      string `gorm:"size:50" json:"status"`
	Description string `gorm:"size:200" json:"description"`
}

func (Prefix) TableName() string { return "ipam_prefixes" }

type Interface struct {
	Model
	DeviceID    uint                     `gorm:"uniqueIndex:idx_interface_device_name;not null" json:"device_id"`
	Name        string                   `gorm:"size:64;uniqueIndex:idx_interface_device_name;not null" json:"name"`
	Type        string                   `gorm:"size:50" json:"type"`
	Enabled     bool                     `json:"enabled"`
	MAC         string                   `gorm:"column:mac_address;size:32" json:"mac_address"`
	Description string                   `gorm:"size:200" json:"description"`
	Mode        string                   `gorm:"size:20" json:"mode"`
	UntaggedVID int                      `gorm:"column:untagged_vid" json:"untagged_vid"`
	TaggedVIDs  datatypes.JSONSlice[int] `gorm:"column:tagged_vids" json:"tagged_vids"`
	PoE         bool                     `gorm:"column:poe" json:"poe"`
}

func (Interface) TableName() string { return "dcim_interfaces" }

type IPAddress struct {
	Model
	Address     string `gorm:"size:64;uniqueIndex;not null" json:"address"`
	InterfaceID *uint  `gorm:"index" json:"interface_id,omitempty"`
	Status      string `gorm:"size:50" json:"status"`
	Description string `gorm:"size:200" json:"description"`
}

func (IPAddress) TableName() string { return "ipam_ip_addresses" }

// WirelessLAN is an SSID broadcast by an access point.
type WirelessLAN struct {
	Model
	DeviceID       uint   `gorm:"uniqueIndex:idx_wlan_device_number;not null" json:"device_id"`
	Number         int    `gorm:"uniqueIndex:idx_wlan_device_number" json:"number"`
	SSID           string `gorm:"column:ssid;size:32" json:"ssid"`
	Enabled        bool   `json:"enabled"`
	AuthMode       string `gorm:"size:64" json:"auth_mode"`
	EncryptionMode string `gorm:"size:64" json:"encryption_mode"`
	BandSelection  string `gorm:"size:64" json:"band_selection"`
	Visible        bool   `json:"visible"`
}

func (WirelessLAN) TableName() string { return "wireless_lans" }

type Tag struct {
	Model
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
}

func (Tag) TableName() string { return "extras_tags" }

// TaggedItem attaches a tag to any object kind.
type TaggedItem struct {
	ID         uint       `gorm:"primaryKey"`
	TagID      uint       `gorm:"uniqueIndex:idx_tagged_item;not null"`
	ObjectType ObjectKind `gorm:"size:20;uniqueIndex:idx_tagged_item;index:idx_tagged_object;not null"`
	ObjectID   uint       `gorm:"uniqueIndex:idx_tagged_item;index:idx_tagged_object;not null"`
}

func (TaggedItem) TableName() string { return "extras_tagged_items" }

// Models returns the tables owned by this package.
func Models() []any {
	return []any{
		&Manufacturer{}, &DeviceType{}, &DeviceRole{}, &Site{}, &Device{},
		&VLANGroup{}, &VLAN{}, &Prefix{}, &Interface{}, &IPAddress{},
		&WirelessLAN{}, &Tag{}, &TaggedItem{},
	}
}
