package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
)

// Payload is the typed body of a staged change. Each item type has exactly one payload type.
type Payload interface {
	ItemType() ItemType
	// Preview is a deterministic single-line description used in review listings.
	Preview() string
}

// SitePayload describes a site.
type SitePayload struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	Comments    string   `json:"comments,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	NetworkID   string   `json:"network_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (SitePayload) ItemType() ItemType { return ItemSite }

func (p SitePayload) Preview() string {
	return fmt.Sprintf("Site: %s | Slug: %s", p.Name, p.Slug)
}

// DevicePayload describes a device keyed by serial.
type DevicePayload struct {
	Name         string   `json:"name"`
	Serial       string   `json:"serial"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
	Role         string   `json:"role"`
	Site         string   `json:"site"`
	Status       string   `json:"status"`
	MAC          string   `json:"mac,omitempty"`
	LANIP        string   `json:"lan_ip,omitempty"`
	WAN1IP       string   `json:"wan1_ip,omitempty"`
	WAN2IP       string   `json:"wan2_ip,omitempty"`
	Firmware     string   `json:"firmware,omitempty"`
	ProductType  string   `json:"product_type,omitempty"`
	NetworkID    string   `json:"network_id,omitempty"`
	Address      string   `json:"address,omitempty"`
	Comments     string   `json:"comments,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

func (DevicePayload) ItemType() ItemType { return ItemDevice }

func (p DevicePayload) Preview() string {
	return fmt.Sprintf("Device: %s | Serial: %s | Model: %s | Role: %s | Site: %s", p.Name, p.Serial, p.Model, p.Role, p.Site)
}

// DeviceTypePayload describes a device type of a manufacturer.
type DeviceTypePayload struct {
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	Slug         string `json:"slug"`
}

func (DeviceTypePayload) ItemType() ItemType { return ItemDeviceType }

func (p DeviceTypePayload) Preview() string {
	return fmt.Sprintf("Device Type: %s | Manufacturer: %s | Slug: %s", p.Model, p.Manufacturer, p.Slug)
}

// VLANPayload describes a VLAN inside the VLAN group of a site.
type VLANPayload struct {
	VID         int      `json:"vid"`
	Name        string   `json:"name"`
	Site        string   `json:"site"`
	Group       string   `json:"group"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (VLANPayload) ItemType() ItemType { return ItemVLAN }

func (p VLANPayload) Preview() string {
	return fmt.Sprintf("VLAN %d: %s | Site: %s", p.VID, p.Name, p.Site)
}

// PrefixPayload describes a prefix keyed by canonical CIDR. VID zero means no VLAN.
type PrefixPayload struct {
	Prefix      string   `json:"prefix"`
	VID         int      `json:"vid,omitempty"`
	VLANGroup   string   `json:"vlan_group,omitempty"`
	Site        string   `json:"site"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (PrefixPayload) ItemType() ItemType { return ItemPrefix }

func (p PrefixPayload) Preview() string {
	vlan := "none"
	if p.VID > 0 {
		vlan = strconv.Itoa(p.VID)
	}
	return fmt.Sprintf("Prefix: %s | VLAN: %s | Site: %s", p.Prefix, vlan, p.Site)
}

// InterfacePayload describes an interface of a device.
type InterfacePayload struct {
	DeviceSerial string `json:"device_serial"`
	DeviceName   string `json:"device_name"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Enabled      bool   `json:"enabled"`
	MAC          string `json:"mac,omitempty"`
	Description  string `json:"description,omitempty"`
	Mode         string `json:"mode,omitempty"`
	UntaggedVID  int    `json:"untagged_vid,omitempty"`
	TaggedVIDs   []int  `json:"tagged_vids,omitempty"`
	PoE          bool   `json:"poe,omitempty"`
}

func (InterfacePayload) ItemType() ItemType { return ItemInterface }

func (p InterfacePayload) Preview() string {
	return fmt.Sprintf("Interface: %s | Device: %s | Type: %s", p.Name, p.DeviceName, p.Type)
}

// IPAddressPayload describes an address assigned to a device interface.
type IPAddressPayload struct {
	Address      string `json:"address"`
	DeviceSerial string `json:"device_serial"`
	DeviceName   string `json:"device_name"`
	Interface    string `json:"interface"`
	Primary      bool   `json:"primary"`
	Description  string `json:"description,omitempty"`
}

func (IPAddressPayload) ItemType() ItemType { return ItemIPAddress }

func (p IPAddressPayload) Preview() string {
	primary := ""
	if p.Primary {
		primary = " | Primary"
	}
	return fmt.Sprintf("IP Address: %s | Interface: %s | Device: %s%s", p.Address, p.Interface, p.DeviceName, primary)
}

// SSIDPayload describes a wireless network broadcast by an access point.
type SSIDPayload struct {
	Number         int    `json:"number"`
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	AuthMode       string `json:"auth_mode,omitempty"`
	EncryptionMode string `json:"encryption_mode,omitempty"`
	BandSelection  string `json:"band_selection,omitempty"`
	Visible        bool   `json:"visible"`
	DeviceSerial   string `json:"device_serial"`
	DeviceName     string `json:"device_name"`
	Site           string `json:"site"`
}

func (SSIDPayload) ItemType() ItemType { return ItemSSID }

func (p SSIDPayload) Preview() string {
	state := "disabled"
	if p.Enabled {
		state = "enabled"
	}
	return fmt.Sprintf("SSID %d: %s | %s | Auth: %s | Device: %s", p.Number, p.Name, state, p.AuthMode, p.DeviceName)
}

// EncodePayload serializes a payload for storage.
func EncodePayload(p Payload) (datatypes.JSON, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.ItemType(), err)
	}
	return datatypes.JSON(raw), nil
}

// DecodePayload parses a stored payload according to its item type.
func DecodePayload(t ItemType, raw []byte) (Payload, error) {
	switch t {
	case ItemSite:
		return decodeAs[SitePayload](t, raw)
	case ItemDevice:
		return decodeAs[DevicePayload](t, raw)
	case ItemDeviceType:
		return decodeAs[DeviceTypePayload](t, raw)
	case ItemVLAN:
		return decodeAs[VLANPayload](t, raw)
	case ItemPrefix:
		return decodeAs[PrefixPayload](t, raw)
	case ItemInterface:
		return decodeAs[InterfacePayload](t, raw)
	case ItemIPAddress:
		return decodeAs[IPAddressPayload](t, raw)
	case ItemSSID:
		return decodeAs[SSIDPayload](t, raw)
	default:
		return nil, fmt.Errorf("%w: unknown item type %q", ErrInvalidPayload, t)
	}
}

func decodeAs[T Payload](t ItemType, raw []byte) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, t, err)
	}
	return p, nil
}

// hasData reports whether a JSON column holds a value. A NULL column scans as "null".
func hasData(j datatypes.JSON) bool {
	s := strings.TrimSpace(string(j))
	return s != "" && s != "null"
}
