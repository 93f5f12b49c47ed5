package meraki

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// FlexInt decodes a JSON number or a numeric string.
// The Dashboard API returns VLAN ids as strings on some endpoints and numbers on others.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		var fl float64
		if ferr := json.Unmarshal([]byte(s), &fl); ferr != nil {
			return err
		}
		n = int(fl)
	}
	*f = FlexInt(n)
	return nil
}

// Organization is a Dashboard organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Network is a Dashboard network; it becomes a destination site.
type Network struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organizationId"`
	Name           string   `json:"name"`
	TimeZone       string   `json:"timeZone"`
	ProductTypes   []string `json:"productTypes"`
	Tags           []string `json:"tags"`
	Notes          string   `json:"notes"`
}

// Device is a claimed device assigned to a network.
type Device struct {
	Serial      string   `json:"serial"`
	Name        string   `json:"name"`
	Model       string   `json:"model"`
	MAC         string   `json:"mac"`
	LanIP       string   `json:"lanIp"`
	WAN1IP      string   `json:"wan1Ip"`
	WAN2IP      string   `json:"wan2Ip"`
	Firmware    string   `json:"firmware"`
	NetworkID   string   `json:"networkId"`
	ProductType string   `json:"productType"`
	Address     string   `json:"address"`
	Notes       string   `json:"notes"`
	Tags        []string `json:"tags"`

	// Status is not part of the device listing; it is backfilled from the
	// organization status table.
	Status string `json:"status,omitempty"`
}

// ProductPrefix returns the two-letter family code of the model, e.g. "MX".
func (d Device) ProductPrefix() string {
	m := strings.ToUpper(strings.TrimSpace(d.Model))
	if len(m) < 2 {
		return m
	}
	return m[:2]
}

// DeviceStatus is one row of the organization device status table.
type DeviceStatus struct {
	Serial         string `json:"serial"`
	Name           string `json:"name"`
	NetworkID      string `json:"networkId"`
	Status         string `json:"status"`
	LanIP          string `json:"lanIp"`
	PublicIP       string `json:"publicIp"`
	WAN1IP         string `json:"wan1Ip"`
	WAN2IP         string `json:"wan2Ip"`
	Model          string `json:"model"`
	ProductType    string `json:"productType"`
	Firmware       string `json:"firmware"`
	LastReportedAt string `json:"lastReportedAt"`
}

// VLAN is an appliance VLAN.
type VLAN struct {
	ID          FlexInt `json:"id"`
	Name        string  `json:"name"`
	Subnet      string  `json:"subnet"`
	ApplianceIP string  `json:"applianceIp"`
	GroupPolicy string  `json:"groupPolicyId"`
}

// Subnet is a VLAN that carries a subnet.
type Subnet struct {
	VLANID      int    `json:"vlan_id"`
	VLANName    string `json:"vlan_name"`
	CIDR        string `json:"subnet"`
	ApplianceIP string `json:"appliance_ip"`
}

// SSID is a wireless network slot.
type SSID struct {
	Number         int    `json:"number"`
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	AuthMode       string `json:"authMode"`
	EncryptionMode string `json:"encryptionMode"`
	BandSelection  string `json:"bandSelection"`
	Visible        bool   `json:"visible"`
}

// SwitchPort is a switch port configuration.
type SwitchPort struct {
	PortID       string  `json:"portId"`
	Name         string  `json:"name"`
	Enabled      bool    `json:"enabled"`
	Type         string  `json:"type"`
	VLAN         FlexInt `json:"vlan"`
	VoiceVLAN    FlexInt `json:"voiceVlan"`
	AllowedVLANs string  `json:"allowedVlans"`
	PoEEnabled   bool    `json:"poeEnabled"`
}

// AppliancePort is a security appliance LAN port.
type AppliancePort struct {
	Number              int     `json:"number"`
	Enabled             bool    `json:"enabled"`
	Type                string  `json:"type"`
	VLAN                FlexInt `json:"vlan"`
	AllowedVLANs        string  `json:"allowedVlans"`
	DropUntaggedTraffic bool    `json:"dropUntaggedTraffic"`
}

// InventoryDevice is an organization inventory entry, claimed or not.
type InventoryDevice struct {
	Serial      string `json:"serial"`
	MAC         string `json:"mac"`
	NetworkID   string `json:"networkId"`
	Model       string `json:"model"`
	Name        string `json:"name"`
	ProductType string `json:"productType"`
	ClaimedAt   string `json:"claimedAt"`
}

// FirmwareVersion describes one product's running firmware.
type FirmwareVersion struct {
	ShortName string `json:"shortName"`
	Firmware  string `json:"firmware"`
}

// ProductFirmware is the per-product firmware upgrade state.
type ProductFirmware struct {
	CurrentVersion FirmwareVersion `json:"currentVersion"`
}

// FirmwareInfo is the network firmware upgrade summary.
type FirmwareInfo struct {
	Products map[string]ProductFirmware `json:"products"`
}

// CurrentVersion returns the short firmware name for a product (e.g. "appliance").
func (f FirmwareInfo) CurrentVersion(product string) string {
	p, ok := f.Products[product]
	if !ok {
		return ""
	}
	if p.CurrentVersion.ShortName != "" {
		return p.CurrentVersion.ShortName
	}
	return p.CurrentVersion.Firmware
}
