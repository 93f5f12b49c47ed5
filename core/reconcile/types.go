package reconcile

import (
	"meraki-sync/core/ledger"
)

// Components selects which object kinds a run stages.
type Components struct {
	Sites           bool `json:"sites"`
	Devices         bool `json:"devices"`
	VLANs           bool `json:"vlans"`
	Prefixes        bool `json:"prefixes"`
	Interfaces      bool `json:"interfaces"`
	IPAddresses     bool `json:"ip_addresses"`
	SSIDs           bool `json:"ssids"`
	CleanupOrphaned bool `json:"cleanup_orphaned"`
}

// AllComponents enables every component.
func AllComponents() Components {
	return Components{
		Sites:           true,
		Devices:         true,
		VLANs:           true,
		Prefixes:        true,
		Interfaces:      true,
		IPAddresses:     true,
		SSIDs:           true,
		CleanupOrphaned: true,
	}
}

// Scope restricts a run to one organization and optionally a set of its networks.
// The zero value covers every organization the API key can see.
type Scope struct {
	OrganizationID string   `json:"organization_id,omitempty"`
	NetworkIDs     []string `json:"network_ids,omitempty"`
}

func (s Scope) includes(networkID string) bool {
	if len(s.NetworkIDs) == 0 {
		return true
	}
	for _, id := range s.NetworkIDs {
		if id == networkID {
			return true
		}
	}
	return false
}

// Request describes one sync run.
type Request struct {
	Mode  ledger.Mode
	Scope Scope
	// Components defaults to AllComponents when nil.
	Components *Components
}

func (r Request) components() Components {
	if r.Components == nil {
		return AllComponents()
	}
	return *r.Components
}

// siteRef is the site a network resolved to. ID is zero when the site was only staged.
type siteRef struct {
	Name string
	ID   uint
}

// vlanGroupName is the VLAN group holding the VLANs of a site.
func vlanGroupName(site string) string {
	return site + " VLANs"
}
