package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func stagedSite(t *testing.T, p SitePayload) *StagedChange {
	t.Helper()
	raw, err := EncodePayload(p)
	require.NoError(t, err)
	return &StagedChange{ItemType: ItemSite, Action: ActionCreate, ProposedData: raw, Status: ItemPending}
}

func TestStagedChange_Transitions(t *testing.T) {
	tests := []struct {
		from ItemStatus
		to   ItemStatus
		ok   bool
	}{
		{ItemPending, ItemApproved, true},
		{ItemPending, ItemRejected, true},
		{ItemApproved, ItemApplied, true},
		{ItemApproved, ItemFailed, true},
		{ItemPending, ItemApplied, false},
		{ItemRejected, ItemApproved, false},
		{ItemFailed, ItemApplied, false},
		{ItemApproved, ItemPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c := &StagedChange{Status: tt.from}
			err := c.Transition(tt.to)
			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, c.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, c.Status)
			}
		})
	}
}

func TestStagedChange_AppliedIsImmutable(t *testing.T) {
	c := stagedSite(t, SitePayload{Name: "HQ", Slug: "hq"})
	c.Status = ItemApplied

	assert.ErrorIs(t, c.Transition(ItemFailed), ErrImmutable)
	assert.ErrorIs(t, c.SetOverride(SitePayload{Name: "Other"}), ErrImmutable)
}

func TestStagedChange_FinalDataPrefersOverride(t *testing.T) {
	c := stagedSite(t, SitePayload{Name: "HQ", Slug: "hq"})
	proposedBefore := string(c.ProposedData)

	final, err := c.FinalData()
	require.NoError(t, err)
	assert.Equal(t, "HQ", final.(SitePayload).Name)

	require.NoError(t, c.SetOverride(SitePayload{Name: "Head Office", Slug: "head-office"}))

	final, err = c.FinalData()
	require.NoError(t, err)
	assert.Equal(t, "Head Office", final.(SitePayload).Name)
	assert.Equal(t, proposedBefore, string(c.ProposedData))
	assert.Equal(t, "Site: Head Office | Slug: head-office", c.PreviewDisplay)

	proposed, err := c.Proposed()
	require.NoError(t, err)
	assert.Equal(t, "HQ", proposed.(SitePayload).Name)
}

func TestStagedChange_NullOverrideIsIgnored(t *testing.T) {
	c := stagedSite(t, SitePayload{Name: "HQ"})
	c.EditableData = datatypes.JSON("null")
	assert.False(t, c.HasOverride())

	final, err := c.FinalData()
	require.NoError(t, err)
	assert.Equal(t, "HQ", final.(SitePayload).Name)
}

func TestStagedChange_OverrideTypeMustMatch(t *testing.T) {
	c := stagedSite(t, SitePayload{Name: "HQ"})
	assert.ErrorIs(t, c.SetOverride(VLANPayload{VID: 10}), ErrInvalidPayload)
}

func TestPayloadPreview(t *testing.T) {
	tests := []struct {
		name string
		p    Payload
		want string
	}{
		{"Site", SitePayload{Name: "Asia South - prod - Oil", Slug: "asia-south-prod-oil"}, "Site: Asia South - prod - Oil | Slug: asia-south-prod-oil"},
		{"Device", DevicePayload{Name: "fw-1", Serial: "Q2XX-AAAA-0001", Model: "MX68", Role: "Security Appliance", Site: "HQ"}, "Device: fw-1 | Serial: Q2XX-AAAA-0001 | Model: MX68 | Role: Security Appliance | Site: HQ"},
		{"DeviceType", DeviceTypePayload{Model: "MX68", Manufacturer: "Cisco Meraki", Slug: "mx68"}, "Device Type: MX68 | Manufacturer: Cisco Meraki | Slug: mx68"},
		{"VLAN", VLANPayload{VID: 10, Name: "Data", Site: "HQ"}, "VLAN 10: Data | Site: HQ"},
		{"Prefix", PrefixPayload{Prefix: "10.0.10.0/24", VID: 10, Site: "HQ"}, "Prefix: 10.0.10.0/24 | VLAN: 10 | Site: HQ"},
		{"PrefixNoVLAN", PrefixPayload{Prefix: "10.0.10.0/24", Site: "HQ"}, "Prefix: 10.0.10.0/24 | VLAN: none | Site: HQ"},
		{"Interface", InterfacePayload{Name: "wan1", DeviceName: "fw-1", Type: "virtual"}, "Interface: wan1 | Device: fw-1 | Type: virtual"},
		{"IPAddress", IPAddressPayload{Address: "203.0.113.1/32", Interface: "wan1", DeviceName: "fw-1", Primary: true}, "IP Address: 203.0.113.1/32 | Interface: wan1 | Device: fw-1 | Primary"},
		{"SSID", SSIDPayload{Number: 0, Name: "Corp", Enabled: true, AuthMode: "psk", DeviceName: "ap-1"}, "SSID 0: Corp | enabled | Auth: psk | Device: ap-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Preview())
			assert.Equal(t, tt.want, tt.p.Preview())
		})
	}
}

func TestDecodePayload(t *testing.T) {
	types := []ItemType{ItemSite, ItemDevice, ItemDeviceType, ItemVLAN, ItemPrefix, ItemInterface, ItemIPAddress, ItemSSID}
	for _, typ := range types {
		p, err := DecodePayload(typ, []byte(`{}`))
		require.NoError(t, err, typ)
		assert.Equal(t, typ, p.ItemType())
	}

	_, err := DecodePayload("rack", []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DecodePayload(ItemVLAN, []byte(`{"vid":"ten"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name   string
		counts map[ItemStatus]int
		want   SessionStatus
	}{
		{"AllPending", map[ItemStatus]int{ItemPending: 3}, SessionPending},
		{"AllApproved", map[ItemStatus]int{ItemApproved: 3}, SessionApproved},
		{"AllRejected", map[ItemStatus]int{ItemRejected: 3}, SessionRejected},
		{"AllApplied", map[ItemStatus]int{ItemApplied: 3}, SessionApplied},
		{"AppliedAndRejected", map[ItemStatus]int{ItemApplied: 2, ItemRejected: 1}, SessionPartiallyApproved},
		{"AppliedAndFailed", map[ItemStatus]int{ItemApplied: 2, ItemFailed: 1}, SessionPartiallyApproved},
		{"Mixed", map[ItemStatus]int{ItemApproved: 1, ItemPending: 1}, SessionPartiallyApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			for _, n := range tt.counts {
				total += n
			}
			assert.Equal(t, tt.want, deriveStatus(SessionPending, tt.counts, total))
		})
	}
}
