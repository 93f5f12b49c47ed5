package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
	"meraki-sync/core/meraki"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVLANList(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"1,3,10-12", []int{1, 3, 10, 11, 12}},
		{" 5 , 5, 4-5 ", []int{5, 4}},
		{"0,4095,abc,9-7", nil},
		{"4093-5000", []int{4093, 4094}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseVLANList(tt.in))
		})
	}
}

func TestCanonicalCIDR(t *testing.T) {
	got, err := canonicalCIDR("10.0.0.1/24")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/24", got)

	got, err = canonicalCIDR(" 2001:db8::1/64 ")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::/64", got)

	_, err = canonicalCIDR("10.0.0.0")
	assert.Error(t, err)
}

func TestHostAndGatewayAddress(t *testing.T) {
	assert.Equal(t, "10.1.0.2/32", hostAddress("10.1.0.2"))
	assert.Equal(t, "2001:db8::2/128", hostAddress("2001:db8::2"))
	assert.Empty(t, hostAddress("not-an-ip"))

	assert.Equal(t, "10.1.10.1/24", gatewayAddress("10.1.10.1", "10.1.10.0/24"))
	assert.Equal(t, "10.1.10.1/32", gatewayAddress("10.1.10.1", ""))
	assert.Equal(t, "10.1.10.1/32", gatewayAddress("10.1.10.1", "2001:db8::/64"))
	assert.Empty(t, gatewayAddress("", "10.1.10.0/24"))
}

func TestDecideAction(t *testing.T) {
	proposed := ledger.SitePayload{Name: "HQ", Slug: "hq", Tags: []string{"Meraki"}}

	assert.Equal(t, ledger.ActionCreate, decideAction(proposed, nil))
	assert.Equal(t, ledger.ActionSkip, decideAction(proposed, ledger.SitePayload{Name: "HQ", Slug: "hq"}))
	assert.Equal(t, ledger.ActionUpdate, decideAction(proposed, ledger.SitePayload{Name: "HQ", Slug: "hq", Description: "old"}))

	iface := ledger.InterfacePayload{Name: "Port 1", Mode: "access", TaggedVIDs: []int{}}
	assert.Equal(t, ledger.ActionSkip, decideAction(iface, ledger.InterfacePayload{Name: "Port 1", Mode: "access"}))
}

func TestBackfill(t *testing.T) {
	statuses := map[string]meraki.DeviceStatus{
		"Q1": {Serial: "Q1", Status: "online", LanIP: "10.0.0.5", WAN1IP: "1.2.3.4", Firmware: "MS 15.21"},
	}
	fw := &meraki.FirmwareInfo{Products: map[string]meraki.ProductFirmware{
		"wireless": {CurrentVersion: meraki.FirmwareVersion{ShortName: "MR 29.7"}},
	}}

	d := backfill(meraki.Device{Serial: "Q1", Model: "MS120", LanIP: "10.9.9.9"}, statuses, fw)
	assert.Equal(t, "online", d.Status)
	assert.Equal(t, "10.9.9.9", d.LanIP)
	assert.Equal(t, "1.2.3.4", d.WAN1IP)
	assert.Equal(t, "MS 15.21", d.Firmware)

	ap := backfill(meraki.Device{Serial: "Q2", Model: "MR46"}, statuses, fw)
	assert.Equal(t, fw.CurrentVersion("wireless"), ap.Firmware)
	assert.Empty(t, ap.Status)

	cam := backfill(meraki.Device{Serial: "Q3", Model: "MV12"}, nil, nil)
	assert.Empty(t, cam.Firmware)
}

func TestLookupCache_LoadsOncePerKey(t *testing.T) {
	c := newLookupCache()
	var calls atomic.Int32
	load := func(context.Context) (uint, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := c.id(context.Background(), "role:Switch", load)
			assert.NoError(t, err)
			assert.Equal(t, uint(42), id)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	_, err := c.id(context.Background(), "role:Broken", func(context.Context) (uint, error) {
		return 0, errors.New("boom")
	})
	assert.Error(t, err)
	id, err := c.id(context.Background(), "role:Broken", func(context.Context) (uint, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := newKeyedMutex()
	var inside, maxInside atomic.Int32

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("device:Q1")
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	k.mu.Lock()
	assert.Empty(t, k.locks)
	k.mu.Unlock()
}

func TestAccumulator_CleanupScope(t *testing.T) {
	a := newAccumulator()
	a.track(dcim.KindSite, 2)
	a.track(dcim.KindSite, 1)
	a.track(dcim.KindSite, 0)
	a.track(dcim.KindDevice, 10)
	a.markIncomplete(dcim.KindDevice, 2)

	assert.Equal(t, []uint{1, 2}, a.ids(dcim.KindSite))
	assert.Equal(t, []uint{1}, a.cleanupScope(dcim.KindDevice))
	assert.Equal(t, []uint{1, 2}, a.cleanupScope(dcim.KindVLAN))
	assert.True(t, a.isSynced(dcim.KindDevice, 10))
	assert.False(t, a.isSynced(dcim.KindDevice, 11))

	a.deleted[dcim.KindPrefix] = 3
	a.devices = 4
	run := &ledger.RunRecord{}
	a.writeTo(run)
	assert.Equal(t, 4, run.DevicesSynced)
	assert.Equal(t, 3, run.DeletedPrefixes)
}

func TestScopeIncludes(t *testing.T) {
	assert.True(t, Scope{}.includes("N_1"))
	s := Scope{NetworkIDs: []string{"N_1", "N_2"}}
	assert.True(t, s.includes("N_2"))
	assert.False(t, s.includes("N_3"))
}
