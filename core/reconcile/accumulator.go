package reconcile

import (
	"sort"

	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
)

// accumulator collects the statistics and synced object ids of one run.
// It is owned by a single runner and not safe for concurrent use.
type accumulator struct {
	organizations   int
	networks        int
	devices         int
	vlans           int
	prefixes        int
	ssids           int
	updatedPrefixes int
	staged          int

	deleted map[dcim.ObjectKind]int
	synced  map[dcim.ObjectKind]map[uint]struct{}
	// incomplete marks sites whose objects of a kind could not all be synced.
	// Cleanup of that kind skips them.
	incomplete map[dcim.ObjectKind]map[uint]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		deleted:    make(map[dcim.ObjectKind]int),
		synced:     make(map[dcim.ObjectKind]map[uint]struct{}),
		incomplete: make(map[dcim.ObjectKind]map[uint]struct{}),
	}
}

func (a *accumulator) track(kind dcim.ObjectKind, id uint) {
	if id == 0 {
		return
	}
	addID(a.synced, kind, id)
}

func (a *accumulator) markIncomplete(kind dcim.ObjectKind, siteID uint) {
	if siteID == 0 {
		return
	}
	addID(a.incomplete, kind, siteID)
}

func (a *accumulator) isSynced(kind dcim.ObjectKind, id uint) bool {
	_, ok := a.synced[kind][id]
	return ok
}

// ids returns the synced ids of kind in ascending order.
func (a *accumulator) ids(kind dcim.ObjectKind) []uint {
	out := make([]uint, 0, len(a.synced[kind]))
	for id := range a.synced[kind] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// cleanupScope is the synced sites minus those incomplete for kind.
func (a *accumulator) cleanupScope(kind dcim.ObjectKind) []uint {
	var out []uint
	for _, id := range a.ids(dcim.KindSite) {
		if _, skip := a.incomplete[kind][id]; !skip {
			out = append(out, id)
		}
	}
	return out
}

// writeTo copies the counters onto the run record.
func (a *accumulator) writeTo(run *ledger.RunRecord) {
	run.OrganizationsSynced = a.organizations
	run.NetworksSynced = a.networks
	run.DevicesSynced = a.devices
	run.VLANsSynced = a.vlans
	run.PrefixesSynced = a.prefixes
	run.SSIDsSynced = a.ssids
	run.UpdatedPrefixes = a.updatedPrefixes
	run.DeletedSites = a.deleted[dcim.KindSite]
	run.DeletedDevices = a.deleted[dcim.KindDevice]
	run.DeletedVLANs = a.deleted[dcim.KindVLAN]
	run.DeletedPrefixes = a.deleted[dcim.KindPrefix]
}

func addID(m map[dcim.ObjectKind]map[uint]struct{}, kind dcim.ObjectKind, id uint) {
	set, ok := m[kind]
	if !ok {
		set = make(map[uint]struct{})
		m[kind] = set
	}
	set[id] = struct{}{}
}
