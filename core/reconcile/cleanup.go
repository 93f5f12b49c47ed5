package reconcile

import (
	"context"

	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
	"meraki-sync/core/settings"
)

type cleanupStep struct {
	kind     dcim.ObjectKind
	category settings.Category
	enabled  bool
}

// cleanupOrphans deletes managed objects of the synced sites that this run did not
// sync. Prefixes go first, then VLANs, devices and finally sites. A kind whose
// component is disabled is left alone, as are sites where that kind failed to sync.
func (r *runner) cleanupOrphans(ctx context.Context) {
	if len(r.acc.ids(dcim.KindSite)) == 0 {
		r.progress(ledger.LevelInfo, "Skipping orphan cleanup: no sites synced")
		return
	}

	steps := []cleanupStep{
		{kind: dcim.KindPrefix, category: settings.CategoryPrefix, enabled: r.comp.Prefixes},
		{kind: dcim.KindVLAN, category: settings.CategoryVLAN, enabled: r.comp.VLANs},
		{kind: dcim.KindDevice, category: settings.CategoryDevice, enabled: r.comp.Devices},
		{kind: dcim.KindSite, category: settings.CategorySite, enabled: r.comp.Sites},
	}
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		scope := r.acc.cleanupScope(step.kind)
		if len(scope) == 0 {
			continue
		}
		managed, err := r.store.ListManaged(ctx, step.kind, scope, r.settings.ManagedTag(step.category))
		if err != nil {
			r.fail("Failed to list managed %s objects: %v", step.kind, err)
			continue
		}
		var orphans []uint
		for _, id := range managed {
			if !r.acc.isSynced(step.kind, id) {
				orphans = append(orphans, id)
			}
		}
		if len(orphans) == 0 {
			continue
		}
		n, err := r.store.Delete(ctx, step.kind, orphans)
		if err != nil {
			r.fail("Failed to delete orphaned %s objects: %v", step.kind, err)
			continue
		}
		r.acc.deleted[step.kind] += n
		r.progress(ledger.LevelInfo, "Deleted %d orphaned %s object(s)", n, step.kind)
	}
}
