package dcim

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

var kindTables = map[ObjectKind]string{
	KindSite:        "dcim_sites",
	KindDevice:      "dcim_devices",
	KindVLAN:        "ipam_vlans",
	KindPrefix:      "ipam_prefixes",
	KindInterface:   "dcim_interfaces",
	KindIPAddress:   "ipam_ip_addresses",
	KindWirelessLAN: "wireless_lans",
}

func (s *GormStore) ListManaged(ctx context.Context, kind ObjectKind, siteIDs []uint, tag string) ([]uint, error) {
	if len(siteIDs) == 0 {
		return nil, nil
	}

	q := s.db.WithContext(ctx).Table(kindTables[kind]+" AS o").
		Select("o.id").
		Joins("JOIN extras_tagged_items ti ON ti.object_id = o.id AND ti.object_type = ?", kind).
		Joins("JOIN extras_tags t ON t.id = ti.tag_id AND t.name = ?", tag)

	switch kind {
	case KindSite:
		q = q.Where("o.id IN ?", siteIDs)
	case KindDevice, KindVLAN, KindPrefix:
		q = q.Where("o.site_id IN ?", siteIDs)
	default:
		return nil, fmt.Errorf("cannot scope %s objects by site", kind)
	}

	var ids []uint
	if err := q.Order("o.id").Pluck("o.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list managed %s objects: %w", kind, err)
	}
	return ids, nil
}

func (s *GormStore) Delete(ctx context.Context, kind ObjectKind, ids []uint) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if _, ok := kindTables[kind]; !ok {
		return 0, fmt.Errorf("unknown object kind %q", kind)
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch kind {
		case KindDevice:
			deleted, err = deleteDevices(tx, ids)
		case KindVLAN:
			if err = tx.Model(&Prefix{}).Where("vlan_id IN ?", ids).Update("vlan_id", nil).Error; err != nil {
				return err
			}
			deleted, err = deleteRows(tx, &VLAN{}, kind, ids)
		case KindSite:
			deleted, err = deleteRows(tx, &Site{}, kind, ids)
		case KindPrefix:
			deleted, err = deleteRows(tx, &Prefix{}, kind, ids)
		case KindInterface:
			deleted, err = deleteRows(tx, &Interface{}, kind, ids)
		case KindIPAddress:
			deleted, err = deleteRows(tx, &IPAddress{}, kind, ids)
		case KindWirelessLAN:
			deleted, err = deleteRows(tx, &WirelessLAN{}, kind, ids)
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s objects: %w", kind, err)
	}
	return int(deleted), nil
}

func deleteRows(tx *gorm.DB, model any, kind ObjectKind, ids []uint) (int64, error) {
	if err := tx.Where("object_type = ? AND object_id IN ?", kind, ids).Delete(&TaggedItem{}).Error; err != nil {
		return 0, err
	}
	res := tx.Where("id IN ?", ids).Delete(model)
	return res.RowsAffected, res.Error
}

// deleteDevices removes devices with their interfaces, interface addresses and SSIDs.
func deleteDevices(tx *gorm.DB, ids []uint) (int64, error) {
	var ifaceIDs []uint
	if err := tx.Model(&Interface{}).Where("device_id IN ?", ids).Pluck("id", &ifaceIDs).Error; err != nil {
		return 0, err
	}
	if len(ifaceIDs) > 0 {
		var ipIDs []uint
		if err := tx.Model(&IPAddress{}).Where("interface_id IN ?", ifaceIDs).Pluck("id", &ipIDs).Error; err != nil {
			return 0, err
		}
		if len(ipIDs) > 0 {
			if _, err := deleteRows(tx, &IPAddress{}, KindIPAddress, ipIDs); err != nil {
				return 0, err
			}
		}
		if _, err := deleteRows(tx, &Interface{}, KindInterface, ifaceIDs); err != nil {
			return 0, err
		}
	}

	var wlanIDs []uint
	if err := tx.Model(&WirelessLAN{}).Where("device_id IN ?", ids).Pluck("id", &wlanIDs).Error; err != nil {
		return 0, err
	}
	if len(wlanIDs) > 0 {
		if _, err := deleteRows(tx, &WirelessLAN{}, KindWirelessLAN, wlanIDs); err != nil {
			return 0, err
		}
	}
	return deleteRows(tx, &Device{}, KindDevice, ids)
}
