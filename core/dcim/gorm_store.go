package dcim

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type identified interface {
	GetID() uint
	SetID(uint)
}

// GormStore implements Store on a gorm database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store on db. The dcim tables must be migrated.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func first[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var out T
	err := db.WithContext(ctx).Where(query, args...).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// upsert updates the row matching query with every column of obj except omit, or inserts obj.
func upsert[T any, PT interface {
	*T
	identified
}](ctx context.Context, db *gorm.DB, obj PT, omit []string, query string, args ...any) error {
	var existing T
	err := db.WithContext(ctx).Where(query, args...).First(PT(&existing)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.WithContext(ctx).Create(obj).Error
	}
	if err != nil {
		return err
	}
	obj.SetID(PT(&existing).GetID())
	omit = append([]string{"id", "created_at"}, omit...)
	return db.WithContext(ctx).Model(obj).Select("*").Omit(omit...).Updates(obj).Error
}

func (s *GormStore) FindSite(ctx context.Context, name string) (*Site, error) {
	return first[Site](ctx, s.db, "name = ?", name)
}

func (s *GormStore) GetSite(ctx context.Context, id uint) (*Site, error) {
	return first[Site](ctx, s.db, "id = ?", id)
}

func (s *GormStore) UpsertSite(ctx context.Context, site *Site) error {
	if site.Slug == "" {
		site.Slug = Slugify(site.Name)
	}
	if err := upsert(ctx, s.db, site, []string{"custom_fields"}, "name = ?", site.Name); err != nil {
		return fmt.Errorf("failed to upsert site %s: %w", site.Name, err)
	}
	return nil
}

func (s *GormStore) EnsureManufacturer(ctx context.Context, name string) (*Manufacturer, error) {
	m := Manufacturer{}
	err := s.db.WithContext(ctx).Where(Manufacturer{Name: name}).Attrs(Manufacturer{Slug: Slugify(name)}).FirstOrCreate(&m).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure manufacturer %s: %w", name, err)
	}
	return &m, nil
}

func (s *GormStore) FindDeviceType(ctx context.Context, manufacturer, model string) (*DeviceType, error) {
	var dt DeviceType
	err := s.db.WithContext(ctx).
		Joins("JOIN dcim_manufacturers m ON m.id = dcim_device_types.manufacturer_id").
		Where("m.name = ? AND dcim_device_types.model = ?", manufacturer, model).
		First(&dt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dt, nil
}

func (s *GormStore) EnsureDeviceType(ctx context.Context, manufacturerID uint, model, slug string) (*DeviceType, error) {
	if slug == "" {
		slug = Slugify(model)
	}
	dt := DeviceType{}
	err := s.db.WithContext(ctx).
		Where(DeviceType{ManufacturerID: manufacturerID, ModelName: model}).
		Attrs(DeviceType{Slug: slug}).
		FirstOrCreate(&dt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure device type %s: %w", model, err)
	}
	return &dt, nil
}

func (s *GormStore) EnsureDeviceRole(ctx context.Context, name string) (*DeviceRole, error) {
	r := DeviceRole{}
	err := s.db.WithContext(ctx).
		Where(DeviceRole{Name: name}).
		Attrs(DeviceRole{Slug: Slugify(name), Color: "2196f3"}).
		FirstOrCreate(&r).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure device role %s: %w", name, err)
	}
	return &r, nil
}

func (s *GormStore) FindDevice(ctx context.Context, serial string) (*Device, error) {
	return first[Device](ctx, s.db, "serial = ?", serial)
}

func (s *GormStore) DescribeDevice(ctx context.Context, serial string) (*DeviceView, error) {
	dev, err := s.FindDevice(ctx, serial)
	if err != nil {
		return nil, err
	}
	var names struct {
		ModelName    string
		Manufacturer string
		RoleName     string
		SiteName     string
	}
	err = s.db.WithContext(ctx).Table("dcim_devices d").
		Select("t.model AS model_name, m.name AS manufacturer, r.name AS role_name, st.name AS site_name").
		Joins("LEFT JOIN dcim_device_types t ON t.id = d.device_type_id").
		Joins("LEFT JOIN dcim_manufacturers m ON m.id = t.manufacturer_id").
		Joins("LEFT JOIN dcim_device_roles r ON r.id = d.role_id").
		Joins("LEFT JOIN dcim_sites st ON st.id = d.site_id").
		Where("d.id = ?", dev.ID).
		Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to describe device %s: %w", serial, err)
	}
	return &DeviceView{
		Device:       *dev,
		ModelName:    names.ModelName,
		Manufacturer: names.Manufacturer,
		RoleName:     names.RoleName,
		SiteName:     names.SiteName,
	}, nil
}

func (s *GormStore) UpsertDevice(ctx context.Context, device *Device) error {
	if err := upsert(ctx, s.db, device, []string{"primary_ip4_id", "custom_fields"}, "serial = ?", device.Serial); err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", device.Serial, err)
	}
	return nil
}

func (s *GormStore) SetPrimaryIP(ctx context.Context, deviceID, ipID uint) error {
	err := s.db.WithContext(ctx).Model(&Device{}).Where("id = ?", deviceID).Update("primary_ip4_id", ipID).Error
	if err != nil {
		return fmt.Errorf("failed to set primary ip of device %d: %w", deviceID, err)
	}
	return nil
}

func (s *GormStore) EnsureVLANGroup(ctx context.Context, name string, siteID uint) (*VLANGroup, error) {
	g := VLANGroup{}
	err := s.db.WithContext(ctx).
		Where(VLANGroup{Name: name}).
		Attrs(VLANGroup{Slug: Slugify(name), SiteID: siteID}).
		FirstOrCreate(&g).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure vlan group %s: %w", name, err)
	}
	return &g, nil
}

func (s *GormStore) FindVLAN(ctx context.Context, group string, vid int) (*VLAN, error) {
	var v VLAN
	err := s.db.WithContext(ctx).
		Joins("JOIN ipam_vlan_groups g ON g.id = ipam_vlans.group_id").
		Where("g.name = ? AND ipam_vlans.vid = ?", group, vid).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *GormStore) GetVLAN(ctx context.Context, id uint) (*VLAN, error) {
	return first[VLAN](ctx, s.db, "id = ?", id)
}

func (s *GormStore) UpsertVLAN(ctx context.Context, vlan *VLAN) error {
	if err := upsert(ctx, s.db, vlan, nil, "group_id = ? AND vid = ?", vlan.GroupID, vlan.VID); err != nil {
		return fmt.Errorf("failed to upsert vlan %d: %w", vlan.VID, err)
	}
	return nil
}

func (s *GormStore) FindPrefix(ctx context.Context, cidr string) (*Prefix, error) {
	return first[Prefix](ctx, s.db, "prefix = ?", cidr)
}

func (s *GormStore) UpsertPrefix(ctx context.Context, prefix *Prefix) error {
	if err := upsert(ctx, s.db, prefix, nil, "prefix = ?", prefix.Prefix); err != nil {
		return fmt.Errorf("failed to upsert prefix %s: %w", prefix.Prefix, err)
	}
	return nil
}

func (s *GormStore) FindInterface(ctx context.Context, deviceID uint, name string) (*Interface, error) {
	return first[Interface](ctx, s.db, "device_id = ? AND name = ?", deviceID, name)
}

func (s *GormStore) UpsertInterface(ctx context.Context, iface *Interface) error {
	if err := upsert(ctx, s.db, iface, nil, "device_id = ? AND name = ?", iface.DeviceID, iface.Name); err != nil {
		return fmt.Errorf("failed to upsert interface %s: %w", iface.Name, err)
	}
	return nil
}

func (s *GormStore) FindIPAddress(ctx context.Context, address string) (*IPAddress, error) {
	return first[IPAddress](ctx, s.db, "address = ?", address)
}

func (s *GormStore) UpsertIPAddress(ctx context.Context, ip *IPAddress) error {
	if err := upsert(ctx, s.db, ip, nil, "address = ?", ip.Address); err != nil {
		return fmt.Errorf("failed to upsert ip address %s: %w", ip.Address, err)
	}
	return nil
}

func (s *GormStore) FindWirelessLAN(ctx context.Context, deviceID uint, number int) (*WirelessLAN, error) {
	return first[WirelessLAN](ctx, s.db, "device_id = ? AND number = ?", deviceID, number)
}

func (s *GormStore) UpsertWirelessLAN(ctx context.Context, wlan *WirelessLAN) error {
	if err := upsert(ctx, s.db, wlan, nil, "device_id = ? AND number = ?", wlan.DeviceID, wlan.Number); err != nil {
		return fmt.Errorf("failed to upsert ssid %s: %w", wlan.SSID, err)
	}
	return nil
}

func (s *GormStore) TagObject(ctx context.Context, kind ObjectKind, id uint, tags []string) error {
	for _, name := range tags {
		tag := Tag{}
		err := s.db.WithContext(ctx).Where(Tag{Name: name}).Attrs(Tag{Slug: Slugify(name)}).FirstOrCreate(&tag).Error
		if err != nil {
			return fmt.Errorf("failed to ensure tag %s: %w", name, err)
		}
		item := TaggedItem{TagID: tag.ID, ObjectType: kind, ObjectID: id}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
			return fmt.Errorf("failed to tag %s %d: %w", kind, id, err)
		}
	}
	return nil
}

func (s *GormStore) SetCustomFields(ctx context.Context, kind ObjectKind, id uint, fields map[string]any) error {
	switch kind {
	case KindSite:
		return mergeCustomFields[Site](ctx, s.db, id, fields, func(o *Site) *map[string]any {
			return (*map[string]any)(&o.CustomFields)
		})
	case KindDevice:
		return mergeCustomFields[Device](ctx, s.db, id, fields, func(o *Device) *map[string]any {
			return (*map[string]any)(&o.CustomFields)
		})
	default:
		return fmt.Errorf("%s objects have no custom fields", kind)
	}
}

func mergeCustomFields[T any](ctx context.Context, db *gorm.DB, id uint, fields map[string]any, get func(*T) *map[string]any) error {
	var obj T
	if err := db.WithContext(ctx).First(&obj, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	cf := get(&obj)
	if *cf == nil {
		*cf = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		(*cf)[k] = v
	}
	return db.WithContext(ctx).Model(&obj).Update("custom_fields", datatypes.JSONMap(*cf)).Error
}
