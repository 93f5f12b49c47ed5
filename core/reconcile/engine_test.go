package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"meraki-sync/core/database"
	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
	"meraki-sync/core/meraki"
	"meraki-sync/core/meraki/mocks"
	"meraki-sync/core/reconcile"
	"meraki-sync/core/rules"
	"meraki-sync/core/settings"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	orgID     = "O1"
	networkID = "N_1"
	serial    = "Q2XX-1111-2222"
	siteName  = "Asia South - prod - Oil"
)

type fixture struct {
	client *mocks.Client
	store  *dcim.GormStore
	repo   *ledger.Repository
	engine *reconcile.Engine
}

type fixedSettings struct {
	snap settings.Settings
}

func (f fixedSettings) Snapshot(context.Context) (settings.Settings, error) {
	return f.snap, nil
}

func oilRule() []rules.NameRule {
	return []rules.NameRule{{
		Name:     "oil",
		Pattern:  `^asia-south-(.+)-oil$`,
		Template: "Asia South - {0} - Oil",
		Enabled:  true,
	}}
}

func newFixture(t *testing.T, row *settings.PluginSettings, names []rules.NameRule, prefixes []rules.PrefixFilterRule) *fixture {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	models := append(dcim.Models(), ledger.Models()...)
	require.NoError(t, database.Migrate(db, models...))

	if row == nil {
		row = &settings.PluginSettings{ProcessUnmatchedSites: true}
	}
	snap := settings.Snapshot(row, settings.Config{})

	loader := func(_ context.Context, opts rules.Options) (*rules.Set, error) {
		return rules.NewSet(names, prefixes, opts, nil), nil
	}

	f := &fixture{
		client: &mocks.Client{},
		store:  dcim.NewGormStore(db),
		repo:   ledger.NewRepository(db, zap.NewNop()),
	}
	f.engine = reconcile.NewEngine(f.client, f.store, f.repo, fixedSettings{snap: snap}, loader, zap.NewNop())
	return f
}

// expectOilNetwork registers the single-appliance organization used by most tests.
func (f *fixture) expectOilNetwork() {
	f.client.On("ListOrganizations", mock.Anything).
		Return([]meraki.Organization{{ID: orgID, Name: "Oil Corp"}}, nil)
	f.client.On("GetDeviceStatuses", mock.Anything, orgID).
		Return([]meraki.DeviceStatus{{Serial: serial, Status: "online"}}, nil)
	f.client.On("ListNetworks", mock.Anything, orgID).
		Return([]meraki.Network{{ID: networkID, OrganizationID: orgID, Name: "asia-south-prod-oil", TimeZone: "Asia/Kolkata"}}, nil)
	f.client.On("ListDevices", mock.Anything, networkID).
		Return([]meraki.Device{{
			Serial:      serial,
			Name:        "fw-01",
			Model:       "MX68",
			MAC:         "e0:55:3d:00:00:01",
			LanIP:       "10.1.0.2",
			Firmware:    "MX 18.107",
			ProductType: "appliance",
			NetworkID:   networkID,
		}}, nil)
	f.client.On("ListVLANs", mock.Anything, networkID).
		Return([]meraki.VLAN{{ID: 10, Name: "Data", Subnet: "10.1.10.0/24", ApplianceIP: "10.1.10.1"}}, nil)
	f.client.On("ListSubnets", mock.Anything, networkID).
		Return([]meraki.Subnet{{VLANID: 10, VLANName: "Data", CIDR: "10.1.10.0/24", ApplianceIP: "10.1.10.1"}}, nil)
}

func sessionItems(t *testing.T, repo *ledger.Repository, runID uint) *ledger.ReviewSession {
	t.Helper()
	s, err := repo.SessionForRun(context.Background(), runID)
	require.NoError(t, err)
	s, err = repo.GetSession(context.Background(), s.ID, true)
	require.NoError(t, err)
	return s
}

func TestEngine_AutoSyncCreatesSiteAndDevice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, ledger.RunSuccess, run.Status)
	assert.Equal(t, 1, run.OrganizationsSynced)
	assert.Equal(t, 1, run.NetworksSynced)
	assert.Equal(t, 1, run.DevicesSynced)
	assert.Equal(t, 1, run.VLANsSynced)
	assert.Equal(t, 1, run.PrefixesSynced)
	assert.Equal(t, 100, run.ProgressPercent)
	assert.Empty(t, run.Errors)
	assert.NotNil(t, run.FinishedAt)

	site, err := f.store.FindSite(ctx, siteName)
	require.NoError(t, err)
	assert.Equal(t, "Meraki Network - Oil Corp", site.Description)
	assert.Equal(t, networkID, site.CustomFields["network_id"])

	dev, err := f.store.DescribeDevice(ctx, serial)
	require.NoError(t, err)
	assert.Equal(t, "fw-01", dev.Name)
	assert.Equal(t, "MX68", dev.ModelName)
	assert.Equal(t, reconcile.Manufacturer, dev.Manufacturer)
	assert.Equal(t, "Security Appliance", dev.RoleName)
	assert.Equal(t, siteName, dev.SiteName)
	assert.Equal(t, dcim.StatusActive, dev.Status)
	assert.Contains(t, dev.Comments, "Firmware: MX 18.107")

	mgmt, err := f.store.FindIPAddress(ctx, "10.1.0.2/32")
	require.NoError(t, err)
	require.NotNil(t, dev.PrimaryIP4ID)
	assert.Equal(t, mgmt.ID, *dev.PrimaryIP4ID)

	svi, err := f.store.FindInterface(ctx, dev.ID, "VLAN 10")
	require.NoError(t, err)
	assert.Equal(t, "virtual", svi.Type)
	gw, err := f.store.FindIPAddress(ctx, "10.1.10.1/24")
	require.NoError(t, err)
	require.NotNil(t, gw.InterfaceID)
	assert.Equal(t, svi.ID, *gw.InterfaceID)

	vlan, err := f.store.FindVLAN(ctx, siteName+" VLANs", 10)
	require.NoError(t, err)
	prefix, err := f.store.FindPrefix(ctx, "10.1.10.0/24")
	require.NoError(t, err)
	require.NotNil(t, prefix.VLANID)
	assert.Equal(t, vlan.ID, *prefix.VLANID)

	s := sessionItems(t, f.repo, run.ID)
	assert.Equal(t, ledger.SessionApplied, s.Status)
	assert.Equal(t, s.ItemsTotal, s.ItemsApplied)
	for _, item := range s.Items {
		assert.Equal(t, ledger.ItemApplied, item.Status, item.ObjectIdentifier)
		assert.NotNil(t, item.ObjectID)
	}
}

func TestEngine_SecondAutoRunCreatesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()

	first, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	require.Equal(t, ledger.RunSuccess, first.Status)

	second, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, second.Status)
	assert.Equal(t, 1, second.DevicesSynced)
	assert.Zero(t, second.UpdatedPrefixes)

	s := sessionItems(t, f.repo, second.ID)
	require.NotEmpty(t, s.Items)
	for _, item := range s.Items {
		assert.Equal(t, ledger.ActionSkip, item.Action, "%s %s", item.ItemType, item.ObjectIdentifier)
	}
}

func TestEngine_ReviewRunsStageWithoutApplying(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()

	var sessions []uint
	for range 2 {
		run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeReview})
		require.NoError(t, err)
		assert.Equal(t, ledger.RunPendingReview, run.Status)
		assert.Equal(t, "Staged 4 change(s) for review", run.Message)

		s := sessionItems(t, f.repo, run.ID)
		assert.Equal(t, ledger.SessionPending, s.Status)
		// site, device, VLAN and prefix
		assert.Equal(t, 4, s.ItemsTotal)
		assert.Zero(t, s.ItemsApplied)
		for _, item := range s.Items {
			assert.Equal(t, ledger.ActionCreate, item.Action)
			assert.Equal(t, ledger.ItemPending, item.Status)
		}
		sessions = append(sessions, s.ID)
	}
	assert.NotEqual(t, sessions[0], sessions[1])

	_, err := f.store.FindSite(ctx, siteName)
	assert.ErrorIs(t, err, dcim.ErrNotFound)
	_, err = f.store.FindDevice(ctx, serial)
	assert.ErrorIs(t, err, dcim.ErrNotFound)
}

func TestEngine_DryRunIsNotApplicable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeDryRun})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunDryRun, run.Status)

	s := sessionItems(t, f.repo, run.ID)
	_, err = f.repo.ApproveAll(ctx, s.ID)
	require.NoError(t, err)

	_, err = f.engine.ApplyReview(ctx, s.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	_, err = f.store.FindSite(ctx, siteName)
	assert.ErrorIs(t, err, dcim.ErrNotFound)
}

func TestEngine_ApplyReviewUsesEditedData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeReview})
	require.NoError(t, err)
	s := sessionItems(t, f.repo, run.ID)

	var device *ledger.StagedChange
	for i := range s.Items {
		if s.Items[i].ItemType == ledger.ItemDevice {
			device = &s.Items[i]
		}
	}
	require.NotNil(t, device)

	p, err := device.Proposed()
	require.NoError(t, err)
	edited := p.(ledger.DevicePayload)
	edited.Name = "fw-renamed"
	raw, err := json.Marshal(edited)
	require.NoError(t, err)
	_, err = f.repo.Edit(ctx, s.ID, device.ID, raw)
	require.NoError(t, err)

	_, err = f.repo.ApproveAll(ctx, s.ID)
	require.NoError(t, err)

	applied, err := f.engine.ApplyReview(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.SessionApplied, applied.Status)
	assert.Equal(t, 4, applied.ItemsApplied)

	dev, err := f.store.FindDevice(ctx, serial)
	require.NoError(t, err)
	assert.Equal(t, "fw-renamed", dev.Name)

	change, err := f.repo.GetChange(ctx, s.ID, device.ID)
	require.NoError(t, err)
	proposed, err := change.Proposed()
	require.NoError(t, err)
	assert.Equal(t, "fw-01", proposed.(ledger.DevicePayload).Name)

	_, err = f.engine.ApplyReview(ctx, s.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestEngine_UnmatchedNetworksAreSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &settings.PluginSettings{ProcessUnmatchedSites: false}, []rules.NameRule{{
		Name:     "gas",
		Pattern:  `^gas-(.+)$`,
		Template: "Gas {0}",
		Enabled:  true,
	}}, nil)
	f.expectOilNetwork()

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)
	assert.Zero(t, run.NetworksSynced)
	assert.Zero(t, run.DevicesSynced)

	s := sessionItems(t, f.repo, run.ID)
	assert.Zero(t, s.ItemsTotal)
}

func TestEngine_PrefixFilterDropsSubnets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), []rules.PrefixFilterRule{{
		Name:         "no-data",
		Pattern:      `^10\.1\.10\.`,
		FilterType:   rules.FilterExclude,
		LengthFilter: rules.LengthNone,
		Enabled:      true,
	}})
	f.expectOilNetwork()

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeReview})
	require.NoError(t, err)
	assert.Zero(t, run.PrefixesSynced)

	s := sessionItems(t, f.repo, run.ID)
	for _, item := range s.Items {
		assert.NotEqual(t, ledger.ItemPrefix, item.ItemType)
	}
}

func TestEngine_CleanupIsScopedToSyncedSites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()

	first, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	require.Equal(t, ledger.RunSuccess, first.Status)

	synced, err := f.store.FindSite(ctx, siteName)
	require.NoError(t, err)
	other := &dcim.Site{Name: "Elsewhere"}
	require.NoError(t, f.store.UpsertSite(ctx, other))
	require.NoError(t, f.store.TagObject(ctx, dcim.KindSite, other.ID, []string{settings.DefaultTag}))

	mfr, err := f.store.EnsureManufacturer(ctx, reconcile.Manufacturer)
	require.NoError(t, err)
	dt, err := f.store.EnsureDeviceType(ctx, mfr.ID, "MS120", "ms120")
	require.NoError(t, err)
	role, err := f.store.EnsureDeviceRole(ctx, "Switch")
	require.NoError(t, err)

	stale := &dcim.Device{Name: "old-switch", Serial: "Q2XX-OLD", DeviceTypeID: dt.ID, RoleID: role.ID, SiteID: synced.ID}
	foreign := &dcim.Device{Name: "other-switch", Serial: "Q2XX-OTHER", DeviceTypeID: dt.ID, RoleID: role.ID, SiteID: other.ID}
	unmanaged := &dcim.Device{Name: "hand-made", Serial: "Q2XX-HAND", DeviceTypeID: dt.ID, RoleID: role.ID, SiteID: synced.ID}
	for _, d := range []*dcim.Device{stale, foreign, unmanaged} {
		require.NoError(t, f.store.UpsertDevice(ctx, d))
	}
	require.NoError(t, f.store.TagObject(ctx, dcim.KindDevice, stale.ID, []string{settings.DefaultTag}))
	require.NoError(t, f.store.TagObject(ctx, dcim.KindDevice, foreign.ID, []string{settings.DefaultTag}))

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)
	assert.Equal(t, 1, run.DeletedDevices)
	assert.Zero(t, run.DeletedSites)

	_, err = f.store.FindDevice(ctx, "Q2XX-OLD")
	assert.ErrorIs(t, err, dcim.ErrNotFound)
	_, err = f.store.FindDevice(ctx, "Q2XX-OTHER")
	assert.NoError(t, err)
	_, err = f.store.FindDevice(ctx, "Q2XX-HAND")
	assert.NoError(t, err)
	_, err = f.store.FindDevice(ctx, serial)
	assert.NoError(t, err)
	_, err = f.store.FindSite(ctx, "Elsewhere")
	assert.NoError(t, err)
}

func TestEngine_CleanupDisabledKeepsOrphans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()

	_, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	site, err := f.store.FindSite(ctx, siteName)
	require.NoError(t, err)

	mfr, err := f.store.EnsureManufacturer(ctx, reconcile.Manufacturer)
	require.NoError(t, err)
	dt, err := f.store.EnsureDeviceType(ctx, mfr.ID, "MS120", "ms120")
	require.NoError(t, err)
	role, err := f.store.EnsureDeviceRole(ctx, "Switch")
	require.NoError(t, err)
	stale := &dcim.Device{Name: "old-switch", Serial: "Q2XX-OLD", DeviceTypeID: dt.ID, RoleID: role.ID, SiteID: site.ID}
	require.NoError(t, f.store.UpsertDevice(ctx, stale))
	require.NoError(t, f.store.TagObject(ctx, dcim.KindDevice, stale.ID, []string{settings.DefaultTag}))

	comp := reconcile.AllComponents()
	comp.CleanupOrphaned = false
	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto, Components: &comp})
	require.NoError(t, err)
	assert.Zero(t, run.DeletedDevices)

	_, err = f.store.FindDevice(ctx, "Q2XX-OLD")
	assert.NoError(t, err)
}

func TestEngine_CancelBetweenOrganizations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)

	f.client.On("ListOrganizations", mock.Anything).
		Return([]meraki.Organization{{ID: "O1", Name: "First"}, {ID: "O2", Name: "Second"}}, nil)
	f.client.On("GetDeviceStatuses", mock.Anything, "O1").Return([]meraki.DeviceStatus{}, nil)
	f.client.On("ListNetworks", mock.Anything, "O1").
		Run(func(mock.Arguments) {
			runs, err := f.repo.ListRuns(ctx, 1)
			require.NoError(t, err)
			require.NoError(t, f.repo.RequestCancel(ctx, runs[0].ID))
		}).
		Return([]meraki.Network{}, nil)

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunFailed, run.Status)
	assert.Equal(t, "cancelled by user", run.Message)
	assert.Equal(t, 1, run.OrganizationsSynced)

	s := sessionItems(t, f.repo, run.ID)
	assert.Equal(t, ledger.SessionCancelled, s.Status)
	f.client.AssertNotCalled(t, "ListNetworks", mock.Anything, "O2")
}

func TestEngine_ContextCancelledBeforeStart(t *testing.T) {
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()

	ctx, cancel := context.WithCancel(context.Background())
	job, err := f.engine.Prepare(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	cancel()

	run, err := job.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.RunID(), run.ID)
	assert.Equal(t, ledger.RunFailed, run.Status)
	assert.Equal(t, "cancelled by user", run.Message)
	f.client.AssertNotCalled(t, "ListNetworks", mock.Anything, orgID)
}

func TestEngine_OrganizationListingFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.client.On("ListOrganizations", mock.Anything).Return(nil, errors.New("401 unauthorized"))

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
	require.NotNil(t, run)
	assert.Equal(t, ledger.RunFailed, run.Status)
	assert.NotEmpty(t, run.Errors)

	stored, err := f.repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.RunFailed, stored.Status)
}

func TestEngine_NetworkFailureYieldsPartial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.client.On("ListOrganizations", mock.Anything).
		Return([]meraki.Organization{{ID: orgID, Name: "Oil Corp"}}, nil)
	f.client.On("GetDeviceStatuses", mock.Anything, orgID).Return(nil, errors.New("timeout"))
	f.client.On("ListNetworks", mock.Anything, orgID).Return([]meraki.Network{
		{ID: networkID, Name: "asia-south-prod-oil"},
		{ID: "N_2", Name: "asia-south-dev-oil"},
	}, nil)
	f.client.On("ListDevices", mock.Anything, networkID).
		Return([]meraki.Device{{Serial: serial, Name: "fw-01", Model: "MX68", Firmware: "MX 18.107", Status: "dormant"}}, nil)
	f.client.On("ListVLANs", mock.Anything, networkID).Return([]meraki.VLAN{}, nil)
	f.client.On("ListSubnets", mock.Anything, networkID).Return([]meraki.Subnet{}, nil)
	f.client.On("ListDevices", mock.Anything, "N_2").Return(nil, errors.New("500 internal error"))

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunPartial, run.Status)
	assert.Equal(t, 1, run.DevicesSynced)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "asia-south-dev-oil")

	dev, err := f.store.FindDevice(ctx, serial)
	require.NoError(t, err)
	assert.Equal(t, dcim.StatusOffline, dev.Status)
}

func TestEngine_PrefetchWithWorkers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &settings.PluginSettings{
		ProcessUnmatchedSites: true,
		EnableMultithreading:  true,
		MaxWorkerThreads:      3,
	}, nil, nil)

	networks := []meraki.Network{{ID: "N_a", Name: "alpha"}, {ID: "N_b", Name: "beta"}, {ID: "N_c", Name: "gamma"}}
	f.client.On("ListOrganizations", mock.Anything).Return([]meraki.Organization{{ID: orgID, Name: "Oil Corp"}}, nil)
	f.client.On("GetDeviceStatuses", mock.Anything, orgID).Return([]meraki.DeviceStatus{}, nil)
	f.client.On("ListNetworks", mock.Anything, orgID).Return(networks, nil)
	for i, n := range networks {
		f.client.On("ListDevices", mock.Anything, n.ID).
			Return([]meraki.Device{{Serial: "Q2MR-000" + string(rune('1'+i)), Model: "MV12", Firmware: "4.18"}}, nil)
		f.client.On("ListVLANs", mock.Anything, n.ID).Return([]meraki.VLAN{}, nil)
		f.client.On("ListSubnets", mock.Anything, n.ID).Return([]meraki.Subnet{}, nil)
	}

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)
	assert.Equal(t, 3, run.NetworksSynced)
	assert.Equal(t, 3, run.DevicesSynced)

	for _, n := range networks {
		site, err := f.store.FindSite(ctx, n.Name)
		require.NoError(t, err)
		assert.Equal(t, n.ID, site.CustomFields["network_id"])
	}
	dev, err := f.store.DescribeDevice(ctx, "Q2MR-0001")
	require.NoError(t, err)
	assert.Equal(t, "Camera", dev.RoleName)
	assert.Equal(t, "Q2MR-0001", dev.Name)
}

func TestEngine_ScopedToOrganizationAndNetworks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, oilRule(), nil)
	f.expectOilNetwork()
	f.client.On("GetOrganization", mock.Anything, orgID).Return(&meraki.Organization{ID: orgID, Name: "Oil Corp"}, nil)

	run, err := f.engine.Run(ctx, reconcile.Request{
		Mode:  ledger.ModeAuto,
		Scope: reconcile.Scope{OrganizationID: orgID, NetworkIDs: []string{"N_other"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)
	assert.Zero(t, run.NetworksSynced)
	assert.Equal(t, []string{"N_other"}, []string(run.NetworkIDs))

	f.client.AssertNotCalled(t, "ListOrganizations", mock.Anything)
	f.client.AssertNotCalled(t, "ListDevices", mock.Anything, networkID)
}

func TestEngine_RejectsUnknownMode(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	_, err := f.engine.Run(context.Background(), reconcile.Request{Mode: "eventually"})
	assert.Error(t, err)
}

// expectSingleNetwork registers one organization holding one network with the given devices.
func (f *fixture) expectSingleNetwork(name string, devices []meraki.Device, statuses []meraki.DeviceStatus) {
	f.client.On("ListOrganizations", mock.Anything).
		Return([]meraki.Organization{{ID: orgID, Name: "Oil Corp"}}, nil)
	f.client.On("GetDeviceStatuses", mock.Anything, orgID).Return(statuses, nil)
	f.client.On("ListNetworks", mock.Anything, orgID).
		Return([]meraki.Network{{ID: networkID, OrganizationID: orgID, Name: name}}, nil)
	f.client.On("ListDevices", mock.Anything, networkID).Return(devices, nil)
	f.client.On("ListVLANs", mock.Anything, networkID).Return([]meraki.VLAN{}, nil)
	f.client.On("ListSubnets", mock.Anything, networkID).Return([]meraki.Subnet{}, nil)
}

func TestEngine_ContextCancelledDuringLastOrganization(t *testing.T) {
	f := newFixture(t, nil, oilRule(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.client.On("ListOrganizations", mock.Anything).
		Return([]meraki.Organization{{ID: orgID, Name: "Oil Corp"}}, nil)
	f.client.On("GetDeviceStatuses", mock.Anything, orgID).Return([]meraki.DeviceStatus{}, nil)
	f.client.On("ListNetworks", mock.Anything, orgID).
		Return([]meraki.Network{{ID: networkID, OrganizationID: orgID, Name: "asia-south-prod-oil"}}, nil)
	f.client.On("ListDevices", mock.Anything, networkID).
		Run(func(mock.Arguments) { cancel() }).
		Return([]meraki.Device{{Serial: serial, Name: "fw-01", Model: "MX68", Firmware: "MX 18.107"}}, nil)
	f.client.On("ListVLANs", mock.Anything, networkID).Return([]meraki.VLAN{}, nil).Maybe()
	f.client.On("ListSubnets", mock.Anything, networkID).Return([]meraki.Subnet{}, nil).Maybe()

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunFailed, run.Status)
	assert.Equal(t, "cancelled by user", run.Message)
	assert.Empty(t, run.Errors)

	stored, err := f.repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled by user", stored.Message)
	assert.Empty(t, stored.Errors)

	s := sessionItems(t, f.repo, run.ID)
	assert.Equal(t, ledger.SessionCancelled, s.Status)
}

func TestEngine_NetworkWithoutDevicesIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil, nil)
	f.client.On("ListOrganizations", mock.Anything).
		Return([]meraki.Organization{{ID: orgID, Name: "Oil Corp"}}, nil)
	f.client.On("GetDeviceStatuses", mock.Anything, orgID).Return([]meraki.DeviceStatus{}, nil)
	f.client.On("ListNetworks", mock.Anything, orgID).
		Return([]meraki.Network{{ID: networkID, OrganizationID: orgID, Name: "empty-branch"}}, nil)
	f.client.On("ListDevices", mock.Anything, networkID).Return([]meraki.Device{}, nil)

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)
	assert.Zero(t, run.NetworksSynced)
	assert.Zero(t, run.VLANsSynced)
	assert.Zero(t, run.PrefixesSynced)

	_, err = f.store.FindSite(ctx, "empty-branch")
	assert.ErrorIs(t, err, dcim.ErrNotFound)

	s := sessionItems(t, f.repo, run.ID)
	assert.Empty(t, s.Items)
	f.client.AssertNotCalled(t, "ListVLANs", mock.Anything, networkID)
	f.client.AssertNotCalled(t, "ListSubnets", mock.Anything, networkID)
}

func TestEngine_SwitchPortsBecomeInterfaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil, nil)
	f.expectSingleNetwork("branch-sw", []meraki.Device{{
		Serial: "Q2MS-0001", Name: "sw-01", Model: "MS120-8", Firmware: "MS 15.21",
	}}, nil)
	f.client.On("ListSwitchPorts", mock.Anything, "Q2MS-0001").Return([]meraki.SwitchPort{
		{PortID: "1", Name: "desk", Enabled: true, Type: "access", VLAN: 10, PoEEnabled: true},
		{PortID: "2", Name: "uplink", Enabled: true, Type: "trunk", VLAN: 1, AllowedVLANs: "all"},
		{PortID: "3", Name: "ap", Enabled: false, Type: "trunk", VLAN: 1, AllowedVLANs: "1,3-4"},
	}, nil)

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)

	dev, err := f.store.FindDevice(ctx, "Q2MS-0001")
	require.NoError(t, err)

	access, err := f.store.FindInterface(ctx, dev.ID, "Port 1")
	require.NoError(t, err)
	assert.Equal(t, "access", access.Mode)
	assert.Equal(t, 10, access.UntaggedVID)
	assert.Equal(t, "desk", access.Description)
	assert.True(t, access.PoE)

	all, err := f.store.FindInterface(ctx, dev.ID, "Port 2")
	require.NoError(t, err)
	assert.Equal(t, "tagged-all", all.Mode)
	assert.Empty(t, all.TaggedVIDs)

	tagged, err := f.store.FindInterface(ctx, dev.ID, "Port 3")
	require.NoError(t, err)
	assert.Equal(t, "tagged", tagged.Mode)
	assert.Equal(t, []int{1, 3, 4}, []int(tagged.TaggedVIDs))
	assert.False(t, tagged.Enabled)
}

func TestEngine_AccessPointSSIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil, nil)
	f.expectSingleNetwork("branch-wifi", []meraki.Device{{
		Serial: "Q2MR-0001", Name: "ap-01", Model: "MR46", Firmware: "MR 29.7",
	}}, nil)
	f.client.On("ListSSIDs", mock.Anything, networkID).Return([]meraki.SSID{
		{Number: 0, Name: "Corp", Enabled: true, AuthMode: "8021x-radius", EncryptionMode: "wpa-eap", Visible: true},
		{Number: 1, Name: "Guest", Enabled: true, AuthMode: "psk", EncryptionMode: "wpa", Visible: true},
		{Number: 2, Name: "Unconfigured SSID 3", Enabled: false},
	}, nil)

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)
	assert.Equal(t, 2, run.SSIDsSynced)

	dev, err := f.store.FindDevice(ctx, "Q2MR-0001")
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"Corp", "Guest"}, dev.CustomFields["ssids"])

	corp, err := f.store.FindWirelessLAN(ctx, dev.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Corp", corp.SSID)
	assert.Equal(t, "8021x-radius", corp.AuthMode)

	_, err = f.store.FindWirelessLAN(ctx, dev.ID, 2)
	assert.ErrorIs(t, err, dcim.ErrNotFound)
	f.client.AssertNumberOfCalls(t, "ListSSIDs", 1)
}

func TestEngine_ApplianceWANIsPrimary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil, nil)
	f.expectSingleNetwork("branch-fw", []meraki.Device{{
		Serial: serial, Name: "fw-01", Model: "MX68", Firmware: "MX 18.107", LanIP: "10.1.0.2",
	}}, []meraki.DeviceStatus{{Serial: serial, Status: "online", WAN1IP: "203.0.113.5"}})

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)

	dev, err := f.store.FindDevice(ctx, serial)
	require.NoError(t, err)

	wan, err := f.store.FindInterface(ctx, dev.ID, reconcile.WANInterface)
	require.NoError(t, err)
	assert.Equal(t, "WAN 1", wan.Description)

	wanIP, err := f.store.FindIPAddress(ctx, "203.0.113.5/32")
	require.NoError(t, err)
	require.NotNil(t, wanIP.InterfaceID)
	assert.Equal(t, wan.ID, *wanIP.InterfaceID)
	require.NotNil(t, dev.PrimaryIP4ID)
	assert.Equal(t, wanIP.ID, *dev.PrimaryIP4ID)

	mgmtIP, err := f.store.FindIPAddress(ctx, "10.1.0.2/32")
	require.NoError(t, err)
	assert.NotEqual(t, mgmtIP.ID, *dev.PrimaryIP4ID)
}

func TestEngine_FirmwareFromStatusesSkipsFirmwareLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil, nil)
	f.expectSingleNetwork("branch-cam", []meraki.Device{{Serial: "Q2MV-0001", Model: "MV12"}},
		[]meraki.DeviceStatus{{Serial: "Q2MV-0001", Status: "online", Firmware: "camera-4-18"}})

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)

	dev, err := f.store.DescribeDevice(ctx, "Q2MV-0001")
	require.NoError(t, err)
	assert.Contains(t, dev.Comments, "Firmware: camera-4-18")
	f.client.AssertNotCalled(t, "GetFirmwareInfo", mock.Anything, networkID)
}

func TestEngine_FirmwareLookupWhenNothingElseHasIt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil, nil)
	f.expectSingleNetwork("branch-cam", []meraki.Device{
		{Serial: "Q2MV-0001", Model: "MV12"},
		{Serial: "Q2MV-0002", Model: "MV12"},
	}, nil)
	f.client.On("GetFirmwareInfo", mock.Anything, networkID).Return(&meraki.FirmwareInfo{
		Products: map[string]meraki.ProductFirmware{
			"camera": {CurrentVersion: meraki.FirmwareVersion{ShortName: "MV 4.18"}},
		},
	}, nil)

	run, err := f.engine.Run(ctx, reconcile.Request{Mode: ledger.ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, ledger.RunSuccess, run.Status)

	for _, s := range []string{"Q2MV-0001", "Q2MV-0002"} {
		dev, err := f.store.DescribeDevice(ctx, s)
		require.NoError(t, err)
		assert.Contains(t, dev.Comments, "Firmware: MV 4.18")
	}
	f.client.AssertNumberOfCalls(t, "GetFirmwareInfo", 1)
}
