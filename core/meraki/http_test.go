package meraki_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"meraki-sync/core/meraki"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) *meraki.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := meraki.NewHTTPClient(meraki.Config{
		APIKey:               "test-key",
		BaseURL:              srv.URL,
		TimeoutSeconds:       5,
		MaxRetries:           3,
		InitialBackoffMillis: 1,
		MaxBackoffSeconds:    1,
		PerPage:              2,
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_RequiresKey(t *testing.T) {
	_, err := meraki.NewHTTPClient(meraki.Config{}, nil)
	assert.Error(t, err)
}

func TestListOrganizations_SendsKeyAndFollowsPages(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Cisco-Meraki-API-Key"))
		if r.URL.Query().Get("startingAfter") == "" {
			w.Header().Set("Link", `<`+srvURL+`/organizations?perPage=2&startingAfter=2>; rel=next`)
			_, _ = w.Write([]byte(`[{"id":"1","name":"O1"},{"id":"2","name":"O2"}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":"3","name":"O3"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c, err := meraki.NewHTTPClient(meraki.Config{APIKey: "test-key", BaseURL: srv.URL, PerPage: 2}, zap.NewNop())
	require.NoError(t, err)

	orgs, err := c.ListOrganizations(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 3)
	assert.Equal(t, "O3", orgs[2].Name)
}

func TestRetriesOnTooManyRequests(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"errors":["Too many requests"]}`))
			return
		}
		_, _ = w.Write([]byte(`[{"serial":"Q2XX-1111-2222","model":"MX68","name":"edge"}]`))
	}))

	devices, err := c.ListDevices(context.Background(), "N1")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "MX", devices[0].ProductPrefix())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetriesExhaustedOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.ListDevices(context.Background(), "N1")
	require.Error(t, err)

	var apiErr *meraki.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["Invalid API key"]}`))
	}))

	_, err := c.ListNetworks(context.Background(), "O1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNotFoundIsEmptyForOptionalEndpoints(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	ctx := context.Background()

	vlans, err := c.ListVLANs(ctx, "N1")
	assert.NoError(t, err)
	assert.Empty(t, vlans)

	ports, err := c.ListSwitchPorts(ctx, "Q2SW")
	assert.NoError(t, err)
	assert.Empty(t, ports)

	ssids, err := c.ListSSIDs(ctx, "N1")
	assert.NoError(t, err)
	assert.Empty(t, ssids)

	fw, err := c.GetFirmwareInfo(ctx, "N1")
	assert.NoError(t, err)
	assert.Equal(t, "", fw.CurrentVersion("appliance"))

	// Required endpoints surface the 404
	_, err = c.GetOrganization(ctx, "missing")
	assert.True(t, errors.Is(err, meraki.ErrNotFound))
}

func TestListSubnets_DropsVLANsWithoutSubnet(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"10","name":"Data","subnet":"10.0.10.0/24","applianceIp":"10.0.10.1"},
			{"id":20,"name":"Voice","subnet":""}
		]`))
	}))

	subnets, err := c.ListSubnets(context.Background(), "N1")
	require.NoError(t, err)
	require.Len(t, subnets, 1)
	assert.Equal(t, meraki.Subnet{VLANID: 10, VLANName: "Data", CIDR: "10.0.10.0/24", ApplianceIP: "10.0.10.1"}, subnets[0])
}

func TestGetFirmwareInfo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/N1/firmwareUpgrades", r.URL.Path)
		_, _ = w.Write([]byte(`{"products":{"appliance":{"currentVersion":{"shortName":"MX 18.107"}}}}`))
	}))

	fw, err := c.GetFirmwareInfo(context.Background(), "N1")
	require.NoError(t, err)
	assert.Equal(t, "MX 18.107", fw.CurrentVersion("appliance"))
	assert.Equal(t, "", fw.CurrentVersion("switch"))
}
