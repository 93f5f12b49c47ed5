package checks

import (
	"context"
	"time"

	"meraki-sync/core/meraki"
)

// InventoryReport describes the reachability of the Meraki API.
type InventoryReport struct {
	Reachable     bool    `json:"reachable"`
	Organizations int     `json:"organizations"`
	LatencyMillis float64 `json:"latency_ms"`
	Error         string  `json:"error,omitempty"`
}

// CheckInventory lists the organizations visible to the API key.
func CheckInventory(ctx context.Context, client meraki.Client) *InventoryReport {
	start := time.Now()
	orgs, err := client.ListOrganizations(ctx)
	report := &InventoryReport{LatencyMillis: float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Reachable = true
	report.Organizations = len(orgs)
	return report
}
