// Package dcim is the destination source-of-truth store.
//
// It models the subset of a DCIM/IPAM datastore the sync writes to: sites, devices
// with their types and roles, VLAN groups and VLANs, prefixes, interfaces, IP
// addresses, SSIDs and tags. The Store interface is what the engine depends on;
// GormStore implements it on MySQL or SQLite.
//
// Every upsert is keyed by the object's natural key, so applying the same change
// twice is a no-op.
package dcim
