// Package rules resolves network names into site names and filters subnets.
//
// Name rules are evaluated in (priority, name) order against the start of the
// network name; the first match renders its template. Prefix filter rules are all
// evaluated and a subnet is kept only if none rejects it. Patterns use
// github.com/dlclark/regexp2 so every evaluation is bounded by a match timeout.
//
// A Set is an immutable compiled snapshot, built once per sync run with Load.
package rules
