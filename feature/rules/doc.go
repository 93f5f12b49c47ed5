// Package rules exposes the site naming and prefix filter rules over HTTP.
//
// Rules are validated before they are stored; a rule whose pattern does not
// compile is rejected with 400. Preview endpoints evaluate sample names or
// prefixes against the stored rules, or against a single candidate rule,
// without touching any store.
//
// # HTTP Endpoints
//
//   - GET /rules/names, POST /rules/names : Lists or creates name rules.
//   - GET|PUT|DELETE /rules/names/:id : Reads, replaces or removes a name rule.
//   - POST /rules/names/preview : Resolves sample network names ({networks, rule}).
//   - GET /rules/prefixes, POST /rules/prefixes : Lists or creates prefix filter rules.
//   - GET|PUT|DELETE /rules/prefixes/:id : Reads, replaces or removes a prefix filter rule.
//   - POST /rules/prefixes/preview : Evaluates sample prefixes ({prefixes}).
//   - GET /rules/export : Exports every rule (?format=yaml for YAML).
//   - POST /rules/import : Upserts rules by name from a JSON or YAML document.
package rules
