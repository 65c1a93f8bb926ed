// Package aggregates implements the fleet workflow aggregates on top of the
// table repos in internal/data/repos.
//
// Each write method owns one transaction: the status precondition, the row
// locks and every dependent write commit together or not at all. Ledger
// recording, alerts and events happen after commit in internal/services.
package aggregates
