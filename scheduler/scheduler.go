package scheduler

// Package scheduler provides scheduled job management for the ticker
// calendar backend. It handles:
// - Daily refresh of stale stock metadata and event data
// - Per-ticker error isolation so one failing symbol cannot block the run
//
// The refresh job is implemented in jobs.go
