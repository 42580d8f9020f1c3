// Package history persists a local ledger of candidate lifecycle events.
//
// The shared manifest repository is the source of truth for coordination; the
// ledger only records what this coordinator observed and did, so operators can
// answer "what happened to 1.2.3.4-rc2" without spelunking through git logs.
// The default implementation is SQLite with embedded migrations.
package history
