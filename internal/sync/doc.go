// Package sync coordinates reconciliation between the local store and the
// remote backup folder.
//
// Overview
//
// The sync package owns everything that moves data across the network: the
// Coordinator (status, debounce, single-flight), the Reconciler (whole-store
// snapshot push/fetch), and the AttachmentSyncer (per-file binary mirror).
// The local store stays authoritative; the remote is a backup and a bridge
// between devices.
//
// Architecture
//
// One reconciliation run pushes the snapshot and then settles attachments:
//
//	Local store (SQLite)
//	     ├── inventory/stores/archive  → Snapshot (one JSON document)
//	     └── attachments               → files, one folder per item
//	                                         ↓
//	                                    Coordinator
//	                                         ↓
//	                                    remote.Client
//	                                    (Drive folder)
//
// The remote folder ends up holding one well-known snapshot file at the root
// plus a folder per item containing its photos.
//
// Triggering
//
// Three triggers share one entry point:
//
//   - SyncNow: manual, rejects with ErrSyncInFlight when a run is active
//   - QueueSync: debounced; every call restarts the quiet-period timer, so a
//     burst of edits collapses into a single run
//   - SyncOnOpen: startup/reconnect; silently skips when the remote is not
//     configured yet
//
// Status
//
// The Coordinator is the sole owner of sync status, last-sync time, and last
// error. Observers registered with Subscribe see every transition of the
// idle → syncing → (idle | error) state machine.
//
// Error Handling
//
// A failed run parks the coordinator in StatusError with the underlying
// message; the next trigger retries. Individual attachment failures never
// abort a run: they are logged, counted, and retried on the next run because
// the synced flag was never set.
package sync
