// Package daemon runs scrounger's background host.
//
// Overview
//
// The daemon keeps the inventory current without the operator touching the
// CLI. It does three things:
//
//  1. Watches the capture folder for photos exported from a phone and
//     attaches each one to the item its filename names
//  2. Queues a debounced sync after every store mutation
//  3. Runs a periodic full sync as a safety net
//
// Capture Folder
//
// The capture folder is a drop target. A file named
//
//	<itemID>__<filename>
//
// (for example tok-7f3a2b__label_collar.jpg) is read, attached to item
// tok-7f3a2b as label_collar.jpg, and deleted. Files are given a settle
// interval after their last write before ingestion so half-copied exports
// are never read. Captures naming an unknown item are left in the folder
// with a warning so nothing is lost to a typo.
//
// Error Handling
//
// The daemon is resilient by default. Sync failures, unreadable captures,
// and watcher errors are logged and retried on the next trigger; only a
// broken capture directory aborts Start. Stop cancels the watch context,
// closes the watcher, and waits for in-flight ingestion to finish.
package daemon
