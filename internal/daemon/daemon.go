package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
	"github.com/vanastassiou/scrounger-sub002/internal/store"
	scsync "github.com/vanastassiou/scrounger-sub002/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// SettleInterval is how long a capture file must sit unchanged before
	// it is ingested. Phone exports land in chunks; reading too early
	// attaches half a photo.
	SettleInterval time.Duration

	// AutoSyncInterval runs a full sync on a timer, independent of edits.
	// Zero disables the timer; debounced edit-driven syncs still fire.
	AutoSyncInterval time.Duration

	// Logger for daemon activity. Defaults to stderr.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults for daemon operation.
func DefaultConfig() *Config {
	return &Config{
		SettleInterval:   500 * time.Millisecond,
		AutoSyncInterval: 15 * time.Minute,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon is the long-running background host. It watches the capture folder
// for photos exported from the operator's phone, attaches each one to the
// item its filename names, and keeps the remote folder in step through the
// sync coordinator.
type Daemon struct {
	store      *store.Store
	coord      *scsync.Coordinator
	captureDir string
	config     *Config

	watcher *fsnotify.Watcher

	// pending maps capture paths to the time of their last write event.
	// A path is ingested once it has sat quiet for SettleInterval.
	pending   map[string]time.Time
	pendingMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon over an open store and coordinator. The capture
// directory is created on Start if it does not exist.
func New(st *store.Store, coord *scsync.Coordinator, captureDir string, config *Config) (*Daemon, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if coord == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if captureDir == "" {
		return nil, fmt.Errorf("capture directory cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.SettleInterval <= 0 {
		config.SettleInterval = 500 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		store:      st,
		coord:      coord,
		captureDir: captureDir,
		config:     config,
		watcher:    watcher,
		pending:    make(map[string]time.Time),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start begins watching and syncing. It blocks until ctx is cancelled or
// Stop is called from another goroutine.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	// Every store mutation from here on queues a debounced sync.
	d.store.OnChange(d.coord.QueueSync)

	// Catch up with the remote before settling into event-driven mode.
	// Failure is not fatal: the store works offline and the next trigger
	// retries.
	if err := d.coord.SyncOnOpen(d.ctx); err != nil {
		d.config.Logger.Printf("Warning: sync on open failed: %v", err)
	}

	if err := os.MkdirAll(d.captureDir, 0755); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}
	if err := d.watcher.Add(d.captureDir); err != nil {
		return fmt.Errorf("failed to watch capture directory: %w", err)
	}
	d.config.Logger.Printf("Watching captures in %s", d.captureDir)

	// Files already sitting in the folder go through the same settle
	// queue as fresh drops.
	if err := d.sweepExisting(); err != nil {
		d.config.Logger.Printf("Warning: %v", err)
	}

	d.wg.Add(2)
	go d.watchCaptureEvents()
	go d.processPendingCaptures()

	if d.config.AutoSyncInterval > 0 {
		d.wg.Add(1)
		go d.autoSync()
	}

	d.config.Logger.Println("Daemon started")

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon and waits for in-flight work.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Warning: error closing watcher: %v", err)
	}
	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// sweepExisting queues captures that were dropped while the daemon was not
// running.
func (d *Daemon) sweepExisting() error {
	entries, err := os.ReadDir(d.captureDir)
	if err != nil {
		return fmt.Errorf("failed to sweep capture directory: %w", err)
	}

	queued := 0
	for _, entry := range entries {
		if entry.IsDir() || !isCaptureFile(entry.Name()) {
			continue
		}
		d.queueCapture(filepath.Join(d.captureDir, entry.Name()))
		queued++
	}
	if queued > 0 {
		d.config.Logger.Printf("Queued %d existing captures", queued)
	}
	return nil
}

// watchCaptureEvents consumes file system events for the capture folder.
func (d *Daemon) watchCaptureEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !isCaptureFile(event.Name) {
				continue
			}
			// A rename fires for the old path when a file is moved
			// away; treat it like a removal.
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				d.dropPending(event.Name)
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				d.queueCapture(event.Name)
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueCapture records a write event for path, restarting its settle clock.
func (d *Daemon) queueCapture(path string) {
	d.pendingMu.Lock()
	d.pending[path] = time.Now()
	d.pendingMu.Unlock()
}

// dropPending forgets a queued capture whose file disappeared.
func (d *Daemon) dropPending(path string) {
	d.pendingMu.Lock()
	delete(d.pending, path)
	d.pendingMu.Unlock()
}

// processPendingCaptures periodically ingests captures whose settle interval
// has elapsed.
func (d *Daemon) processPendingCaptures() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.SettleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.ingestSettled()
		}
	}
}

// ingestSettled drains every pending capture that has been quiet long
// enough. Ingestion runs outside the pending lock so slow disk or database
// writes never stall the event goroutine.
func (d *Daemon) ingestSettled() {
	now := time.Now()

	d.pendingMu.Lock()
	var ready []string
	for path, lastWrite := range d.pending {
		if now.Sub(lastWrite) >= d.config.SettleInterval {
			ready = append(ready, path)
			delete(d.pending, path)
		}
	}
	d.pendingMu.Unlock()

	for _, path := range ready {
		d.ingestCapture(path)
	}
}

// ingestCapture attaches one capture file to its item and removes the file.
// Captures naming an unknown item stay in the folder so the operator can fix
// the name or add the item; everything else is resolved in place.
func (d *Daemon) ingestCapture(path string) {
	base := filepath.Base(path)

	itemID, filename, err := ParseCaptureName(base)
	if err != nil {
		d.config.Logger.Printf("Warning: skipping capture: %v", err)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return // removed between settle and read
		}
		d.config.Logger.Printf("Warning: failed to read capture %s: %v", base, err)
		return
	}

	att := &schema.Attachment{
		ItemID:   itemID,
		Filename: filename,
		MimeType: captureMimeType(filename),
		Data:     data,
	}

	err = d.store.AddAttachment(d.ctx, att)
	switch {
	case errors.Is(err, store.ErrExists):
		d.config.Logger.Printf("Capture %s already attached to %s, removing duplicate", filename, itemID)
	case errors.Is(err, store.ErrNotFound):
		d.config.Logger.Printf("Warning: capture %s names unknown item %s, leaving file in place", base, itemID)
		return
	case err != nil:
		d.config.Logger.Printf("Warning: failed to attach capture %s: %v", base, err)
		return
	default:
		d.config.Logger.Printf("Attached %s to item %s (%d bytes)", filename, itemID, len(data))
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.config.Logger.Printf("Warning: failed to remove ingested capture %s: %v", base, err)
	}
}

// autoSync runs a full sync on a fixed schedule as a safety net for edits
// whose debounced sync failed.
func (d *Daemon) autoSync() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.AutoSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			err := d.coord.SyncNow(d.ctx)
			if err != nil && !errors.Is(err, scsync.ErrSyncInFlight) && !errors.Is(err, scsync.ErrNotConfigured) {
				d.config.Logger.Printf("Auto-sync failed: %v", err)
			}
		}
	}
}
