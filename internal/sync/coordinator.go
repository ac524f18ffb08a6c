package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/vanastassiou/scrounger-sub002/internal/remote"
	"github.com/vanastassiou/scrounger-sub002/internal/store"
)

// Status is the coordinator's sync state.
type Status string

const (
	// StatusIdle means no reconciliation is running and the last one, if
	// any, succeeded.
	StatusIdle Status = "idle"
	// StatusSyncing means a reconciliation is in flight.
	StatusSyncing Status = "syncing"
	// StatusError means the last reconciliation failed; LastError says why.
	StatusError Status = "error"
)

// State is the observable sync state. It is process-scoped: a fresh process
// starts idle, with LastSyncAt loaded from the store's settings.
type State struct {
	Status     Status
	LastSyncAt time.Time
	LastError  string
}

// Sentinel errors for the coordinator's gating rules.
var (
	// ErrSyncInFlight rejects a manual trigger while a run is active. The
	// debounce tick retries; manual callers try again later.
	ErrSyncInFlight = errors.New("sync already running")
	// ErrNotConfigured means no remote client or folder is set up yet.
	ErrNotConfigured = errors.New("remote not configured")
)

// Config holds the coordinator's tunables.
type Config struct {
	// FolderName is the remote folder everything lives under, resolved to
	// an ID on first use and created when absent.
	FolderName string

	// QuietPeriod is the debounce window for QueueSync: a run starts only
	// once this much time has passed with no further calls.
	QuietPeriod time.Duration

	// Logger for sync activity.
	Logger *log.Logger
}

// DefaultConfig returns the stock tuning: a 30 second quiet period under a
// "scrounger" folder.
func DefaultConfig() *Config {
	return &Config{
		FolderName:  "scrounger",
		QuietPeriod: 30 * time.Second,
		Logger:      log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Coordinator owns the sync lifecycle: status and last-sync bookkeeping, the
// debounce timer, and the guarantee that at most one reconciliation runs at
// a time. It is the only component that clears dirty flags.
type Coordinator struct {
	store  *store.Store
	client remote.Client
	config *Config
	recon  *Reconciler
	atts   *AttachmentSyncer
	now    func() time.Time

	mu        sync.Mutex
	state     State
	observers []func(State)
	timer     *time.Timer
	rootID    string
	closed    bool
}

// New wires a coordinator over the store and remote client. The client may
// be nil when the remote is not configured yet; every trigger then reports
// ErrNotConfigured until a configured coordinator replaces this one.
func New(st *store.Store, client remote.Client, config *Config) *Coordinator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	c := &Coordinator{
		store:  st,
		client: client,
		config: config,
		recon:  NewReconciler(client, config.Logger),
		atts:   NewAttachmentSyncer(st, client, config.Logger),
		now:    time.Now,
		state:  State{Status: StatusIdle},
	}

	// Last-sync bookkeeping survives restarts; status itself does not.
	if v, err := st.GetSetting(context.Background(), store.SettingLastSyncAt); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			c.state.LastSyncAt = t
		}
	}
	return c
}

// CanSync reports whether the remote side is usable: an authenticated
// client and a configured folder.
func (c *Coordinator) CanSync() bool {
	return c.client != nil && c.config.FolderName != ""
}

// State returns a snapshot of the current sync state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers an observer for state transitions. Observers run on
// the syncing goroutine and must not block.
func (c *Coordinator) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// QueueSync schedules a reconciliation after the quiet period, restarting
// the countdown on every call. A burst of N edits yields one run. If the
// timer fires while a run is still active, it re-arms once rather than
// piling up.
func (c *Coordinator) QueueSync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.config.QuietPeriod, c.debounceFire)
}

func (c *Coordinator) debounceFire() {
	err := c.SyncNow(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInFlight):
		// A run was already active; keep exactly one follow-up pending.
		c.QueueSync()
	case errors.Is(err, ErrNotConfigured):
		// Nothing to do until setup runs.
	default:
		// Already recorded in state; the next trigger retries.
	}
}

// SyncNow runs one full reconciliation: push the snapshot, clear dirty
// flags for what was pushed, then settle attachments both ways. It rejects
// with ErrSyncInFlight when a run is already active and with
// ErrNotConfigured when CanSync is false.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	if !c.CanSync() {
		return ErrNotConfigured
	}
	if !c.begin() {
		return ErrSyncInFlight
	}
	err := c.push(ctx)
	c.finish(ctx, err)
	return err
}

// SyncOnOpen is the startup/reconnect trigger: the same run as SyncNow, but
// an unconfigured remote is an expected state, not an error.
func (c *Coordinator) SyncOnOpen(ctx context.Context) error {
	if !c.CanSync() {
		c.config.Logger.Printf("sync on open skipped: remote not configured")
		return nil
	}
	err := c.SyncNow(ctx)
	if errors.Is(err, ErrSyncInFlight) {
		return nil
	}
	return err
}

// Restore fetches the remote snapshot and merges it into the local store,
// newest record wins, then downloads missing attachments. Records landed by
// the merge arrive clean: they came from the remote, there is nothing to
// push back. Returns (nil, nil) when the remote has no snapshot yet.
func (c *Coordinator) Restore(ctx context.Context) (*store.ImportResult, error) {
	if !c.CanSync() {
		return nil, ErrNotConfigured
	}
	if !c.begin() {
		return nil, ErrSyncInFlight
	}
	result, err := c.pull(ctx)
	c.finish(ctx, err)
	return result, err
}

// Close stops the debounce timer. An in-flight run finishes on its own;
// no new ones start via QueueSync.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// ===== the reconciliation critical section =====

// begin claims the critical section. False when a run is already active.
func (c *Coordinator) begin() bool {
	c.mu.Lock()
	if c.state.Status == StatusSyncing {
		c.mu.Unlock()
		return false
	}
	c.state.Status = StatusSyncing
	c.state.LastError = ""
	state := c.state
	observers := c.snapshotObservers()
	c.mu.Unlock()

	c.notifyObservers(observers, state)
	return true
}

// finish releases the critical section and records the outcome.
func (c *Coordinator) finish(ctx context.Context, err error) {
	c.mu.Lock()
	if err != nil {
		c.state.Status = StatusError
		c.state.LastError = err.Error()
	} else {
		c.state.Status = StatusIdle
		c.state.LastSyncAt = c.now().UTC()
	}
	state := c.state
	observers := c.snapshotObservers()
	c.mu.Unlock()

	// Settings are bookkeeping for the status display; the store never
	// reads them back for correctness.
	if err != nil {
		c.store.SetSetting(ctx, store.SettingLastSyncError, err.Error())
		c.config.Logger.Printf("sync failed: %v", err)
	} else {
		c.store.SetSetting(ctx, store.SettingLastSyncAt, state.LastSyncAt.Format(time.RFC3339Nano))
		c.store.DeleteSetting(ctx, store.SettingLastSyncError)
	}

	c.notifyObservers(observers, state)
}

func (c *Coordinator) snapshotObservers() []func(State) {
	fns := make([]func(State), len(c.observers))
	copy(fns, c.observers)
	return fns
}

func (c *Coordinator) notifyObservers(fns []func(State), state State) {
	for _, fn := range fns {
		fn(state)
	}
}

// push is the outbound run: snapshot up, dirty flags cleared, attachments
// settled in both directions.
func (c *Coordinator) push(ctx context.Context) error {
	rootID, err := c.rootFolder(ctx)
	if err != nil {
		return err
	}

	snap, err := c.store.Export(ctx)
	if err != nil {
		return err
	}

	fileID, _ := c.store.GetSetting(ctx, store.SettingSnapshotFileID)
	fileID, err = c.recon.Push(ctx, rootID, fileID, snap)
	if err != nil {
		return err
	}
	c.store.SetSetting(ctx, store.SettingSnapshotFileID, fileID)

	// Only the records this snapshot carried go clean; anything mutated
	// mid-push stays dirty for the next run.
	if err := c.store.MarkSnapshotSynced(ctx, snap, c.now()); err != nil {
		return err
	}

	if _, err := c.atts.SyncOutbound(ctx, rootID); err != nil {
		return err
	}
	if _, err := c.atts.SyncInbound(ctx, rootID); err != nil {
		return err
	}
	return nil
}

// pull is the restore run: snapshot down and merged, missing attachments
// downloaded.
func (c *Coordinator) pull(ctx context.Context) (*store.ImportResult, error) {
	rootID, err := c.rootFolder(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.recon.Fetch(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		c.config.Logger.Printf("restore: remote has no snapshot yet")
		return nil, nil
	}

	result, err := c.store.Import(ctx, raw, store.ImportOptions{
		MarkSynced: true,
		SyncedAt:   c.now(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.atts.SyncInbound(ctx, rootID); err != nil {
		return result, err
	}
	return result, nil
}

// rootFolder resolves the configured folder name to its remote ID, creating
// the folder on first use. Resolved once per process; the resolved ID is
// recorded in settings for the status display.
func (c *Coordinator) rootFolder(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.rootID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	id, err := c.client.EnsureFolder(ctx, "", c.config.FolderName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve remote folder %q: %w", c.config.FolderName, err)
	}

	c.mu.Lock()
	c.rootID = id
	c.mu.Unlock()
	c.store.SetSetting(ctx, store.SettingRemoteFolderID, id)
	return id, nil
}
