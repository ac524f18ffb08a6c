package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanastassiou/scrounger-sub002/internal/db"
	"github.com/vanastassiou/scrounger-sub002/internal/remote"
	"github.com/vanastassiou/scrounger-sub002/internal/schema"
	"github.com/vanastassiou/scrounger-sub002/internal/store"
	scsync "github.com/vanastassiou/scrounger-sub002/internal/sync"
)

const testSettle = 50 * time.Millisecond

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(db.NewTestDB(t), log.New(io.Discard, "", 0))
}

func newTestCoordinator(t *testing.T, st *store.Store, client remote.Client, quiet time.Duration) *scsync.Coordinator {
	t.Helper()
	c := scsync.New(st, client, &scsync.Config{
		FolderName:  "scrounger-test",
		QuietPeriod: quiet,
		Logger:      log.New(io.Discard, "", 0),
	})
	t.Cleanup(c.Close)
	return c
}

// newTestDaemon starts a daemon over a fresh capture directory and returns
// it with the directory and the Start error channel. The daemon is stopped
// on test cleanup.
func newTestDaemon(t *testing.T, st *store.Store, coord *scsync.Coordinator, config *Config) (*Daemon, string, chan error) {
	t.Helper()

	captureDir := filepath.Join(t.TempDir(), "capture")
	if config == nil {
		config = &Config{
			SettleInterval: testSettle,
			Logger:         log.New(io.Discard, "", 0),
		}
	}

	d, err := New(st, coord, captureDir, config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop within 5s")
		}
	})

	// Give the watcher a beat to come up before tests drop files.
	time.Sleep(100 * time.Millisecond)
	return d, captureDir, errCh
}

func testItem(brand, secondary string) *schema.Item {
	primaries := map[string]string{
		"coat": "outerwear", "boots": "shoes", "jeans": "bottoms", "sweater": "tops",
	}
	return &schema.Item{
		Brand:    brand,
		Category: schema.Pair{Primary: primaries[secondary], Secondary: secondary},
		Colour:   schema.Pair{Primary: "black"},
		Material: schema.Pair{Primary: "wool"},
		Pricing: schema.Pricing{
			EstimatedResaleValue:   decimal.NewFromInt(60),
			MinimumAcceptablePrice: decimal.NewFromInt(25),
		},
	}
}

func mustCreate(t *testing.T, s *store.Store, item *schema.Item) string {
	t.Helper()
	id, err := s.CreateItem(context.Background(), item)
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	return id
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func attachmentCount(t *testing.T, st *store.Store, itemID string) int {
	t.Helper()
	atts, err := st.ListAttachments(context.Background(), itemID)
	if err != nil {
		t.Fatalf("ListAttachments() error = %v", err)
	}
	return len(atts)
}

func writeCapture(t *testing.T, captureDir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(captureDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write capture: %v", err)
	}
	return path
}

func TestNew(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, nil, time.Second)

	tests := []struct {
		name       string
		store      *store.Store
		coord      *scsync.Coordinator
		captureDir string
		wantErr    bool
	}{
		{"valid", st, coord, t.TempDir(), false},
		{"nil store", nil, coord, t.TempDir(), true},
		{"nil coordinator", st, nil, t.TempDir(), true},
		{"empty capture dir", st, coord, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.store, tt.coord, tt.captureDir, &Config{
				Logger: log.New(io.Discard, "", 0),
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if d != nil {
				d.Stop()
			}
		})
	}
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, nil, time.Second)

	d, err := New(st, coord, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Stop()

	if d.config.SettleInterval != 500*time.Millisecond {
		t.Errorf("SettleInterval = %v, want 500ms", d.config.SettleInterval)
	}
	if d.config.AutoSyncInterval != 15*time.Minute {
		t.Errorf("AutoSyncInterval = %v, want 15m", d.config.AutoSyncInterval)
	}
}

func TestDaemon_IngestsCapture(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, remote.NewMemory(), testSettle)
	itemID := mustCreate(t, st, testItem("Filson", "coat"))

	_, captureDir, _ := newTestDaemon(t, st, coord, nil)

	path := writeCapture(t, captureDir, itemID+"__label_collar.jpg", []byte("jpeg bytes"))

	waitFor(t, func() bool {
		return attachmentCount(t, st, itemID) == 1
	}, "capture was never attached")

	waitFor(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, "ingested capture was not removed")

	atts, err := st.ListAttachments(context.Background(), itemID)
	if err != nil {
		t.Fatalf("ListAttachments() error = %v", err)
	}
	att := atts[0]
	if att.Filename != "label_collar.jpg" {
		t.Errorf("Filename = %q, want label_collar.jpg", att.Filename)
	}
	if att.MimeType != "image/jpeg" {
		t.Errorf("MimeType = %q, want image/jpeg", att.MimeType)
	}
	if att.Kind != schema.KindLabel {
		t.Errorf("Kind = %q, want %q", att.Kind, schema.KindLabel)
	}
}

func TestDaemon_SweepsExistingCaptures(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, remote.NewMemory(), testSettle)
	itemID := mustCreate(t, st, testItem("Danner", "boots"))

	// Drop the capture before the daemon exists, as happens when photos
	// arrive while the machine is asleep.
	captureDir := filepath.Join(t.TempDir(), "capture")
	if err := os.MkdirAll(captureDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeCapture(t, captureDir, itemID+"__front.jpg", []byte("front view"))

	d, err := New(st, coord, captureDir, &Config{
		SettleInterval: testSettle,
		Logger:         log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Start(ctx)
	}()
	defer func() {
		cancel()
		<-errCh
	}()

	waitFor(t, func() bool {
		return attachmentCount(t, st, itemID) == 1
	}, "pre-existing capture was never attached")
}

func TestDaemon_UnknownItemLeavesFile(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, remote.NewMemory(), testSettle)

	_, captureDir, _ := newTestDaemon(t, st, coord, nil)

	path := writeCapture(t, captureDir, "tok-nosuch__front.jpg", []byte("orphan"))

	// Give ingestion several settle intervals to (wrongly) act.
	time.Sleep(5 * testSettle)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("capture for unknown item should stay in place, got stat error %v", err)
	}
}

func TestDaemon_DuplicateCaptureRemoved(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, remote.NewMemory(), testSettle)
	itemID := mustCreate(t, st, testItem("Pendleton", "sweater"))

	err := st.AddAttachment(context.Background(), &schema.Attachment{
		ItemID:   itemID,
		Filename: "front.jpg",
		MimeType: "image/jpeg",
		Data:     []byte("original"),
	})
	if err != nil {
		t.Fatalf("AddAttachment() error = %v", err)
	}

	_, captureDir, _ := newTestDaemon(t, st, coord, nil)

	path := writeCapture(t, captureDir, itemID+"__front.jpg", []byte("re-export"))

	waitFor(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, "duplicate capture was not cleaned up")

	if got := attachmentCount(t, st, itemID); got != 1 {
		t.Errorf("attachment count = %d, want 1 (duplicate must not re-attach)", got)
	}
}

func TestDaemon_IgnoresNonCaptureFiles(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, remote.NewMemory(), testSettle)

	_, captureDir, _ := newTestDaemon(t, st, coord, nil)

	notes := writeCapture(t, captureDir, "notes.txt", []byte("not a photo"))
	hidden := writeCapture(t, captureDir, ".hidden__sneaky.jpg", []byte("dotfile"))

	time.Sleep(5 * testSettle)

	for _, path := range []string{notes, hidden} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("non-capture file %s should be untouched, got %v", filepath.Base(path), err)
		}
	}
}

func TestDaemon_QueuesSyncOnEdit(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, remote.NewMemory(), testSettle)

	newTestDaemon(t, st, coord, nil)

	// An edit after Start must flow through OnChange into a debounced
	// sync without any explicit trigger.
	mustCreate(t, st, testItem("Carhartt", "jeans"))

	waitFor(t, func() bool {
		counts, err := st.DirtyCounts(context.Background())
		if err != nil {
			t.Fatalf("DirtyCounts() error = %v", err)
		}
		return counts.Total() == 0
	}, "edit never triggered a debounced sync")
}

func TestDaemon_AutoSyncInterval(t *testing.T) {
	st := newTestStore(t)
	// A quiet period far longer than the test keeps the debounce path out
	// of the picture, and the item is created after startup so the open
	// sync cannot have pushed it; only the periodic timer can clear it.
	coord := newTestCoordinator(t, st, remote.NewMemory(), time.Hour)

	newTestDaemon(t, st, coord, &Config{
		SettleInterval:   testSettle,
		AutoSyncInterval: 60 * time.Millisecond,
		Logger:           log.New(io.Discard, "", 0),
	})

	mustCreate(t, st, testItem("Levi's", "jeans"))

	waitFor(t, func() bool {
		counts, err := st.DirtyCounts(context.Background())
		if err != nil {
			t.Fatalf("DirtyCounts() error = %v", err)
		}
		return counts.Total() == 0
	}, "periodic sync never ran")
}

func TestDaemon_GracefulShutdown(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, remote.NewMemory(), testSettle)

	d, err := New(st, coord, filepath.Join(t.TempDir(), "capture"), &Config{
		SettleInterval: testSettle,
		Logger:         log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("daemon did not shut down within 5s")
	}
}

func TestDaemon_StopUnblocksStart(t *testing.T) {
	st := newTestStore(t)
	coord := newTestCoordinator(t, st, remote.NewMemory(), testSettle)

	d, err := New(st, coord, filepath.Join(t.TempDir(), "capture"), &Config{
		SettleInterval: testSettle,
		Logger:         log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Start(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)
	if err := d.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() returned error after Stop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Start did not return after Stop")
	}
}
