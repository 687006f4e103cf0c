// Package feed tails a JSONL transaction file and hands every new line to a
// row model as an async transaction.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/rowgrid/pkg/loader"
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// State is the lifecycle state of a feed.
type State int

const (
	// Idle means the feed is waiting for the file to change.
	Idle State = iota
	// Running means the feed is reading new lines.
	Running
	// Stopped means the feed has been stopped and will not restart.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FeedError wraps a failure with the phase it happened in.
type FeedError struct {
	Phase string // "read", "decode", "apply", "watch"
	Cause error
	Time  time.Time
	Count int // consecutive failures including this one
}

func (e FeedError) Error() string {
	return fmt.Sprintf("%s failed: %v (consecutive errors: %d)", e.Phase, e.Cause, e.Count)
}

func (e FeedError) Unwrap() error {
	return e.Cause
}

// Applier receives decoded transactions. The row model satisfies it.
type Applier interface {
	BatchUpdateRowData(tx model.Transaction, callback func(model.TransactionResult))
}

// Config configures a TransactionFeed.
type Config struct {
	Path    string
	IDField string
	Applier Applier

	// FromStart applies lines already in the file when the feed starts;
	// otherwise only lines appended afterwards are read.
	FromStart bool

	// Debounce coalesces bursts of write events. Zero means 50ms.
	Debounce time.Duration

	Logger logrus.FieldLogger
}

// TransactionFeed follows a transaction file. Each complete line becomes one
// BatchUpdateRowData call; a trailing partial line waits for its newline.
type TransactionFeed struct {
	cfg Config
	log logrus.FieldLogger

	mu         sync.RWMutex
	state      State
	started    bool
	lastError  *FeedError
	errorCount int
	applied    int

	// readMu serialises reads; offset and partial belong to it.
	readMu  sync.Mutex
	offset  int64
	partial []byte

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a feed for cfg. It does not touch the file until Start.
func New(cfg Config) (*TransactionFeed, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("feed: empty path")
	}
	if cfg.Applier == nil {
		return nil, fmt.Errorf("feed: nil applier")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 50 * time.Millisecond
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TransactionFeed{
		cfg:    cfg,
		log:    log.WithField("feed", cfg.Path),
		state:  Idle,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// Start positions the feed and begins watching. It is idempotent.
func (f *TransactionFeed) Start() error {
	f.mu.Lock()
	if f.started || f.state == Stopped {
		f.mu.Unlock()
		return nil
	}
	f.started = true
	f.mu.Unlock()

	if !f.cfg.FromStart {
		if info, err := os.Stat(f.cfg.Path); err == nil {
			f.readMu.Lock()
			f.offset = info.Size()
			f.readMu.Unlock()
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		close(f.done)
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// The directory is watched so the file may be created or replaced later.
	if err := w.Add(filepath.Dir(f.cfg.Path)); err != nil {
		w.Close()
		close(f.done)
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.cfg.Path), err)
	}
	f.watcher = w

	if f.cfg.FromStart {
		f.Poll()
	}
	go f.watchLoop()
	return nil
}

// Stop halts the feed. It is idempotent.
func (f *TransactionFeed) Stop() {
	f.mu.Lock()
	if f.state == Stopped {
		f.mu.Unlock()
		return
	}
	f.state = Stopped
	wasStarted := f.started
	f.mu.Unlock()

	f.cancel()
	if f.watcher != nil {
		f.watcher.Close()
	}
	if wasStarted {
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// Run starts the feed and blocks until ctx is done.
func (f *TransactionFeed) Run(ctx context.Context) error {
	if err := f.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	f.Stop()
	return nil
}

// State returns the current state.
func (f *TransactionFeed) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// LastError returns the most recent error, nil if the last read succeeded.
func (f *TransactionFeed) LastError() *FeedError {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastError
}

// Applied returns how many transactions were handed to the applier.
func (f *TransactionFeed) Applied() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applied
}

func (f *TransactionFeed) watchLoop() {
	defer close(f.done)

	var debounce <-chan time.Time
	for {
		select {
		case <-f.ctx.Done():
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.cfg.Path) {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				f.rewind()
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.After(f.cfg.Debounce)
			}

		case <-debounce:
			debounce = nil
			f.Poll()

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.recordError(&FeedError{Phase: "watch", Cause: err, Time: time.Now()})
		}
	}
}

// rewind forgets the read position after the file went away.
func (f *TransactionFeed) rewind() {
	f.readMu.Lock()
	f.offset = 0
	f.partial = nil
	f.readMu.Unlock()
}

// Poll reads whatever was appended since the last read and applies it.
// The watch loop calls it after each burst of writes.
func (f *TransactionFeed) Poll() {
	f.mu.Lock()
	if f.state != Idle {
		f.mu.Unlock()
		return
	}
	f.state = Running
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		if f.state == Running {
			f.state = Idle
		}
		f.mu.Unlock()
	}()

	f.readMu.Lock()
	defer f.readMu.Unlock()

	chunk, err := f.readNew()
	if err != nil {
		f.recordError(&FeedError{Phase: "read", Cause: err, Time: time.Now()})
		return
	}
	f.partial = append(f.partial, chunk...)

	for {
		i := bytes.IndexByte(f.partial, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(f.partial[:i])
		f.partial = f.partial[i+1:]
		if len(line) == 0 {
			continue
		}
		f.applyLine(line)
	}
	if len(f.partial) == 0 {
		f.partial = nil
	}
}

// readNew returns the bytes past the current offset, starting over when the
// file shrank underneath us.
func (f *TransactionFeed) readNew() ([]byte, error) {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < f.offset {
		f.log.WithField("offset", f.offset).Warn("transaction file truncated, reading from the start")
		f.offset = 0
		f.partial = nil
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.offset += int64(len(data))
	return data, nil
}

func (f *TransactionFeed) applyLine(line []byte) {
	tx, err := loader.DecodeTransaction(line, f.cfg.IDField)
	if err != nil {
		f.log.WithError(err).Warn("skipping transaction line")
		f.recordError(&FeedError{Phase: "decode", Cause: err, Time: time.Now()})
		return
	}
	if ferr := f.safeApply(tx); ferr != nil {
		f.recordError(ferr)
		return
	}
	f.mu.Lock()
	f.applied++
	f.mu.Unlock()
	f.recordError(nil)
}

// safeApply hands tx to the applier, turning a panic into a FeedError.
func (f *TransactionFeed) safeApply(tx model.Transaction) (result *FeedError) {
	defer func() {
		if r := recover(); r != nil {
			result = &FeedError{
				Phase: "apply",
				Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
				Time:  time.Now(),
			}
		}
	}()
	f.cfg.Applier.BatchUpdateRowData(tx, nil)
	return nil
}

func (f *TransactionFeed) recordError(err *FeedError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastError = err
	if err == nil {
		f.errorCount = 0
		return
	}
	f.errorCount++
	err.Count = f.errorCount
}
