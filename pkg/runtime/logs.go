package runtime

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coney-io/coney/pkg/log"
	"github.com/coney-io/coney/pkg/types"
)

// subscriberBuffer is the per-subscriber channel capacity in follow
// mode. The fan-out send is non-blocking: entries addressed to a
// subscriber whose buffer is full are dropped for that subscriber
// only, so a slow consumer can miss entries but never stalls the
// watcher or its peers.
const subscriberBuffer = 64

// logPath returns the container's log file location under the state
// root
func (r *CLIRuntime) logPath(containerID string) string {
	return filepath.Join(r.cfg.StateRoot, containerID, "container.log")
}

// GetLogs reads the container's log file and returns the parsed
// entries, filtered by the query options. A missing file is an empty
// result: a container that never logged anything is a valid state.
func (r *CLIRuntime) GetLogs(containerID string, opts *types.LogOptions) ([]types.LogEntry, error) {
	if opts == nil {
		opts = &types.LogOptions{}
	}

	data, err := os.ReadFile(r.logPath(containerID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}

	entries := make([]types.LogEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, parseLogLine(line))
	}

	entries = filterByTime(entries, opts.Since, opts.Until)

	if opts.Tail > 0 && len(entries) > opts.Tail {
		entries = entries[len(entries)-opts.Tail:]
	}

	return entries, nil
}

// FollowLogs attaches a subscriber to the container's log watcher,
// creating the watcher if none is active. At most one watcher runs per
// container; additional follow requests share it. The returned cancel
// function detaches the subscriber and, when it was the last one,
// tears the watcher down.
//
// The stream starts at the log file's current end; callers wanting
// history fetch a snapshot with GetLogs first.
func (r *CLIRuntime) FollowLogs(containerID string) (<-chan types.LogEntry, func(), error) {
	return r.logWatchers.follow(containerID, r.logPath(containerID))
}

// parseLogLine decodes one "RFC3339 stream message" line. Lines that
// do not match the format come back as plain stdout messages rather
// than being dropped.
func parseLogLine(line string) types.LogEntry {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) == 3 && (parts[1] == types.StreamStdout || parts[1] == types.StreamStderr) {
		return types.LogEntry{
			Timestamp: parts[0],
			Stream:    parts[1],
			Message:   parts[2],
		}
	}
	return types.LogEntry{
		Stream:  types.StreamStdout,
		Message: line,
	}
}

// FormatLogEntry renders an entry for display, optionally prefixed
// with its timestamp
func FormatLogEntry(entry types.LogEntry, timestamps bool) string {
	if timestamps && entry.Timestamp != "" {
		return fmt.Sprintf("%s %s", entry.Timestamp, entry.Message)
	}
	return entry.Message
}

// filterByTime keeps entries within the inclusive [since, until]
// bounds. Entries with unparseable timestamps are excluded from
// bounded queries; when no bound is set everything passes through.
func filterByTime(entries []types.LogEntry, since, until string) []types.LogEntry {
	if since == "" && until == "" {
		return entries
	}

	var sinceT, untilT time.Time
	var err error
	if since != "" {
		if sinceT, err = time.Parse(time.RFC3339, since); err != nil {
			return nil
		}
	}
	if until != "" {
		if untilT, err = time.Parse(time.RFC3339, until); err != nil {
			return nil
		}
	}

	out := make([]types.LogEntry, 0, len(entries))
	for _, e := range entries {
		ts, err := time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			continue
		}
		if since != "" && ts.Before(sinceT) {
			continue
		}
		if until != "" && ts.After(untilT) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ==================== follow-mode watchers ====================

// watcherSet tracks the active log watchers, at most one per
// container id
type watcherSet struct {
	mu       sync.Mutex
	watchers map[string]*logWatcher
	interval time.Duration
}

func newWatcherSet(interval time.Duration) *watcherSet {
	return &watcherSet{
		watchers: make(map[string]*logWatcher),
		interval: interval,
	}
}

func (s *watcherSet) follow(containerID, path string) (<-chan types.LogEntry, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watchers[containerID]
	if !ok {
		w = newLogWatcher(containerID, path, s.interval)
		s.watchers[containerID] = w
		go w.run()
	}

	sub := w.subscribe()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			if w.unsubscribe(sub) == 0 {
				w.stop()
				delete(s.watchers, containerID)
			}
		})
	}

	return sub, cancel, nil
}

// closeWatcher force-stops the container's watcher, closing every
// subscriber channel. Used when the container is removed.
func (s *watcherSet) closeWatcher(containerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.watchers[containerID]; ok {
		w.stop()
		delete(s.watchers, containerID)
	}
}

// active returns the number of running watchers
func (s *watcherSet) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// logWatcher owns read access to one container's log file growth and
// fans parsed entries out to its subscribers
type logWatcher struct {
	containerID string
	path        string
	interval    time.Duration

	mu   sync.Mutex
	subs map[chan types.LogEntry]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newLogWatcher(containerID, path string, interval time.Duration) *logWatcher {
	return &logWatcher{
		containerID: containerID,
		path:        path,
		interval:    interval,
		subs:        make(map[chan types.LogEntry]struct{}),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

func (w *logWatcher) subscribe() chan types.LogEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	sub := make(chan types.LogEntry, subscriberBuffer)
	w.subs[sub] = struct{}{}
	return sub
}

// unsubscribe detaches one subscriber and returns how many remain
func (w *logWatcher) unsubscribe(sub chan types.LogEntry) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.subs[sub]; ok {
		delete(w.subs, sub)
		close(sub)
	}
	return len(w.subs)
}

// stop signals the watcher goroutine and waits for it to exit, then
// closes any remaining subscriber channels. Safe to call more than
// once: a follow cancel can race container removal.
func (w *logWatcher) stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh

	w.mu.Lock()
	defer w.mu.Unlock()
	for sub := range w.subs {
		delete(w.subs, sub)
		close(sub)
	}
}

func (w *logWatcher) broadcast(entry types.LogEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for sub := range w.subs {
		select {
		case sub <- entry:
		default:
			// Subscriber buffer full, entry dropped for this
			// subscriber
		}
	}
}

// run polls the log file for appended bytes, parsing each complete
// line and broadcasting it. The file may not exist yet when the
// watcher starts; it waits for the file to appear.
func (w *logWatcher) run() {
	defer close(w.doneCh)

	logger := log.WithComponent("logwatcher")

	file := w.waitForFile()
	if file == nil {
		return
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		logger.Warn().Err(err).Str("container_id", w.containerID).Msg("seek failed")
		return
	}

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var pending string
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
		}

		for {
			chunk, err := reader.ReadString('\n')
			if chunk != "" {
				if strings.HasSuffix(chunk, "\n") {
					line := pending + strings.TrimRight(chunk, "\n")
					pending = ""
					if line != "" {
						w.broadcast(parseLogLine(line))
					}
				} else {
					// Incomplete line, wait for the rest
					pending += chunk
				}
			}
			if err != nil {
				break
			}
		}
	}
}

// waitForFile polls until the log file exists or the watcher is
// stopped
func (w *logWatcher) waitForFile() *os.File {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		file, err := os.Open(w.path)
		if err == nil {
			return file
		}
		if !os.IsNotExist(err) {
			return nil
		}

		select {
		case <-w.stopCh:
			return nil
		case <-ticker.C:
		}
	}
}
