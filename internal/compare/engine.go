// Package compare implements the quickcompare and fullcompare pixel-distance
// search algorithms: the single-image ("quick") and all-pairs ("full")
// comparisons, the exclusion-set filter, worker parallelism, and progress
// accounting spec.md §4.4 describes.
//
// Concurrency control (the worklist cursor, set counters, and progress
// throttle guarded by one mutex, workers reading the Index lock-free)
// follows the teacher's goroutine/ticker style in
// internal/server/worker.go. The output side replaces the subscribe/broadcast
// idiom of internal/server/stream.go's EventBroadcaster with a single
// mutex-guarded line writer that flushes every line and drops none.
package compare

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/pixeldup/dids/internal/index"
)

// MaxErrBase is the default base match threshold (maxerr_base, spec.md §6).
const MaxErrBase = 35000

// QuickCompareMultiplier widens the net for one-to-many quickcompare, per
// spec.md §4.4.2.
const QuickCompareMultiplier = 10

// ProgressInterval bounds how often fullcompare emits a progress line, in
// work-pulls (K, spec.md §6).
const ProgressInterval = 5000

// Writer is what the engine uses to emit reply lines. It wraps a
// *bufio.Writer (normally over the client connection); output lines
// are serialized through a mutex so that a Match line from one worker is
// never interleaved with another's (spec.md §4.4.3 "Output ordering").
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewWriter wraps w for safe concurrent line writes.
func NewWriter(w *bufio.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine atomically writes one LF-terminated line.
func (sw *Writer) WriteLine(format string, args ...any) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if _, err := fmt.Fprintf(sw.w, format+"\n", args...); err != nil {
		return err
	}
	return sw.w.Flush()
}

// CompareToList scans tail for entries that match pic within maxerr,
// emitting a "Match: <pic.ref>, <c.ref>, <distance>" line for every
// qualifying candidate (the scan never terminates early on an exact 0
// match: downstream fuzzy-dedup consumers need the full near-neighbor set,
// not only the best one — spec.md §4.4.1's resolution of the "two slightly
// different compare_to_list behaviors" open question). It returns the
// argmin of the qualifying candidates, or nil if none qualified.
func CompareToList(out *Writer, pic *index.Entry, tail []*index.Entry, maxerr uint32) (*index.Entry, error) {
	var best *index.Entry
	errBestSoFar := uint32(math.MaxUint32)

	for _, c := range tail {
		if pic.ContainsSBD(c.Ref) {
			slog.Debug("ignoring candidate in SBD set", "ref", pic.Ref, "candidate", c.Ref)
			continue
		}

		dist, err := pic.Miniature.Compare(c.Miniature, errBestSoFar)
		if err != nil {
			return nil, err
		}

		if dist < maxerr {
			if err := out.WriteLine("Match: %s, %s, %d", pic.Ref, c.Ref, dist); err != nil {
				return nil, err
			}
			if dist < errBestSoFar {
				errBestSoFar = dist
				best = c
			}
		}
	}

	return best, nil
}

// DefaultWorkerCount returns 2x the detected CPU count, the default for W
// in spec.md §4.4.3: comparison is memory-latency bound and benefits from
// oversubscription.
func DefaultWorkerCount() int {
	return 2 * runtime.NumCPU()
}
