package compare

import (
	"sync"

	"github.com/pixeldup/dids/internal/index"
)

// FullResult summarizes a completed fullcompare run.
type FullResult struct {
	ComparisonsVisited int
	SetsTotal          int
}

// Full runs the all-pairs comparison over entries using workerCount
// goroutines, writing Match lines and throttled progress lines to out.
// Each worker loops: pull a work item -> compare it against its tail ->
// emit matches -> pull again, until the shared worklist cursor is
// exhausted (spec.md §4.4.3).
//
// The sort invariant on entries guarantees each unordered pair is visited
// exactly once: worker receiving entry c compares c against every entry
// strictly after c.
func Full(out *Writer, entries []*index.Entry, maxerrFull uint32, workerCount, progressInterval int) (FullResult, error) {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount()
	}

	wl := newWorklist(entries)
	reporter := newProgressReporter(out, len(entries), progressInterval)

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error
	visited := 0

	worker := func() {
		defer wg.Done()
		for {
			mu.Lock()
			entry, tail, ok := wl.pull()
			if ok {
				reporter.recordPull(wl.remaining())
			}
			mu.Unlock()
			if !ok {
				return
			}

			_, err := CompareToList(out, entry, tail, maxerrFull)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			visited += len(tail)
			mu.Unlock()
		}
	}

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go worker()
	}
	wg.Wait()

	if firstErr != nil {
		return FullResult{}, firstErr
	}

	if err := reporter.final(); err != nil {
		return FullResult{}, err
	}

	return FullResult{ComparisonsVisited: visited, SetsTotal: len(entries)}, nil
}
