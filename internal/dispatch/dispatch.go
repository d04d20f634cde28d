// Package dispatch implements the command table spec.md §4.5 defines:
// parsing a framed command line, mutating the Image Index or launching
// a comparison, and formatting the "<CMD>\n...\n<CMD> SUCCESS" /
// "<CMD> FAILED, code <n>" reply. One case per command, mirroring the
// teacher's cmd/ convention of one file per cobra subcommand — here
// collapsed into a single switch since the command set is a closed,
// line-oriented protocol rather than a user-facing CLI tree.
package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pixeldup/dids/internal/compare"
	"github.com/pixeldup/dids/internal/config"
	"github.com/pixeldup/dids/internal/dao"
	"github.com/pixeldup/dids/internal/decode"
	"github.com/pixeldup/dids/internal/diderr"
	"github.com/pixeldup/dids/internal/index"
)

// ForkFunc launches a forked child for a long-running command. The
// server wires the real re-exec-based launcher; a nil Fork runs the
// command inline instead, which is what the re-exec'd worker process
// itself uses (it has no further child to fork) and what tests use.
type ForkFunc func(ctx context.Context, cmdUpper, argLine string, out io.Writer) error

// Dispatcher holds the in-memory Image Index and DAO and executes one
// command line per call to Execute, per spec.md §4.5/§4.6 ("commands
// are one-shot per connection").
type Dispatcher struct {
	Index   *index.Index
	DAO     dao.DAO
	Config  config.Config
	Version string

	// Fork launches quickcompare/fullcompare/debug_sleep out-of-line.
	// Nil means run them synchronously in this process.
	Fork ForkFunc

	// ChildProcessCount and ActiveConnectionCount back the info
	// command's corresponding properties; the server loop owns and
	// updates them.
	ChildProcessCount     *atomic.Int64
	ActiveConnectionCount *atomic.Int64

	loaded bool
}

// Execute parses line, runs the named command, and writes the full
// reply (header, body, terminal line) to out. It reports whether the
// command was `quit`, so the caller can begin shutdown.
//
// quickcompare/fullcompare/debug_sleep are handled separately
// (executeForkable): when d.Fork is set, the forked child owns the
// entire reply — spec.md §4.5 is explicit that "the child writes both
// lines and then exits; the parent merely bumps the child counter" — so
// this method must not also frame a header/terminal line around
// whatever the child writes to the same connection.
func (d *Dispatcher) Execute(ctx context.Context, line string, out io.Writer) (quit bool) {
	cmdName, rest := splitFirst(line)
	cmdUpper := strings.ToUpper(cmdName)

	switch cmdName {
	case "quickcompare":
		d.executeForkable(ctx, cmdUpper, rest, out, d.ensureLoaded, d.runQuickcompare)
		return false
	case "fullcompare":
		d.executeForkable(ctx, cmdUpper, rest, out, d.ensureLoaded, func(_ string, out io.Writer) error {
			return d.runFullcompare(out)
		})
		return false
	case "debug_sleep":
		d.executeForkable(ctx, cmdUpper, "", out, nil, func(_ string, out io.Writer) error {
			return d.runDebugSleep()
		})
		return false
	}

	fmt.Fprintf(out, "%s\n", cmdUpper)

	var err error
	switch cmdName {
	case "load":
		err = d.cmdLoad(ctx)
	case "unload":
		d.cmdUnload()
	case "add":
		err = d.cmdAdd(ctx, rest)
	case "del":
		err = d.cmdDel(ctx, rest)
	case "refresh_similar_but_different":
		err = d.cmdRefreshSBD(ctx)
	case "info":
		d.cmdInfo(out)
	case "debug_show_tree":
		d.cmdDebugShowTree(out)
	case "quit":
		quit = true
	default:
		err = diderr.New(diderr.ProtocolFailure, "dispatch: unknown command %q", cmdName)
	}

	d.writeTerminal(out, cmdUpper, err)
	return quit
}

// executeForkable runs a fork-capable command (quickcompare, fullcompare,
// debug_sleep). When d.Fork is set, it delegates the reply entirely to
// the forked child and writes nothing of its own unless the command
// never reaches the child: an ensure failure (e.g. a failed lazy load)
// or the fork mechanism itself erroring before the child could produce
// a reply. With d.Fork nil (the re-exec'd worker, or a test), the
// command runs inline and this method owns the whole reply, same as
// any other command.
func (d *Dispatcher) executeForkable(ctx context.Context, cmdUpper, rest string, out io.Writer, ensure func(context.Context) error, run func(string, io.Writer) error) {
	if ensure != nil {
		if err := ensure(ctx); err != nil {
			fmt.Fprintf(out, "%s\n", cmdUpper)
			d.writeTerminal(out, cmdUpper, err)
			return
		}
	}

	if d.Fork != nil {
		if err := d.Fork(ctx, cmdUpper, rest, out); err != nil {
			fmt.Fprintf(out, "%s\n", cmdUpper)
			d.writeTerminal(out, cmdUpper, err)
		}
		return
	}

	fmt.Fprintf(out, "%s\n", cmdUpper)
	d.writeTerminal(out, cmdUpper, run(rest, out))
}

// writeTerminal writes the reply's terminal line (and a preceding
// "Error: " line on failure), per spec.md §7.
func (d *Dispatcher) writeTerminal(out io.Writer, cmdUpper string, err error) {
	if err != nil {
		if diderr.KindOf(err) == diderr.InternalInvariant {
			slog.Error("dispatch: internal invariant violated", "command", cmdUpper, "error", err)
		}
		fmt.Fprintf(out, "Error: %v\n", err)
		fmt.Fprintf(out, "%s FAILED, code %d\n", cmdUpper, diderr.KindOf(err).Code())
		return
	}
	fmt.Fprintf(out, "%s SUCCESS\n", cmdUpper)
}

// ensureLoaded implements the "lazy load" rule: any command requiring
// the Index loads it transparently first if it is still empty.
func (d *Dispatcher) ensureLoaded(ctx context.Context) error {
	if d.loaded {
		return nil
	}
	return d.cmdLoad(ctx)
}

func (d *Dispatcher) cmdLoad(ctx context.Context) error {
	if d.loaded {
		return nil
	}
	records, err := d.DAO.LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		d.Index.Insert(index.Build(rec.Ref, rec.Miniature, nil))
	}
	pairs, err := d.DAO.ListSBDPairs(ctx)
	if err != nil {
		return err
	}
	d.Index.AttachAll(pairs)
	d.loaded = true
	return nil
}

func (d *Dispatcher) cmdUnload() {
	d.Index.Unload()
	d.loaded = false
}

func (d *Dispatcher) cmdAdd(ctx context.Context, rest string) error {
	if err := d.ensureLoaded(ctx); err != nil {
		return err
	}
	ref, path := splitFirst(rest)
	if ref == "" || path == "" {
		return diderr.New(diderr.ProtocolFailure, "dispatch: add requires a ref and a path")
	}
	m, err := decode.Miniature(path, d.Config.MiniatureSize)
	if err != nil {
		return err
	}
	if err := d.DAO.Insert(ctx, ref, m); err != nil {
		return err
	}
	d.Index.Insert(index.Build(ref, m, nil))
	return nil
}

func (d *Dispatcher) cmdDel(ctx context.Context, rest string) error {
	ref := strings.TrimSpace(rest)
	if ref == "" {
		return diderr.New(diderr.ProtocolFailure, "dispatch: del requires a ref")
	}
	if err := d.DAO.Delete(ctx, ref); err != nil {
		return err
	}
	result := d.Index.Delete(ref)
	slog.Debug("dispatch: index delete", "ref", ref, "result", result.String())
	return nil
}

func (d *Dispatcher) runQuickcompare(rest string, out io.Writer) error {
	ref, path := splitFirst(rest)
	m, err := decode.Miniature(path, d.Config.MiniatureSize)
	if err != nil {
		return err
	}
	transient := index.Build(ref, m, nil)
	bw := bufio.NewWriter(out)
	writer := compare.NewWriter(bw)
	maxerr := d.Config.MaxErrBase * d.Config.QuickMultiplier
	_, err = compare.CompareToList(writer, transient, d.Index.Snapshot(), maxerr)
	return err
}

func (d *Dispatcher) runFullcompare(out io.Writer) error {
	bw := bufio.NewWriter(out)
	writer := compare.NewWriter(bw)
	workerCount := d.Config.FullWorkerMultiplier * runtime.NumCPU()
	if workerCount < 1 {
		workerCount = 1
	}
	_, err := compare.Full(writer, d.Index.Snapshot(), d.Config.MaxErrBase, workerCount, d.Config.ProgressInterval)
	return err
}

func (d *Dispatcher) cmdRefreshSBD(ctx context.Context) error {
	if err := d.ensureLoaded(ctx); err != nil {
		return err
	}
	pairs, err := d.DAO.ListSBDPairs(ctx)
	if err != nil {
		return err
	}
	d.Index.ClearAll()
	d.Index.AttachAll(pairs)
	return nil
}

func (d *Dispatcher) cmdInfo(out io.Writer) {
	var childCount, activeConns int64
	if d.ChildProcessCount != nil {
		childCount = d.ChildProcessCount.Load()
	}
	if d.ActiveConnectionCount != nil {
		activeConns = d.ActiveConnectionCount.Load()
	}
	fmt.Fprintf(out, "property: version: %s\n", d.Version)
	fmt.Fprintf(out, "property: image_loaded_count: %d\n", d.Index.Len())
	fmt.Fprintf(out, "property: cpu_count: %d\n", runtime.NumCPU())
	fmt.Fprintf(out, "property: child_process_count: %d\n", childCount)
	fmt.Fprintf(out, "property: active_connection_count: %d\n", activeConns)
}

func (d *Dispatcher) cmdDebugShowTree(out io.Writer) {
	for _, e := range d.Index.Snapshot() {
		fmt.Fprintf(out, "ref: %s, sbd: %s\n", e.Ref, strings.Join(e.SBD, ","))
	}
}

func (d *Dispatcher) runDebugSleep() error {
	time.Sleep(2 * d.Config.ListenTimeout)
	return nil
}

// splitFirst splits s into its first whitespace-delimited token and the
// (space-trimmed) remainder, so that "ref rest of the path" keeps
// embedded spaces in the remainder, per spec.md §4.5.
func splitFirst(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
