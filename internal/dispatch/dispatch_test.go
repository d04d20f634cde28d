package dispatch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pixeldup/dids/internal/config"
	"github.com/pixeldup/dids/internal/dao"
	"github.com/pixeldup/dids/internal/index"
)

func writeSolidPNG(t *testing.T, name string, fill color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
	return path
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d, err := dao.NewFSDAO(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSDAO failed: %v", err)
	}
	return &Dispatcher{
		Index:                 index.New(),
		DAO:                   d,
		Config:                config.Default(),
		Version:               "test",
		ChildProcessCount:     new(atomic.Int64),
		ActiveConnectionCount: new(atomic.Int64),
	}
}

func TestEmptyLoadScenario(t *testing.T) {
	d := newTestDispatcher(t)
	var out bytes.Buffer
	quit := d.Execute(context.Background(), "load", &out)
	if quit {
		t.Fatal("load should not request shutdown")
	}
	if out.String() != "LOAD\nLOAD SUCCESS\n" {
		t.Fatalf("unexpected reply: %q", out.String())
	}

	out.Reset()
	d.Execute(context.Background(), "info", &out)
	if !strings.Contains(out.String(), "property: image_loaded_count: 0\n") {
		t.Fatalf("expected image_loaded_count 0, got %q", out.String())
	}
}

func TestAddAndDebugShowTreeInsertionOrder(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	refs := []string{"ref_1", "ref_0", "ref_4", "ref_3", "ref_2"}
	for _, ref := range refs {
		path := writeSolidPNG(t, ref+".png", color.NRGBA{R: 1, G: 2, B: 3, A: 255})
		var out bytes.Buffer
		quit := d.Execute(ctx, "add "+ref+" "+path, &out)
		if quit {
			t.Fatal("add should not request shutdown")
		}
		if !strings.Contains(out.String(), "ADD SUCCESS") {
			t.Fatalf("expected ADD SUCCESS for %s, got %q", ref, out.String())
		}
	}

	var out bytes.Buffer
	d.Execute(ctx, "debug_show_tree", &out)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	var refLines []string
	for _, l := range lines {
		if strings.HasPrefix(l, "ref:") {
			refLines = append(refLines, l)
		}
	}
	if len(refLines) != 5 {
		t.Fatalf("expected 5 ref lines, got %d: %v", len(refLines), refLines)
	}
	want := []string{"ref_0", "ref_1", "ref_2", "ref_3", "ref_4"}
	for i, w := range want {
		if !strings.Contains(refLines[i], "ref: "+w+",") {
			t.Fatalf("expected position %d to be %s, got %q", i, w, refLines[i])
		}
	}
}

func TestDeletionFromEndsAndMiddle(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	for _, ref := range []string{"ref_1", "ref_0", "ref_4", "ref_3", "ref_2"} {
		path := writeSolidPNG(t, ref+".png", color.NRGBA{R: 1, G: 2, B: 3, A: 255})
		var out bytes.Buffer
		d.Execute(ctx, "add "+ref+" "+path, &out)
	}

	for _, ref := range []string{"ref_0", "ref_2", "ref_4"} {
		var out bytes.Buffer
		quit := d.Execute(ctx, "del "+ref, &out)
		if quit {
			t.Fatal("del should not request shutdown")
		}
		if !strings.Contains(out.String(), "DEL SUCCESS") {
			t.Fatalf("expected DEL SUCCESS deleting %s, got %q", ref, out.String())
		}
	}

	var out bytes.Buffer
	d.Execute(ctx, "debug_show_tree", &out)
	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if strings.HasPrefix(l, "ref:") {
			lines = append(lines, l)
		}
	}
	if len(lines) != 2 || !strings.Contains(lines[0], "ref_1") || !strings.Contains(lines[1], "ref_3") {
		t.Fatalf("expected ref_1 then ref_3, got %v", lines)
	}
}

func TestQuickcompareSelfMatchScenario(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	path := writeSolidPNG(t, "x.png", color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	var addOut bytes.Buffer
	d.Execute(ctx, "add ref_1 "+path, &addOut)

	var out bytes.Buffer
	quit := d.Execute(ctx, "quickcompare query_label "+path, &out)
	if quit {
		t.Fatal("quickcompare should not request shutdown")
	}
	if !strings.Contains(out.String(), "Match: query_label, ref_1, 0") {
		t.Fatalf("expected self-match Match line, got %q", out.String())
	}
	if !strings.Contains(out.String(), "QUICKCOMPARE SUCCESS") {
		t.Fatalf("expected QUICKCOMPARE SUCCESS, got %q", out.String())
	}
}

func TestUnknownCommandFails(t *testing.T) {
	d := newTestDispatcher(t)
	var out bytes.Buffer
	quit := d.Execute(context.Background(), "bogus", &out)
	if quit {
		t.Fatal("unknown command should not request shutdown")
	}
	if !strings.Contains(out.String(), "BOGUS FAILED, code") {
		t.Fatalf("expected FAILED reply, got %q", out.String())
	}
}

func TestQuitSetsShutdownFlag(t *testing.T) {
	d := newTestDispatcher(t)
	var out bytes.Buffer
	quit := d.Execute(context.Background(), "quit", &out)
	if !quit {
		t.Fatal("expected quit to request shutdown")
	}
	if !strings.Contains(out.String(), "QUIT SUCCESS") {
		t.Fatalf("expected QUIT SUCCESS, got %q", out.String())
	}
}

func TestForkDelegatesLongRunningCommands(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	path := writeSolidPNG(t, "x.png", color.NRGBA{R: 5, G: 5, B: 5, A: 255})
	d.Execute(ctx, "add ref_1 "+path, &bytes.Buffer{})

	var forkedCmd, forkedArgs string
	d.Fork = func(ctx context.Context, cmdUpper, argLine string, out io.Writer) error {
		forkedCmd = cmdUpper
		forkedArgs = argLine
		return nil
	}

	var out bytes.Buffer
	d.Execute(ctx, "quickcompare lbl "+path, &out)
	if forkedCmd != "QUICKCOMPARE" {
		t.Fatalf("expected Fork invoked with QUICKCOMPARE, got %q", forkedCmd)
	}
	if forkedArgs != "lbl "+path {
		t.Fatalf("expected Fork args %q, got %q", "lbl "+path, forkedArgs)
	}
}
