package dao

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pixeldup/dids/internal/diderr"
	"github.com/pixeldup/dids/internal/index"
	"github.com/pixeldup/dids/internal/miniature"
)

// FSDAO implements DAO on the local filesystem, one JSON file per image
// under <baseDir>/images/ plus a single sbd.json for the
// similar-but-different relation. Adapted from the teacher's
// internal/store.FSStore atomic temp-file-plus-rename discipline, for
// deployments and tests that run without a Postgres instance.
//
// Thread-safety: a mutex serializes writes to sbd.json; per-image files
// are keyed by ref so concurrent inserts/deletes of distinct refs never
// race on the same path.
type FSDAO struct {
	baseDir string
	mu      sync.Mutex
}

type imageRecord struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Hexdata string `json:"hexdata"`
}

// NewFSDAO creates a filesystem-backed DAO rooted at baseDir, creating
// the directory layout if it doesn't exist.
func NewFSDAO(baseDir string) (*FSDAO, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "images"), 0755); err != nil {
		return nil, diderr.Wrap(diderr.IoFailure, err, "dao: failed to create fsdao base directory")
	}
	return &FSDAO{baseDir: baseDir}, nil
}

func (f *FSDAO) imagePath(ref string) string {
	return filepath.Join(f.baseDir, "images", ref+".json")
}

func (f *FSDAO) sbdPath() string {
	return filepath.Join(f.baseDir, "sbd.json")
}

func (f *FSDAO) LoadAll(ctx context.Context) ([]Record, error) {
	imagesDir := filepath.Join(f.baseDir, "images")
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, diderr.Wrap(diderr.IoFailure, err, "dao: failed to read images directory")
	}

	var refs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		refs = append(refs, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(refs)

	out := make([]Record, 0, len(refs))
	for _, ref := range refs {
		data, err := os.ReadFile(f.imagePath(ref))
		if err != nil {
			return nil, diderr.Wrap(diderr.IoFailure, err, "dao: failed to read image file for ref %s", ref)
		}
		var rec imageRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, diderr.Wrap(diderr.DecodeFailure, err, "dao: corrupt image file for ref %s", ref)
		}
		m, err := DecodeHex(rec.Width, rec.Height, rec.Hexdata)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{Ref: ref, Miniature: m})
	}
	return out, nil
}

func (f *FSDAO) Insert(ctx context.Context, ref string, m *miniature.Miniature) error {
	if ref == "" {
		return diderr.New(diderr.ProtocolFailure, "dao: ref cannot be empty")
	}

	path := f.imagePath(ref)
	if _, err := os.Stat(path); err == nil {
		return diderr.New(diderr.PersistenceFailure, "dao: ref %s already exists", ref)
	} else if !os.IsNotExist(err) {
		return diderr.Wrap(diderr.IoFailure, err, "dao: failed to stat image file for ref %s", ref)
	}

	data, err := json.Marshal(imageRecord{Width: m.Width, Height: m.Height, Hexdata: EncodeHex(m)})
	if err != nil {
		return diderr.Wrap(diderr.DecodeFailure, err, "dao: failed to serialize image for ref %s", ref)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return diderr.Wrap(diderr.IoFailure, err, "dao: failed to write temp image file for ref %s", ref)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return diderr.Wrap(diderr.IoFailure, err, "dao: failed to rename image file for ref %s", ref)
	}

	slog.Debug("fsdao: image inserted", "ref", ref)
	return nil
}

func (f *FSDAO) Delete(ctx context.Context, ref string) error {
	path := f.imagePath(ref)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return diderr.New(diderr.PersistenceFailure, "dao: delete found no record for ref %s", ref)
	} else if err != nil {
		return diderr.Wrap(diderr.IoFailure, err, "dao: failed to stat image file for ref %s", ref)
	}
	if err := os.Remove(path); err != nil {
		return diderr.Wrap(diderr.IoFailure, err, "dao: failed to remove image file for ref %s", ref)
	}
	slog.Debug("fsdao: image deleted", "ref", ref)
	return nil
}

func (f *FSDAO) ListSBDPairs(ctx context.Context) ([]index.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readSBDLocked()
}

func (f *FSDAO) readSBDLocked() ([]index.Pair, error) {
	data, err := os.ReadFile(f.sbdPath())
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, diderr.Wrap(diderr.IoFailure, err, "dao: failed to read sbd file")
	}

	var pairs []index.Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, diderr.Wrap(diderr.DecodeFailure, err, "dao: corrupt sbd file")
	}

	// The DAO contract promises pairs ordered ascending by A with A < B
	// (PostgresDAO gets this for free from ORDER BY external_ref);
	// sbd.json is appended to in insertion order, so normalize and sort
	// here too. AttachAll's merge-walk is a single ascending pass and
	// silently drops an out-of-order exclusion instead of erroring.
	for i, p := range pairs {
		if p.A > p.B {
			pairs[i].A, pairs[i].B = p.B, p.A
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].A < pairs[j].A })
	return pairs, nil
}

// AppendSBDPair records a new similar-but-different pair in sbd.json. It
// is not part of the DAO interface and the dispatcher never calls it;
// pairs added here are seen by later ListSBDPairs calls, and so by
// refresh_similar_but_different.
func (f *FSDAO) AppendSBDPair(pair index.Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	pairs, err := f.readSBDLocked()
	if err != nil {
		return err
	}
	pairs = append(pairs, pair)

	data, err := json.Marshal(pairs)
	if err != nil {
		return diderr.Wrap(diderr.DecodeFailure, err, "dao: failed to serialize sbd pairs")
	}

	tmp := f.sbdPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return diderr.Wrap(diderr.IoFailure, err, "dao: failed to write temp sbd file")
	}
	if err := os.Rename(tmp, f.sbdPath()); err != nil {
		os.Remove(tmp)
		return diderr.Wrap(diderr.IoFailure, err, "dao: failed to rename sbd file")
	}
	return nil
}

func (f *FSDAO) Close(ctx context.Context) error {
	return nil
}

var _ DAO = (*FSDAO)(nil)
