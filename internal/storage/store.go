package storage

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// revision is one stored version of a file: the path to its
// process-scoped temp file on disk and the size written to it.
type revision struct {
	path string
	size int64
}

// fileEntry holds every revision ever stored at a path, plus a
// content-hash index used to deduplicate identical uploads.
type fileEntry struct {
	mu        sync.Mutex
	revisions []revision
	hashes    map[string]int // hex sha1 -> 1-based revision
}

func (f *fileEntry) insert(path string, size int64, hash string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rev, ok := f.hashes[hash]; ok {
		return rev
	}
	f.revisions = append(f.revisions, revision{path: path, size: size})
	rev := len(f.revisions)
	if f.hashes == nil {
		f.hashes = make(map[string]int)
	}
	f.hashes[hash] = rev
	return rev
}

func (f *fileEntry) get(rev int) (revision, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rev < 1 || rev > len(f.revisions) {
		return revision{}, false
	}
	return f.revisions[rev-1], true
}

func (f *fileEntry) lastRevision() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.revisions)
}

// dirItem is an entry in a directory's child set: either a
// subdirectory name or a file name. Mirrors the original
// implementation's DirItemStab, ordered by name for deterministic
// LIST output.
type dirItem struct {
	name  string
	isDir bool
}

type dirEntry struct {
	mu    sync.Mutex
	items map[string]dirItem
}

func (d *dirEntry) add(item dirItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.items == nil {
		d.items = make(map[string]dirItem)
	}
	d.items[item.name] = item
}

func (d *dirEntry) sorted() []dirItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dirItem, 0, len(d.items))
	for _, it := range d.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// GetFileErr distinguishes a missing file from a missing revision of
// an existing file, per the original implementation's GetFileErr.
type GetFileErr struct {
	RevisionNotFound bool
}

func (e *GetFileErr) Error() string {
	if e.RevisionNotFound {
		return "no such revision"
	}
	return "no such file"
}

// ListResult is one entry returned by Store.List.
type ListResult struct {
	Name         string
	IsDir        bool
	LastRevision int
}

// Store is the in-memory, process-scoped content store: a map of file
// paths to their revision history, and a map of directory paths to
// their child-entry sets, kept in sync on every insert.
type Store struct {
	files sync.Map // string -> *fileEntry
	dirs  sync.Map // string -> *dirEntry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Insert records a new revision of filepath backed by the temp file
// at tmpPath (size bytes, already hashed to hash). Returns the
// revision number: an existing revision if the content hash matches
// one already stored, otherwise the newly appended one.
func (s *Store) Insert(filepath string, tmpPath string, size int64, hash string) int {
	v, _ := s.files.LoadOrStore(filepath, &fileEntry{})
	entry := v.(*fileEntry)
	revision := entry.insert(tmpPath, size, hash)

	s.indexDirs(filepath)
	return revision
}

// indexDirs ensures every ancestor directory of filepath has an entry
// recording this file (and each intermediate directory recording its
// child subdirectory), mirroring the original implementation's walk
// from root down to the file's parent.
func (s *Store) indexDirs(filepath string) {
	parts := strings.Split(filepath[1:], "/")
	filename := parts[len(parts)-1]
	dirParts := parts[:len(parts)-1]

	path := "/"
	for _, name := range dirParts {
		v, _ := s.dirs.LoadOrStore(path, &dirEntry{})
		v.(*dirEntry).add(dirItem{name: name, isDir: true})
		path += name + "/"
	}
	v, _ := s.dirs.LoadOrStore(path, &dirEntry{})
	v.(*dirEntry).add(dirItem{name: filename, isDir: false})
}

// Get returns the temp file path and size for filepath at revision
// (or the latest revision if nil).
func (s *Store) Get(filepath string, revision *int) (tmpPath string, size int64, err error) {
	v, ok := s.files.Load(filepath)
	if !ok {
		return "", 0, &GetFileErr{}
	}
	entry := v.(*fileEntry)

	rev := 0
	if revision != nil {
		rev = *revision
	} else {
		rev = entry.lastRevision()
	}
	r, ok := entry.get(rev)
	if !ok {
		return "", 0, &GetFileErr{RevisionNotFound: true}
	}
	return r.path, r.size, nil
}

// List returns the children of dirPath, or an empty slice if the
// directory has no entries (or doesn't exist).
func (s *Store) List(dirPath string) []ListResult {
	v, ok := s.dirs.Load(dirPath)
	if !ok {
		return nil
	}
	items := v.(*dirEntry).sorted()
	out := make([]ListResult, 0, len(items))
	for _, it := range items {
		if it.isDir {
			out = append(out, ListResult{Name: it.name, IsDir: true})
			continue
		}
		fv, ok := s.files.Load(fmt.Sprintf("%s%s", dirPath, it.name))
		lastRev := 0
		if ok {
			lastRev = fv.(*fileEntry).lastRevision()
		}
		out = append(out, ListResult{Name: it.name, LastRevision: lastRev})
	}
	return out
}

// Cleanup removes the temp file behind every stored revision; the temp
// file of an upload deduplicated against an existing revision is not
// recorded and is not removed here. Called
// on process shutdown; per spec.md's Non-goal on persistence, nothing
// needs to survive past the process lifetime.
func (s *Store) Cleanup() {
	s.files.Range(func(_, v any) bool {
		entry := v.(*fileEntry)
		for _, r := range entry.revisions {
			os.Remove(r.path)
		}
		return true
	})
}
