package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/tobsdb/sqlanalyzer/pkg"
)

const (
	metaFile    = "meta.json"
	catalogsDir = "catalogs"
)

type registryMeta struct {
	NextID int64   `json:"nextId"`
	IDs    []int64 `json:"ids"`
}

func entryFile(base string, id int64) string {
	return path.Join(base, catalogsDir, strconv.FormatInt(id, 10)+".json")
}

// ReadFromFile loads a previously written registry. A missing state dir is
// an empty registry.
func (r *Registry) ReadFromFile() error {
	if r.WriteSettings == nil || r.WriteSettings.WritePath == "" {
		return nil
	}
	base := r.WriteSettings.WritePath

	f, err := os.Open(path.Join(base, metaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			pkg.DebugLog("no registry state in", base)
			return nil
		}
		return err
	}
	defer f.Close()

	meta := registryMeta{}
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		if err == io.EOF {
			pkg.WarnLog("read empty registry file")
			return nil
		}
		return fmt.Errorf("decoding %s: %w", metaFile, err)
	}

	for _, id := range meta.IDs {
		buf, err := os.ReadFile(entryFile(base, id))
		if err != nil {
			return err
		}
		entry := &Entry{}
		if err := json.Unmarshal(buf, entry); err != nil {
			return fmt.Errorf("decoding catalog %d: %w", id, err)
		}
		if entry.Catalog == nil {
			return fmt.Errorf("%w: catalog %d has no content", ErrInvalidCatalog, id)
		}
		entry.ID = id
		r.entries.Insert(id, entry)
		if id >= meta.NextID {
			meta.NextID = id + 1
		}
	}
	if meta.NextID > r.next_id {
		r.next_id = meta.NextID
	}

	pkg.InfoLog("loaded", len(meta.IDs), "catalogs from", base)
	return nil
}

func (r *Registry) WriteToFile() error {
	if r.WriteSettings == nil || r.WriteSettings.InMem {
		return nil
	}
	base := r.WriteSettings.WritePath
	pkg.DebugLog("writing registry to disk", base)

	r.Locker.RLock()
	defer r.Locker.RUnlock()

	entries := r.list()
	meta := registryMeta{NextID: r.next_id, IDs: make([]int64, 0, len(entries))}
	for _, entry := range entries {
		meta.IDs = append(meta.IDs, entry.ID)
	}

	if err := os.MkdirAll(path.Join(base, catalogsDir), 0755); err != nil {
		return err
	}

	for _, entry := range entries {
		buf, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := os.WriteFile(entryFile(base, entry.ID), buf, 0644); err != nil {
			return err
		}
	}

	meta_data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path.Join(base, metaFile), meta_data, 0644); err != nil {
		return err
	}

	return r.removeStale(base, meta.IDs)
}

// removeStale deletes files of catalogs that have been unregistered.
func (r *Registry) removeStale(base string, ids []int64) error {
	keep := pkg.Map[string, bool]{}
	for _, id := range ids {
		keep.Set(strconv.FormatInt(id, 10)+".json", true)
	}
	files, err := os.ReadDir(path.Join(base, catalogsDir))
	if err != nil {
		return err
	}
	stale := pkg.Filter(files, func(f os.DirEntry) bool { return !f.IsDir() && !keep.Has(f.Name()) })
	for _, f := range stale {
		if err := os.Remove(path.Join(base, catalogsDir, f.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Run writes the registry every write interval when it has changed since
// the last write, and once more when ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if r.WriteSettings == nil || r.WriteSettings.InMem {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.WriteSettings.WriteInterval)
	defer ticker.Stop()

	var last_write time.Time
	pkg.RLockWrap(r, func() { last_write = r.LastChange })

	for {
		select {
		case <-ctx.Done():
			pkg.DebugLog("flushing registry before shutdown")
			return r.WriteToFile()
		case <-ticker.C:
			var last_change time.Time
			pkg.RLockWrap(r, func() { last_change = r.LastChange })
			if !last_change.After(last_write) {
				continue
			}
			if err := r.WriteToFile(); err != nil {
				pkg.ErrorLog("writing registry", err)
				continue
			}
			last_write = last_change
		}
	}
}
