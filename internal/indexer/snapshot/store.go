package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
)

// FileStore keeps the two artifacts of a snapshot as files in one
// directory. Each file is replaced atomically with write-then-rename, so a
// reader sees either the old or the new artifact, never a partial one.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: slog.Default().With("component", "snapshot-store", "dir", dir),
	}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) String() string {
	return "file:" + s.dir
}

// Save creates the directory if needed and writes both artifacts.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return apperrors.Storage("creating snapshot directory", err)
	}
	indexData, err := EncodeIndex(snap)
	if err != nil {
		return err
	}
	docData, err := EncodeDocMap(snap)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.writeArtifact(ctx, IndexArtifact, indexData)
	})
	g.Go(func() error {
		return s.writeArtifact(ctx, DocMapArtifact, docData)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("snapshot saved",
		"build_id", snap.BuildID,
		"terms", len(snap.Terms),
		"docs", len(snap.Documents),
		"index_bytes", len(indexData),
		"docmap_bytes", len(docData),
	)
	return nil
}

// Load reads both artifacts. A missing, truncated or mismatched pair is
// reported as ErrSnapshotNotFound.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	idx, err := s.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.LoadDocMap(ctx)
	if err != nil {
		return nil, err
	}
	return Merge(idx, docs)
}

func (s *FileStore) LoadIndex(ctx context.Context) (*Snapshot, error) {
	data, err := s.readArtifact(ctx, IndexArtifact)
	if err != nil {
		return nil, err
	}
	return DecodeIndex(data)
}

func (s *FileStore) LoadDocMap(ctx context.Context) (*Snapshot, error) {
	data, err := s.readArtifact(ctx, DocMapArtifact)
	if err != nil {
		return nil, err
	}
	return DecodeDocMap(data)
}

func (s *FileStore) readArtifact(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("%s does not exist", path)
		}
		return nil, apperrors.Storage(fmt.Sprintf("reading %s", path), err)
	}
	return data, nil
}

func (s *FileStore) writeArtifact(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	finalPath := filepath.Join(s.dir, name)
	f, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return apperrors.Storage("creating temp snapshot file", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return apperrors.Storage(fmt.Sprintf("writing %s", name), err)
	}
	if err := f.Chmod(0o644); err != nil {
		return apperrors.Storage(fmt.Sprintf("setting mode of %s", name), err)
	}
	if err := f.Sync(); err != nil {
		return apperrors.Storage(fmt.Sprintf("syncing %s", name), err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Storage(fmt.Sprintf("closing %s", name), err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return apperrors.Storage(fmt.Sprintf("renaming %s", name), err)
	}
	committed = true
	return nil
}
