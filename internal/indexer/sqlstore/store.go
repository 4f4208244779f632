// Package sqlstore keeps index snapshots in a SQL table, one row per
// artifact. Both artifacts of a build are written in a single transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
)

const tableName = "index_snapshots"

type dialect struct {
	createTable string
	upsert      string
	selectOne   string
}

var dialects = map[string]dialect{
	database.DriverPostgres: {
		createTable: `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			name       TEXT PRIMARY KEY,
			build_id   TEXT NOT NULL,
			data       BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		upsert: `INSERT INTO ` + tableName + ` (name, build_id, data, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET
				build_id = EXCLUDED.build_id,
				data = EXCLUDED.data,
				updated_at = EXCLUDED.updated_at`,
		selectOne: `SELECT data FROM ` + tableName + ` WHERE name = $1`,
	},
	database.DriverSQLite: {
		createTable: `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			name       TEXT PRIMARY KEY,
			build_id   TEXT NOT NULL,
			data       BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		upsert: `INSERT INTO ` + tableName + ` (name, build_id, data, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET
				build_id = excluded.build_id,
				data = excluded.data,
				updated_at = excluded.updated_at`,
		selectOne: `SELECT data FROM ` + tableName + ` WHERE name = ?`,
	},
}

type Store struct {
	client  *database.Client
	dialect dialect
	logger  *slog.Logger
}

// New prepares the snapshot table on client.
func New(ctx context.Context, client *database.Client) (*Store, error) {
	d, ok := dialects[client.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported snapshot driver %q", client.Driver)
	}
	if _, err := client.DB.ExecContext(ctx, d.createTable); err != nil {
		return nil, apperrors.Storage("creating snapshot table", err)
	}
	return &Store{
		client:  client,
		dialect: d,
		logger:  slog.Default().With("component", "snapshot-store", "driver", client.Driver),
	}, nil
}

func (s *Store) String() string {
	return s.client.Driver + ":" + tableName
}

func (s *Store) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	indexData, err := snapshot.EncodeIndex(snap)
	if err != nil {
		return err
	}
	docData, err := snapshot.EncodeDocMap(snap)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	err = s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.dialect.upsert, snapshot.IndexArtifact, snap.BuildID, indexData, now); err != nil {
			return fmt.Errorf("writing %s: %w", snapshot.IndexArtifact, err)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.upsert, snapshot.DocMapArtifact, snap.BuildID, docData, now); err != nil {
			return fmt.Errorf("writing %s: %w", snapshot.DocMapArtifact, err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Storage("saving snapshot", err)
	}
	s.logger.Info("snapshot saved",
		"build_id", snap.BuildID,
		"terms", len(snap.Terms),
		"docs", len(snap.Documents),
	)
	return nil
}

func (s *Store) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	idx, err := s.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.LoadDocMap(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Merge(idx, docs)
}

func (s *Store) LoadIndex(ctx context.Context) (*snapshot.Snapshot, error) {
	data, err := s.read(ctx, snapshot.IndexArtifact)
	if err != nil {
		return nil, err
	}
	return snapshot.DecodeIndex(data)
}

func (s *Store) LoadDocMap(ctx context.Context) (*snapshot.Snapshot, error) {
	data, err := s.read(ctx, snapshot.DocMapArtifact)
	if err != nil {
		return nil, err
	}
	return snapshot.DecodeDocMap(data)
}

func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.client.DB.QueryRowContext(ctx, s.dialect.selectOne, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("no %s row in %s", name, tableName)
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Sprintf("reading %s", name), err)
	}
	return data, nil
}
