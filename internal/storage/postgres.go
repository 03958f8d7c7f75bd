package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nova-social/nova-faces/internal/config"
	"github.com/nova-social/nova-faces/internal/models"
)

// PostgresStore owns the face_embeddings gallery. Records are inserted and
// bulk-deleted, never updated, so no read-modify-write coordination is
// needed beyond what Postgres provides.
type PostgresStore struct {
	pool *pgxpool.Pool
	// dim is the fixed embedding length; inserts with a different length
	// are rejected to keep the gallery schema-consistent.
	dim int
}

func NewPostgresStore(cfg config.DatabaseConfig, embeddingDim int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool, dim: embeddingDim}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertFace persists a new gallery record and fills in its ID and
// CreatedAt. The embedding length must match the configured dimension.
func (s *PostgresStore) InsertFace(ctx context.Context, rec *models.FaceEmbeddingRecord) error {
	if len(rec.Embedding) != s.dim {
		return fmt.Errorf("insert face: embedding has %d values, store requires %d", len(rec.Embedding), s.dim)
	}
	if rec.Label == "" {
		return fmt.Errorf("insert face: empty label")
	}

	rec.ID = uuid.New()
	vec := pgvector.NewVector(rec.Embedding)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_embeddings (id, owner_id, embedding, label, source_key)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		rec.ID, rec.OwnerID, vec, rec.Label, rec.SourceKey,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face: %w", err)
	}
	return nil
}

// ListFacesByOwner returns the owner's records without embedding vectors.
// This is the display projection used by the listing endpoint.
func (s *PostgresStore) ListFacesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.FaceEmbeddingRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, label, source_key, created_at
		 FROM face_embeddings WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list faces by owner: %w", err)
	}
	defer rows.Close()

	var records []models.FaceEmbeddingRecord
	for rows.Next() {
		var rec models.FaceEmbeddingRecord
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Label, &rec.SourceKey, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListAllFaces loads the full gallery with embeddings and resolved owner
// display names. This is the candidate set for recognition.
func (s *PostgresStore) ListAllFaces(ctx context.Context) ([]models.FaceEmbeddingRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fe.id, fe.owner_id, u.display_name, fe.embedding, fe.label, fe.source_key, fe.created_at
		 FROM face_embeddings fe
		 JOIN users u ON u.id = fe.owner_id
		 ORDER BY fe.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list all faces: %w", err)
	}
	defer rows.Close()

	var records []models.FaceEmbeddingRecord
	for rows.Next() {
		var rec models.FaceEmbeddingRecord
		var vec pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.OwnerName, &vec, &rec.Label, &rec.SourceKey, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteFacesByOwner removes every record owned by ownerID and reports how
// many were deleted. Deleting when none exist is not an error.
func (s *PostgresStore) DeleteFacesByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM face_embeddings WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete faces by owner: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
