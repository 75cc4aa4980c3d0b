package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/facewatch/internal/database"
)

// EncodingRepository caches gallery embeddings keyed by object name. Rows
// record the model and length of their embedding.
type EncodingRepository struct {
	pool *Pool
}

// NewEncodingRepository creates a new PostgreSQL encoding repository
func NewEncodingRepository(pool *Pool) *EncodingRepository {
	return &EncodingRepository{pool: pool}
}

// Get retrieves an encoding by object name, returns nil if not found
func (r *EncodingRepository) Get(ctx context.Context, objectName string) (*database.StoredEncoding, error) {
	query := `
		SELECT object_name, person, filename, embedding, dim, model, created_at
		FROM encodings
		WHERE object_name = $1
	`

	var enc database.StoredEncoding
	var vec pgvector.Vector

	err := r.pool.QueryRow(ctx, query, objectName).Scan(
		&enc.ObjectName,
		&enc.Person,
		&enc.Filename,
		&vec,
		&enc.Dim,
		&enc.Model,
		&enc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query encoding: %w", err)
	}

	enc.Embedding = vec.Slice()
	return &enc, nil
}

// Count returns the total number of cached encodings
func (r *EncodingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM encodings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count encodings: %w", err)
	}
	return count, nil
}

// ListPersons returns every cached person with its encoding count.
func (r *EncodingRepository) ListPersons(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, "SELECT person, COUNT(*) FROM encodings GROUP BY person")
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	persons := make(map[string]int)
	for rows.Next() {
		var person string
		var count int
		if err := rows.Scan(&person, &count); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons[person] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return persons, nil
}

// Save stores an encoding, replacing any previous one for the same object
func (r *EncodingRepository) Save(ctx context.Context, enc database.StoredEncoding) error {
	query := `
		INSERT INTO encodings (object_name, person, filename, embedding, dim, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (object_name) DO UPDATE SET
			person = EXCLUDED.person,
			filename = EXCLUDED.filename,
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim,
			model = EXCLUDED.model,
			created_at = NOW()
	`

	dim := enc.Dim
	if dim == 0 {
		dim = len(enc.Embedding)
	}

	_, err := r.pool.Exec(ctx, query,
		enc.ObjectName,
		enc.Person,
		enc.Filename,
		pgvector.NewVector(enc.Embedding),
		dim,
		enc.Model,
	)
	if err != nil {
		return fmt.Errorf("save encoding %s: %w", enc.ObjectName, err)
	}
	return nil
}

// DeleteMissing removes encodings whose object is no longer in the gallery.
func (r *EncodingRepository) DeleteMissing(ctx context.Context, keep []string) (int, error) {
	if keep == nil {
		keep = []string{}
	}
	result, err := r.pool.Exec(ctx, "DELETE FROM encodings WHERE NOT (object_name = ANY($1))", pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("delete stale encodings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// Nearest returns the encoding of model closest to embedding by Euclidean
// distance, or nil when no encoding of that model and length is cached.
func (r *EncodingRepository) Nearest(ctx context.Context, model string, embedding []float32) (*database.StoredEncoding, float64, error) {
	query := `
		SELECT object_name, person, filename, embedding, dim, model, created_at, embedding <-> $1 AS distance
		FROM encodings
		WHERE model = $2 AND dim = $3
		ORDER BY embedding <-> $1
		LIMIT 1
	`

	var enc database.StoredEncoding
	var vec pgvector.Vector
	var distance float64

	err := r.pool.QueryRow(ctx, query, pgvector.NewVector(embedding), model, len(embedding)).Scan(
		&enc.ObjectName,
		&enc.Person,
		&enc.Filename,
		&vec,
		&enc.Dim,
		&enc.Model,
		&enc.CreatedAt,
		&distance,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("query nearest encoding: %w", err)
	}

	enc.Embedding = vec.Slice()
	return &enc, distance, nil
}

var _ database.EncodingWriter = (*EncodingRepository)(nil)
