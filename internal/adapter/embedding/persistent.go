package embedding

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/logger"
)

// maxQueryVars bounds the IN (...) list of a single lookup.
const maxQueryVars = 500

var _ domain.EmbeddingProvider = (*PersistentCache)(nil)

// PersistentCache stores vectors in a SQLite database so that remote
// embeddings survive restarts. Rows are keyed by a hash of the text inside a
// namespace naming the backend, model and dimensions; the text itself is
// never written. Database errors are logged and degrade to calling the
// wrapped provider; only its errors reach the caller.
type PersistentCache struct {
	inner     domain.EmbeddingProvider
	db        *sql.DB
	namespace string
}

// NewPersistentCache opens (or creates) the database at dbPath and wraps
// inner with it.
func NewPersistentCache(inner domain.EmbeddingProvider, dbPath, model string) (*PersistentCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate embedding cache: %w", err)
	}
	return &PersistentCache{
		inner:     inner,
		db:        db,
		namespace: fmt.Sprintf("%s/%s/%d", inner.Name(), model, inner.Dimensions()),
	}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			vector     BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (namespace, key)
		)
	`); err != nil {
		return err
	}
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS embeddings_created_at ON embeddings (created_at)")
	return err
}

// Embed implements domain.EmbeddingProvider.
func (c *PersistentCache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = persistKey(t)
	}

	found, err := c.lookup(ctx, keys)
	if err != nil {
		c.log(ctx).Warn("embedding cache lookup failed", "error", err)
		found = nil
	}

	out := make([][]float32, len(texts))
	pending := make(map[string]int)
	var missTexts, missKeys []string
	for i, k := range keys {
		if v, ok := found[k]; ok {
			out[i] = v
			continue
		}
		if _, ok := pending[k]; !ok {
			pending[k] = len(missTexts)
			missTexts = append(missTexts, texts[i])
			missKeys = append(missKeys, k)
		}
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", domain.ErrEmbeddingFailed, len(vecs), len(missTexts))
	}
	for i, k := range keys {
		if out[i] == nil {
			out[i] = vecs[pending[k]]
		}
	}

	if err := c.store(ctx, missKeys, vecs); err != nil {
		c.log(ctx).Warn("embedding cache write failed", "error", err, "vectors", len(missKeys))
	}
	return out, nil
}

func (c *PersistentCache) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, slog.Default())
}

func (c *PersistentCache) lookup(ctx context.Context, keys []string) (map[string][]float32, error) {
	found := make(map[string][]float32, len(keys))
	for start := 0; start < len(keys); start += maxQueryVars {
		batch := keys[start:min(start+maxQueryVars, len(keys))]
		args := make([]any, 0, len(batch)+1)
		args = append(args, c.namespace)
		for _, k := range batch {
			args = append(args, k)
		}

		rows, err := c.db.QueryContext(ctx,
			"SELECT key, vector FROM embeddings WHERE namespace = ? AND key IN (?"+strings.Repeat(",?", len(batch)-1)+")",
			args...)
		if err != nil {
			return nil, fmt.Errorf("query embedding cache: %w", err)
		}
		for rows.Next() {
			var key string
			var blob []byte
			if err := rows.Scan(&key, &blob); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan embedding cache: %w", err)
			}
			if vec, ok := decodeVector(blob, c.inner.Dimensions()); ok {
				found[key] = vec
			}
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (c *PersistentCache) store(ctx context.Context, keys []string, vecs [][]float32) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin embedding cache write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO embeddings (namespace, key, vector, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare embedding cache write: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, k := range keys {
		if _, err := stmt.ExecContext(ctx, c.namespace, k, encodeVector(vecs[i]), now); err != nil {
			return fmt.Errorf("write embedding cache: %w", err)
		}
	}
	return tx.Commit()
}

// Prune deletes vectors cached before now minus maxAge.
func (c *PersistentCache) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM embeddings WHERE created_at < ?", time.Now().Add(-maxAge).Unix())
	if err != nil {
		return 0, fmt.Errorf("prune embedding cache: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of vectors stored for this namespace.
func (c *PersistentCache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE namespace = ?", c.namespace).Scan(&n)
	return n, err
}

// Close closes the database.
func (c *PersistentCache) Close() error { return c.db.Close() }

// Dimensions implements domain.EmbeddingProvider.
func (c *PersistentCache) Dimensions() int { return c.inner.Dimensions() }

// Name implements domain.EmbeddingProvider.
func (c *PersistentCache) Name() string { return c.inner.Name() }

// Unwrap returns the wrapped provider.
func (c *PersistentCache) Unwrap() domain.EmbeddingProvider { return c.inner }

func persistKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector rejects blobs whose length does not match dims.
func decodeVector(b []byte, dims int) ([]float32, bool) {
	if len(b) != 4*dims {
		return nil, false
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}

// Persistent returns the PersistentCache in p's wrapper chain, if any.
func Persistent(p domain.EmbeddingProvider) (*PersistentCache, bool) {
	for p != nil {
		if pc, ok := p.(*PersistentCache); ok {
			return pc, true
		}
		u, ok := p.(interface{ Unwrap() domain.EmbeddingProvider })
		if !ok {
			return nil, false
		}
		p = u.Unwrap()
	}
	return nil, false
}
