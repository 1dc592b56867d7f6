package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/technohippies/scarlett-sub000/internal/model"
	"github.com/technohippies/scarlett-sub000/internal/pkg/dbutil"
	appErr "github.com/technohippies/scarlett-sub000/internal/pkg/errors"
	"github.com/technohippies/scarlett-sub000/internal/pkg/timeutil"
)

// Dimension slots. Each supported embedding dimension maps to its own vector
// column so that vectors of different models never meet in one comparison.
var vectorColumns = map[int]string{
	768:  "embedding_768",
	1024: "embedding_1024",
	1536: "embedding_1536",
}

func VectorColumnForDimension(dim int) (string, bool) {
	col, ok := vectorColumns[dim]
	return col, ok
}

var versionColumns = []string{
	"id", "url", "title", "raw_content", "raw_content_hash",
	"summary_content", "summary_hash", "active_embedding_dimension",
	"visit_count", "status", "ctime", "last_processed_at",
}

type VersionRepo struct {
	db *sql.DB
}

func NewVersionRepo(db *sql.DB) *VersionRepo {
	return &VersionRepo{db: db}
}

func (r *VersionRepo) CreatePending(ctx context.Context, v *model.ContentVersion) error {
	data := map[string]interface{}{
		"id":                         v.ID,
		"url":                        v.URL,
		"title":                      v.Title,
		"raw_content":                v.RawContent,
		"raw_content_hash":           v.RawContentHash,
		"summary_content":            "",
		"summary_hash":               "",
		"active_embedding_dimension": 0,
		"visit_count":                1,
		"status":                     model.VersionStatusPending,
		"ctime":                      v.Ctime,
		"last_processed_at":          0,
	}
	sqlStr, args, err := builder.BuildInsert("content_versions", []map[string]interface{}{data})
	if err != nil {
		return wrapStore(err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return wrapStore(err)
}

func (r *VersionRepo) GetPendingCandidates(ctx context.Context, limit int) ([]model.ContentVersion, error) {
	where := map[string]interface{}{
		"status":   model.VersionStatusPending,
		"_orderby": "ctime asc",
		"_limit":   []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("content_versions", where, versionColumns)
	if err != nil {
		return nil, wrapStore(err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, wrapStore(err)
	}
	defer func() { _ = rows.Close() }()
	versions := make([]model.ContentVersion, 0)
	for rows.Next() {
		var v model.ContentVersion
		if err := scanVersion(rows, &v); err != nil {
			return nil, wrapStore(err)
		}
		versions = append(versions, v)
	}
	return versions, wrapStore(rows.Err())
}

func (r *VersionRepo) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM content_versions WHERE status = $1`
	row := r.db.QueryRowContext(ctx, query, model.VersionStatusPending)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, wrapStore(err)
	}
	return count, nil
}

// GetLatestFinalized returns the most recently finalized version for a URL,
// or appErr.ErrNotFound when the URL has never been finalized.
func (r *VersionRepo) GetLatestFinalized(ctx context.Context, url string) (*model.ContentVersion, error) {
	where := map[string]interface{}{
		"url":      url,
		"status":   model.VersionStatusFinalized,
		"_orderby": "last_processed_at desc",
		"_limit":   []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("content_versions", where, versionColumns)
	if err != nil {
		return nil, wrapStore(err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, wrapStore(err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var v model.ContentVersion
	if err := scanVersion(rows, &v); err != nil {
		return nil, wrapStore(err)
	}
	return &v, nil
}

// MarkSummarized is idempotent; re-running it with the same values is a no-op
// at the data level.
func (r *VersionRepo) MarkSummarized(ctx context.Context, versionID, summary, summaryHash string) error {
	const query = `
		UPDATE content_versions
		SET summary_content = $1, summary_hash = $2, last_processed_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, summary, summaryHash, timeutil.NowUnix(), versionID)
	return wrapStore(err)
}

// Finalize stores the vector in the slot matching its dimension and flips the
// status in a single UPDATE, so a finalized row always carries its embedding.
func (r *VersionRepo) Finalize(ctx context.Context, versionID string, vector []float32, dim int) error {
	col, ok := VectorColumnForDimension(dim)
	if !ok {
		return fmt.Errorf("%w: no storage slot for dimension %d", appErr.ErrInvalid, dim)
	}
	query := fmt.Sprintf(`
		UPDATE content_versions
		SET %s = $1, active_embedding_dimension = $2, status = $3, last_processed_at = $4
		WHERE id = $5
	`, col)
	_, err := r.db.ExecContext(ctx, query,
		pgvector.NewVector(vector), dim, model.VersionStatusFinalized, timeutil.NowUnix(), versionID)
	return wrapStore(err)
}

// MarkDuplicate bumps the survivor's visit count and removes the candidate in
// one transaction; either both mutations land or neither does.
func (r *VersionRepo) MarkDuplicate(ctx context.Context, survivorID, candidateID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStore(err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`UPDATE content_versions SET visit_count = visit_count + 1, last_processed_at = $1 WHERE id = $2`,
		timeutil.NowUnix(), survivorID); err != nil {
		return wrapStore(err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM content_versions WHERE id = $1`, candidateID); err != nil {
		return wrapStore(err)
	}
	return wrapStore(tx.Commit())
}

func (r *VersionRepo) IncrementVisitCount(ctx context.Context, versionID string) error {
	const query = `UPDATE content_versions SET visit_count = visit_count + 1, last_processed_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, timeutil.NowUnix(), versionID)
	return wrapStore(err)
}

func (r *VersionRepo) Delete(ctx context.Context, versionID string) error {
	const query = `DELETE FROM content_versions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, versionID)
	return wrapStore(err)
}

// GetVectorForVersion reads back the stored vector from the version's active
// slot. Returns appErr.ErrNotFound when the row exists but no slot is
// populated.
func (r *VersionRepo) GetVectorForVersion(ctx context.Context, versionID string) ([]float32, int, error) {
	const dimQuery = `SELECT active_embedding_dimension FROM content_versions WHERE id = $1`
	var dim int
	if err := r.db.QueryRowContext(ctx, dimQuery, versionID).Scan(&dim); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, appErr.ErrNotFound
		}
		return nil, 0, wrapStore(err)
	}
	col, ok := VectorColumnForDimension(dim)
	if !ok {
		return nil, 0, appErr.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM content_versions WHERE id = $1`, col)
	var vec pgvector.Vector
	if err := r.db.QueryRowContext(ctx, query, versionID).Scan(&vec); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, appErr.ErrNotFound
		}
		return nil, 0, wrapStore(err)
	}
	values := vec.Slice()
	if len(values) == 0 {
		return nil, 0, appErr.ErrNotFound
	}
	return values, dim, nil
}

// CosineDistance delegates the distance computation to the store's native
// operator. Both vectors must have the same length.
func (r *VersionRepo) CosineDistance(ctx context.Context, a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d != %d", appErr.ErrInvalid, len(a), len(b))
	}
	const query = `SELECT $1::vector <=> $2::vector`
	var distance float64
	if err := r.db.QueryRowContext(ctx, query, pgvector.NewVector(a), pgvector.NewVector(b)).Scan(&distance); err != nil {
		return 0, wrapStore(err)
	}
	return distance, nil
}

// SearchBySimilarity finds finalized versions whose summary embedding in the
// matching dimension slot is close to the query vector. Rows embedded in a
// different dimension are never compared.
func (r *VersionRepo) SearchBySimilarity(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredPage, error) {
	col, ok := VectorColumnForDimension(len(vector))
	if !ok {
		return []model.ScoredPage{}, nil
	}
	query := fmt.Sprintf(`
		SELECT id, url, title, summary_content, ctime, 1 - (%s <=> $1) AS similarity
		FROM content_versions
		WHERE status = $2
			AND active_embedding_dimension = $3
			AND %s IS NOT NULL
			AND 1 - (%s <=> $1) >= $4
		ORDER BY %s <=> $1
		LIMIT $5
	`, col, col, col, col)
	rows, err := r.db.QueryContext(ctx, query,
		pgvector.NewVector(vector), model.VersionStatusFinalized, len(vector), minScore, limit)
	if err != nil {
		return nil, wrapStore(err)
	}
	defer func() { _ = rows.Close() }()
	results := make([]model.ScoredPage, 0)
	for rows.Next() {
		var p model.ScoredPage
		if err := rows.Scan(&p.ID, &p.URL, &p.Title, &p.Summary, &p.Ctime, &p.Similarity); err != nil {
			return nil, wrapStore(err)
		}
		results = append(results, p)
	}
	return results, wrapStore(rows.Err())
}

// SearchByKeyword matches finalized versions whose summary or title contains
// any of the words, case-insensitively.
func (r *VersionRepo) SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredPage, error) {
	if len(words) == 0 {
		return []model.ScoredPage{}, nil
	}
	cond, args := keywordCondition([]string{"summary_content", "title"}, words, 2)
	query := fmt.Sprintf(`
		SELECT id, url, title, summary_content, ctime, 0 AS similarity
		FROM content_versions
		WHERE status = $1 AND (%s)
		ORDER BY last_processed_at DESC
		LIMIT $%d
	`, cond, len(args)+2)
	queryArgs := append([]interface{}{model.VersionStatusFinalized}, args...)
	queryArgs = append(queryArgs, limit)
	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, wrapStore(err)
	}
	defer func() { _ = rows.Close() }()
	results := make([]model.ScoredPage, 0)
	for rows.Next() {
		var p model.ScoredPage
		if err := rows.Scan(&p.ID, &p.URL, &p.Title, &p.Summary, &p.Ctime, &p.Similarity); err != nil {
			return nil, wrapStore(err)
		}
		results = append(results, p)
	}
	return results, wrapStore(rows.Err())
}

func scanVersion(rows *sql.Rows, v *model.ContentVersion) error {
	return rows.Scan(&v.ID, &v.URL, &v.Title, &v.RawContent, &v.RawContentHash,
		&v.SummaryContent, &v.SummaryHash, &v.ActiveDimension,
		&v.VisitCount, &v.Status, &v.Ctime, &v.LastProcessedAt)
}

func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", appErr.ErrStore, err)
}
