package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/technohippies/scarlett-sub000/internal/model"
	"github.com/technohippies/scarlett-sub000/internal/pkg/dbutil"
)

type BookmarkRepo struct {
	db *sql.DB
}

func NewBookmarkRepo(db *sql.DB) *BookmarkRepo {
	return &BookmarkRepo{db: db}
}

func (r *BookmarkRepo) Insert(ctx context.Context, bm *model.Bookmark) error {
	data := map[string]interface{}{
		"id":    bm.ID,
		"url":   bm.URL,
		"title": bm.Title,
		"note":  bm.Note,
		"ctime": bm.Ctime,
	}
	if len(bm.Embedding) > 0 {
		data["embedding"] = pgvector.NewVector(bm.Embedding)
	}
	sqlStr, args, err := builder.BuildInsert("bookmarks", []map[string]interface{}{data})
	if err != nil {
		return wrapStore(err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return wrapStore(err)
}

func (r *BookmarkRepo) SearchByEmbedding(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredBookmark, error) {
	const query = `
		SELECT id, url, title, note, ctime, 1 - (embedding <=> $1) AS similarity
		FROM (
			SELECT * FROM bookmarks
			WHERE embedding IS NOT NULL AND vector_dims(embedding) = $2
		) b
		WHERE 1 - (b.embedding <=> $1) >= $3
		ORDER BY b.embedding <=> $1
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(vector), len(vector), minScore, limit)
	if err != nil {
		return nil, wrapStore(err)
	}
	defer func() { _ = rows.Close() }()
	results := make([]model.ScoredBookmark, 0)
	for rows.Next() {
		var b model.ScoredBookmark
		if err := rows.Scan(&b.ID, &b.URL, &b.Title, &b.Note, &b.Ctime, &b.Similarity); err != nil {
			return nil, wrapStore(err)
		}
		results = append(results, b)
	}
	return results, wrapStore(rows.Err())
}

func (r *BookmarkRepo) SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredBookmark, error) {
	if len(words) == 0 {
		return []model.ScoredBookmark{}, nil
	}
	cond, args := keywordCondition([]string{"title", "note", "url"}, words, 1)
	query := fmt.Sprintf(`
		SELECT id, url, title, note, ctime, 0 AS similarity
		FROM bookmarks
		WHERE %s
		ORDER BY ctime DESC
		LIMIT $%d
	`, cond, len(args)+1)
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStore(err)
	}
	defer func() { _ = rows.Close() }()
	results := make([]model.ScoredBookmark, 0)
	for rows.Next() {
		var b model.ScoredBookmark
		if err := rows.Scan(&b.ID, &b.URL, &b.Title, &b.Note, &b.Ctime, &b.Similarity); err != nil {
			return nil, wrapStore(err)
		}
		results = append(results, b)
	}
	return results, wrapStore(rows.Err())
}
