package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/technohippies/scarlett-sub000/internal/model"
	"github.com/technohippies/scarlett-sub000/internal/pkg/dbutil"
)

// LearningRepo has no embedding index; the retrieval layer reaches it only
// through the keyword path.
type LearningRepo struct {
	db *sql.DB
}

func NewLearningRepo(db *sql.DB) *LearningRepo {
	return &LearningRepo{db: db}
}

func (r *LearningRepo) Insert(ctx context.Context, note *model.LearningNote) error {
	data := map[string]interface{}{
		"id":      note.ID,
		"word":    note.Word,
		"content": note.Content,
		"ctime":   note.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("learning_notes", []map[string]interface{}{data})
	if err != nil {
		return wrapStore(err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return wrapStore(err)
}

func (r *LearningRepo) SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.LearningNote, error) {
	if len(words) == 0 {
		return []model.LearningNote{}, nil
	}
	cond, args := keywordCondition([]string{"word", "content"}, words, 1)
	query := fmt.Sprintf(`
		SELECT id, word, content, ctime
		FROM learning_notes
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
	results := make([]model.LearningNote, 0)
	for rows.Next() {
		var n model.LearningNote
		if err := rows.Scan(&n.ID, &n.Word, &n.Content, &n.Ctime); err != nil {
			return nil, wrapStore(err)
		}
		results = append(results, n)
	}
	return results, wrapStore(rows.Err())
}
