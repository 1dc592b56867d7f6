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

type ChatMessageRepo struct {
	db *sql.DB
}

func NewChatMessageRepo(db *sql.DB) *ChatMessageRepo {
	return &ChatMessageRepo{db: db}
}

func (r *ChatMessageRepo) Insert(ctx context.Context, msg *model.ChatMessage) error {
	data := map[string]interface{}{
		"id":        msg.ID,
		"thread_id": msg.ThreadID,
		"role":      msg.Role,
		"content":   msg.Content,
		"ctime":     msg.Ctime,
	}
	if len(msg.Embedding) > 0 {
		data["embedding"] = pgvector.NewVector(msg.Embedding)
	}
	sqlStr, args, err := builder.BuildInsert("chat_messages", []map[string]interface{}{data})
	if err != nil {
		return wrapStore(err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return wrapStore(err)
}

// SearchByEmbedding ranks messages by cosine similarity. The inner filter on
// vector_dims keeps rows embedded with a different model out of the distance
// computation.
func (r *ChatMessageRepo) SearchByEmbedding(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredChatMessage, error) {
	const query = `
		SELECT id, thread_id, role, content, ctime, 1 - (embedding <=> $1) AS similarity
		FROM (
			SELECT * FROM chat_messages
			WHERE embedding IS NOT NULL AND vector_dims(embedding) = $2
		) m
		WHERE 1 - (m.embedding <=> $1) >= $3
		ORDER BY m.embedding <=> $1
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(vector), len(vector), minScore, limit)
	if err != nil {
		return nil, wrapStore(err)
	}
	defer func() { _ = rows.Close() }()
	results := make([]model.ScoredChatMessage, 0)
	for rows.Next() {
		var m model.ScoredChatMessage
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.Ctime, &m.Similarity); err != nil {
			return nil, wrapStore(err)
		}
		results = append(results, m)
	}
	return results, wrapStore(rows.Err())
}

func (r *ChatMessageRepo) SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredChatMessage, error) {
	if len(words) == 0 {
		return []model.ScoredChatMessage{}, nil
	}
	cond, args := keywordCondition([]string{"content"}, words, 1)
	query := fmt.Sprintf(`
		SELECT id, thread_id, role, content, ctime, 0 AS similarity
		FROM chat_messages
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
	results := make([]model.ScoredChatMessage, 0)
	for rows.Next() {
		var m model.ScoredChatMessage
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.Ctime, &m.Similarity); err != nil {
			return nil, wrapStore(err)
		}
		results = append(results, m)
	}
	return results, wrapStore(rows.Err())
}
