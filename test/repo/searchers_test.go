package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/technohippies/scarlett-sub000/internal/model"
	"github.com/technohippies/scarlett-sub000/internal/repo"
	"github.com/technohippies/scarlett-sub000/test/testutil"
)

func TestChatMessageRepo_SearchByEmbedding(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "chat_messages")
	r := repo.NewChatMessageRepo(conn)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, &model.ChatMessage{
		ID: "m1", ThreadID: "t1", Role: "user", Content: "close match",
		Embedding: makeVector(768, 0.5), Ctime: 100,
	}))
	// Different dimension, must never join the comparison.
	require.NoError(t, r.Insert(ctx, &model.ChatMessage{
		ID: "m2", ThreadID: "t1", Role: "user", Content: "other dimension",
		Embedding: makeVector(1024, 0.5), Ctime: 100,
	}))
	// No embedding at all.
	require.NoError(t, r.Insert(ctx, &model.ChatMessage{
		ID: "m3", ThreadID: "t1", Role: "user", Content: "keyword only", Ctime: 100,
	}))

	results, err := r.SearchByEmbedding(ctx, makeVector(768, 0.5), 0.3, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "m1", results[0].ID)

	keyword, err := r.SearchByKeyword(ctx, []string{"keyword"}, 10)
	require.NoError(t, err)
	require.Len(t, keyword, 1)
	require.Equal(t, "m3", keyword[0].ID)
}

func TestBookmarkRepo_Search(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "bookmarks")
	r := repo.NewBookmarkRepo(conn)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, &model.Bookmark{
		ID: "b1", URL: "https://go.dev", Title: "The Go Programming Language",
		Note: "language homepage", Embedding: makeVector(768, 0.5), Ctime: 100,
	}))

	results, err := r.SearchByEmbedding(ctx, makeVector(768, 0.5), 0.3, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	keyword, err := r.SearchByKeyword(ctx, []string{"homepage"}, 10)
	require.NoError(t, err)
	require.Len(t, keyword, 1)
	require.Equal(t, "b1", keyword[0].ID)
}

func TestLearningRepo_SearchByKeyword(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "learning_notes")
	r := repo.NewLearningRepo(conn)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, &model.LearningNote{
		ID: "l1", Word: "serendipity", Content: "a happy accident", Ctime: 100,
	}))

	results, err := r.SearchByKeyword(ctx, []string{"serendipity"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = r.SearchByKeyword(ctx, []string{"missing"}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestEmbeddingCacheRepo_RoundTrip(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "embedding_cache")
	r := repo.NewEmbeddingCacheRepo(conn)
	ctx := context.Background()

	_, ok, err := r.Get(ctx, "model-a", "RETRIEVAL_DOCUMENT", "hash1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Save(ctx, &model.EmbeddingCache{
		ModelName: "model-a", TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "hash1",
		Embedding: []float32{1, 2, 3}, Ctime: 100,
	}))
	values, ok, err := r.Get(ctx, "model-a", "RETRIEVAL_DOCUMENT", "hash1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3}, values)

	deleted, err := r.DeleteBefore(ctx, 200)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}
