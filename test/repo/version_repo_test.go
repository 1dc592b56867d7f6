package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/technohippies/scarlett-sub000/internal/model"
	appErr "github.com/technohippies/scarlett-sub000/internal/pkg/errors"
	"github.com/technohippies/scarlett-sub000/internal/pkg/hashutil"
	"github.com/technohippies/scarlett-sub000/internal/repo"
	"github.com/technohippies/scarlett-sub000/test/testutil"
)

func makeVector(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = seed
	}
	v[0] = 1
	return v
}

func createPending(t *testing.T, r *repo.VersionRepo, id, url, content string, ctime int64) {
	t.Helper()
	err := r.CreatePending(context.Background(), &model.ContentVersion{
		ID:             id,
		URL:            url,
		Title:          "title " + id,
		RawContent:     content,
		RawContentHash: hashutil.Sum(content),
		Ctime:          ctime,
	})
	require.NoError(t, err)
}

func TestVersionRepo_PendingLifecycle(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "content_versions")
	r := repo.NewVersionRepo(conn)
	ctx := context.Background()

	createPending(t, r, "v1", "https://a.test", "content a", 100)
	createPending(t, r, "v2", "https://b.test", "content b", 50)

	count, err := r.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Oldest first.
	candidates, err := r.GetPendingCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "v2", candidates[0].ID)

	candidates, err = r.GetPendingCandidates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	_, err = r.GetLatestFinalized(ctx, "https://a.test")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestVersionRepo_FinalizeStoresVectorInDimensionSlot(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "content_versions")
	r := repo.NewVersionRepo(conn)
	ctx := context.Background()

	createPending(t, r, "v1", "https://a.test", "content a", 100)
	require.NoError(t, r.MarkSummarized(ctx, "v1", "summary a", hashutil.Sum("summary a")))
	require.NoError(t, r.Finalize(ctx, "v1", makeVector(768, 0.5), 768))

	latest, err := r.GetLatestFinalized(ctx, "https://a.test")
	require.NoError(t, err)
	require.Equal(t, "v1", latest.ID)
	require.Equal(t, 768, latest.ActiveDimension)
	require.Equal(t, "summary a", latest.SummaryContent)

	vec, dim, err := r.GetVectorForVersion(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, 768, dim)
	require.Len(t, vec, 768)

	// Unsupported dimension has no slot.
	createPending(t, r, "v2", "https://b.test", "content b", 100)
	err = r.Finalize(ctx, "v2", makeVector(512, 0.5), 512)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestVersionRepo_MarkDuplicate(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "content_versions")
	r := repo.NewVersionRepo(conn)
	ctx := context.Background()

	createPending(t, r, "survivor", "https://a.test", "content", 100)
	require.NoError(t, r.Finalize(ctx, "survivor", makeVector(768, 0.5), 768))
	createPending(t, r, "candidate", "https://a.test", "content", 200)

	require.NoError(t, r.MarkDuplicate(ctx, "survivor", "candidate"))

	latest, err := r.GetLatestFinalized(ctx, "https://a.test")
	require.NoError(t, err)
	require.Equal(t, 2, latest.VisitCount)

	count, err := r.CountPending(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestVersionRepo_IncrementVisitCountAndDelete(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "content_versions")
	r := repo.NewVersionRepo(conn)
	ctx := context.Background()

	createPending(t, r, "v1", "https://a.test", "content", 100)
	require.NoError(t, r.Finalize(ctx, "v1", makeVector(768, 0.5), 768))

	require.NoError(t, r.IncrementVisitCount(ctx, "v1"))
	require.NoError(t, r.IncrementVisitCount(ctx, "v1"))
	latest, err := r.GetLatestFinalized(ctx, "https://a.test")
	require.NoError(t, err)
	require.Equal(t, 3, latest.VisitCount)

	require.NoError(t, r.Delete(ctx, "v1"))
	_, err = r.GetLatestFinalized(ctx, "https://a.test")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestVersionRepo_CosineDistance(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	r := repo.NewVersionRepo(conn)
	ctx := context.Background()

	d, err := r.CosineDistance(ctx, []float32{1, 0, 0}, []float32{1, 0, 0})
	require.NoError(t, err)
	require.InDelta(t, 0.0, d, 1e-6)

	d, err = r.CosineDistance(ctx, []float32{1, 0, 0}, []float32{0, 1, 0})
	require.NoError(t, err)
	require.InDelta(t, 1.0, d, 1e-6)

	_, err = r.CosineDistance(ctx, []float32{1, 0}, []float32{1, 0, 0})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestVersionRepo_SimilaritySearchIsolatesDimensions(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "content_versions")
	r := repo.NewVersionRepo(conn)
	ctx := context.Background()

	createPending(t, r, "v768", "https://a.test", "content a", 100)
	require.NoError(t, r.MarkSummarized(ctx, "v768", "summary a", hashutil.Sum("summary a")))
	require.NoError(t, r.Finalize(ctx, "v768", makeVector(768, 0.5), 768))

	createPending(t, r, "v1024", "https://b.test", "content b", 100)
	require.NoError(t, r.MarkSummarized(ctx, "v1024", "summary b", hashutil.Sum("summary b")))
	require.NoError(t, r.Finalize(ctx, "v1024", makeVector(1024, 0.5), 1024))

	results, err := r.SearchBySimilarity(ctx, makeVector(768, 0.5), 0.3, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "v768", results[0].ID)
	require.Greater(t, results[0].Similarity, 0.99)

	// A query vector with no matching slot returns nothing rather than erroring.
	results, err = r.SearchBySimilarity(ctx, makeVector(512, 0.5), 0.3, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestVersionRepo_KeywordSearch(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ResetTables(t, conn, "content_versions")
	r := repo.NewVersionRepo(conn)
	ctx := context.Background()

	createPending(t, r, "v1", "https://a.test", "content", 100)
	require.NoError(t, r.MarkSummarized(ctx, "v1", "All about PostgreSQL indexing", hashutil.Sum("s")))
	require.NoError(t, r.Finalize(ctx, "v1", makeVector(768, 0.5), 768))
	createPending(t, r, "v2", "https://b.test", "content", 100)

	// Pending rows never match.
	results, err := r.SearchByKeyword(ctx, []string{"postgresql"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "v1", results[0].ID)

	results, err = r.SearchByKeyword(ctx, nil, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}
