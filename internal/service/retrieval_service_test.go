package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/technohippies/scarlett-sub000/internal/model"
	appErr "github.com/technohippies/scarlett-sub000/internal/pkg/errors"
)

type fakePageSearcher struct {
	byVector  []model.ScoredPage
	byKeyword []model.ScoredPage
	vectorErr error
	words     []string
}

func (f *fakePageSearcher) SearchBySimilarity(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredPage, error) {
	return f.byVector, f.vectorErr
}

func (f *fakePageSearcher) SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredPage, error) {
	f.words = words
	return f.byKeyword, nil
}

type fakeChatSearcher struct {
	byVector  []model.ScoredChatMessage
	byKeyword []model.ScoredChatMessage
	vectorErr error
	quota     int
}

func (f *fakeChatSearcher) SearchByEmbedding(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredChatMessage, error) {
	f.quota = limit
	return f.byVector, f.vectorErr
}

func (f *fakeChatSearcher) SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredChatMessage, error) {
	return f.byKeyword, nil
}

type fakeBookmarkSearcher struct {
	byVector  []model.ScoredBookmark
	byKeyword []model.ScoredBookmark
	vectorErr error
}

func (f *fakeBookmarkSearcher) SearchByEmbedding(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredBookmark, error) {
	return f.byVector, f.vectorErr
}

func (f *fakeBookmarkSearcher) SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredBookmark, error) {
	return f.byKeyword, nil
}

type fakeLearningSearcher struct {
	byKeyword []model.LearningNote
}

func (f *fakeLearningSearcher) SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.LearningNote, error) {
	return f.byKeyword, nil
}

func chatMsg(content string, score float64) model.ScoredChatMessage {
	return model.ScoredChatMessage{
		ChatMessage: model.ChatMessage{ID: "c-" + content, Content: content, Ctime: 1700000000},
		Similarity:  score,
	}
}

func scoredPage(summary string, score float64) model.ScoredPage {
	return model.ScoredPage{ID: "p-" + summary, URL: "https://p.test", Summary: summary, Ctime: 1700000000, Similarity: score}
}

func newTestRetrieval(aiClient AIClient, pages *fakePageSearcher, chats *fakeChatSearcher, bookmarks *fakeBookmarkSearcher, learning *fakeLearningSearcher, cfg RetrievalConfig) *RetrievalService {
	if pages == nil {
		pages = &fakePageSearcher{}
	}
	if chats == nil {
		chats = &fakeChatSearcher{}
	}
	if bookmarks == nil {
		bookmarks = &fakeBookmarkSearcher{}
	}
	if learning == nil {
		learning = &fakeLearningSearcher{}
	}
	return NewRetrievalService(aiClient, pages, chats, bookmarks, learning, cfg)
}

func TestRetrievalService_VectorPathMergesAndSorts(t *testing.T) {
	chats := &fakeChatSearcher{byVector: []model.ScoredChatMessage{chatMsg("hello there", 0.9), chatMsg("older chat", 0.4)}}
	pages := &fakePageSearcher{byVector: []model.ScoredPage{scoredPage("page summary", 0.7)}}
	aiClient := &fakeAI{vector: []float32{1, 0, 0}}

	svc := newTestRetrieval(aiClient, pages, chats, nil, nil, RetrievalConfig{DefaultContextWindow: 8192})
	rc, err := svc.PerformSearch(context.Background(), "hello", "gemma3", nil)
	require.NoError(t, err)
	require.Len(t, rc.Results, 3)
	require.Equal(t, 0.9, rc.Results[0].RelevanceScore)
	require.Equal(t, model.RAGSourceChat, rc.Results[0].Source)
	require.Equal(t, 0.7, rc.Results[1].RelevanceScore)
	require.Equal(t, model.RAGSourcePage, rc.Results[1].Source)
	require.False(t, rc.Truncated)
	require.Greater(t, rc.TotalTokensUsed, 0)
	require.LessOrEqual(t, rc.TotalTokensUsed, rc.AvailableTokens)
}

func TestRetrievalService_VectorPathIncludesLearningNotes(t *testing.T) {
	chats := &fakeChatSearcher{byVector: []model.ScoredChatMessage{chatMsg("vector hit", 0.9)}}
	learning := &fakeLearningSearcher{byKeyword: []model.LearningNote{
		{ID: "l1", Word: "serendipity", Content: "a happy accident", Ctime: 1700000000},
	}}
	aiClient := &fakeAI{vector: []float32{1, 0, 0}}

	svc := newTestRetrieval(aiClient, nil, chats, nil, learning, RetrievalConfig{DefaultContextWindow: 8192})
	rc, err := svc.PerformSearch(context.Background(), "what does serendipity mean", "gemma3", nil)
	require.NoError(t, err)

	sources := make([]string, 0, len(rc.Results))
	for _, r := range rc.Results {
		sources = append(sources, r.Source)
	}
	require.Contains(t, sources, model.RAGSourceChat)
	require.Contains(t, sources, model.RAGSourceLearning)
	// Learning notes keep the fixed keyword score next to true similarities.
	require.Equal(t, model.RAGSourceLearning, rc.Results[1].Source)
	require.Equal(t, fallbackScore, rc.Results[1].RelevanceScore)
}

func TestRetrievalService_EmbedFailureFallsBackToKeyword(t *testing.T) {
	chats := &fakeChatSearcher{
		byVector:  []model.ScoredChatMessage{chatMsg("never returned", 0.9)},
		byKeyword: []model.ScoredChatMessage{chatMsg("keyword hit", 0)},
	}
	pages := &fakePageSearcher{}
	aiClient := &fakeAI{embedErr: fmt.Errorf("%w: provider down", appErr.ErrProvider)}

	svc := newTestRetrieval(aiClient, pages, chats, nil, nil, RetrievalConfig{})
	rc, err := svc.PerformSearch(context.Background(), "searching for keyword", "unknown-model", nil)
	require.NoError(t, err)
	require.Len(t, rc.Results, 1)
	require.Equal(t, "keyword hit", rc.Results[0].Content)
	require.Equal(t, fallbackScore, rc.Results[0].RelevanceScore)
	// Short words are dropped from keyword terms.
	require.Equal(t, []string{"searching", "for", "keyword"}, pages.words)
}

func TestRetrievalService_NoEmbedderUsesKeywordPath(t *testing.T) {
	learning := &fakeLearningSearcher{byKeyword: []model.LearningNote{{ID: "l1", Word: "serendipity", Content: "a happy accident", Ctime: 1700000000}}}
	svc := newTestRetrieval(&fakeAI{noEmbedder: true}, nil, nil, nil, learning, RetrievalConfig{})
	rc, err := svc.PerformSearch(context.Background(), "what does serendipity mean", "gemma3", nil)
	require.NoError(t, err)
	require.Len(t, rc.Results, 1)
	require.Equal(t, model.RAGSourceLearning, rc.Results[0].Source)
	require.Equal(t, fallbackScore, rc.Results[0].RelevanceScore)
}

func TestRetrievalService_AllVectorSourcesFailingFallsBack(t *testing.T) {
	storeErr := fmt.Errorf("%w: down", appErr.ErrStore)
	chats := &fakeChatSearcher{vectorErr: storeErr, byKeyword: []model.ScoredChatMessage{chatMsg("keyword hit", 0)}}
	pages := &fakePageSearcher{vectorErr: storeErr}
	bookmarks := &fakeBookmarkSearcher{vectorErr: storeErr}
	aiClient := &fakeAI{vector: []float32{1, 0, 0}}

	svc := newTestRetrieval(aiClient, pages, chats, bookmarks, nil, RetrievalConfig{})
	rc, err := svc.PerformSearch(context.Background(), "anything goes", "gemma3", nil)
	require.NoError(t, err)
	require.Len(t, rc.Results, 1)
	require.Equal(t, "keyword hit", rc.Results[0].Content)
}

func TestRetrievalService_MaxResultsCaps(t *testing.T) {
	var msgs []model.ScoredChatMessage
	for i := 0; i < 20; i++ {
		msgs = append(msgs, chatMsg(fmt.Sprintf("message %d", i), 0.9))
	}
	chats := &fakeChatSearcher{byVector: msgs}
	aiClient := &fakeAI{vector: []float32{1, 0, 0}}

	svc := newTestRetrieval(aiClient, nil, chats, nil, nil, RetrievalConfig{MaxResults: 10, DefaultContextWindow: 32768})
	rc, err := svc.PerformSearch(context.Background(), "messages", "gemma3", &RetrievalOptions{MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, rc.Results, 3)
}

func TestRetrievalService_TokenBudgetNeverExceeded(t *testing.T) {
	long := strings.Repeat("word ", 400)
	chats := &fakeChatSearcher{byVector: []model.ScoredChatMessage{
		chatMsg(long+"1", 0.9),
		chatMsg(long+"2", 0.8),
		chatMsg(long+"3", 0.7),
	}}
	aiClient := &fakeAI{vector: []float32{1, 0, 0}}

	// window 2048 - reserved 1000 leaves ~1048 tokens; each result costs ~500.
	svc := newTestRetrieval(aiClient, nil, chats, nil, nil, RetrievalConfig{
		ReservedTokens: 1000,
		ContextWindows: map[string]int{"tiny": 2048},
	})
	rc, err := svc.PerformSearch(context.Background(), "words", "tiny", nil)
	require.NoError(t, err)
	require.True(t, rc.Truncated)
	require.Len(t, rc.Results, 2)
	require.LessOrEqual(t, rc.TotalTokensUsed, rc.AvailableTokens)
	require.Equal(t, 1048, rc.AvailableTokens)
}

func TestRetrievalService_ContextWindowVariantSuffix(t *testing.T) {
	svc := newTestRetrieval(&fakeAI{noEmbedder: true}, nil, nil, nil, nil, RetrievalConfig{
		ReservedTokens:       1000,
		DefaultContextWindow: 4096,
		ContextWindows:       map[string]int{"qwen3": 32768},
	})
	rc, err := svc.PerformSearch(context.Background(), "query text", "qwen3:4b", nil)
	require.NoError(t, err)
	require.Equal(t, 32768-1000, rc.AvailableTokens)

	rc, err = svc.PerformSearch(context.Background(), "query text", "mystery-model", nil)
	require.NoError(t, err)
	require.Equal(t, 4096-1000, rc.AvailableTokens)
}

func TestRetrievalService_EmptyQueryReturnsEmptyContext(t *testing.T) {
	svc := newTestRetrieval(&fakeAI{vector: []float32{1}}, nil, nil, nil, nil, RetrievalConfig{})
	rc, err := svc.PerformSearch(context.Background(), "   ", "gemma3", nil)
	require.NoError(t, err)
	require.Empty(t, rc.Results)
	require.False(t, rc.Truncated)
}

func TestRetrievalService_SourceQuotas(t *testing.T) {
	chats := &fakeChatSearcher{}
	aiClient := &fakeAI{vector: []float32{1, 0, 0}}
	svc := newTestRetrieval(aiClient, nil, chats, nil, nil, RetrievalConfig{MaxResults: 10})
	_, err := svc.PerformSearch(context.Background(), "quota check", "gemma3", nil)
	require.NoError(t, err)
	require.Equal(t, 4, chats.quota)

	require.Equal(t, 1, sourceQuota(2, 0.1))
	require.Equal(t, 3, sourceQuota(10, 0.3))
}
