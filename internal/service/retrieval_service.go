package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/technohippies/scarlett-sub000/internal/model"
	"github.com/technohippies/scarlett-sub000/internal/pkg/tokenutil"
)

// fallbackScore is assigned to keyword matches, which carry no distance
// information.
const fallbackScore = 0.5

type PageSearcher interface {
	SearchBySimilarity(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredPage, error)
	SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredPage, error)
}

type ChatSearcher interface {
	SearchByEmbedding(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredChatMessage, error)
	SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredChatMessage, error)
}

type BookmarkSearcher interface {
	SearchByEmbedding(ctx context.Context, vector []float32, minScore float64, limit int) ([]model.ScoredBookmark, error)
	SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.ScoredBookmark, error)
}

type LearningSearcher interface {
	SearchByKeyword(ctx context.Context, words []string, limit int) ([]model.LearningNote, error)
}

type RetrievalConfig struct {
	MaxResults           int
	MinRelevanceScore    float64
	ReservedTokens       int
	DefaultContextWindow int
	ContextWindows       map[string]int
}

// RetrievalOptions overrides per request; zero values fall through to the
// configured defaults.
type RetrievalOptions struct {
	MaxResults        int
	MinRelevanceScore float64
}

// RetrievalService assembles a token-bounded context for a query by fanning
// out over the chat, bookmark, page and learning stores. Vector search is
// preferred; when the query cannot be embedded the whole pass degrades to
// keyword matching instead of failing.
type RetrievalService struct {
	aiClient  AIClient
	pages     PageSearcher
	chats     ChatSearcher
	bookmarks BookmarkSearcher
	learning  LearningSearcher
	cfg       RetrievalConfig
}

func NewRetrievalService(aiClient AIClient, pages PageSearcher, chats ChatSearcher, bookmarks BookmarkSearcher, learning LearningSearcher, cfg RetrievalConfig) *RetrievalService {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.MinRelevanceScore <= 0 {
		cfg.MinRelevanceScore = 0.3
	}
	if cfg.ReservedTokens <= 0 {
		cfg.ReservedTokens = 1000
	}
	if cfg.DefaultContextWindow <= 0 {
		cfg.DefaultContextWindow = 4096
	}
	return &RetrievalService{
		aiClient:  aiClient,
		pages:     pages,
		chats:     chats,
		bookmarks: bookmarks,
		learning:  learning,
		cfg:       cfg,
	}
}

// PerformSearch retrieves the best-matching snippets for query and packs as
// many as fit into the token budget of modelID's context window.
func (s *RetrievalService) PerformSearch(ctx context.Context, query, modelID string, opts *RetrievalOptions) (*model.RAGContext, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("model_id", modelID))
	maxResults := s.cfg.MaxResults
	minScore := s.cfg.MinRelevanceScore
	if opts != nil {
		if opts.MaxResults > 0 {
			maxResults = opts.MaxResults
		}
		if opts.MinRelevanceScore > 0 {
			minScore = opts.MinRelevanceScore
		}
	}
	available := s.contextWindowFor(modelID) - s.cfg.ReservedTokens
	if available < 0 {
		available = 0
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return &model.RAGContext{Results: []model.RAGResult{}, AvailableTokens: available}, nil
	}

	var results []model.RAGResult
	if s.aiClient != nil && s.aiClient.HasEmbedder() {
		emb, err := s.aiClient.Embed(ctx, query, "RETRIEVAL_QUERY")
		if err != nil {
			logger.Warn("query embedding failed, falling back to keyword search", zap.Error(err))
		} else {
			results = s.vectorSearch(ctx, query, emb.Vector, minScore, maxResults)
		}
	}
	if results == nil {
		results = s.keywordSearch(ctx, query, maxResults)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	return s.applyTokenBudget(results, available), nil
}

// vectorSearch queries every embedded source concurrently. Learning notes
// carry no embeddings, so their keyword query joins the same fan-out. A
// failing source contributes nothing; if every embedded source fails the
// caller falls back to keywords entirely.
func (s *RetrievalService) vectorSearch(ctx context.Context, query string, vector []float32, minScore float64, maxResults int) []model.RAGResult {
	logger := logutil.GetLogger(ctx)
	var (
		wg             sync.WaitGroup
		mu             sync.Mutex
		vectorFailures int
	)
	results := make([]model.RAGResult, 0, maxResults)
	collect := func(items []model.RAGResult, err error, source string, vectorSource bool) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if vectorSource {
				vectorFailures++
			}
			logger.Warn("source search failed", zap.String("source", source), zap.Error(err))
			return
		}
		results = append(results, items...)
	}
	wg.Add(4)
	go func() {
		defer wg.Done()
		items, err := s.chats.SearchByEmbedding(ctx, vector, minScore, sourceQuota(maxResults, 0.4))
		collect(chatResults(items), err, model.RAGSourceChat, true)
	}()
	go func() {
		defer wg.Done()
		items, err := s.bookmarks.SearchByEmbedding(ctx, vector, minScore, sourceQuota(maxResults, 0.3))
		collect(bookmarkResults(items), err, model.RAGSourceBookmark, true)
	}()
	go func() {
		defer wg.Done()
		items, err := s.pages.SearchBySimilarity(ctx, vector, minScore, sourceQuota(maxResults, 0.2))
		collect(pageResults(items), err, model.RAGSourcePage, true)
	}()
	go func() {
		defer wg.Done()
		items, err := s.learning.SearchByKeyword(ctx, keywordTerms(query), sourceQuota(maxResults, 0.1))
		collect(learningResults(items), err, model.RAGSourceLearning, false)
	}()
	wg.Wait()
	if vectorFailures == 3 {
		return nil
	}
	return results
}

func (s *RetrievalService) keywordSearch(ctx context.Context, query string, maxResults int) []model.RAGResult {
	logger := logutil.GetLogger(ctx)
	words := keywordTerms(query)
	if len(words) == 0 {
		return []model.RAGResult{}
	}
	results := make([]model.RAGResult, 0, maxResults)
	if items, err := s.chats.SearchByKeyword(ctx, words, sourceQuota(maxResults, 0.4)); err != nil {
		logger.Warn("chat keyword search failed", zap.Error(err))
	} else {
		results = append(results, rescore(chatResults(items))...)
	}
	if items, err := s.bookmarks.SearchByKeyword(ctx, words, sourceQuota(maxResults, 0.3)); err != nil {
		logger.Warn("bookmark keyword search failed", zap.Error(err))
	} else {
		results = append(results, rescore(bookmarkResults(items))...)
	}
	if items, err := s.pages.SearchByKeyword(ctx, words, sourceQuota(maxResults, 0.2)); err != nil {
		logger.Warn("page keyword search failed", zap.Error(err))
	} else {
		results = append(results, rescore(pageResults(items))...)
	}
	if items, err := s.learning.SearchByKeyword(ctx, words, sourceQuota(maxResults, 0.1)); err != nil {
		logger.Warn("learning keyword search failed", zap.Error(err))
	} else {
		results = append(results, learningResults(items)...)
	}
	return results
}

// applyTokenBudget keeps results in score order until the next one would
// exceed the budget, then drops the rest.
func (s *RetrievalService) applyTokenBudget(results []model.RAGResult, available int) *model.RAGContext {
	rc := &model.RAGContext{
		Results:         []model.RAGResult{},
		AvailableTokens: available,
	}
	for i := range results {
		cost := tokenutil.Estimate(formatResult(&results[i]))
		if rc.TotalTokensUsed+cost > available {
			rc.Truncated = true
			break
		}
		rc.Results = append(rc.Results, results[i])
		rc.TotalTokensUsed += cost
	}
	return rc
}

func (s *RetrievalService) contextWindowFor(modelID string) int {
	if w, ok := s.cfg.ContextWindows[modelID]; ok {
		return w
	}
	base, _, _ := strings.Cut(modelID, ":")
	if w, ok := s.cfg.ContextWindows[base]; ok {
		return w
	}
	return s.cfg.DefaultContextWindow
}

func sourceQuota(maxResults int, share float64) int {
	n := int(float64(maxResults) * share)
	if n < 1 {
		n = 1
	}
	return n
}

// keywordTerms keeps lowercase words longer than two characters.
func keywordTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			words = append(words, f)
		}
	}
	return words
}

func rescore(items []model.RAGResult) []model.RAGResult {
	for i := range items {
		items[i].RelevanceScore = fallbackScore
	}
	return items
}

func chatResults(items []model.ScoredChatMessage) []model.RAGResult {
	out := make([]model.RAGResult, 0, len(items))
	for _, it := range items {
		out = append(out, model.RAGResult{
			Content:        it.Content,
			Source:         model.RAGSourceChat,
			RelevanceScore: it.Similarity,
			Metadata: map[string]string{
				"thread_id":   it.ThreadID,
				"role":        it.Role,
				metadataCtime: strconv.FormatInt(it.Ctime, 10),
			},
		})
	}
	return out
}

func bookmarkResults(items []model.ScoredBookmark) []model.RAGResult {
	out := make([]model.RAGResult, 0, len(items))
	for _, it := range items {
		content := it.Title
		if it.Note != "" {
			content = content + ": " + it.Note
		}
		out = append(out, model.RAGResult{
			Content:        content,
			Source:         model.RAGSourceBookmark,
			RelevanceScore: it.Similarity,
			Metadata: map[string]string{
				metadataURL:   it.URL,
				metadataTitle: it.Title,
				metadataCtime: strconv.FormatInt(it.Ctime, 10),
			},
		})
	}
	return out
}

func pageResults(items []model.ScoredPage) []model.RAGResult {
	out := make([]model.RAGResult, 0, len(items))
	for _, it := range items {
		out = append(out, model.RAGResult{
			Content:        it.Summary,
			Source:         model.RAGSourcePage,
			RelevanceScore: it.Similarity,
			Metadata: map[string]string{
				metadataURL:   it.URL,
				metadataTitle: it.Title,
				metadataCtime: strconv.FormatInt(it.Ctime, 10),
			},
		})
	}
	return out
}

func learningResults(items []model.LearningNote) []model.RAGResult {
	out := make([]model.RAGResult, 0, len(items))
	for _, it := range items {
		out = append(out, model.RAGResult{
			Content:        it.Word + ": " + it.Content,
			Source:         model.RAGSourceLearning,
			RelevanceScore: fallbackScore,
			Metadata: map[string]string{
				"word":        it.Word,
				metadataCtime: strconv.FormatInt(it.Ctime, 10),
			},
		})
	}
	return out
}
