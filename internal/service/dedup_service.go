package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/technohippies/scarlett-sub000/internal/ai"
	"github.com/technohippies/scarlett-sub000/internal/model"
	appErr "github.com/technohippies/scarlett-sub000/internal/pkg/errors"
	"github.com/technohippies/scarlett-sub000/internal/pkg/hashutil"
)

// VersionStore is the slice of the version repository the dedup engine needs.
type VersionStore interface {
	GetPendingCandidates(ctx context.Context, limit int) ([]model.ContentVersion, error)
	CountPending(ctx context.Context) (int, error)
	GetLatestFinalized(ctx context.Context, url string) (*model.ContentVersion, error)
	MarkSummarized(ctx context.Context, versionID, summary, summaryHash string) error
	Finalize(ctx context.Context, versionID string, vector []float32, dimension int) error
	MarkDuplicate(ctx context.Context, survivorID, candidateID string) error
	GetVectorForVersion(ctx context.Context, versionID string) ([]float32, int, error)
	CosineDistance(ctx context.Context, a, b []float32) (float64, error)
}

// AIClient covers the summarize/embed surface of ai.Manager.
type AIClient interface {
	HasSummarizer() bool
	HasEmbedder() bool
	Summarize(ctx context.Context, text string) (string, error)
	Embed(ctx context.Context, text string, taskType string) (*ai.EmbeddingResult, error)
}

// BatchResult counts per-candidate outcomes of one dedup pass. A candidate
// finalized despite a comparison failure is counted in both Finalized and
// Errors.
type BatchResult struct {
	Scanned    int `json:"scanned_count"`
	Finalized  int `json:"finalized_count"`
	Duplicates int `json:"duplicate_count"`
	Errors     int `json:"error_count"`
}

type DedupConfig struct {
	BatchLimit          int
	SimilarityThreshold float64
}

// DedupService decides, per pending capture, whether it is a duplicate of
// the latest finalized version for the same URL. Cheap checks run first:
// raw hash, then summary hash, then cosine distance between summary
// embeddings. Any ambiguity resolves toward keeping the candidate.
type DedupService struct {
	versions VersionStore
	aiClient AIClient
	cfg      DedupConfig
	urlLocks *keyedMutex
}

func NewDedupService(versions VersionStore, aiClient AIClient, cfg DedupConfig) *DedupService {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 20
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.1
	}
	return &DedupService{
		versions: versions,
		aiClient: aiClient,
		cfg:      cfg,
		urlLocks: newKeyedMutex(),
	}
}

func (s *DedupService) CountPending(ctx context.Context) (int, error) {
	return s.versions.CountPending(ctx)
}

// ProcessPendingBatch runs the cascade over the oldest pending candidates.
// Candidate failures are isolated; only a missing provider aborts the batch.
func (s *DedupService) ProcessPendingBatch(ctx context.Context) (*BatchResult, error) {
	if s.aiClient == nil || !s.aiClient.HasSummarizer() || !s.aiClient.HasEmbedder() {
		return nil, fmt.Errorf("%w: dedup requires a summarize and an embed provider", appErr.ErrConfig)
	}
	candidates, err := s.versions.GetPendingCandidates(ctx, s.cfg.BatchLimit)
	if err != nil {
		return nil, err
	}
	result := &BatchResult{Scanned: len(candidates)}
	logger := logutil.GetLogger(ctx).With(zap.Int("candidates", len(candidates)))
	for i := range candidates {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		outcome, degraded := s.processCandidate(ctx, &candidates[i])
		switch outcome {
		case outcomeFinalized:
			result.Finalized++
		case outcomeDuplicate:
			result.Duplicates++
		case outcomeError:
			result.Errors++
		}
		if degraded {
			result.Errors++
		}
	}
	if result.Scanned > 0 {
		logger.Info("dedup batch done",
			zap.Int("finalized", result.Finalized),
			zap.Int("duplicates", result.Duplicates),
			zap.Int("errors", result.Errors))
	}
	return result, nil
}

type candidateOutcome int

const (
	outcomeError candidateOutcome = iota
	outcomeFinalized
	outcomeDuplicate
)

// processCandidate runs one candidate through the cascade. The degraded flag
// reports a finalize that happened because the comparison could not be made.
func (s *DedupService) processCandidate(ctx context.Context, c *model.ContentVersion) (candidateOutcome, bool) {
	logger := logutil.GetLogger(ctx).With(zap.String("version_id", c.ID), zap.String("url", c.URL))
	unlock := s.urlLocks.Lock(c.URL)
	defer unlock()

	latest, err := s.versions.GetLatestFinalized(ctx, c.URL)
	if err != nil && !appErr.IsNotFound(err) {
		logger.Error("failed to load latest finalized version", zap.Error(err))
		return outcomeError, false
	}

	// Tier 1: identical raw content.
	if latest != nil && c.RawContentHash != "" && c.RawContentHash == latest.RawContentHash {
		if err := s.versions.MarkDuplicate(ctx, latest.ID, c.ID); err != nil {
			logger.Error("failed to mark raw-hash duplicate", zap.Error(err))
			return outcomeError, false
		}
		logger.Debug("duplicate by raw content hash", zap.String("survivor_id", latest.ID))
		return outcomeDuplicate, false
	}

	// Tier 2: identical summary.
	summary, err := s.aiClient.Summarize(ctx, c.RawContent)
	if err != nil || strings.TrimSpace(summary) == "" {
		logger.Error("failed to summarize candidate", zap.Error(err))
		return outcomeError, false
	}
	summaryHash := hashutil.Sum(summary)
	if err := s.versions.MarkSummarized(ctx, c.ID, summary, summaryHash); err != nil {
		logger.Error("failed to persist summary", zap.Error(err))
		return outcomeError, false
	}
	if latest != nil && latest.SummaryHash != "" && summaryHash == latest.SummaryHash {
		if err := s.versions.MarkDuplicate(ctx, latest.ID, c.ID); err != nil {
			logger.Error("failed to mark summary-hash duplicate", zap.Error(err))
			return outcomeError, false
		}
		logger.Debug("duplicate by summary hash", zap.String("survivor_id", latest.ID))
		return outcomeDuplicate, false
	}

	// Tier 3: semantic distance between summary embeddings.
	emb, err := s.aiClient.Embed(ctx, summary, "RETRIEVAL_DOCUMENT")
	if err != nil {
		logger.Error("failed to embed summary", zap.Error(err))
		return outcomeError, false
	}
	if latest == nil {
		return s.finalize(ctx, logger, c.ID, emb, false)
	}
	if latest.ActiveDimension != emb.Dimension {
		logger.Warn("embedding dimension changed, keeping candidate as new version",
			zap.Int("latest_dimension", latest.ActiveDimension),
			zap.Int("candidate_dimension", emb.Dimension))
		return s.finalize(ctx, logger, c.ID, emb, false)
	}
	latestVector, _, err := s.versions.GetVectorForVersion(ctx, latest.ID)
	if err != nil {
		if appErr.IsNotFound(err) {
			logger.Warn("latest version has no comparison vector, keeping candidate")
			return s.finalize(ctx, logger, c.ID, emb, true)
		}
		logger.Error("failed to load comparison vector", zap.Error(err))
		return outcomeError, false
	}
	distance, err := s.versions.CosineDistance(ctx, latestVector, emb.Vector)
	if err != nil {
		logger.Error("failed to compute cosine distance", zap.Error(err))
		return outcomeError, false
	}
	if distance < s.cfg.SimilarityThreshold {
		if err := s.versions.MarkDuplicate(ctx, latest.ID, c.ID); err != nil {
			logger.Error("failed to mark semantic duplicate", zap.Error(err))
			return outcomeError, false
		}
		logger.Debug("duplicate by semantic distance",
			zap.String("survivor_id", latest.ID),
			zap.Float64("distance", distance))
		return outcomeDuplicate, false
	}
	logger.Debug("content changed, finalizing new version", zap.Float64("distance", distance))
	return s.finalize(ctx, logger, c.ID, emb, false)
}

func (s *DedupService) finalize(ctx context.Context, logger *zap.Logger, versionID string, emb *ai.EmbeddingResult, degraded bool) (candidateOutcome, bool) {
	if err := s.versions.Finalize(ctx, versionID, emb.Vector, emb.Dimension); err != nil {
		logger.Error("failed to finalize version", zap.Error(err))
		return outcomeError, false
	}
	return outcomeFinalized, degraded
}
