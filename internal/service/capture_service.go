package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/technohippies/scarlett-sub000/internal/model"
	appErr "github.com/technohippies/scarlett-sub000/internal/pkg/errors"
	"github.com/technohippies/scarlett-sub000/internal/pkg/hashutil"
	"github.com/technohippies/scarlett-sub000/internal/pkg/mdutil"
	"github.com/technohippies/scarlett-sub000/internal/pkg/timeutil"
)

type VersionCreator interface {
	CreatePending(ctx context.Context, version *model.ContentVersion) error
}

type ChatWriter interface {
	Insert(ctx context.Context, msg *model.ChatMessage) error
}

type BookmarkWriter interface {
	Insert(ctx context.Context, bm *model.Bookmark) error
}

type LearningWriter interface {
	Insert(ctx context.Context, note *model.LearningNote) error
}

// CaptureService turns raw captures into stored rows. Page visits land as
// pending versions for the dedup pass to judge; chat messages and bookmarks
// are embedded on the way in when a provider is available.
type CaptureService struct {
	versions  VersionCreator
	chats     ChatWriter
	bookmarks BookmarkWriter
	learning  LearningWriter
	aiClient  AIClient
}

func NewCaptureService(versions VersionCreator, chats ChatWriter, bookmarks BookmarkWriter, learning LearningWriter, aiClient AIClient) *CaptureService {
	return &CaptureService{
		versions:  versions,
		chats:     chats,
		bookmarks: bookmarks,
		learning:  learning,
		aiClient:  aiClient,
	}
}

// RecordVisit stores a page capture as a pending version. Markdown noise is
// stripped before hashing so formatting-only changes hash identically.
func (s *CaptureService) RecordVisit(ctx context.Context, url, title, markdown string) (*model.ContentVersion, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", appErr.ErrInvalid)
	}
	plain := mdutil.PlainText(markdown)
	if strings.TrimSpace(plain) == "" {
		return nil, fmt.Errorf("%w: content is empty", appErr.ErrInvalid)
	}
	version := &model.ContentVersion{
		ID:             newID(),
		URL:            url,
		Title:          strings.TrimSpace(title),
		RawContent:     plain,
		RawContentHash: hashutil.Sum(plain),
		VisitCount:     1,
		Status:         model.VersionStatusPending,
		Ctime:          timeutil.NowUnix(),
	}
	if err := s.versions.CreatePending(ctx, version); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("visit recorded",
		zap.String("version_id", version.ID),
		zap.String("url", url))
	return version, nil
}

// SaveChatMessage stores a chat turn. Embedding is best-effort; a provider
// failure keeps the message keyword-searchable only.
func (s *CaptureService) SaveChatMessage(ctx context.Context, threadID, role, content string) (*model.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", appErr.ErrInvalid)
	}
	if role == "" {
		role = "user"
	}
	msg := &model.ChatMessage{
		ID:        newID(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		Embedding: s.tryEmbed(ctx, content),
		Ctime:     timeutil.NowUnix(),
	}
	if err := s.chats.Insert(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *CaptureService) SaveBookmark(ctx context.Context, url, title, note string) (*model.Bookmark, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", appErr.ErrInvalid)
	}
	text := strings.TrimSpace(title + "\n" + note)
	bm := &model.Bookmark{
		ID:        newID(),
		URL:       url,
		Title:     strings.TrimSpace(title),
		Note:      strings.TrimSpace(note),
		Embedding: s.tryEmbed(ctx, text),
		Ctime:     timeutil.NowUnix(),
	}
	if err := s.bookmarks.Insert(ctx, bm); err != nil {
		return nil, err
	}
	return bm, nil
}

func (s *CaptureService) SaveLearningNote(ctx context.Context, word, content string) (*model.LearningNote, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, fmt.Errorf("%w: word is required", appErr.ErrInvalid)
	}
	note := &model.LearningNote{
		ID:      newID(),
		Word:    word,
		Content: strings.TrimSpace(content),
		Ctime:   timeutil.NowUnix(),
	}
	if err := s.learning.Insert(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *CaptureService) tryEmbed(ctx context.Context, text string) []float32 {
	if s.aiClient == nil || !s.aiClient.HasEmbedder() || strings.TrimSpace(text) == "" {
		return nil
	}
	emb, err := s.aiClient.Embed(ctx, text, "RETRIEVAL_DOCUMENT")
	if err != nil {
		logutil.GetLogger(ctx).Warn("failed to embed capture, storing without vector", zap.Error(err))
		return nil
	}
	return emb.Vector
}
