package job

import (
	"context"

	"github.com/technohippies/scarlett-sub000/internal/service"
)

type DedupJob struct {
	dedup *service.DedupService
}

func NewDedupJob(dedup *service.DedupService) *DedupJob {
	return &DedupJob{dedup: dedup}
}

func (j *DedupJob) Name() string {
	return "content_dedup"
}

func (j *DedupJob) Run(ctx context.Context) error {
	if j.dedup == nil {
		return nil
	}
	_, err := j.dedup.ProcessPendingBatch(ctx)
	return err
}
