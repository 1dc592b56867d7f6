package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/technohippies/scarlett-sub000/internal/model"
)

const (
	contextHeader  = "=== RELEVANT CONTEXT ==="
	contextFooter  = "=== END CONTEXT ==="
	truncationNote = "[context truncated to fit token budget]"
	metadataCtime  = "ctime"
	metadataURL    = "url"
	metadataTitle  = "title"
)

// FormatContext renders an assembled context as prompt text. Each snippet is
// tagged with its source and capture date so the downstream model can cite
// where a fact came from. Empty context renders as the empty string.
func FormatContext(rc *model.RAGContext) string {
	if rc == nil || len(rc.Results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(contextHeader)
	sb.WriteString("\n\n")
	for i := range rc.Results {
		sb.WriteString(formatResult(&rc.Results[i]))
		sb.WriteString("\n\n")
	}
	if rc.Truncated {
		sb.WriteString(truncationNote)
		sb.WriteString("\n")
	}
	sb.WriteString(contextFooter)
	return sb.String()
}

// formatResult is also the unit the token-budget walk measures, so what gets
// counted is what gets emitted.
func formatResult(r *model.RAGResult) string {
	tag := r.Source
	if ts := r.Metadata[metadataCtime]; ts != "" {
		if unix, err := strconv.ParseInt(ts, 10, 64); err == nil {
			tag = fmt.Sprintf("%s (%s)", r.Source, time.Unix(unix, 0).UTC().Format("2006-01-02"))
		}
	}
	return fmt.Sprintf("[%s] %s", tag, r.Content)
}
