package translator

import (
	"context"
	"fmt"
	"time"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/subtitle"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/log"
)

const defaultBatchSize = 20

// CountMismatchError reports a batch whose translation count differs from
// its input count. The document cannot be trusted after this; there is no
// retry and no padding.
type CountMismatchError struct {
	BatchStart int // 1-based position of the batch's first line
	BatchEnd   int // 1-based position of the batch's last line
	Want       int
	Got        int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch for lines %d-%d: want %d, got %d",
		e.BatchStart, e.BatchEnd, e.Want, e.Got)
}

// Batcher splits a document into consecutive batches and translates them
// sequentially through one Provider. Each batch carries the tail of the
// previous batch's translations as context.
type Batcher struct {
	Provider     Provider
	BatchSize    int
	ContextLines int
	RequestDelay time.Duration

	SourceLang string
	TargetLang string
	Style      string

	// OnBatch, when set, is called after each completed batch.
	OnBatch func(done, total int)
}

// TranslateDocument returns a clone of doc with every line translated.
// Timing, styles, header and line count are untouched; only Text changes.
func (b *Batcher) TranslateDocument(ctx context.Context, doc *subtitle.Document) (*subtitle.Document, error) {
	if doc == nil || len(doc.Lines) == 0 {
		return nil, fmt.Errorf("document has no lines to translate")
	}

	batchSize := b.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	texts := doc.Texts()
	total := len(texts)
	totalBatches := (total + batchSize - 1) / batchSize

	translated := make([]string, 0, total)
	var contextLines []string

	for start := 0; start < total; start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if start > 0 && b.RequestDelay > 0 {
			select {
			case <-time.After(b.RequestDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		end := min(start+batchSize, total)
		batch := texts[start:end]

		result, err := b.Provider.TranslateBatch(ctx, Request{
			Lines:        batch,
			ContextLines: contextLines,
			SourceLang:   b.SourceLang,
			TargetLang:   b.TargetLang,
			Style:        b.Style,
		})
		if err != nil {
			return nil, fmt.Errorf("batch translation failed for lines %d-%d: %w", start+1, end, err)
		}
		if len(result) != len(batch) {
			return nil, &CountMismatchError{
				BatchStart: start + 1,
				BatchEnd:   end,
				Want:       len(batch),
				Got:        len(result),
			}
		}

		translated = append(translated, result...)
		contextLines = tailLines(result, b.ContextLines)

		done := start/batchSize + 1
		log.Debug("Translated batch %d/%d (%d lines)", done, totalBatches, len(batch))
		if b.OnBatch != nil {
			b.OnBatch(done, totalBatches)
		}
	}

	out := doc.Clone()
	for i := range out.Lines {
		out.Lines[i].Text = translated[i]
	}
	return out, nil
}

func tailLines(lines []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
