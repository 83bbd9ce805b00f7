// Package translate converts transcript text between languages. Two
// backends implement the Translator interface: the free Google endpoint and
// an OpenAI chat model. Long texts are split into bounded chunks before they
// reach the backend, so no single request exceeds MaxChunkChars.
package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-dub/internal/textchunk"
)

// MaxChunkChars bounds the text sent in one translation request.
const MaxChunkChars = 4500

// maxParallel bounds concurrent requests against a backend.
const maxParallel = 4

// Translator translates text from a source language into a target language.
// An empty sourceLang means auto-detect.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// translateOne chunks a single text at sentence boundaries and translates
// the chunks sequentially. A chunk that errors is skipped; the result is the
// join of whatever translated. It only fails when nothing translated at all,
// or when ctx is done.
func translateOne(ctx context.Context, tr Translator, text, sourceLang, targetLang string) (string, error) {
	chunks := textchunk.Split(text, MaxChunkChars)
	if len(chunks) == 0 {
		return "", nil
	}

	var parts []string
	var firstErr error
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		translated, err := tr.Translate(ctx, chunk, sourceLang, targetLang)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if t := strings.TrimSpace(translated); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 && firstErr != nil {
		return "", firstErr
	}
	return strings.Join(parts, " "), nil
}

// All translates every text in order, running up to maxParallel items
// concurrently. Output index i is the translation of input index i. An item
// that fails or translates to nothing stays empty; the batch only fails when
// every output is empty or ctx is done. progress, when non-nil, is called
// after each completed item with (done, total).
func All(ctx context.Context, tr Translator, texts []string, sourceLang, targetLang string, progress func(done, total int)) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([]string, len(texts))
	done := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	var mu sync.Mutex
	var firstErr error
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		i, text := i, text
		g.Go(func() error {
			translated, err := translateOne(ctx, tr, text, sourceLang, targetLang)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				if firstErr == nil {
					firstErr = fmt.Errorf("item %d: %w", i, err)
				}
			} else {
				out[i] = translated
			}
			done++
			if progress != nil {
				progress(done, len(texts))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	empty := true
	for _, s := range out {
		if s != "" {
			empty = false
			break
		}
	}
	if empty {
		if firstErr != nil {
			return nil, fmt.Errorf("%w: nothing translated across %d items: %v", ErrTranslation, len(texts), firstErr)
		}
		return nil, fmt.Errorf("%w: backend returned nothing for %d items", ErrTranslation, len(texts))
	}
	return out, nil
}

// Text translates one long text by chunking it at sentence boundaries and
// rejoining the translated chunks in order. Chunks that fail or translate to
// nothing are dropped from the result.
func Text(ctx context.Context, tr Translator, text, sourceLang, targetLang string) (string, error) {
	out, err := translateOne(ctx, tr, text, sourceLang, targetLang)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	return out, nil
}
