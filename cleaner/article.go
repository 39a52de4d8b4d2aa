package cleaner

import (
	"log/slog"
	"strings"
	"sync"

	readability "github.com/go-shiori/go-readability"

	"github.com/scrapeforge/scrapesvc/model"
)

// ExtractArticle is the concrete ExtractArticle collaborator named in
// spec.md §6: it runs readability and the scoring-based pruner
// concurrently and keeps whichever extracted more signal, falling back
// to raw HTML when both come up short. It only returns an error when
// rawHTML itself carries no usable content at all.
func ExtractArticle(rawHTML string, sourceURL string) (readability.Article, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return readability.Article{}, model.NewScrapeError(model.ErrCodeExtraction, "empty page content", nil)
	}
	return autoExtract(rawHTML, sourceURL), nil
}

// autoExtract runs both Readability and the scoring-based pruner
// concurrently, then picks the result that extracted more meaningful
// text content.
func autoExtract(rawHTML, sourceURL string) readability.Article {
	var (
		readabilityArticle readability.Article
		prunedHTML         string
		pruneErr           error
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		readabilityArticle, _ = ExtractContent(rawHTML, sourceURL)
	}()

	go func() {
		defer wg.Done()
		prunedHTML, pruneErr = PruneContent(rawHTML, sourceURL)
	}()

	wg.Wait()

	if pruneErr != nil {
		slog.Warn("extractArticle: pruning failed, using readability result", "url", sourceURL, "error", pruneErr)
		return readabilityArticle
	}

	prunedText := stripTags(prunedHTML)
	readabilityText := strings.TrimSpace(readabilityArticle.TextContent)

	useReadability := len(readabilityText) >= len(prunedText)

	// If the longer result is >10x the shorter, it likely carries too
	// much boilerplate noise; prefer the shorter one when it still has
	// a reasonable amount of content.
	if useReadability && len(prunedText) > minContentLength {
		if len(readabilityText) > 10*len(prunedText) {
			useReadability = false
		}
	} else if !useReadability && len(readabilityText) > minContentLength {
		if len(prunedText) > 10*len(readabilityText) {
			useReadability = true
		}
	}

	if useReadability {
		return readabilityArticle
	}

	return readability.Article{
		Title:       readabilityArticle.Title,
		Byline:      readabilityArticle.Byline,
		Excerpt:     readabilityArticle.Excerpt,
		SiteName:    readabilityArticle.SiteName,
		Language:    readabilityArticle.Language,
		Content:     prunedHTML,
		TextContent: prunedText,
	}
}
