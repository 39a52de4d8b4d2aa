package cleaner

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter creates a reusable, goroutine-safe Converter: base
// plugin strips script/style/iframe/noscript/head/meta/link/input/textarea
// and comments; commonmark plugin renders ATX headings, `-` bullets, fenced
// code blocks; table plugin preserves tabular structure with minimal cell
// padding.
// NewMarkdownConverter is the exported constructor used by pagescraper to
// build the converter it reuses across Scrape calls.
func NewMarkdownConverter() *converter.Converter {
	return newMarkdownConverter()
}

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				// "minimal" adds a single space padding per cell instead of
				// aligning all columns to equal width. This can save 20-40%
				// of table-related tokens while remaining perfectly readable.
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown converts clean HTML to Markdown using html-to-markdown v2.
//
// The domain parameter is used to resolve relative URLs in <a> and <img> tags
// into absolute URLs, so the Markdown output is self-contained.
func ToMarkdown(conv *converter.Converter, htmlContent string, domain string) (string, error) {
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
