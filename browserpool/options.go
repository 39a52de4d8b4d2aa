package browserpool

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/scrapeforge/scrapesvc/model"
)

// applyScrapeOptions applies the per-call knobs in opts to page. It runs
// on every acquirePage return (warm-borrowed or freshly created) since
// both paths can serve a request with different options than whatever
// the page last carried.
func applyScrapeOptions(page *rod.Page, opts model.ScrapeOptions) error {
	if opts.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			return fmt.Errorf("inject stealth script: %w", err)
		}
	}

	headers := make(proto.NetworkHeaders, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = gson.New(v)
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: headers}).Call(page); err != nil {
		return fmt.Errorf("set extra headers: %w", err)
	}

	return nil
}
