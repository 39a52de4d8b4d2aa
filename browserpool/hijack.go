package browserpool

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockedURLSubstrings are aborted unconditionally regardless of resource
// type (spec.md §4.3 step 3): consent-management and privacy-notice
// widgets that otherwise slow down every navigation.
var blockedURLSubstrings = []string{
	"onetrust", "cookielaw", "cookie-consent", "cookie-policy",
	"privacy-policy", "gdpr",
}

// allowedResourceTypes pass through untouched; anything else is aborted
// unless it is an image whose URL contains "logo".
var allowedResourceTypes = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeDocument:   true,
	proto.NetworkResourceTypeScript:     true,
	proto.NetworkResourceTypeStylesheet: true,
	proto.NetworkResourceTypeFetch:      true,
	proto.NetworkResourceTypeXHR:        true,
}

// installResourceFilter mounts the §4.3 step 3 hijack router on page and
// returns it so the caller can Stop it on cleanup. It must be installed
// before any Goto.
func installResourceFilter(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		url := ctx.Request.URL().String()
		for _, sub := range blockedURLSubstrings {
			if strings.Contains(url, sub) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}

		resType := ctx.Request.Type()
		if resType == proto.NetworkResourceTypeImage {
			if strings.Contains(strings.ToLower(url), "logo") {
				ctx.ContinueRequest(&proto.FetchContinueRequest{})
				return
			}
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		if !allowedResourceTypes[resType] {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
