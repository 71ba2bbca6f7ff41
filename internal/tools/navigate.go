package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// NavigateOrderHistoryInput parameterizes navigateToOrderHistory.
type NavigateOrderHistoryInput struct {
	WaitForContainer bool
}

// NavigateOrderHistoryOutput is returned on success.
type NavigateOrderHistoryOutput struct {
	URL string
}

// authRedirectPatterns are URL fragments that indicate Auchan.pt bounced the
// navigation to its login flow instead of the order-history page.
var authRedirectPatterns = []string{"/login", "/autenticacao", "/signin"}

// NavigateToOrderHistory goes to the order-history URL with up to two
// navigation attempts, detects an auth redirect by URL pattern, and
// optionally waits for the order-list container to resolve.
func NavigateToOrderHistory(ctx context.Context, tc *ToolContext, in NavigateOrderHistoryInput) Result[NavigateOrderHistoryOutput] {
	start := time.Now()
	var shots [][]byte

	url := strings.TrimRight(tc.Config.BaseURL, "/") + "/conta/encomendas"

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		lastErr = tc.Page.Goto(ctx, url)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return fail[NavigateOrderHistoryOutput](newError(model.ErrTimeout, true, lastErr), shots, start)
	}

	for _, pattern := range authRedirectPatterns {
		if strings.Contains(tc.Page.URL(), pattern) {
			return fail[NavigateOrderHistoryOutput](
				newError(model.ErrAuth, true, fmt.Errorf("navigation redirected to %s", tc.Page.URL())),
				shots, start,
			)
		}
	}

	if in.WaitForContainer {
		sel, ok := tc.Resolver.ResolveOnly("order-history", "orderList")
		if ok {
			_, err := tc.Page.WaitForVisible(ctx, sel, tc.Config.ElementTimeout)
			if err != nil {
				return fail[NavigateOrderHistoryOutput](newError(model.ErrTimeout, true, err), shots, start)
			}
		}
	}

	return ok(NavigateOrderHistoryOutput{URL: tc.Page.URL()}, shots, start)
}
