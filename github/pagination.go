package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"contribstats/logger"
)

// perPage bounds the number of round trips per listing
const perPage = "100"

// FetchList fetches the full ordered sequence of records behind a
// paginated listing endpoint, following Link headers until exhaustion.
//
// A 409 response (empty repository) counts as a valid empty page. Each
// record of a page is decoded independently; a record that fails
// decoding is dropped with a warning and never aborts the rest of the
// page or subsequent pages.
func FetchList[T Record](ctx context.Context, c *Client, rawURL string, params url.Values) ([]T, error) {
	merged := url.Values{}
	for key, values := range params {
		merged[key] = values
	}
	merged.Set("per_page", perPage)

	var out []T

	// First request carries the query parameters; follow-up pages use
	// the Link URLs verbatim since they already encode them.
	current := rawURL
	pageParams := merged
	for current != "" {
		logger.Debug("Fetching page", zap.String("url", current))

		p, err := c.get(ctx, current, pageParams)
		if err != nil {
			return nil, err
		}

		switch p.status {
		case http.StatusOK:
			out = appendRecords(out, p.body)
		case http.StatusConflict:
			// Empty repository, a valid page with no records.
		default:
			return nil, fmt.Errorf("GET %s: unexpected status code %d", current, p.status)
		}

		link := nextLink(p.header.Get("Link"))
		if link == current {
			// A terminal "last" page pointing at itself.
			break
		}
		current = link
		pageParams = nil
	}

	return out, nil
}

// appendRecords decodes the elements of one page body, dropping
// malformed records.
func appendRecords[T Record](out []T, body []byte) []T {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		logger.Warn("Received non-list response where a list was expected",
			zap.ByteString("body", body))
		return out
	}

	for _, raw := range raws {
		record, err := decodeRecord[T](raw)
		if err != nil {
			logger.Warn("Dropping malformed record", zap.Error(err))
			continue
		}
		out = append(out, record)
	}
	return out
}
