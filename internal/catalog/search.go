// Package catalog is a supplemental acquisition helper: search a video
// platform's catalog for candidate audio to ingest. It sits outside the
// fingerprinting core; no other package in the module imports it, and
// the CLI's save command takes only a local path.
package catalog

import (
	"context"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/tidwall/gjson"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Item is one search result: enough to drive a download-then-ingest
// step without re-querying the API.
type Item struct {
	VideoID     string
	Title       string
	ChannelName string
	DurationSec float64
}

// Searcher wraps the YouTube Data API v3 search.list call. Tests
// exercise the Parse* helpers directly against recorded JSON, rather
// than needing a live Service.
type Searcher struct {
	svc *youtube.Service
}

// NewSearcher builds a Searcher from an API key. Callers read the key
// via internal/util.GetEnv rather than hardcoding it.
func NewSearcher(ctx context.Context, apiKey string) (*Searcher, error) {
	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("catalog: create youtube service: %w", err)
	}
	return &Searcher{svc: svc}, nil
}

// Search runs a catalog search and returns up to maxResults candidates
// ordered by relevance, the API's default order.
func (s *Searcher) Search(query string, maxResults int64) ([]Item, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	call := s.svc.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(maxResults)

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("catalog: search %q: %w", query, err)
	}

	items := make([]Item, 0, len(resp.Items))
	for _, r := range resp.Items {
		if r.Id == nil || r.Snippet == nil {
			continue
		}
		items = append(items, Item{
			VideoID:     r.Id.VideoId,
			Title:       r.Snippet.Title,
			ChannelName: r.Snippet.ChannelTitle,
		})
	}
	return items, nil
}

// ParseVideoID pulls the first result's video id out of a raw
// videos.list JSON response body. jsonparser is used here because the
// path is fixed and known ahead of time (items[0].id).
func ParseVideoID(body []byte) (string, error) {
	videoID, err := jsonparser.GetString(body, "items", "[0]", "id")
	if err != nil {
		return "", fmt.Errorf("catalog: parse video id: %w", err)
	}
	return videoID, nil
}

// ParseDurationSeconds reads the ISO-8601 contentDetails.duration
// string out of a videos.list response with gjson's dotted path query,
// then converts it to seconds. gjson suits this better than jsonparser
// because the caller only wants the one nested field, not the whole
// object walked by hand.
func ParseDurationSeconds(body []byte) (float64, error) {
	iso := gjson.GetBytes(body, "items.0.contentDetails.duration").String()
	if iso == "" {
		return 0, fmt.Errorf("catalog: no duration in response")
	}
	return parseISO8601Duration(iso)
}

// parseISO8601Duration converts a YouTube-style "PT#H#M#S" duration
// into seconds. Only the hour/minute/second fields are handled; the
// API never returns day/week/month/year components for videos.
func parseISO8601Duration(s string) (float64, error) {
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("catalog: malformed duration %q", s)
	}
	s = s[1:]
	if len(s) == 0 || s[0] != 'T' {
		return 0, fmt.Errorf("catalog: malformed duration %q", s)
	}
	s = s[1:]

	var total float64
	var num string
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9' || r == '.':
			num += string(r)
		case r == 'H':
			total += atof(num) * 3600
			num = ""
		case r == 'M':
			total += atof(num) * 60
			num = ""
		case r == 'S':
			total += atof(num)
			num = ""
		default:
			return 0, fmt.Errorf("catalog: unexpected duration unit %q in %q", r, s)
		}
	}
	return total, nil
}

func atof(s string) float64 {
	var v float64
	fmt.Sscanf(s, "%f", &v)
	return v
}
