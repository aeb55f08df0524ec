package pipeline

import (
	"sort"
	"strings"

	"github.com/councilsense/minutes-cli/internal/model"
)

const (
	// MeetingHighlightCategory marks highlights filled in from item summaries.
	MeetingHighlightCategory = "meeting_highlight"

	maxMeetingHighlights = 7
	minMeetingHighlights = 3
	maxOrdinances        = 20
	summaryConfidence    = 0.5
)

// SummarizeMeeting builds the meeting digest from already evidence-backed
// highlights, topped up from item summaries, plus the ordinance/resolution
// list and per-category watchlist counts.
func SummarizeMeeting(meetingID string, items []model.AnalyzedItem, highlights []model.Highlight) model.MeetingSummary {
	out := model.MeetingSummary{
		MeetingID:             meetingID,
		Highlights:            []model.Highlight{},
		OrdinancesResolutions: []model.OrdinanceEntry{},
		WatchlistHits:         []model.WatchlistHit{},
	}

	for _, h := range highlights {
		if len(out.Highlights) >= maxMeetingHighlights {
			break
		}
		if h.HasEvidence() {
			out.Highlights = append(out.Highlights, h)
		}
	}

	for _, item := range items {
		if len(out.Highlights) >= minMeetingHighlights {
			break
		}
		if item.Summary == nil || len(nonEmpty(item.Summary.Summary)) == 0 {
			continue
		}
		cite := firstCitation(item)
		if cite == "" {
			continue
		}
		ref := item.Ref()
		out.Highlights = append(out.Highlights, model.Highlight{
			Title:      itemTitle(item.AgendaItem),
			Category:   MeetingHighlightCategory,
			Why:        model.StringPtr(nonEmpty(item.Summary.Summary)[0]),
			Confidence: summaryConfidence,
			Evidence:   []model.Evidence{itemCitation(ref, cite)},
			Links:      model.HighlightLinks{AgendaItem: &ref},
		})
	}

	for _, item := range items {
		if len(out.OrdinancesResolutions) >= maxOrdinances {
			break
		}
		low := strings.ToLower(item.Title)
		isOrdinance := strings.Contains(low, "ordinance")
		if !isOrdinance && !strings.Contains(low, "resolution") {
			continue
		}
		cite := firstCitation(item)
		if cite == "" {
			continue
		}
		kind := "resolution"
		if isOrdinance {
			kind = "ordinance"
		}
		out.OrdinancesResolutions = append(out.OrdinancesResolutions, model.OrdinanceEntry{
			ItemID:   item.ItemID,
			Title:    item.Title,
			Kind:     kind,
			Evidence: []model.Evidence{itemCitation(item.Ref(), cite)},
		})
	}

	counts := make(map[string]int)
	for _, h := range highlights {
		if h.Category != "" {
			counts[h.Category]++
		}
	}
	for cat, n := range counts {
		out.WatchlistHits = append(out.WatchlistHits, model.WatchlistHit{Category: cat, Count: n})
	}
	sort.Slice(out.WatchlistHits, func(i, j int) bool {
		a, b := out.WatchlistHits[i], out.WatchlistHits[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	return out
}

// firstCitation prefers a summary citation and falls back to an excerpt of
// the item body.
func firstCitation(item model.AnalyzedItem) string {
	if item.Summary != nil {
		if c := nonEmpty(item.Summary.Citations); len(c) > 0 {
			return c[0]
		}
	}
	if strings.TrimSpace(item.BodyText) == "" {
		return ""
	}
	return FallbackCitation(item.BodyText)
}

func itemCitation(ref model.AgendaRef, snippet string) model.Evidence {
	return model.Evidence{
		Source:     AgendaItemSource,
		Snippet:    snippet,
		Bucket:     model.BucketAgendaItem,
		AgendaItem: &ref,
	}
}

func itemTitle(item model.AgendaItem) string {
	if item.ItemID == "" {
		return item.Title
	}
	return item.ItemID + ": " + item.Title
}

func nonEmpty(ss []string) []string {
	var out []string
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
