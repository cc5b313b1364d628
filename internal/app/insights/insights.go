// Package insights derives analytics from normalized tracks, tags and similar artists.
// All functions are pure and never fail.
package insights

import (
	"fmt"
	"math"
	"strings"

	"github.com/osa030/scrobblescope/internal/domain/artist"
	"github.com/osa030/scrobblescope/internal/domain/tag"
	"github.com/osa030/scrobblescope/internal/domain/track"
)

// Method identifies the outlier scoring method.
type Method string

// Outlier scoring methods.
const (
	MethodZScore Method = "zscore"
	MethodRatio  Method = "ratio"
)

// Metric labels attached to outlier items.
const (
	MetricZScore = "z-score"
	MetricRatio  = "playcount/listeners"
)

// TrendType tells whether a trend estimate could be made.
type TrendType string

// Trend types.
const (
	TrendAlternative TrendType = "alternative"
	TrendUnavailable TrendType = "unavailable"
)

const trendUnavailableMessage = "Last.fm does not provide per-artist time series without a user context. Showing alternative insights instead."

// funFactSimilarCount is the number of similar artists named in the fun fact.
const funFactSimilarCount = 3

// OutlierItem is a track flagged as unusually popular.
type OutlierItem struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Metric string  `json:"metric"`
}

// Outliers is the result of outlier detection.
type Outliers struct {
	Method      Method        `json:"method"`
	Threshold   float64       `json:"threshold"`
	Items       []OutlierItem `json:"items"`
	Explanation string        `json:"explanation"`
}

// TrendData carries the numbers behind an alternative trend.
type TrendData struct {
	AverageMatch float64 `json:"averageMatch"`
}

// Trend is the similarity-based stand-in for a popularity trend.
type Trend struct {
	Type    TrendType  `json:"type"`
	Message string     `json:"message"`
	Data    *TrendData `json:"data,omitempty"`
}

// DurationExtremes holds the shortest and longest track with a known duration.
type DurationExtremes struct {
	Shortest *track.Track `json:"shortest"`
	Longest  *track.Track `json:"longest"`
}

// Insights is the analytics block of an artist overview.
type Insights struct {
	PopularitySpread []track.Track     `json:"popularitySpread"`
	TagDistribution  []tag.Tag         `json:"tagDistribution"`
	Outliers         Outliers          `json:"outliers"`
	FunFacts         []string          `json:"funFacts"`
	Trend            Trend             `json:"trend"`
	DurationExtremes *DurationExtremes `json:"durationExtremes,omitempty"`
}

// Options holds the tunable thresholds.
type Options struct {
	OutlierThreshold float64
	MinOutlierTracks int
	TrendSample      int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		OutlierThreshold: 1.5,
		MinOutlierTracks: 3,
		TrendSample:      6,
	}
}

// Compute builds the full insights block. top is the displayed track slice used for
// outliers and the popularity spread; enriched is the whole duration-enriched list.
func Compute(opts Options, top, enriched []track.Track, tags []tag.Tag, similar []artist.Similar) Insights {
	outliers := DetectOutliers(top, opts.OutlierThreshold, opts.MinOutlierTracks)
	extremes := FindDurationExtremes(enriched)

	spread := top
	if spread == nil {
		spread = []track.Track{}
	}

	return Insights{
		PopularitySpread: spread,
		TagDistribution:  TagDistribution(tags),
		Outliers:         outliers,
		FunFacts:         FunFacts(tags, outliers, similar),
		Trend:            EstimateTrend(similar, opts.TrendSample),
		DurationExtremes: &extremes,
	}
}

// DetectOutliers flags tracks whose playcount is unusually high within the set.
// It uses z-scores of playcount, or the playcount/listeners ratio when the playcounts
// have no spread. Fewer than minTracks tracks yield no items. Items keep input order.
func DetectOutliers(tracks []track.Track, threshold float64, minTracks int) Outliers {
	if len(tracks) < minTracks || len(tracks) == 0 {
		return Outliers{
			Method:      MethodRatio,
			Threshold:   threshold,
			Items:       []OutlierItem{},
			Explanation: "Not enough data to compute outliers.",
		}
	}

	mean, std := meanStd(tracks)

	items := []OutlierItem{}
	if std == 0 || math.IsNaN(std) {
		for _, t := range tracks {
			score := 0.0
			if t.Listeners > 0 {
				score = float64(t.Playcount) / float64(t.Listeners)
			}
			if score > threshold {
				items = append(items, OutlierItem{Name: t.Name, Score: score, Metric: MetricRatio})
			}
		}
		return Outliers{
			Method:      MethodRatio,
			Threshold:   threshold,
			Items:       items,
			Explanation: "Using playcount/listeners ratio due to low variance in playcounts.",
		}
	}

	for _, t := range tracks {
		score := (float64(t.Playcount) - mean) / std
		if score > threshold {
			items = append(items, OutlierItem{Name: t.Name, Score: score, Metric: MetricZScore})
		}
	}
	return Outliers{
		Method:      MethodZScore,
		Threshold:   threshold,
		Items:       items,
		Explanation: fmt.Sprintf("Tracks with z-score above %g are unusually popular compared to the top tracks set.", threshold),
	}
}

// meanStd returns the mean and population standard deviation of playcounts.
func meanStd(tracks []track.Track) (float64, float64) {
	n := float64(len(tracks))

	var sum float64
	for _, t := range tracks {
		sum += float64(t.Playcount)
	}
	mean := sum / n

	var sq float64
	for _, t := range tracks {
		d := float64(t.Playcount) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

// TagDistribution returns copies of tags with Percent set to their share of the total
// count, rounded to two decimals. The denominator is at least 1.
func TagDistribution(tags []tag.Tag) []tag.Tag {
	var total int64
	for _, t := range tags {
		if t.Count > math.MaxInt64-total {
			total = math.MaxInt64
			break
		}
		total += t.Count
	}
	denominator := float64(max(total, 1))

	out := make([]tag.Tag, 0, len(tags))
	for _, t := range tags {
		p := round2(float64(t.Count) / denominator * 100)
		t.Percent = &p
		out = append(out, t)
	}
	return out
}

// FindDurationExtremes returns the shortest and longest tracks with a duration.
// Ties go to the earliest track. Both are nil when no track has a duration.
func FindDurationExtremes(tracks []track.Track) DurationExtremes {
	var shortest, longest *track.Track
	for i := range tracks {
		t := tracks[i]
		if !t.HasDuration() {
			continue
		}
		if shortest == nil || *t.Duration < *shortest.Duration {
			shortest = &t
		}
		if longest == nil || *t.Duration > *longest.Duration {
			longest = &t
		}
	}
	return DurationExtremes{Shortest: shortest, Longest: longest}
}

// EstimateTrend averages the match score of up to sample similar artists.
func EstimateTrend(similar []artist.Similar, sample int) Trend {
	if len(similar) == 0 {
		return Trend{Type: TrendUnavailable, Message: trendUnavailableMessage}
	}

	if sample > 0 && len(similar) > sample {
		similar = similar[:sample]
	}

	var sum float64
	for _, s := range similar {
		sum += s.Match
	}
	avg := round2(sum / float64(len(similar)))

	return Trend{
		Type:    TrendAlternative,
		Message: fmt.Sprintf("Average similarity match for related artists: %.2f.", avg),
		Data:    &TrendData{AverageMatch: avg},
	}
}

// FunFacts lists the top tag, the first outlier and the first similar artists,
// each only when available.
func FunFacts(tags []tag.Tag, outliers Outliers, similar []artist.Similar) []string {
	facts := []string{}
	if len(tags) > 0 {
		facts = append(facts, "Top tag: "+tags[0].Name)
	}
	if len(outliers.Items) > 0 {
		facts = append(facts, "Outlier track: "+outliers.Items[0].Name)
	}
	if len(similar) >= funFactSimilarCount {
		names := make([]string, 0, funFactSimilarCount)
		for _, s := range similar[:funFactSimilarCount] {
			names = append(names, s.Name)
		}
		facts = append(facts, "Similar to: "+strings.Join(names, ", "))
	}
	return facts
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
