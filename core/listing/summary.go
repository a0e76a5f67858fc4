package listing

import "math"

// DisplayLabelMax is the longest chart label displayed before truncation.
const DisplayLabelMax = 15

// Sum adds up value(item) over items.
func Sum[T any](items []T, value func(T) float64) float64 {
	var total float64
	for _, item := range items {
		total += value(item)
	}
	return total
}

// FeeCollection is the split between collected and pending fees, in whole percents.
type FeeCollection struct {
	PendingPercentage   int `json:"pending_percentage"`
	CollectedPercentage int `json:"collected_percentage"`
}

// NewFeeCollection computes the ratio from the remote aggregates.
// A zero (or negative) total yields 0% pending.
func NewFeeCollection(total, pending float64) FeeCollection {
	var pendingPct int
	if total > 0 {
		pendingPct = int(math.Round(pending / total * 100))
	}
	return FeeCollection{
		PendingPercentage:   pendingPct,
		CollectedPercentage: 100 - pendingPct,
	}
}

// Point is one bar of a chart.
type Point struct {
	Label        string  `json:"label"`
	Value        float64 `json:"value"`
	DisplayLabel string  `json:"display_label"`
}

// Series maps items to chart points. Label is kept intact, DisplayLabel is truncated.
func Series[T any](items []T, label func(T) string, value func(T) float64) []Point {
	points := make([]Point, 0, len(items))
	for _, item := range items {
		l := label(item)
		points = append(points, Point{Label: l, Value: value(item), DisplayLabel: TruncateLabel(l)})
	}
	return points
}

// TruncateLabel cuts labels longer than DisplayLabelMax characters and appends "...".
func TruncateLabel(label string) string {
	r := []rune(label)
	if len(r) <= DisplayLabelMax {
		return label
	}
	return string(r[:DisplayLabelMax]) + "..."
}
