package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics over [From, To).
type CallsSummaryRequest struct {
	Range TimeRange `json:"range"`
}

type CallsSummary struct {
	Range TimeRange `json:"range"`

	TotalCalls      int `json:"totalCalls"`
	EndedCalls      int `json:"endedCalls"`
	InProgressCalls int `json:"inProgressCalls"`

	TotalDurationSeconds   float64 `json:"totalDurationSeconds"`
	AverageDurationSeconds float64 `json:"averageDurationSeconds"`

	// EndedReasons counts ended calls per provider-reported reason.
	EndedReasons map[string]int `json:"endedReasons"`

	Messages    int `json:"messages"`
	Transcripts int `json:"transcripts"`
}

// ConversionMetricsRequest captures how many calls produced a booking.
type ConversionMetricsRequest struct {
	Range TimeRange `json:"range"`
}

type ConversionMetrics struct {
	Range TimeRange `json:"range"`

	CallsEnded        int     `json:"callsEnded"`
	BookingsFromCalls int     `json:"bookingsFromCalls"`
	ConversionRate    float64 `json:"conversionRate"`
}
