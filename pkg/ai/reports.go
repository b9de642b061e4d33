package ai

import (
	"context"
	"fmt"
	"time"

	"codstore.dev/storefront/pkg/mongo"
)

const topProductsInReport = 10

type StatsSource interface {
	OrderStats(ctx context.Context, topN int) (*mongo.OrderStats, error)
}

type Completer interface {
	Complete(ctx context.Context, systemMessage, userMessage string) (string, error)
}

// AIReportResponse is the sales report with optional generated insights.
type AIReportResponse struct {
	Status      string     `json:"status"`
	Data        ReportData `json:"data"`
	GeneratedAt time.Time  `json:"generated_at"`
	AIEnabled   bool       `json:"ai_enabled"`
}

type ReportData struct {
	RawData    *mongo.OrderStats `json:"raw_data"`
	AIInsights string            `json:"ai_insights,omitempty"`
	Summary    string            `json:"summary"`
	Error      string            `json:"error,omitempty"`
}

type Reporter struct {
	stats    StatsSource
	ai       Completer
	currency func(ctx context.Context) string
}

// NewReporter builds a reporter. ai may be nil, in which case reports carry
// the raw statistics only.
func NewReporter(stats StatsSource, ai Completer, currency func(ctx context.Context) string) *Reporter {
	r := &Reporter{stats: stats, currency: currency}
	if c, ok := ai.(*Client); !ok || c != nil {
		r.ai = ai
	}
	return r
}

func (r *Reporter) Enabled() bool {
	return r.ai != nil
}

// SalesReport summarises order statistics. A failed AI call is reported in
// the response, not as an error.
func (r *Reporter) SalesReport(ctx context.Context) (*AIReportResponse, error) {
	stats, err := r.stats.OrderStats(ctx, topProductsInReport)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order statistics: %w", err)
	}

	response := &AIReportResponse{
		Status:      "success",
		GeneratedAt: time.Now(),
		AIEnabled:   r.Enabled(),
		Data: ReportData{
			RawData: stats,
			Summary: "Raw sales data (AI insights unavailable)",
		},
	}
	if !r.Enabled() {
		return response, nil
	}

	currency := "INR"
	if r.currency != nil {
		currency = r.currency(ctx)
	}
	insights, err := r.ai.Complete(ctx, SalesReportSystemPrompt, formatOrderStatsPrompt(stats, currency))
	if err != nil {
		response.Data.Error = "AI analysis failed: " + err.Error()
		return response, nil
	}
	response.Data.AIInsights = insights
	response.Data.Summary = "AI-generated sales insights and recommendations"
	return response, nil
}
