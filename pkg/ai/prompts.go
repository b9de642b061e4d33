package ai

import (
	"fmt"
	"strings"

	"codstore.dev/storefront/pkg/mongo"
	"codstore.dev/storefront/pkg/pricing"
)

const SalesReportSystemPrompt = `You are a business analyst for a small cash-on-delivery online store.
Given order statistics, write concise, actionable insights covering:
- order volume and revenue
- how many orders are stuck before delivery or get cancelled
- which products drive sales and what to restock or promote
Keep it to 3 short paragraphs in plain language for the store owner.`

// formatOrderStatsPrompt renders stats as plain text for the model.
func formatOrderStatsPrompt(stats *mongo.OrderStats, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Currency: %s\n", currency)
	fmt.Fprintf(&b, "Total orders: %d\n", stats.TotalOrders)
	fmt.Fprintf(&b, "Revenue (excluding cancelled): %s\n", pricing.FormatAmount(stats.Revenue))
	fmt.Fprintf(&b, "Average order value: %s\n", pricing.FormatAmount(stats.AverageOrderValue))

	b.WriteString("\nOrders by status:\n")
	for _, s := range stats.ByStatus {
		fmt.Fprintf(&b, "- %s: %d orders, %s\n", s.Status, s.Count, pricing.FormatAmount(s.Revenue))
	}

	if len(stats.TopProducts) > 0 {
		b.WriteString("\nTop products by units sold:\n")
		for i, p := range stats.TopProducts {
			fmt.Fprintf(&b, "%d. %s (%s): %d units, %s\n", i+1, p.Name, p.Slug, p.Quantity, pricing.FormatAmount(p.Revenue))
		}
	}
	return b.String()
}
