package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"codstore.dev/storefront/pkg/models"
)

type StatusBreakdown struct {
	Status  models.OrderStatus `json:"status" bson:"_id"`
	Count   int                `json:"count" bson:"count"`
	Revenue float64            `json:"revenue" bson:"revenue"`
}

type TopProduct struct {
	Slug     string  `json:"slug" bson:"_id"`
	Name     string  `json:"name" bson:"name"`
	Quantity int     `json:"quantity" bson:"quantity"`
	Revenue  float64 `json:"revenue" bson:"revenue"`
}

type OrderStats struct {
	ByStatus          []StatusBreakdown `json:"by_status"`
	TotalOrders       int               `json:"total_orders"`
	Revenue           float64           `json:"revenue"` // excludes cancelled orders
	AverageOrderValue float64           `json:"average_order_value"`
	TopProducts       []TopProduct      `json:"top_products"`
}

type AnalyticsRepository struct {
	orders *mongo.Collection
}

func NewAnalyticsRepository(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{orders: db.Collection(OrdersCollection)}
}

func (r *AnalyticsRepository) OrderStats(ctx context.Context, topN int) (*OrderStats, error) {
	statusPipeline := bson.A{
		bson.D{
			{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$status"},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$total"}}},
			}},
		},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	cursor, err := r.orders.Aggregate(ctx, statusPipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate order status: %w", err)
	}
	defer cursor.Close(ctx)

	byStatus := []StatusBreakdown{}
	if err := cursor.All(ctx, &byStatus); err != nil {
		return nil, err
	}

	topPipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "status", Value: bson.D{{Key: "$ne", Value: models.StatusCancelled}}}}}},
		bson.D{{Key: "$unwind", Value: "$items"}},
		bson.D{
			{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$items.slug"},
				{Key: "name", Value: bson.D{{Key: "$last", Value: "$items.name"}}},
				{Key: "quantity", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}},
				{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$items.line_total"}}},
			}},
		},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "quantity", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: topN}},
	}

	topCursor, err := r.orders.Aggregate(ctx, topPipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate top products: %w", err)
	}
	defer topCursor.Close(ctx)

	top := []TopProduct{}
	if err := topCursor.All(ctx, &top); err != nil {
		return nil, err
	}

	return SummarizeOrderStats(byStatus, top), nil
}

// SummarizeOrderStats derives the totals from the per-status breakdown.
func SummarizeOrderStats(byStatus []StatusBreakdown, top []TopProduct) *OrderStats {
	stats := &OrderStats{ByStatus: byStatus, TopProducts: top}
	counted := 0
	for _, s := range byStatus {
		stats.TotalOrders += s.Count
		if s.Status != models.StatusCancelled {
			stats.Revenue += s.Revenue
			counted += s.Count
		}
	}
	if counted > 0 {
		stats.AverageOrderValue = stats.Revenue / float64(counted)
	}
	return stats
}
