package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(OrdersCollection)}
}

func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) error {
	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order %s: %w", order.OrderNumber, err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Order, error) {
	order, ok, err := findOne[models.Order](ctx, r.collection, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id.Hex(), err)
	}
	if !ok {
		return nil, apperr.NotFound("order", id.Hex())
	}
	return order, nil
}

// List returns orders newest first.
func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	query := bson.M{}
	if !filter.UserID.IsZero() {
		query["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	sort := bson.D{{Key: "created_at", Value: -1}}
	items, total, err := findPage[models.Order](ctx, r.collection, query, sort, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return items, total, nil
}

// UpdateStatus writes the new status only if the stored status is still from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	filter := bson.M{"_id": order.ID, "status": from}
	update := bson.M{"$set": bson.M{
		"status":     order.Status,
		"timeline":   order.Timeline,
		"updated_at": order.UpdatedAt,
	}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update order status %s: %w", order.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.Conflict("status_changed", "order status was changed by another request, reload and retry")
	}
	return nil
}
