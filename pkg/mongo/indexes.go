package mongo

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func uniqueIndex(name, field string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(name),
	}
}

func index(name string, keys ...bson.E) mongo.IndexModel {
	return mongo.IndexModel{Keys: bson.D(keys), Options: options.Index().SetName(name)}
}

// requiredIndexes lists the indexes each collection needs. The unique ones
// back the duplicate checks in the repositories.
var requiredIndexes = map[string][]mongo.IndexModel{
	UsersCollection: {
		uniqueIndex("idx_user_email_unique", "email"),
		index("idx_user_role", bson.E{Key: "role", Value: 1}),
	},
	ProductsCollection: {
		uniqueIndex("idx_product_slug_unique", "slug"),
		// category filter and the delete-category reference check
		index("idx_category", bson.E{Key: "category", Value: 1}),
		index("idx_published_newest", bson.E{Key: "published", Value: 1}, bson.E{Key: "created_at", Value: -1}),
		index("idx_published_price", bson.E{Key: "published", Value: 1}, bson.E{Key: "price", Value: 1}),
	},
	CategoriesCollection: {
		uniqueIndex("idx_category_slug_unique", "slug"),
	},
	OrdersCollection: {
		uniqueIndex("idx_order_number_unique", "order_number"),
		index("idx_user_orders", bson.E{Key: "user_id", Value: 1}, bson.E{Key: "created_at", Value: -1}),
		index("idx_status_created", bson.E{Key: "status", Value: 1}, bson.E{Key: "created_at", Value: -1}),
	},
	SettingsCollection: {
		uniqueIndex("idx_setting_key_unique", "key"),
	},
	InventoryLogsCollection: {
		index("idx_slug_history", bson.E{Key: "slug", Value: 1}, bson.E{Key: "created_at", Value: -1}),
	},
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	log.Println("Starting index creation...")

	for collection, models := range requiredIndexes {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
		log.Printf("Ensured indexes %v on collection '%s'", names, collection)
	}

	log.Println("All indexes created successfully!")
	return nil
}

func EnsureIndexesOnStartup(ctx context.Context, db *mongo.Database) {
	if err := EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
}
