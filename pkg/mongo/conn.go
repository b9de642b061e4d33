package mongo

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"codstore.dev/storefront/pkg/global"
)

const (
	ProductsCollection      = "products"
	CategoriesCollection    = "categories"
	OrdersCollection        = "orders"
	SettingsCollection      = "settings"
	UsersCollection         = "users"
	InventoryLogsCollection = "inventory_logs"
)

// NewClient creates the process-wide MongoDB client.
func NewClient(cfg global.Config) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)

	clientOptions := options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(serverAPI)
	return mongo.Connect(clientOptions)
}

// InitMongoDB connects and verifies the connection, exiting on failure.
func InitMongoDB(cfg global.Config) (*mongo.Client, *mongo.Database) {
	client, err := NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create MongoDB client: %v", err)
	}

	ctx, cancel := global.GetDefaultTimer()
	defer cancel()

	// Ping the database to verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}

	log.Println("Connected to MongoDB successfully")
	return client, client.Database(cfg.MongoDatabase)
}

// Pinger reports database reachability for health checks.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}
