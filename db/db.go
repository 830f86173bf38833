package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	Database           *mongo.Database
	ProductsCollection *mongo.Collection
	CartsCollection    *mongo.Collection
	OrdersCollection   *mongo.Collection
	UserCollection     *mongo.Collection
	FeedbackCollection *mongo.Collection
	Client             *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	Client, err = mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	dbName := os.Getenv("MONGODB_DB")
	if dbName == "" {
		dbName = "storedb"
	}

	Database = Client.Database(dbName)
	ProductsCollection = Database.Collection("products")
	CartsCollection = Database.Collection("carts")
	OrdersCollection = Database.Collection("orders")
	UserCollection = Database.Collection("users")
	FeedbackCollection = Database.Collection("feedback")
}
