package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// Persistence model. Prices are stored as strings: decimal.Decimal has no
// bson representation and floats would reintroduce rounding.
type cartDoc struct {
	UserID    string        `bson:"user_id"`
	Items     []cartItemDoc `bson:"items"`
	Version   int64         `bson:"version"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type cartItemDoc struct {
	ProductID      int64     `bson:"product_id"`
	VariantID      string    `bson:"variant_id,omitempty"`
	Quantity       int32     `bson:"quantity"`
	UnitPrice      string    `bson:"unit_price"`
	ProductName    string    `bson:"product_name"`
	ImageURL       string    `bson:"image_url,omitempty"`
	AvailableStock *int32    `bson:"available_stock,omitempty"`
	AddedAt        time.Time `bson:"added_at"`
}

func toDoc(userID string, cart *domain.Cart) *cartDoc {
	doc := &cartDoc{
		UserID:    userID,
		Items:     make([]cartItemDoc, 0, len(cart.Items)),
		Version:   cart.Version,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDoc{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.String(),
			ProductName:    item.ProductName,
			ImageURL:       item.ImageURL,
			AvailableStock: item.AvailableStock,
			AddedAt:        item.AddedAt,
		})
	}
	return doc
}

func (d *cartDoc) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		Items:     make([]domain.CartItem, 0, len(d.Items)),
		Owner:     domain.OwnerUser,
		OwnerID:   d.UserID,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, item := range d.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price %q: %w", item.UnitPrice, err)
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPrice:      price,
			ProductName:    item.ProductName,
			ImageURL:       item.ImageURL,
			AvailableStock: item.AvailableStock,
			AddedAt:        item.AddedAt,
		})
	}
	return cart, nil
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection("carts")}
}

func (m *MongoRepository) Load(ctx context.Context, userID string) (*domain.Cart, error) {
	var doc cartDoc

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return doc.toDomain()
}

func (m *MongoRepository) Save(ctx context.Context, userID string, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": toDoc(userID, cart)}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

// SaveCAS writes the cart only when the stored version is unchanged. The
// version filter makes the read-merge-write cycle of the login sync safe
// against a concurrent save from another device.
func (m *MongoRepository) SaveCAS(ctx context.Context, userID string, cart *domain.Cart, expectedVersion int64) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.Version = expectedVersion + 1

	if expectedVersion == 0 {
		// First write for this user. The unique index on user_id turns a
		// concurrent first write into a conflict instead of a second doc.
		if _, err := m.collection.InsertOne(ctx, toDoc(userID, cart)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrVersionConflict
			}
			return fmt.Errorf("failed to insert cart: %w", err)
		}
		return nil
	}

	filter := bson.M{"user_id": userID, "version": expectedVersion}
	update := bson.M{"$set": toDoc(userID, cart)}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	return nil
}

func (m *MongoRepository) Delete(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
