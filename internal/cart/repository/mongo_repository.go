package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartTTL = 90 * 24 * time.Hour

type itemDocument struct {
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Image     string               `bson:"image"`
	Category  string               `bson:"category"`
	Quantity  int                  `bson:"quantity"`
	AddedAt   time.Time            `bson:"added_at"`
}

type cartDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Items     []itemDocument     `bson:"items"`
	Settled   []string           `bson:"settled,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func toDocument(c *domain.Cart) (cartDocument, error) {
	doc := cartDocument{
		UserID:    c.UserID,
		Items:     make([]itemDocument, 0, len(c.Items)),
		Settled:   c.Settled,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		price, err := primitive.ParseDecimal128(it.Price.String())
		if err != nil {
			return cartDocument{}, fmt.Errorf("encode price of %s: %w", it.ProductID, err)
		}
		doc.Items = append(doc.Items, itemDocument{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     price,
			Image:     it.Image,
			Category:  it.Category,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
		})
	}
	return doc, nil
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	c := &domain.Cart{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Items:     make([]domain.CartItem, 0, len(d.Items)),
		Settled:   d.Settled,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.Price.String())
		if err != nil {
			return nil, fmt.Errorf("decode price of %s: %w", it.ProductID, err)
		}
		c.Items = append(c.Items, domain.CartItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     price,
			Image:     it.Image,
			Category:  it.Category,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
		})
	}
	c.Recalculate()
	return c, nil
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	doc, err := toDocument(cart)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"items":      doc.Items,
			"settled":    doc.Settled,
			"updated_at": doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"user_id":    doc.UserID,
			"created_at": doc.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	res, err := m.collection.UpdateOne(ctx, bson.M{"user_id": cart.UserID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
		cart.ID = id.Hex()
	}
	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, userID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartTTL.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
