package databases

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crimeshield/crimeshield-api/models"
)

const adminCollectionName = "admins"

// AdminDatabase defines the interface for admin user operations
type AdminDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.AdminUser, error)
	InsertOne(ctx context.Context, admin models.AdminUser) (interface{}, error)
	Find(ctx context.Context, filter interface{}) ([]models.AdminUser, error)
	EnsureIndexes(ctx context.Context) error
}

type adminDatabase struct {
	db DatabaseHelper
}

// NewAdminDatabase creates a new admin database wrapper
func NewAdminDatabase(db DatabaseHelper) AdminDatabase {
	return &adminDatabase{db: db}
}

func (a *adminDatabase) FindOne(ctx context.Context, filter interface{}) (*models.AdminUser, error) {
	admin := &models.AdminUser{}
	err := a.db.Collection(adminCollectionName).FindOne(ctx, filter).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return admin, nil
}

func (a *adminDatabase) InsertOne(ctx context.Context, admin models.AdminUser) (interface{}, error) {
	return a.db.Collection(adminCollectionName).InsertOne(ctx, admin)
}

func (a *adminDatabase) Find(ctx context.Context, filter interface{}) ([]models.AdminUser, error) {
	var admins []models.AdminUser
	cursor, err := a.db.Collection(adminCollectionName).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := cursor.Decode(&admins); err != nil {
		return nil, err
	}
	return admins, nil
}

func (a *adminDatabase) EnsureIndexes(ctx context.Context) error {
	return a.db.Collection(adminCollectionName).CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
}
