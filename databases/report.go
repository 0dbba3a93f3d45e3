package databases

// go generate: mockery --name ReportDatabase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crimeshield/crimeshield-api/models"
)

const reportName = "reports"

// ErrNotFound is returned when a filter matched no report
var ErrNotFound = errors.New("report not found")

// ReportDatabase contains the methods to use with the report database
type ReportDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Report, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Report, error)
	InsertOne(ctx context.Context, report models.Report) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}) error
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error
	EnsureIndexes(ctx context.Context) error
}

type reportDatabase struct {
	db DatabaseHelper
}

// NewReportDatabase initializes a new instance of report database with the provided db connection
func NewReportDatabase(db DatabaseHelper) ReportDatabase {
	return &reportDatabase{
		db: db,
	}
}

func (c *reportDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Report, error) {
	report := &models.Report{}
	err := c.db.Collection(reportName).FindOne(ctx, filter, opts...).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return report, nil
}

func (c *reportDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Report, error) {
	var reports []models.Report
	cursor, err := c.db.Collection(reportName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&reports)
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *reportDatabase) InsertOne(ctx context.Context, report models.Report) (interface{}, error) {
	return c.db.Collection(reportName).InsertOne(ctx, report)
}

// UpdateOne applies update to the first matching report. A plain update that
// matches nothing returns ErrNotFound; upserts never do.
func (c *reportDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	res, err := c.db.Collection(reportName).UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return nil, err
	}
	if res != nil && res.MatchedCount == 0 && res.UpsertedCount == 0 && !isUpsert(opts) {
		return res, ErrNotFound
	}
	return res, nil
}

func (c *reportDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	n, err := c.db.Collection(reportName).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *reportDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(reportName).CountDocuments(ctx, filter)
}

func (c *reportDatabase) Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error {
	cursor, err := c.db.Collection(reportName).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cursor.Decode(results)
}

// EnsureIndexes creates the indexes the feed, heatmap and crawler queries rely on
func (c *reportDatabase) EnsureIndexes(ctx context.Context) error {
	return c.db.Collection(reportName).CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "location.lat", Value: 1}, {Key: "location.lng", Value: 1}}},
		{Keys: bson.D{{Key: "userEmail", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{
			Keys:    bson.D{{Key: "sourceHash", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
}

func isUpsert(opts []*options.UpdateOptions) bool {
	for _, o := range opts {
		if o != nil && o.Upsert != nil && *o.Upsert {
			return true
		}
	}
	return false
}
