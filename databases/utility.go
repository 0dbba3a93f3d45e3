package databases

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPageSize and MaxPageSize bound feed pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// PaginatedOpts returns 1-based page find options, newest reports first,
// together with the page and limit actually applied
func PaginatedOpts(limit, page int) (*options.FindOptions, int, int) {
	mp := newMongoPaginate(limit, page)
	opts := mp.getPaginatedOpts().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return opts, int(mp.page), int(mp.limit)
}
