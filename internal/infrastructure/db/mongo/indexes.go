package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

const indexTimeout = 30 * time.Second

// resourceIndexes derives the indexes backing a definition's list queries:
// default sort, every filter field and the soft-delete marker.
func resourceIndexes(def domain.Definition) []mongo.IndexModel {
	seen := map[string]bool{}
	var models []mongo.IndexModel
	add := func(field string, dir int) {
		if field == "" || field == domain.FieldMongoID || seen[field] {
			return
		}
		seen[field] = true
		models = append(models, mongo.IndexModel{Keys: bson.D{{Key: field, Value: dir}}})
	}

	sort := def.Sorting()
	if sort.Desc {
		add(sort.Field, -1)
	} else {
		add(sort.Field, 1)
	}
	add(domain.FieldCreatedAt, -1)
	for _, f := range def.Filters {
		add(f.Field, 1)
	}
	add(def.CategoryField, 1)
	if def.SoftDelete {
		add(domain.FieldDeletedAt, 1)
	}
	return models
}

// EnsureIndexes creates the list indexes for every definition and the unique
// email index on the users collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database, defs []domain.Definition) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	for _, def := range defs {
		models := resourceIndexes(def)
		if len(models) == 0 {
			continue
		}
		if _, err := db.Collection(def.CollectionName()).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes for %s: %w", def.CollectionName(), err)
		}
	}

	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("indexes for %s: %w", usersCollection, err)
	}
	return nil
}
