package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// ResourceRepository implements ports.ResourceRepository over any collection
// of the database.
type ResourceRepository struct {
	db      *mongo.Database
	timeout time.Duration
	now     func() time.Time
}

func NewResourceRepository(db *mongo.Database, timeout time.Duration) *ResourceRepository {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ResourceRepository{
		db:      db,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *ResourceRepository) col(name string) *mongo.Collection {
	return r.db.Collection(name)
}

func notFound(collection, id string) error {
	return fmt.Errorf("%s %s: %w", collection, id, domain.ErrNotFound)
}

func (r *ResourceRepository) parseID(collection, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, notFound(collection, id)
	}
	return oid, nil
}

// Insert stores doc under a fresh ObjectID.
func (r *ResourceRepository) Insert(ctx context.Context, collection string, doc domain.Document) (domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stored := toStored(doc)
	oid := primitive.NewObjectID()
	stored[domain.FieldMongoID] = oid

	if _, err := r.col(collection).InsertOne(ctx, stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &domain.Error{Kind: domain.ErrConflict, Code: "DUPLICATE_KEY", Message: "a document with the same key already exists"}
		}
		return nil, fmt.Errorf("insert %s: %w", collection, err)
	}
	return normalize(stored), nil
}

func (r *ResourceRepository) FindByID(ctx context.Context, collection, id string, excludeDeleted bool) (domain.Document, error) {
	oid, err := r.parseID(collection, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var raw bson.M
	err = r.col(collection).FindOne(ctx, byID(oid, excludeDeleted)).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(collection, id)
		}
		return nil, fmt.Errorf("find %s %s: %w", collection, id, err)
	}
	return normalize(raw), nil
}

func (r *ResourceRepository) FindByIDs(ctx context.Context, collection string, ids []string) ([]domain.Document, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.col(collection).Find(ctx, bson.M{domain.FieldMongoID: bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find %s by ids: %w", collection, err)
	}
	return decodeAll(ctx, cur)
}

// List runs the page query and the count concurrently.
func (r *ResourceRepository) List(ctx context.Context, collection string, q domain.ListQuery) ([]domain.Document, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := buildFilter(q.Filter, q.ExcludeDeleted)
	opts := options.Find().SetSort(sortSpec(q.Sort)).SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	var (
		items []domain.Document
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cur, err := r.col(collection).Find(gctx, filter, opts)
		if err != nil {
			return fmt.Errorf("list %s: %w", collection, err)
		}
		items, err = decodeAll(gctx, cur)
		return err
	})
	g.Go(func() error {
		n, err := r.col(collection).CountDocuments(gctx, filter)
		if err != nil {
			return fmt.Errorf("count %s: %w", collection, err)
		}
		total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []domain.Document{}
	}
	return items, total, nil
}

// Update applies $set with fields and returns the document after the update.
func (r *ResourceRepository) Update(ctx context.Context, collection, id string, fields domain.Document, excludeDeleted bool) (domain.Document, error) {
	oid, err := r.parseID(collection, id)
	if err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx, collection, id, byID(oid, excludeDeleted), bson.M{"$set": toStored(fields)})
}

// Toggle negates field server-side so concurrent toggles never lose an update.
func (r *ResourceRepository) Toggle(ctx context.Context, collection, id, field string, excludeDeleted bool) (domain.Document, error) {
	oid, err := r.parseID(collection, id)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: field, Value: bson.D{{Key: "$not", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, false}}}}}}},
			{Key: domain.FieldUpdatedAt, Value: r.now()},
		}}},
	}
	return r.findOneAndUpdate(ctx, collection, id, byID(oid, excludeDeleted), pipeline)
}

// Rate folds score into the running totals in a single update pipeline.
func (r *ResourceRepository) Rate(ctx context.Context, collection, id string, score float64) (domain.Document, error) {
	oid, err := r.parseID(collection, id)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: domain.FieldRatingCount, Value: bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$" + domain.FieldRatingCount, 0}}}, 1}}}},
			{Key: domain.FieldRatingTotal, Value: bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$" + domain.FieldRatingTotal, 0}}}, score}}}},
			{Key: domain.FieldUpdatedAt, Value: r.now()},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: domain.FieldRating, Value: bson.D{{Key: "$divide", Value: bson.A{"$" + domain.FieldRatingTotal, "$" + domain.FieldRatingCount}}}},
		}}},
	}
	return r.findOneAndUpdate(ctx, collection, id, byID(oid, true), pipeline)
}

func (r *ResourceRepository) findOneAndUpdate(ctx context.Context, collection, id string, filter bson.M, update any) (domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var raw bson.M
	err := r.col(collection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(collection, id)
		}
		return nil, fmt.Errorf("update %s %s: %w", collection, id, err)
	}
	return normalize(raw), nil
}

func (r *ResourceRepository) Delete(ctx context.Context, collection, id string) error {
	oid, err := r.parseID(collection, id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col(collection).DeleteOne(ctx, bson.M{domain.FieldMongoID: oid})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return notFound(collection, id)
	}
	return nil
}

// CountByField groups documents by field; documents without it are skipped.
func (r *ResourceRepository) CountByField(ctx context.Context, collection, field string, excludeDeleted bool) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	match := bson.M{field: bson.M{"$ne": nil}}
	if excludeDeleted {
		match[domain.FieldDeletedAt] = notDeleted
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := r.col(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("group %s by %s: %w", collection, field, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Key   any   `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode %s groups: %w", collection, err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[fmt.Sprint(normalizeValue(row.Key))] += row.Count
	}
	return out, nil
}

func (r *ResourceRepository) Count(ctx context.Context, collection string, excludeDeleted bool) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.col(collection).CountDocuments(ctx, buildFilter(domain.Filter{}, excludeDeleted))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.Document, error) {
	defer cur.Close(ctx)

	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	out := make([]domain.Document, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalize(raw))
	}
	return out, nil
}
