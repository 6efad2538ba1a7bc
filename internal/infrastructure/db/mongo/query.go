package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// notDeleted matches documents without a deletedAt stamp.
var notDeleted = bson.M{"$exists": false}

// buildFilter translates a domain filter into a query document. Search terms
// are escaped so user input is always matched literally.
func buildFilter(f domain.Filter, excludeDeleted bool) bson.M {
	filter := bson.M{}
	for k, v := range f.Equals {
		filter[k] = v
	}

	if f.Search != nil && f.Search.Term != "" && len(f.Search.Fields) > 0 {
		pattern := regexp.QuoteMeta(f.Search.Term)
		or := make(bson.A, 0, len(f.Search.Fields))
		for _, field := range f.Search.Fields {
			or = append(or, bson.M{field: bson.M{"$regex": pattern, "$options": "i"}})
		}
		filter["$or"] = or
	}

	if excludeDeleted {
		filter[domain.FieldDeletedAt] = notDeleted
	}
	return filter
}

// byID builds the filter for a single document.
func byID(oid primitive.ObjectID, excludeDeleted bool) bson.M {
	filter := bson.M{domain.FieldMongoID: oid}
	if excludeDeleted {
		filter[domain.FieldDeletedAt] = notDeleted
	}
	return filter
}

// sortSpec orders by the requested field and breaks ties on _id in the same direction.
func sortSpec(s domain.Sort) bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}
	if s.Field == "" || s.Field == domain.FieldMongoID || s.Field == domain.FieldID {
		return bson.D{{Key: domain.FieldMongoID, Value: dir}}
	}
	return bson.D{{Key: s.Field, Value: dir}, {Key: domain.FieldMongoID, Value: dir}}
}

func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

// toStored prepares a document for writing. The API-facing id never reaches the store.
func toStored(doc domain.Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if k == domain.FieldID || k == domain.FieldMongoID {
			continue
		}
		out[k] = v
	}
	return out
}

// normalize converts a decoded record into the API shape: _id becomes a hex
// id and driver container types become plain maps and slices.
func normalize(raw bson.M) domain.Document {
	doc := make(domain.Document, len(raw))
	for k, v := range raw {
		if k == domain.FieldMongoID {
			if oid, ok := v.(primitive.ObjectID); ok {
				doc[domain.FieldID] = oid.Hex()
			} else {
				doc[domain.FieldID] = v
			}
			continue
		}
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Decimal128:
		return t.String()
	case int32:
		return int64(t)
	default:
		return v
	}
}
