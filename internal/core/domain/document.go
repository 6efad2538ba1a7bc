package domain

import (
	"encoding/hex"
	"time"
)

// Common field names shared by every resource collection.
const (
	FieldID        = "id"
	FieldMongoID   = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldDeletedAt = "deletedAt"
	FieldStatus    = "status"
	FieldIsActive  = "isActive"

	FieldRating      = "rating"
	FieldRatingCount = "ratingCount"
	FieldRatingTotal = "ratingTotal"
)

// StatusActive is the status value that satisfies dependency checks.
const StatusActive = "active"

// immutableFields are never accepted from a client payload.
var immutableFields = []string{FieldID, FieldMongoID, FieldCreatedAt, FieldDeletedAt}

// Document is a schemaless resource record. Keys are the JSON/BSON field names.
type Document map[string]any

// ID returns the document identifier, or "" when it has not been assigned yet.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// String returns the string value stored under key, or "".
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns the boolean value stored under key and whether it was a bool.
func (d Document) Bool(key string) (bool, bool) {
	b, ok := d[key].(bool)
	return b, ok
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// WithoutImmutable returns a copy of d without the keys a client may not set.
func (d Document) WithoutImmutable() Document {
	out := d.Clone()
	for _, k := range immutableFields {
		delete(out, k)
	}
	return out
}

// IsActive reports whether the document counts as active for dependency checks.
// A document is active when its status is "active" or, lacking a status, its
// isActive/enabled flag is true.
func (d Document) IsActive() bool {
	if s, ok := d[FieldStatus].(string); ok && s != "" {
		return s == StatusActive
	}
	if b, ok := d.Bool(FieldIsActive); ok {
		return b
	}
	b, _ := d.Bool("enabled")
	return b
}

// Touch stamps updatedAt (and createdAt when created is true) with now.
func (d Document) Touch(now time.Time, created bool) {
	if created {
		d[FieldCreatedAt] = now
	}
	d[FieldUpdatedAt] = now
}

// IsValidID reports whether id has the 24-character hex shape of a store identifier.
func IsValidID(id string) bool {
	if len(id) != 24 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
