package sqlutil

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and sql.Null* columns.
// Timestamps are stored as unix nanoseconds.

// ToUnixNano converts a Go time to its column value
func ToUnixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// FromUnixNano converts a column value to a UTC time
func FromUnixNano(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

// ToNullUnixNano converts a Go time pointer to sql.NullInt64
func ToNullUnixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: ToUnixNano(*t), Valid: true}
}

// FromNullUnixNano converts sql.NullInt64 to a Go time pointer
func FromNullUnixNano(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := FromUnixNano(v.Int64)
	return &t
}

// ToSqlString converts an optional string to sql.NullString; "" is NULL
func ToSqlString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: val, Valid: true}
}

// ToNullRawMessage marshals v into a nullable JSON column. A nil v is NULL.
func ToNullRawMessage(v any) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{Valid: false}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}
