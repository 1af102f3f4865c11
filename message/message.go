// Package message holds the opaque structured blob type shared by a
// Job's payload and result fields: a byte-level JSON blob plus
// generic, type-safe accessors for callers that know the shape they
// expect back. A job queue has no separate transport envelope —
// payload and result are opaque JSON-equivalent blobs stored directly
// on the Job row.
package message

import "encoding/json"

// Blob is raw JSON content. A nil or empty Blob represents "no
// payload"/"no result". Blob is comparable to json.RawMessage and
// round-trips through encoding/json unchanged.
type Blob []byte

// New marshals v into a Blob.
func New(v any) (Blob, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Blob(data), nil
}

// IsZero reports whether the blob carries no content.
func (b Blob) IsZero() bool {
	return len(b) == 0
}

// MarshalJSON implements json.Marshaler, emitting the blob verbatim
// (or JSON null when empty) so a Job containing a Blob serializes the
// payload/result inline rather than as a base64 string.
func (b Blob) MarshalJSON() ([]byte, error) {
	if b.IsZero() {
		return []byte("null"), nil
	}
	return b, nil
}

// UnmarshalJSON implements json.Unmarshaler, capturing the raw bytes
// of whatever JSON value was present.
func (b *Blob) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	*b = append((*b)[:0], data...)
	return nil
}

// Get unmarshals the blob into T. It returns false if the blob is
// empty or does not unmarshal into T.
func Get[T any](b Blob) (T, bool) {
	var t T
	if b.IsZero() {
		return t, false
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return t, false
	}
	return t, true
}

// Set marshals v into a new Blob, overwriting *b. It returns the
// marshal error, if any, leaving *b untouched on failure.
func Set[T any](b *Blob, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	*b = data
	return nil
}
