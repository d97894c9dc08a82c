package store

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Match reports whether doc satisfies an equality filter.
//
// Shared by the embedded adapters so that memory, badger and s3 agree on
// filter semantics. See Collection.Find for the rules.
func Match(doc bson.Raw, filter bson.M) (bool, error) {
	for key, want := range filter {
		got, err := doc.LookupErr(key)
		missing := err != nil || got.Type == bson.TypeNull || got.Type == bson.TypeUndefined

		if want == nil {
			if !missing {
				return false, nil
			}
			continue
		}
		if err != nil {
			return false, nil
		}

		wantValue, err := RawValueOf(want)
		if err != nil {
			return false, fmt.Errorf("filter field %q: %w", key, err)
		}
		if !ValuesEqual(got, wantValue) {
			return false, nil
		}
	}
	return true, nil
}

// RawValueOf marshals a Go value into a single BSON value.
func RawValueOf(v any) (bson.RawValue, error) {
	if rv, ok := v.(bson.RawValue); ok {
		return rv, nil
	}
	t, data, err := bson.MarshalValue(v)
	if err != nil {
		return bson.RawValue{}, err
	}
	return bson.RawValue{Type: t, Value: data}, nil
}

// ValuesEqual compares two BSON values. Integral numbers are equal across
// int32, int64 and double; everything else compares type and bytes.
func ValuesEqual(a, b bson.RawValue) bool {
	if ai, ok := integerValue(a); ok {
		if bi, ok := integerValue(b); ok {
			return ai == bi
		}
	}
	if af, ok := floatValue(a); ok {
		if bf, ok := floatValue(b); ok {
			return af == bf
		}
	}
	return a.Equal(b)
}

func integerValue(v bson.RawValue) (int64, bool) {
	switch v.Type {
	case bson.TypeInt32:
		i, ok := v.Int32OK()
		return int64(i), ok
	case bson.TypeInt64:
		return v.Int64OK()
	case bson.TypeDouble:
		f, ok := v.DoubleOK()
		if !ok || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func floatValue(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bson.TypeInt32:
		i, ok := v.Int32OK()
		return float64(i), ok
	case bson.TypeInt64:
		i, ok := v.Int64OK()
		return float64(i), ok
	case bson.TypeDouble:
		return v.DoubleOK()
	}
	return 0, false
}

// ============================================================================
// Key Encoding
// ============================================================================

// Key-value adapters (badger, s3) address documents by strings derived from
// BSON values. EncodeKeyValue produces a hex-only token per value so keys
// never contain the separators used around them, and so that equal values
// under ValuesEqual always encode identically:
//
//	integer (int32/int64/integral double)  ->  "i" + 16 hex digits, order preserving
//	ObjectID                               ->  "o" + 24 hex digits
//	string                                 ->  "s" + hex(utf8 bytes)
//	null / missing                         ->  "n"
//	anything else                          ->  2 hex digits of type + hex(raw bytes)

// EncodeKeyValue returns the key token of a BSON value.
func EncodeKeyValue(v bson.RawValue) string {
	if i, ok := integerValue(v); ok {
		return fmt.Sprintf("i%016x", uint64(i)^(1<<63))
	}
	switch v.Type {
	case bson.TypeObjectID:
		if oid, ok := v.ObjectIDOK(); ok {
			return "o" + oid.Hex()
		}
	case bson.TypeString:
		if s, ok := v.StringValueOK(); ok {
			return "s" + hex.EncodeToString([]byte(s))
		}
	case bson.TypeNull, bson.TypeUndefined, 0:
		return "n"
	}
	return fmt.Sprintf("%02x", byte(v.Type)) + hex.EncodeToString(v.Value)
}

// IDKey returns the key token of the document's _id.
func IDKey(doc bson.Raw) (string, error) {
	id, err := doc.LookupErr("_id")
	if err != nil {
		return "", ErrMissingID
	}
	return EncodeKeyValue(id), nil
}

// IndexKey returns the key of doc under index: one token per indexed field,
// each followed by "/". Missing fields encode as null.
func IndexKey(index Index, doc bson.Raw) string {
	var b strings.Builder
	for _, field := range index.Fields() {
		v, err := doc.LookupErr(field)
		if err != nil {
			v = bson.RawValue{Type: bson.TypeNull}
		}
		b.WriteString(EncodeKeyValue(v))
		b.WriteByte('/')
	}
	return b.String()
}

// FilterKey derives an index key (or key prefix) from a filter.
//
// It walks the index fields in order and stops at the first field absent
// from the filter. ok is false when the filter does not constrain the
// leading field. complete is true when every indexed field was constrained,
// in which case key identifies at most one document of a unique index.
func FilterKey(index Index, filter bson.M) (key string, complete bool, ok bool, err error) {
	var b strings.Builder
	fields := index.Fields()
	matched := 0
	for _, field := range fields {
		want, present := filter[field]
		if !present {
			break
		}
		v := bson.RawValue{Type: bson.TypeNull}
		if want != nil {
			if v, err = RawValueOf(want); err != nil {
				return "", false, false, fmt.Errorf("filter field %q: %w", field, err)
			}
		}
		b.WriteString(EncodeKeyValue(v))
		b.WriteByte('/')
		matched++
	}
	if matched == 0 {
		return "", false, false, nil
	}
	return b.String(), matched == len(fields), true, nil
}

// BestIndex picks the unique index that narrows filter the most.
func BestIndex(indexes []Index, filter bson.M) (index Index, key string, complete bool, found bool, err error) {
	best := -1
	for _, idx := range indexes {
		if !idx.Unique {
			continue
		}
		k, c, ok, kerr := FilterKey(idx, filter)
		if kerr != nil {
			return Index{}, "", false, false, kerr
		}
		if !ok {
			continue
		}
		score := strings.Count(k, "/")
		if c {
			score += 1000
		}
		if score > best {
			best, index, key, complete, found = score, idx, k, c, true
		}
	}
	return index, key, complete, found, nil
}

// MarshalDocument encodes doc as a BSON document.
func MarshalDocument(doc any) (bson.Raw, error) {
	switch d := doc.(type) {
	case bson.Raw:
		return d, nil
	case []byte:
		return bson.Raw(d), nil
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return bson.Raw(data), nil
}
