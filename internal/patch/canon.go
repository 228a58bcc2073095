package patch

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Instruction collections are value-keyed sets: two instructions are the
// same element iff their content is identical. The set key is the SHA-256
// of a canonical JSON rendering of the instruction, so exact duplicates
// collapse regardless of field ordering or Unicode representation.
//
// Canonical rules: object keys sorted bytewise, strings NFC-normalized,
// no HTML escaping, times in RFC 3339 UTC. Only the shapes instructions
// produce (strings, string slices, nested objects) are supported.

// contentKey returns the canonical key for an instruction rendered as a
// field map.
func contentKey(fields map[string]any) string {
	data, err := marshalCanonical(fields)
	if err != nil {
		// Instructions only ever contain supported shapes; anything else
		// is a programming error.
		panic(fmt.Sprintf("patch: canonical key: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return marshalCanonicalString(val)
	case []string:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalCanonicalString(elem)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := marshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported type for canonical key: %T", v)
	}
}

// marshalCanonicalString encodes s as a JSON string with NFC normalization
// and without HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder appends a trailing newline.
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

func canonicalTime(t time.Time) string {
	return NormalizeTime(t).Format(time.RFC3339Nano)
}

func refStrings(s RefSet) []string {
	refs := s.Sorted()
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}
