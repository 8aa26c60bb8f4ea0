// Package hash computes the deterministic pod-template hash used to label
// derived replica sets (spec.md §4.4).
package hash

import (
	"encoding/json"
	"hash/fnv"
	"sort"
)

// PodTemplate is the opaque pod template carried by a Rollout spec. Only its
// canonical JSON serialization matters to the hash; KULTA never interprets
// its contents.
type PodTemplate = map[string]any

// TemplateHash returns a 10-character lowercase hex string deterministically
// derived from the canonical JSON encoding of tpl. Two templates hash equal
// iff their canonical JSON is byte-identical: map keys are sorted recursively
// before encoding so that field reordering in the source object never
// changes the hash, and the FNV-1a algorithm is unseeded so the result is
// stable across processes and Go versions.
func TemplateHash(tpl PodTemplate) (string, error) {
	canon, err := canonicalize(tpl)
	if err != nil {
		return "", err
	}
	buf, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := fnv.New64a()
	_, _ = sum.Write(buf)
	return hex64(sum.Sum64())[:10], nil
}

// canonicalize produces a value whose encoding/json output has map keys in a
// fixed order regardless of map iteration order. json.Marshal already sorts
// map[string]any keys, so this walks the structure only to normalize nested
// map[string]any and []any values decoded from arbitrary interface{}
// values; any other type (including map[any]any) is returned unchanged.
func canonicalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c, err := canonicalize(t[k])
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			c, err := canonicalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return t, nil
	}
}

const hexDigits = "0123456789abcdef"

func hex64(v uint64) string {
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf)
}
