// Package parser decodes raw upstream topic payloads into partial diff
// structs consumed by the state accumulator. Optionality is represented at
// the field level with pointers (nil means "absent", not "zero"), the same
// idiom the teacher's internal/f1livetiming wire structs use throughout.
package parser

import (
	"encoding/json"
	"strconv"
)

// mapOrList unmarshals a raw JSON value that is either an object keyed by
// numeric string (the shape almost every live "change" message takes) or a
// plain JSON array (the shape the initial reference/snapshot message takes
// for the same field). Both are normalized to a map keyed by string index,
// and any non-numeric key (the feed occasionally injects bookkeeping keys
// like "_kf") is dropped.
func mapOrList[T any](raw []byte) map[string]T {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]T)
	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err == nil {
		for k, v := range asMap {
			if _, err := strconv.Atoi(k); err != nil {
				continue
			}
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			out[k] = item
		}
		return out
	}
	var asList []T
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil
	}
	for i, item := range asList {
		out[strconv.Itoa(i)] = item
	}
	return out
}

// highestKey returns the key in m that sorts highest as an integer, and
// whether m was non-empty. Used by TimingAppData (stints) and
// RaceControlMessages, both of which spec the "select entry at the highest
// key" merge rule.
func highestKey[T any](m map[string]T) (key string, ok bool) {
	best := -1
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		if n > best {
			best = n
			key = k
			ok = true
		}
	}
	return key, ok
}

func floatPtr(s *string) *float64 {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func boolFromFlag(s *string) *bool {
	if s == nil {
		return nil
	}
	b := *s == "1"
	return &b
}
