// Package vdf reads Valve's brace-delimited key/value text format.
//
// Parsing is done by github.com/andygrunwald/vdf, which yields a nested
// map of strings. This package adds case-insensitive lookup and a stable
// key order on top of it.
package vdf

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	kv "github.com/andygrunwald/vdf"
)

// Map is one object of a parsed file. Values are either string or Map.
type Map map[string]interface{}

// Parse reads a whole document from r.
func Parse(r io.Reader) (Map, error) {
	m, err := kv.NewParser(r).Parse()
	if err != nil {
		return nil, err
	}
	return Map(m), nil
}

// ParseString parses text held in memory.
func ParseString(text string) (Map, error) {
	return Parse(strings.NewReader(text))
}

// ParseFile opens and parses path.
func ParseFile(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Object returns the child object stored under key. Keys compare
// case-insensitively, as Steam treats them.
func (m Map) Object(key string) (Map, bool) {
	v, ok := m.lookup(key)
	if !ok {
		return nil, false
	}
	switch child := v.(type) {
	case map[string]interface{}:
		return Map(child), true
	case Map:
		return child, true
	}
	return nil, false
}

// String returns the string value stored under key.
func (m Map) String(key string) (string, bool) {
	v, ok := m.lookup(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Keys returns the keys of m sorted with numeric keys first, in numeric
// order, then the rest alphabetically.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, aErr := strconv.ParseUint(keys[i], 10, 64)
		b, bErr := strconv.ParseUint(keys[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (m Map) lookup(key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for _, k := range m.Keys() {
		if strings.EqualFold(k, key) {
			return m[k], true
		}
	}
	return nil, false
}
