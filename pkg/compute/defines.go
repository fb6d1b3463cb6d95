package compute

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// DefineList is the set of NAME=value macros a kernel is specialized with
type DefineList map[string]string

// Add sets a define, converting the value to its string form
func (dl DefineList) Add(name string, value any) DefineList {
	switch v := value.(type) {
	case string:
		dl[name] = v
	case bool:
		if v {
			dl[name] = "1"
		} else {
			dl[name] = "0"
		}
	default:
		dl[name] = fmt.Sprint(v)
	}
	return dl
}

// AddAll copies every define from other, overwriting existing names
func (dl DefineList) AddAll(other map[string]string) DefineList {
	maps.Copy(dl, other)
	return dl
}

// Clone returns an independent copy
func (dl DefineList) Clone() DefineList {
	return maps.Clone(dl)
}

// Key renders the defines in sorted order; equal lists have equal keys
func (dl DefineList) Key() string {
	names := slices.Sorted(maps.Keys(dl))
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(dl[name])
	}
	return b.String()
}

// Int parses a define as an integer
func (dl DefineList) Int(name string) (int, error) {
	v, ok := dl[name]
	if !ok {
		return 0, fmt.Errorf("define %s is missing", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("define %s=%q is not an integer: %w", name, v, err)
	}
	return n, nil
}

// Bool parses a define as a boolean: 1/0 or true/false
func (dl DefineList) Bool(name string) (bool, error) {
	v, ok := dl[name]
	if !ok {
		return false, fmt.Errorf("define %s is missing", name)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("define %s=%q is not a boolean: %w", name, v, err)
	}
	return b, nil
}

// Value returns a define, or an error if it is missing
func (dl DefineList) Value(name string) (string, error) {
	v, ok := dl[name]
	if !ok {
		return "", fmt.Errorf("define %s is missing", name)
	}
	return v, nil
}

// Float parses a define as a float64
func (dl DefineList) Float(name string) (float64, error) {
	v, ok := dl[name]
	if !ok {
		return 0, fmt.Errorf("define %s is missing", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("define %s=%q is not a number: %w", name, v, err)
	}
	return f, nil
}
