package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns extracts all column names from struct "db" tags,
// descending into embedded structs. Call it once at initialization.
//
// Usage:
//
//	columns := ExtractDBColumns[opname.Session]()
//	// Returns: ["id", "code", "branch_id", "status", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	t := reflect.TypeOf(zero)
	return extractColumnsFromType(t)
}

// extractColumnsFromType recursively extracts column names from a type.
func extractColumnsFromType(t reflect.Type) []string {
	// Dereference pointer types
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Embedded structs (e.g. Session and Totals in SessionSummary)
		if field.Anonymous {
			embeddedCols := extractColumnsFromType(field.Type)
			cols = append(cols, embeddedCols...)
			continue
		}

		// Get db tag
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}

		// Add column name
		cols = append(cols, tag)
	}

	return cols
}

// fieldInfo contains pre-computed metadata about a struct field.
type fieldInfo struct {
	index int    // Field index in the struct
	dbTag string // Database column name
}

// typeMetadata contains cached reflection metadata for a type.
type typeMetadata struct {
	fields          []fieldInfo
	embeddedIndices []int // Indices of embedded fields for recursive processing
}

// typeCache maps reflect.Type to *typeMetadata.
var typeCache sync.Map

// getOrCreateTypeMetadata returns cached metadata or creates it if not exists.
// This function is called once per type, then metadata is reused.
func getOrCreateTypeMetadata(t reflect.Type) *typeMetadata {
	// Dereference pointer types
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	// Not in cache, compute metadata
	meta := &typeMetadata{
		fields:          make([]fieldInfo, 0),
		embeddedIndices: make([]int, 0),
	}

	if t.Kind() != reflect.Struct {
		typeCache.Store(t, meta)
		return meta
	}

	// Extract field metadata
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Handle embedded structs
		if field.Anonymous {
			meta.embeddedIndices = append(meta.embeddedIndices, i)
			continue
		}

		// Check db tag
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}

		meta.fields = append(meta.fields, fieldInfo{index: i, dbTag: tag})
	}

	typeCache.Store(t, meta)
	return meta
}

// StructToMap converts a struct to a map using "db" tags.
// Fields without a tag or tagged "-" are skipped. Type metadata is cached
// after the first call for a type.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil
	}

	t := rv.Type()
	meta := getOrCreateTypeMetadata(t)

	// Pre-allocate result map with known capacity
	res := make(map[string]any, len(meta.fields))

	// Process regular fields (fast path - direct index access)
	for _, fi := range meta.fields {
		res[fi.dbTag] = rv.Field(fi.index).Interface()
	}

	// Process embedded structs (slower path - recursive)
	for _, embIdx := range meta.embeddedIndices {
		embeddedMap := StructToMap(rv.Field(embIdx).Interface())
		for k, v := range embeddedMap {
			res[k] = v
		}
	}

	return res
}
