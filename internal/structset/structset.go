// Package structset maps structs with sql tags onto table columns
package structset

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const tagName = "sql"

var (
	fieldIndexesCache sync.Map
)

// Get column name of field. Fields tagged "-" return an empty string and
// untagged fields use their name.
func columnName(field reflect.StructField) string {
	tag := field.Tag.Get(tagName)

	switch tag {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return strings.Split(tag, ",")[0]
	}
}

// Columns returns the column names of a struct in field order.
func Columns(s any) []string {
	t := reflect.TypeOf(s)

	var columns []string

	for i := range t.NumField() {
		if name := columnName(t.Field(i)); name != "" {
			columns = append(columns, name)
		}
	}

	return columns
}

// Values returns the field values of a struct in the order of Columns.
func Values(s any) []any {
	v := reflect.ValueOf(s)
	t := v.Type()

	var values []any

	for i := range t.NumField() {
		if columnName(t.Field(i)) != "" {
			values = append(values, v.Field(i).Interface())
		}
	}

	return values
}

// InsertStatement returns an INSERT statement for table with one placeholder
// per column of s.
func InsertStatement(table string, s any) string {
	columns := Columns(s)

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ","),
		strings.TrimSuffix(strings.Repeat("?,", len(columns)), ","),
	)
}

// ScanRow scans the current row into dest which must be a pointer to
// struct. Columns without a matching field are discarded.
func ScanRow(rows *sql.Rows, dest any) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	elem := reflect.ValueOf(dest)
	if elem.Kind() != reflect.Pointer || elem.IsNil() || elem.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a non-nil pointer to struct, got %T", dest)
	}

	elem = elem.Elem()
	indexes := cachedFieldIndexes(elem.Type())

	scanArgs := make([]any, len(columns))

	for i, column := range columns {
		if index, ok := indexes[column]; ok {
			scanArgs[i] = elem.Field(index).Addr().Interface()
		} else {
			scanArgs[i] = new(any)
		}
	}

	return rows.Scan(scanArgs...)
}

// fieldIndexes returns a map of column name to struct field index.
func fieldIndexes(structType reflect.Type) map[string]int {
	indexes := make(map[string]int)

	for i := range structType.NumField() {
		if name := columnName(structType.Field(i)); name != "" {
			indexes[name] = i
		}
	}

	return indexes
}

func cachedFieldIndexes(structType reflect.Type) map[string]int {
	if f, ok := fieldIndexesCache.Load(structType); ok {
		return f.(map[string]int) //nolint:forcetypeassert
	}

	indexes := fieldIndexes(structType)
	fieldIndexesCache.Store(structType, indexes)

	return indexes
}
