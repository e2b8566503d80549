package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
)

var ErrEmptyPatch = errors.New("empty_patch")

// Assignments turns a patch struct into a column->value map.
//
// Only pointer fields tagged `patch:"column"` are considered and only when
// they are non-nil. The `once` option (`patch:"shipped_at,once"`) writes the
// column only while it is still NULL, so first-entry timestamps survive
// later patches.
func Assignments(patch any) (map[string]any, error) {
	v := reflect.ValueOf(patch)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, ErrEmptyPatch
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("patch must be a struct, got %s", v.Kind())
	}

	t := v.Type()
	out := make(map[string]any)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("patch")
		if !ok || tag == "-" {
			continue
		}
		if field.Type.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("patch field %s must be a pointer", field.Name)
		}
		fv := v.Field(i)
		if fv.IsNil() {
			continue
		}

		column, opts, _ := strings.Cut(tag, ",")
		value := fv.Elem().Interface()
		if opts == "once" {
			out[column] = gorm.Expr("COALESCE("+column+", ?)", value)
			continue
		}
		out[column] = value
	}
	if len(out) == 0 {
		return nil, ErrEmptyPatch
	}
	return out, nil
}

// ApplyPatch updates a single row by id with the non-nil fields of patch.
// Extra conditions make the write conditional; the caller inspects the
// returned row count to learn whether the guarded update won.
func ApplyPatch(ctx context.Context, conn *gorm.DB, table string, id any, patch any, conds ...Cond) (int64, error) {
	values, err := Assignments(patch)
	if err != nil {
		return 0, err
	}

	stmt := conn.WithContext(ctx).Table(table).Where("id = ?", id)
	for _, c := range conds {
		stmt = stmt.Where(c.Query, c.Args...)
	}
	res := stmt.Updates(values)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Cond is an extra WHERE clause for ApplyPatch.
type Cond struct {
	Query string
	Args  []any
}

func Where(query string, args ...any) Cond {
	return Cond{Query: query, Args: args}
}
