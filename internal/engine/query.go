package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shop-backend/internal/metadata"
	"shop-backend/internal/store"
)

type QueryResult struct {
	SQL    string
	Params []any
}

// ProductQuery filters the product listing.
type ProductQuery struct {
	Search            string // whitespace or comma separated terms, all must match
	ProductAttributes string // id of a ProductAttributes row linking the product
}

// BuildSelectSQL builds a SELECT of all columns of the kind. where is optional
// and already uses placeholders of pb.
func BuildSelectSQL(kind *metadata.Kind, pb store.ParamBuilder, where []string) QueryResult {
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(kind.Columns(), ", "), kind.Table)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY id ASC"
	return QueryResult{SQL: sql, Params: pb.Params()}
}

// BuildInsertSQL builds an INSERT returning the generated id.
func BuildInsertSQL(kind *metadata.Kind, d store.Dialect, values metadata.Values) QueryResult {
	pb := d.NewParamBuilder()
	var cols, phs []string
	for _, f := range kind.Fields {
		v, ok := values[f.Name]
		if !ok || !f.IsColumn() {
			continue
		}
		cols = append(cols, f.Name)
		phs = append(phs, pb.Add(columnValue(v)))
	}

	if len(cols) == 0 {
		return QueryResult{SQL: fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING id", kind.Table)}
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		kind.Table, strings.Join(cols, ", "), strings.Join(phs, ", "))
	return QueryResult{SQL: sql, Params: pb.Params()}
}

// BuildUpdateSQL builds an UPDATE of the present column values. Returns an
// empty SQL string when there is nothing to update.
func BuildUpdateSQL(kind *metadata.Kind, d store.Dialect, id int64, values metadata.Values) QueryResult {
	pb := d.NewParamBuilder()
	var sets []string
	for _, f := range kind.Fields {
		v, ok := values[f.Name]
		if !ok || !f.IsColumn() {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", f.Name, pb.Add(columnValue(v))))
	}
	if len(sets) == 0 {
		return QueryResult{}
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", kind.Table, strings.Join(sets, ", "), pb.Add(id))
	return QueryResult{SQL: sql, Params: pb.Params()}
}

// BuildProductSearchSQL builds the product listing query. attributesID is
// nil when not filtering by a ProductAttributes row.
func BuildProductSearchSQL(kind *metadata.Kind, d store.Dialect, search string, attributesID *int64) QueryResult {
	pb := d.NewParamBuilder()
	var where []string

	for _, term := range searchTerms(search) {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		ph := pb.Add(pattern)
		where = append(where, fmt.Sprintf(
			`(LOWER(nazev) LIKE %s ESCAPE '\' OR LOWER(description) LIKE %s ESCAPE '\')`, ph, ph))
	}

	if attributesID != nil {
		where = append(where, fmt.Sprintf(
			"id IN (SELECT product FROM product_attributes WHERE id = %s)", pb.Add(*attributesID)))
	}

	return BuildSelectSQL(kind, pb, where)
}

func searchTerms(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// columnValue converts a validated value to a driver parameter.
func columnValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.String()
	}
	return v
}
