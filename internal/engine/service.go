package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"shop-backend/internal/metadata"
	"shop-backend/internal/store"
)

// Record is the serialized form of a stored row.
type Record map[string]any

// UpsertResult reports which branch an upsert took. Errors is set, and
// Record is nil, when validation failed.
type UpsertResult struct {
	Record  Record
	Created bool
	Errors  metadata.FieldErrors
}

// Service lists, reads and writes records of any registered kind.
type Service struct {
	store    *store.Store
	registry *metadata.Registry
}

func NewService(s *store.Store, reg *metadata.Registry) *Service {
	return &Service{store: s, registry: reg}
}

func (s *Service) Registry() *metadata.Registry {
	return s.registry
}

func (s *Service) kind(name string) (*metadata.Kind, error) {
	k, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKindNotFound, name)
	}
	return k, nil
}

// List returns every record of the kind in ascending id order.
func (s *Service) List(ctx context.Context, kindName string) ([]Record, error) {
	k, err := s.kind(kindName)
	if err != nil {
		return nil, err
	}
	qr := BuildSelectSQL(k, s.store.Dialect.NewParamBuilder(), nil)
	rows, err := store.QueryRows(ctx, s.store.DB, qr.SQL, qr.Params...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", k.Name, err)
	}
	return s.serialize(ctx, s.store.DB, k, rows)
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, kindName string, id int64) (Record, error) {
	k, err := s.kind(kindName)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.store.DB, k, id)
}

func (s *Service) get(ctx context.Context, q store.Querier, k *metadata.Kind, id int64) (Record, error) {
	pb := s.store.Dialect.NewParamBuilder()
	qr := BuildSelectSQL(k, pb, []string{"id = " + pb.Add(id)})
	row, err := store.QueryRow(ctx, q, qr.SQL, qr.Params...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrRecordNotFound, k.Name, id)
		}
		return nil, fmt.Errorf("get %s/%d: %w", k.Name, id, err)
	}
	recs, err := s.serialize(ctx, q, k, []map[string]any{row})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// Exists reports whether a record of the kind has the given id.
func (s *Service) Exists(ctx context.Context, kindName string, id int64) (bool, error) {
	k, err := s.kind(kindName)
	if err != nil {
		return false, err
	}
	return s.exists(ctx, s.store.DB, k.Table, id)
}

func (s *Service) exists(ctx context.Context, q store.Querier, table string, id int64) (bool, error) {
	_, err := store.QueryRow(ctx, q,
		fmt.Sprintf("SELECT id FROM %s WHERE id = %s", table, s.store.Dialect.Placeholder(1)), id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Upsert updates the record named by payload["id"] when it exists, and
// creates a new record otherwise. A missing, malformed or unknown id all lead
// to create, and the store assigns the new id. The write, including join
// rows, is one transaction. The result is non-nil whenever the kind exists,
// so callers can tell which branch failed.
func (s *Service) Upsert(ctx context.Context, kindName string, payload map[string]any) (*UpsertResult, error) {
	k, err := s.kind(kindName)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return &UpsertResult{Created: true}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	id, hasID := metadata.ToID(payload[metadata.PrimaryKey])
	update := false
	if hasID {
		update, err = s.exists(ctx, tx, k.Table, id)
		if err != nil {
			return &UpsertResult{Created: true}, fmt.Errorf("check %s/%d: %w", k.Name, id, err)
		}
	}
	res := &UpsertResult{Created: !update}

	values, ferrs := k.Validate(payload, res.Created)
	if ferrs == nil {
		ferrs, err = s.checkReferences(ctx, tx, k, values)
		if err != nil {
			return res, err
		}
	}
	if ferrs != nil {
		res.Errors = ferrs
		return res, nil
	}

	if res.Created {
		applySlug(k, values)
		qr := BuildInsertSQL(k, s.store.Dialect, values)
		row, err := store.QueryRow(ctx, tx, qr.SQL, qr.Params...)
		if err != nil {
			return res, fmt.Errorf("insert %s: %w", k.Table, store.MapError(s.store.Dialect, err))
		}
		id, _ = store.AsInt64(row[metadata.PrimaryKey])
	} else {
		qr := BuildUpdateSQL(k, s.store.Dialect, id, values)
		if qr.SQL != "" {
			if _, err := store.Exec(ctx, tx, qr.SQL, qr.Params...); err != nil {
				return res, fmt.Errorf("update %s/%d: %w", k.Table, id, store.MapError(s.store.Dialect, err))
			}
		}
	}

	for _, f := range k.ManyToMany() {
		ids, ok := values[f.Name].([]int64)
		if !ok {
			continue
		}
		if err := s.replaceJoinRows(ctx, tx, f, id, ids); err != nil {
			return res, err
		}
	}

	rec, err := s.get(ctx, tx, k, id)
	if err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	res.Record = rec
	return res, nil
}

// Delete removes a record. Ref fields pointing at it are set to null and
// join rows naming it are removed, in the same transaction.
func (s *Service) Delete(ctx context.Context, kindName string, id int64) error {
	k, err := s.kind(kindName)
	if err != nil {
		return err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.detachReferences(ctx, tx, k, id); err != nil {
		return fmt.Errorf("detach references to %s/%d: %w", k.Name, id, err)
	}

	affected, err := store.Exec(ctx, tx,
		fmt.Sprintf("DELETE FROM %s WHERE id = %s", k.Table, s.store.Dialect.Placeholder(1)), id)
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", k.Name, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s %d", ErrRecordNotFound, k.Name, id)
	}

	return tx.Commit()
}

// SearchProducts lists products matching every search term in title or
// description, optionally only those linked by the given ProductAttributes row.
func (s *Service) SearchProducts(ctx context.Context, pq ProductQuery) ([]Record, error) {
	k, err := s.kind(metadata.KindProduct)
	if err != nil {
		return nil, err
	}

	var attributesID *int64
	if v := strings.TrimSpace(pq.ProductAttributes); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		ok := err == nil
		if ok {
			ok, err = s.exists(ctx, s.store.DB, "product_attributes", id)
			if err != nil {
				return nil, err
			}
		}
		if !ok {
			fe := metadata.FieldErrors{}
			fe.Add("productattributes", "Select a valid choice. That choice is not one of the available choices.")
			return nil, fe
		}
		attributesID = &id
	}

	qr := BuildProductSearchSQL(k, s.store.Dialect, pq.Search, attributesID)
	rows, err := store.QueryRows(ctx, s.store.DB, qr.SQL, qr.Params...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return s.serialize(ctx, s.store.DB, k, rows)
}

// PublishProducts marks the given products published and returns how many rows changed.
func (s *Service) PublishProducts(ctx context.Context, ids []int64) (int64, error) {
	k, err := s.kind(metadata.KindProduct)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	pb := s.store.Dialect.NewParamBuilder()
	set := pb.Add(true)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	sql := fmt.Sprintf("UPDATE %s SET is_published = %s WHERE %s", k.Table, set, s.store.Dialect.InExpr("id", pb, args))
	n, err := store.Exec(ctx, s.store.DB, sql, pb.Params()...)
	if err != nil {
		return 0, fmt.Errorf("publish products: %w", err)
	}
	return n, nil
}

// checkReferences verifies every ref and refs value names an existing record.
func (s *Service) checkReferences(ctx context.Context, q store.Querier, k *metadata.Kind, values metadata.Values) (metadata.FieldErrors, error) {
	errs := metadata.FieldErrors{}
	for _, f := range k.Fields {
		var ids []int64
		switch v := values[f.Name].(type) {
		case int64:
			ids = []int64{v}
		case []int64:
			ids = v
		default:
			continue
		}
		target, _ := s.registry.Lookup(f.Target)
		for _, id := range ids {
			ok, err := s.exists(ctx, q, target.Table, id)
			if err != nil {
				return nil, fmt.Errorf("check %s reference: %w", f.Name, err)
			}
			if !ok {
				errs.Add(f.Name, fmt.Sprintf(`Invalid pk "%d" - object does not exist.`, id))
			}
		}
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

// applySlug fills an empty slug field from its source on create.
func applySlug(k *metadata.Kind, values metadata.Values) {
	if k.Slug == nil {
		return
	}
	if cur, _ := values[k.Slug.Field].(string); cur != "" {
		return
	}
	if src, _ := values[k.Slug.Source].(string); src != "" {
		values[k.Slug.Field] = slug.Make(src)
	}
}

// serialize turns rows into records: booleans fixed up for SQLite, prices as
// decimal strings, refs fields loaded from their join tables.
func (s *Service) serialize(ctx context.Context, q store.Querier, k *metadata.Kind, rows []map[string]any) ([]Record, error) {
	if s.store.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, k.BooleanFields())
	}

	out := make([]Record, len(rows))
	ids := make([]any, len(rows))
	for i, row := range rows {
		rec := Record(row)
		for _, f := range k.Fields {
			if f.Type == metadata.TypeDecimal {
				rec[f.Name] = decimalString(rec[f.Name])
			}
		}
		out[i] = rec
		ids[i] = row[metadata.PrimaryKey]
	}

	for _, f := range k.ManyToMany() {
		members, err := s.loadJoinRows(ctx, q, f, ids)
		if err != nil {
			return nil, err
		}
		for _, rec := range out {
			id, _ := store.AsInt64(rec[metadata.PrimaryKey])
			list := members[id]
			if list == nil {
				list = []int64{}
			}
			rec[f.Name] = list
		}
	}
	return out, nil
}

func decimalString(v any) any {
	switch d := v.(type) {
	case nil:
		return nil
	case string:
		if parsed, err := decimal.NewFromString(d); err == nil {
			return parsed.String()
		}
		return d
	case float64:
		return decimal.NewFromFloat(d).String()
	case int64:
		return decimal.NewFromInt(d).String()
	}
	return fmt.Sprint(v)
}
