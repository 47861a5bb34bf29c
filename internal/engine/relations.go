package engine

import (
	"context"
	"fmt"

	"shop-backend/internal/metadata"
	"shop-backend/internal/store"
)

// replaceJoinRows makes the join table of a refs field hold exactly ids for the owner.
func (s *Service) replaceJoinRows(ctx context.Context, q store.Querier, f metadata.Field, ownerID int64, ids []int64) error {
	d := s.store.Dialect

	delSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", f.JoinTable, f.JoinSource, d.Placeholder(1))
	if _, err := store.Exec(ctx, q, delSQL, ownerID); err != nil {
		return fmt.Errorf("delete join rows of %s: %w", f.Name, err)
	}

	insSQL := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		f.JoinTable, f.JoinSource, f.JoinTarget, d.Placeholder(1), d.Placeholder(2))
	for _, id := range ids {
		if _, err := store.Exec(ctx, q, insSQL, ownerID, id); err != nil {
			return fmt.Errorf("insert join row of %s: %w", f.Name, err)
		}
	}
	return nil
}

// loadJoinRows returns the ascending member ids of a refs field per owner id.
func (s *Service) loadJoinRows(ctx context.Context, q store.Querier, f metadata.Field, ownerIDs []any) (map[int64][]int64, error) {
	members := make(map[int64][]int64)
	if len(ownerIDs) == 0 {
		return members, nil
	}

	pb := s.store.Dialect.NewParamBuilder()
	sql := fmt.Sprintf("SELECT %s AS owner, %s AS member FROM %s WHERE %s ORDER BY %s, %s",
		f.JoinSource, f.JoinTarget, f.JoinTable,
		s.store.Dialect.InExpr(f.JoinSource, pb, ownerIDs),
		f.JoinSource, f.JoinTarget)

	rows, err := store.QueryRows(ctx, q, sql, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("load join rows of %s: %w", f.Name, err)
	}
	for _, row := range rows {
		owner, _ := store.AsInt64(row["owner"])
		member, _ := store.AsInt64(row["member"])
		members[owner] = append(members[owner], member)
	}
	return members, nil
}

// detachReferences applies the set-null policy ahead of deleting a record:
// ref fields pointing at it become null, join rows naming it on either side
// are removed.
func (s *Service) detachReferences(ctx context.Context, q store.Querier, k *metadata.Kind, id int64) error {
	d := s.store.Dialect

	for _, ref := range s.registry.ReferencesTo(k.Name) {
		var sql string
		if ref.Field.Type == metadata.TypeRefs {
			sql = fmt.Sprintf("DELETE FROM %s WHERE %s = %s", ref.Field.JoinTable, ref.Field.JoinTarget, d.Placeholder(1))
		} else {
			sql = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = %s",
				ref.Kind.Table, ref.Field.Name, ref.Field.Name, d.Placeholder(1))
		}
		if _, err := store.Exec(ctx, q, sql, id); err != nil {
			return fmt.Errorf("%s.%s: %w", ref.Kind.Name, ref.Field.Name, err)
		}
	}

	for _, f := range k.ManyToMany() {
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", f.JoinTable, f.JoinSource, d.Placeholder(1))
		if _, err := store.Exec(ctx, q, sql, id); err != nil {
			return fmt.Errorf("%s.%s: %w", k.Name, f.Name, err)
		}
	}
	return nil
}
