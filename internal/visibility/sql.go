package visibility

import (
	"fmt"
)

// Predicate renders the visibility rule as a SQL boolean expression over a
// table alias. argN is the placeholder number used for the viewer's
// organization; the returned args are to be appended at that position.
//
// blockTable, when non-empty, names the join table holding the block list
// (columns row_id, org_id).
func Predicate(alias, blockTable string, v Viewer, argN int) (string, []any) {
	if !v.set {
		return fmt.Sprintf("%s.org_id IS NULL", alias), nil
	}

	expr := fmt.Sprintf("(%[1]s.org_id IS NULL OR %[1]s.org_id = $%[2]d)", alias, argN)
	if blockTable != "" {
		expr = fmt.Sprintf(
			"%[1]s AND NOT (%[2]s.org_id IS NULL AND EXISTS (SELECT 1 FROM %[3]s b WHERE b.row_id = %[2]s.id AND b.org_id = $%[4]d))",
			expr, alias, blockTable, argN,
		)
	}
	return expr, []any{v.orgID}
}
