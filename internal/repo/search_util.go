package repo

import (
	"fmt"
	"strings"
)

// keywordCondition builds a case-insensitive contains-any filter over the
// given columns. Placeholders start at startIdx; one arg is produced per
// word and shared across columns.
func keywordCondition(columns, words []string, startIdx int) (string, []interface{}) {
	conds := make([]string, 0, len(words))
	args := make([]interface{}, 0, len(words))
	for i, word := range words {
		placeholder := fmt.Sprintf("$%d", startIdx+i)
		parts := make([]string, 0, len(columns))
		for _, col := range columns {
			parts = append(parts, fmt.Sprintf("%s ILIKE %s", col, placeholder))
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
		args = append(args, "%"+word+"%")
	}
	return strings.Join(conds, " OR "), args
}
