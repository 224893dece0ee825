package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingClause renders `ordering` as a comma separated ORDER BY list.
// Fields not listed in `allowed` are dropped; `fallback` is used when nothing is left.
func OrderingClause(ordering []DBOrdering, allowed []string, fallback ...DBOrdering) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if ord.Field == fld {
				list = append(list, ord.String())
				break
			}
		}
	}
	if len(list) == 0 {
		for _, ord := range fallback {
			list = append(list, ord.String())
		}
	}
	return strings.Join(list, ", ")
}
