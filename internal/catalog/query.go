package catalog

import "fmt"

type SortKey string

const (
	SortNewest SortKey = "newest"
	SortPrice  SortKey = "price"
	SortName   SortKey = "name"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

const DefaultPageSize = 12

// Query addresses one page of a tenant's local catalog.
type Query struct {
	TenantID  int64
	Page      int
	PageSize  int
	Search    string
	Sort      SortKey
	Direction Direction
}

func DefaultQuery(tenantID int64, pageSize int) Query {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Query{TenantID: tenantID, Page: 1, PageSize: pageSize, Sort: SortNewest, Direction: Desc}
}

// GlobalQuery addresses one page of the shared catalog.
type GlobalQuery struct {
	Page     int
	PageSize int
	Search   string
}

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortNewest, SortPrice, SortName:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}
