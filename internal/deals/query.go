// internal/deals/query.go
package deals

import (
	"fmt"
	"sort"
	"strings"

	"drift-workers/internal/models"
)

type SortKey string

const (
	SortPriority SortKey = "priority"
	SortInactive SortKey = "inactive"
	SortAmount   SortKey = "amount"
	SortName     SortKey = "name"
	SortRisk     SortKey = "risk"
)

// Direction orders a sort. The zero value uses the key's default: ascending
// for name, descending for everything else.
type Direction string

const (
	DirAsc  Direction = "asc"
	DirDesc Direction = "desc"
)

// DefaultPageSize matches the dashboard list.
const DefaultPageSize = 6

// Filter selects one page of the dashboard list. Page is 1-based.
type Filter struct {
	Search   string          `json:"q"`
	Priority models.Priority `json:"priority"` // "" or "all" for every priority
	Sort     SortKey         `json:"sort"`
	Dir      Direction       `json:"dir"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

type Page struct {
	Deals      []models.Deal `json:"deals"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

// Query filters, sorts and paginates the current deal set.
func (s *Service) Query(f Filter) Page {
	return Apply(s.Deals(), f)
}

// Apply runs f over deals. Sorting is stable so equal keys keep load order.
func Apply(deals []models.Deal, f Filter) Page {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	filtered := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if q != "" && !matchesSearch(d, q) {
			continue
		}
		if f.Priority != "" && f.Priority != "all" && d.Priority != f.Priority {
			continue
		}
		filtered = append(filtered, d)
	}

	sortDeals(filtered, f.Sort, f.Dir)

	size := f.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(filtered)
	totalPages := (total + size - 1) / size

	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return Page{
		Deals:      filtered[start:end],
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}
}

func matchesSearch(d models.Deal, q string) bool {
	return strings.Contains(strings.ToLower(d.Name), q) ||
		strings.Contains(strings.ToLower(d.CompanyName), q) ||
		strings.Contains(strings.ToLower(d.ContactName), q)
}

func sortDeals(deals []models.Deal, key SortKey, dir Direction) {
	var less func(a, b models.Deal) bool
	switch key {
	case SortInactive:
		less = func(a, b models.Deal) bool { return a.DaysInactive > b.DaysInactive }
	case SortAmount:
		less = func(a, b models.Deal) bool { return a.Amount > b.Amount }
	case SortName:
		less = func(a, b models.Deal) bool {
			la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if la != lb {
				return la < lb
			}
			return a.Name < b.Name
		}
	case SortRisk:
		less = func(a, b models.Deal) bool { return a.RiskScore > b.RiskScore }
	case SortPriority, "":
		less = func(a, b models.Deal) bool {
			if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
				return ra > rb
			}
			return a.DaysInactive > b.DaysInactive
		}
	default:
		return
	}

	natural := DirDesc
	if key == SortName {
		natural = DirAsc
	}
	if dir != "" && dir != natural {
		forward := less
		less = func(a, b models.Deal) bool { return forward(b, a) }
	}
	sort.SliceStable(deals, func(i, j int) bool { return less(deals[i], deals[j]) })
}

// ParseSortKey maps a query value to a SortKey, defaulting to priority.
func ParseSortKey(v string) SortKey {
	switch k := SortKey(strings.ToLower(v)); k {
	case SortPriority, SortInactive, SortAmount, SortName, SortRisk:
		return k
	default:
		return SortPriority
	}
}

// ParseDirection accepts "", "asc" or "desc" in any case.
func ParseDirection(v string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(v))); d {
	case "", DirAsc, DirDesc:
		return d, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", v)
	}
}
