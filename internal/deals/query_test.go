// internal/deals/query_test.go
package deals

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"drift-workers/internal/models"
)

func queryFixture() []models.Deal {
	return []models.Deal{
		{ID: "1", Name: "beta Corp", CompanyName: "Beta", ContactName: "Ann Lee", Priority: models.PriorityLow, DaysInactive: 5, Amount: 500, RiskScore: 10},
		{ID: "2", Name: "Alpha", CompanyName: "Northwind", ContactName: "Bob Stone", Priority: models.PriorityHigh, DaysInactive: 2, Amount: 9000, RiskScore: 80},
		{ID: "3", Name: "Gamma", CompanyName: "Contoso", ContactName: "Cy Twombly", Priority: models.PriorityHigh, DaysInactive: 20, Amount: 9000, RiskScore: 55},
		{ID: "4", Name: "Beta Corp", CompanyName: "Fabrikam", ContactName: "Dee Snider", Priority: models.PriorityMedium, DaysInactive: 20, Amount: 100, RiskScore: 55},
	}
}

func ids(deals []models.Deal) []string {
	out := make([]string, len(deals))
	for i, d := range deals {
		out[i] = d.ID
	}
	return out
}

func TestApply_Sorting(t *testing.T) {
	tests := []struct {
		sort     SortKey
		expected []string
	}{
		{SortPriority, []string{"3", "2", "4", "1"}},
		{"", []string{"3", "2", "4", "1"}},
		{SortInactive, []string{"3", "4", "1", "2"}},
		{SortAmount, []string{"2", "3", "1", "4"}},
		{SortName, []string{"2", "4", "1", "3"}},
		{SortRisk, []string{"2", "3", "4", "1"}},
		{"unknown", []string{"1", "2", "3", "4"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			page := Apply(queryFixture(), Filter{Sort: tt.sort})
			assert.Equal(t, tt.expected, ids(page.Deals))
		})
	}
}

func TestApply_SortDirection(t *testing.T) {
	tests := []struct {
		sort     SortKey
		dir      Direction
		expected []string
	}{
		{SortPriority, DirAsc, []string{"1", "4", "2", "3"}},
		{SortInactive, DirAsc, []string{"2", "1", "3", "4"}},
		{SortAmount, DirAsc, []string{"4", "1", "2", "3"}},
		{SortName, DirDesc, []string{"3", "1", "4", "2"}},
		{SortName, DirAsc, []string{"2", "4", "1", "3"}},
		{SortRisk, DirAsc, []string{"1", "3", "4", "2"}},
		{SortRisk, DirDesc, []string{"2", "3", "4", "1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort)+"_"+string(tt.dir), func(t *testing.T) {
			page := Apply(queryFixture(), Filter{Sort: tt.sort, Dir: tt.dir})
			assert.Equal(t, tt.expected, ids(page.Deals))
		})
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": "", "asc": DirAsc, "DESC": DirDesc, " Asc ": DirAsc} {
		got, err := ParseDirection(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestApply_Filtering(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"search name case-insensitive", Filter{Search: "BETA", Sort: SortInactive}, []string{"4", "1"}},
		{"search company", Filter{Search: "northwind"}, []string{"2"}},
		{"search contact", Filter{Search: " twombly "}, []string{"3"}},
		{"priority high", Filter{Priority: models.PriorityHigh, Sort: SortAmount}, []string{"2", "3"}},
		{"priority all", Filter{Priority: "all", Sort: SortRisk}, []string{"2", "3", "4", "1"}},
		{"search and priority", Filter{Search: "beta", Priority: models.PriorityLow}, []string{"1"}},
		{"no match", Filter{Search: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Apply(queryFixture(), tt.filter)
			assert.Equal(t, tt.expected, ids(page.Deals))
			assert.Equal(t, len(tt.expected), page.Total)
		})
	}
}

func TestApply_Pagination(t *testing.T) {
	deals := make([]models.Deal, 14)
	for i := range deals {
		deals[i] = models.Deal{ID: fmt.Sprintf("%02d", i), Name: fmt.Sprintf("Deal %02d", i), Priority: models.PriorityMedium}
	}

	tests := []struct {
		name          string
		filter        Filter
		expectedIDs   []string
		expectedPage  int
		expectedPages int
	}{
		{"first page default size", Filter{Sort: SortName}, []string{"00", "01", "02", "03", "04", "05"}, 1, 3},
		{"last partial page", Filter{Sort: SortName, Page: 3}, []string{"12", "13"}, 3, 3},
		{"past the end", Filter{Sort: SortName, Page: 9}, []string{}, 9, 3},
		{"page zero treated as first", Filter{Sort: SortName, Page: 0, PageSize: 5}, []string{"00", "01", "02", "03", "04"}, 1, 3},
		{"custom size", Filter{Sort: SortName, Page: 2, PageSize: 10}, []string{"10", "11", "12", "13"}, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Apply(deals, tt.filter)
			assert.Equal(t, tt.expectedIDs, ids(page.Deals))
			assert.Equal(t, tt.expectedPage, page.Page)
			assert.Equal(t, tt.expectedPages, page.TotalPages)
			assert.Equal(t, 14, page.Total)
		})
	}
}

func TestApply_EmptyInput(t *testing.T) {
	page := Apply(nil, Filter{})
	assert.Empty(t, page.Deals)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, DefaultPageSize, page.PageSize)
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, SortAmount, ParseSortKey("Amount"))
	assert.Equal(t, SortRisk, ParseSortKey("risk"))
	assert.Equal(t, SortPriority, ParseSortKey(""))
	assert.Equal(t, SortPriority, ParseSortKey("bogus"))
}
