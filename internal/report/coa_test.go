package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewChartIndexOrdersByMinimumSortOrder(t *testing.T) {
	idx, err := NewChartIndex([]ChartEntry{
		{AccountCode: "6000", AccountName: "Salaries", Type: AccountExpense, ParentCategory: "Overheads", SubCategory: "Staff", SortOrder: 30},
		{AccountCode: "4100", AccountName: "Fee Income", Type: AccountIncome, ParentCategory: "Income", SubCategory: "Fees", SortOrder: 20},
		{AccountCode: "4000", AccountName: "Interest Income", Type: AccountIncome, ParentCategory: "Income", SubCategory: "Interest", SortOrder: 10},
	})
	require.NoError(t, err)

	groups := idx.Categories()
	require.Len(t, groups, 2)
	require.Equal(t, "Income", groups[0].Name)
	require.Equal(t, "Overheads", groups[1].Name)

	require.Len(t, groups[0].Subs, 2)
	require.Equal(t, "Interest", groups[0].Subs[0].Name)
	require.Equal(t, "Fees", groups[0].Subs[1].Name)
}

func TestNewChartIndexDefaultsMissingCategories(t *testing.T) {
	idx, err := NewChartIndex([]ChartEntry{
		{AccountCode: "9000", AccountName: "Sundry", Type: AccountExpense, SortOrder: 1},
	})
	require.NoError(t, err)

	groups := idx.Categories()
	require.Len(t, groups, 1)
	require.Equal(t, "Uncategorized", groups[0].Name)
	require.Equal(t, "Uncategorized", groups[0].Subs[0].Name)
}

func TestNewChartIndexRejectsDuplicateCode(t *testing.T) {
	_, err := NewChartIndex([]ChartEntry{
		{AccountCode: "4000", AccountName: "Interest Income", ParentCategory: "Income", SubCategory: "Interest", SortOrder: 1},
		{AccountCode: "4000", AccountName: "Interest Income (dup)", ParentCategory: "Income", SubCategory: "Interest", SortOrder: 2},
	})
	require.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestNewChartIndexCodelessEntriesContributeMetadataOnly(t *testing.T) {
	idx, err := NewChartIndex([]ChartEntry{
		{AccountName: "Income header", ParentCategory: "Income", SubCategory: "Interest", SortOrder: 1},
		{AccountCode: "4000", AccountName: "Interest Income", ParentCategory: "Income", SubCategory: "Interest", SortOrder: 5},
	})
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
	require.Equal(t, []string{"4000"}, idx.AccountCodes())

	// The header placeholder still pins the sub ordering.
	require.Equal(t, 1, idx.Categories()[0].Subs[0].SortOrder)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "cost-of-funds", Slugify("Cost of Funds"))
	require.Equal(t, "net-profit-after-tax", Slugify("  Net Profit After Tax  "))
	require.Equal(t, "check-assets-liabilities-equity", Slugify("CHECK (Assets - Liabilities - Equity)"))
}
