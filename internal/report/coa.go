package report

import (
	"fmt"
	"sort"
)

// SubGroup is one sub category with its leaf accounts in sort order.
type SubGroup struct {
	Name      string
	SortOrder int
	Accounts  []ChartEntry
}

// CategoryGroup is one parent category with its sub categories in sort
// order. The hierarchy is pure data: names and ordering come from the
// chart, never from code.
type CategoryGroup struct {
	Name      string
	SortOrder int
	Subs      []SubGroup
}

// ChartIndex resolves account codes into the two-level category
// hierarchy and exposes ordered traversal for the matrix builder. Built
// once per request from chart rows.
type ChartIndex struct {
	byCode map[string]ChartEntry
	groups []CategoryGroup
}

// NewChartIndex builds the index. Entries without an account code are
// header placeholders in the source chart and only contribute category
// metadata. A code mapped twice is an integrity fault.
func NewChartIndex(entries []ChartEntry) (*ChartIndex, error) {
	idx := &ChartIndex{byCode: make(map[string]ChartEntry, len(entries))}

	type subKey struct{ parent, sub string }
	subOrder := make(map[subKey]int)
	parentOrder := make(map[string]int)
	subAccounts := make(map[subKey][]ChartEntry)

	for _, e := range entries {
		parent := e.ParentCategory
		if parent == "" {
			parent = "Uncategorized"
		}
		sub := e.SubCategory
		if sub == "" {
			sub = "Uncategorized"
		}
		key := subKey{parent, sub}
		if cur, ok := subOrder[key]; !ok || e.SortOrder < cur {
			subOrder[key] = e.SortOrder
		}
		if cur, ok := parentOrder[parent]; !ok || e.SortOrder < cur {
			parentOrder[parent] = e.SortOrder
		}
		if e.AccountCode == "" {
			continue
		}
		if _, dup := idx.byCode[e.AccountCode]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, e.AccountCode)
		}
		idx.byCode[e.AccountCode] = e
		subAccounts[key] = append(subAccounts[key], e)
	}

	grouped := make(map[string][]SubGroup)
	for key, accounts := range subAccounts {
		sort.SliceStable(accounts, func(i, j int) bool { return accounts[i].SortOrder < accounts[j].SortOrder })
		grouped[key.parent] = append(grouped[key.parent], SubGroup{
			Name:      key.sub,
			SortOrder: subOrder[key],
			Accounts:  accounts,
		})
	}

	for parent, subs := range grouped {
		sort.SliceStable(subs, func(i, j int) bool { return subs[i].SortOrder < subs[j].SortOrder })
		idx.groups = append(idx.groups, CategoryGroup{
			Name:      parent,
			SortOrder: parentOrder[parent],
			Subs:      subs,
		})
	}
	sort.SliceStable(idx.groups, func(i, j int) bool { return idx.groups[i].SortOrder < idx.groups[j].SortOrder })

	return idx, nil
}

// Lookup resolves one account code.
func (x *ChartIndex) Lookup(code string) (ChartEntry, bool) {
	e, ok := x.byCode[code]
	return e, ok
}

// AccountCodes returns every mapped account code, sorted for stable
// query plans.
func (x *ChartIndex) AccountCodes() []string {
	codes := make([]string, 0, len(x.byCode))
	for code := range x.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Categories returns the ordered parent-category hierarchy.
func (x *ChartIndex) Categories() []CategoryGroup {
	return x.groups
}

// Len reports the number of mapped accounts.
func (x *ChartIndex) Len() int {
	return len(x.byCode)
}
