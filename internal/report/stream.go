package report

import "sort"

// Streams is the partition of companies into the multi-company actual
// stream and the single consolidated budget stream. It is the sole
// authority on per-company display eligibility: the budget-only company
// never appears in company-keyed constructs for any data-type selector —
// its values only surface through the consolidated Budget column.
type Streams struct {
	Actual []Company
	Budget *Company
}

// PartitionCompanies classifies companies by the budget-only predicate.
// The actual stream is ordered by company code so that column identity
// and colors stay stable under renames. Zero budget-only companies is
// valid (the Budget column stays empty); more than one is a
// configuration fault that must surface, never be resolved by choice.
func PartitionCompanies(companies []Company) (Streams, error) {
	var s Streams
	for _, c := range companies {
		if c.BudgetOnly {
			if s.Budget != nil {
				return Streams{}, ErrStreamConfig
			}
			budget := c
			s.Budget = &budget
			continue
		}
		s.Actual = append(s.Actual, c)
	}
	sort.Slice(s.Actual, func(i, j int) bool { return s.Actual[i].Code < s.Actual[j].Code })
	return s, nil
}

// ActualCodes returns the stable, code-sorted actual-stream codes.
func (s Streams) ActualCodes() []string {
	codes := make([]string, len(s.Actual))
	for i, c := range s.Actual {
		codes[i] = c.Code
	}
	return codes
}

// Displayable reports whether a company code belongs to the company
// column set.
func (s Streams) Displayable(code string) bool {
	for _, c := range s.Actual {
		if c.Code == code {
			return true
		}
	}
	return false
}
