package domain

import (
	"sort"
	"strings"
	"time"
)

// FilterSpec holds optional criteria for selecting deals. Absent criteria
// (empty string, empty set, nil bound) are unconstrained; everything
// supplied is AND-combined.
type FilterSpec struct {
	// Search matches case-insensitively against the deal title and the
	// resolved contact and company display names.
	Search    string
	Statuses  []Status
	StageIDs  []string
	ContactID string
	CompanyID string
	MinValue  *float64
	MaxValue  *float64
	// CreatedFrom/CreatedTo select by creation date with day granularity:
	// from the start of CreatedFrom's day through the end of CreatedTo's.
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Matches reports whether a deal satisfies every supplied criterion.
// The directory resolves contact/company names for the free-text search
// and may be nil, in which case search only covers the title.
func (f FilterSpec) Matches(d Deal, dir Directory) bool {
	if f.Search != "" && !f.matchesSearch(d, dir) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, d.Status) {
		return false
	}
	if len(f.StageIDs) > 0 && !containsString(f.StageIDs, d.StageID) {
		return false
	}
	if f.ContactID != "" && d.ContactID != f.ContactID {
		return false
	}
	if f.CompanyID != "" && d.CompanyID != f.CompanyID {
		return false
	}
	if f.MinValue != nil && d.Value < *f.MinValue {
		return false
	}
	if f.MaxValue != nil && d.Value > *f.MaxValue {
		return false
	}
	if f.CreatedFrom != nil && d.CreatedAt.Before(dayStart(*f.CreatedFrom)) {
		return false
	}
	if f.CreatedTo != nil && !d.CreatedAt.Before(dayStart(*f.CreatedTo).Add(24*time.Hour)) {
		return false
	}
	return true
}

func (f FilterSpec) matchesSearch(d Deal, dir Directory) bool {
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(d.Title), needle) {
		return true
	}
	if dir == nil {
		return false
	}
	if d.ContactID != "" && strings.Contains(strings.ToLower(dir.ContactName(d.ContactID)), needle) {
		return true
	}
	if d.CompanyID != "" && strings.Contains(strings.ToLower(dir.CompanyName(d.CompanyID)), needle) {
		return true
	}
	return false
}

// FilterDeals returns the deals matching the spec, preserving input order.
func FilterDeals(deals []Deal, f FilterSpec, dir Directory) []Deal {
	out := make([]Deal, 0, len(deals))
	for _, d := range deals {
		if f.Matches(d, dir) {
			out = append(out, d)
		}
	}
	return out
}

// SortKey selects the deal attribute to sort by.
type SortKey string

const (
	SortByValue             SortKey = "value"
	SortByCreatedAt         SortKey = "created_at"
	SortByTitle             SortKey = "title"
	SortByProbability       SortKey = "probability"
	SortByExpectedCloseDate SortKey = "expected_close_date"
)

// SortOrder selects ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortDeals returns a sorted copy of the deals. Missing values (nil
// expected close dates) sort lowest; title comparison is case-insensitive.
func SortDeals(deals []Deal, key SortKey, order SortOrder) []Deal {
	out := make([]Deal, len(deals))
	copy(out, deals)

	less := lessFunc(key)
	sort.SliceStable(out, func(i, j int) bool {
		if order == SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(key SortKey) func(a, b Deal) bool {
	switch key {
	case SortByValue:
		return func(a, b Deal) bool { return a.Value < b.Value }
	case SortByTitle:
		return func(a, b Deal) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case SortByProbability:
		return func(a, b Deal) bool { return a.Probability < b.Probability }
	case SortByExpectedCloseDate:
		return func(a, b Deal) bool {
			return timeOrEpoch(a.ExpectedCloseDate).Before(timeOrEpoch(b.ExpectedCloseDate))
		}
	default:
		return func(a, b Deal) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func timeOrEpoch(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func containsStatus(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
