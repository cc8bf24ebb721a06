// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package query

import (
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/sitelens/internal/models"
)

// Field is a sortable visitor column.
type Field string

const (
	FieldAddress      Field = "address"
	FieldOrganization Field = "organization"
	FieldCountry      Field = "country"
	FieldCity         Field = "city"
	FieldFirstSeen    Field = "first_seen"
	FieldLastSeen     Field = "last_seen"
	FieldVisitCount   Field = "visit_count"
)

// Fields lists every sortable field.
var Fields = []Field{
	FieldAddress, FieldOrganization, FieldCountry, FieldCity,
	FieldFirstSeen, FieldLastSeen, FieldVisitCount,
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Allowed page sizes. Anything else falls back to DefaultPageSize.
var PageSizes = []int{10, 25, 50, 100}

// DefaultPageSize is used when the requested page size is not allowed.
const DefaultPageSize = 25

// Filters narrow the visitor set. Empty filters match everything; all
// set filters must match.
type Filters struct {
	Organization string     `json:"organization,omitempty"` // case-insensitive substring
	Country      string     `json:"country,omitempty"`      // case-insensitive substring
	Address      string     `json:"address,omitempty"`      // case-insensitive substring
	From         *time.Time `json:"from,omitempty"`         // last seen on or after
	To           *time.Time `json:"to,omitempty"`           // last seen on or before
}

// Sort orders the visitor set.
type Sort struct {
	Field     Field     `json:"field"`
	Direction Direction `json:"direction"`
}

// Request is a visitor listing request.
type Request struct {
	Filters  Filters `json:"filters"`
	Sort     Sort    `json:"sort"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// Result is one page of visitors.
type Result struct {
	Items      []models.Visitor `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// DefaultSort lists the most recently seen visitors first.
func DefaultSort() Sort {
	return Sort{Field: FieldLastSeen, Direction: Descending}
}

// ParseField returns the Field named s.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// ParseDirection returns the Direction named s.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case Ascending:
		return Ascending, true
	case Descending:
		return Descending, true
	}
	return "", false
}

// ToggleSort returns the sort after a user selects field: the same field
// flips direction, a new field starts descending.
func ToggleSort(current Sort, field Field) Sort {
	if current.Field == field {
		if current.Direction == Descending {
			return Sort{Field: field, Direction: Ascending}
		}
		return Sort{Field: field, Direction: Descending}
	}
	return Sort{Field: field, Direction: Descending}
}

// NormalizePageSize returns size when allowed, otherwise DefaultPageSize.
func NormalizePageSize(size int) int {
	for _, s := range PageSizes {
		if s == size {
			return size
		}
	}
	return DefaultPageSize
}

// Normalize clamps the request into a valid one: unknown sort fields and
// directions fall back to DefaultSort, page sizes outside PageSizes to the
// default, and pages below 1 to 1.
func (r Request) Normalize() Request {
	if _, ok := ParseField(string(r.Sort.Field)); !ok {
		r.Sort = DefaultSort()
	}
	if _, ok := ParseDirection(string(r.Sort.Direction)); !ok {
		r.Sort.Direction = Descending
	}
	r.Sort.Direction = Direction(strings.ToLower(string(r.Sort.Direction)))
	r.PageSize = NormalizePageSize(r.PageSize)
	if r.Page < 1 {
		r.Page = 1
	}
	return r
}

// Offset returns the zero-based index of the first item on the page.
func (r Request) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// TotalPages returns ceil(total/size), 0 when there is nothing to show.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Matches reports whether v passes every filter in f.
func Matches(v *models.Visitor, f Filters) bool {
	if f.Organization != "" && !containsFold(v.Organization, f.Organization) {
		return false
	}
	if f.Country != "" && !containsFold(v.Country, f.Country) {
		return false
	}
	if f.Address != "" && !containsFold(v.Address, f.Address) {
		return false
	}
	if f.From != nil && v.LastVisited.Before(*f.From) {
		return false
	}
	if f.To != nil && v.LastVisited.After(*f.To) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Compare orders a and b by field ascending, 0 when equal.
func Compare(a, b *models.Visitor, field Field) int {
	switch field {
	case FieldAddress:
		return strings.Compare(strings.ToLower(a.Address), strings.ToLower(b.Address))
	case FieldOrganization:
		return strings.Compare(strings.ToLower(a.Organization), strings.ToLower(b.Organization))
	case FieldCountry:
		return strings.Compare(strings.ToLower(a.Country), strings.ToLower(b.Country))
	case FieldCity:
		return strings.Compare(strings.ToLower(a.City), strings.ToLower(b.City))
	case FieldFirstSeen:
		return a.FirstVisited.Compare(b.FirstVisited)
	case FieldLastSeen:
		return a.LastVisited.Compare(b.LastVisited)
	case FieldVisitCount:
		return a.VisitCount - b.VisitCount
	}
	return 0
}

// Less reports whether a sorts before b under s. Ties are broken by
// address then fingerprint, both ascending, so the order is total.
func Less(a, b *models.Visitor, s Sort) bool {
	if c := Compare(a, b, s.Field); c != 0 {
		if s.Direction == Descending {
			return c > 0
		}
		return c < 0
	}
	if a.Address != b.Address {
		return a.Address < b.Address
	}
	return a.Fingerprint < b.Fingerprint
}

// Apply filters, sorts and paginates records in memory. records is not
// modified.
func Apply(records []models.Visitor, req Request) Result {
	req = req.Normalize()

	matched := make([]models.Visitor, 0, len(records))
	for i := range records {
		if Matches(&records[i], req.Filters) {
			matched = append(matched, records[i])
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return Less(&matched[i], &matched[j], req.Sort)
	})

	res := Result{
		Items:      []models.Visitor{},
		Total:      len(matched),
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: TotalPages(len(matched), req.PageSize),
	}
	start := req.Offset()
	if start >= len(matched) {
		return res
	}
	end := start + req.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	res.Items = matched[start:end]
	return res
}
