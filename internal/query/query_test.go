// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package query

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/sitelens/internal/models"
)

var base = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func visitor(addr, org, country string, lastDays, visits int) models.Visitor {
	return models.Visitor{
		Address:      addr,
		Fingerprint:  "fp-" + addr,
		Organization: org,
		Country:      country,
		City:         "City " + addr,
		FirstVisited: base,
		LastVisited:  base.Add(time.Duration(lastDays) * 24 * time.Hour),
		VisitCount:   visits,
	}
}

func fixture() []models.Visitor {
	return []models.Visitor{
		visitor("10.0.0.1", "Acme Corp", "United States", 1, 3),
		visitor("10.0.0.2", "Globex", "Germany", 5, 1),
		visitor("10.0.0.3", "acme labs", "United Kingdom", 9, 7),
		visitor("192.168.1.4", "Initech", "United States", 3, 2),
		visitor("172.16.0.5", "", "France", 7, 1),
	}
}

func addresses(vs []models.Visitor) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Address
	}
	return out
}

func TestApply_Filters(t *testing.T) {
	from := base.Add(2 * 24 * time.Hour)
	to := base.Add(8 * 24 * time.Hour)

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{name: "none", filters: Filters{}, want: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "172.16.0.5", "192.168.1.4"}},
		{name: "organization case-insensitive", filters: Filters{Organization: "ACME"}, want: []string{"10.0.0.1", "10.0.0.3"}},
		{name: "country substring", filters: Filters{Country: "united"}, want: []string{"10.0.0.1", "10.0.0.3", "192.168.1.4"}},
		{name: "address prefix", filters: Filters{Address: "10.0"}, want: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}},
		{name: "anded", filters: Filters{Organization: "acme", Country: "kingdom"}, want: []string{"10.0.0.3"}},
		{name: "date range", filters: Filters{From: &from, To: &to}, want: []string{"10.0.0.2", "172.16.0.5", "192.168.1.4"}},
		{name: "no match", filters: Filters{Country: "Japan"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(fixture(), Request{
				Filters: tt.filters,
				Sort:    Sort{Field: FieldAddress, Direction: Ascending},
			})
			if got := addresses(res.Items); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("addresses = %v, want %v", got, tt.want)
			}
			if res.Total != len(tt.want) {
				t.Errorf("Total = %d, want %d", res.Total, len(tt.want))
			}
		})
	}
}

func TestApply_Sort(t *testing.T) {
	tests := []struct {
		sort Sort
		want []string
	}{
		{Sort{FieldVisitCount, Descending}, []string{"10.0.0.3", "10.0.0.1", "192.168.1.4", "10.0.0.2", "172.16.0.5"}},
		{Sort{FieldVisitCount, Ascending}, []string{"10.0.0.2", "172.16.0.5", "192.168.1.4", "10.0.0.1", "10.0.0.3"}},
		{Sort{FieldLastSeen, Descending}, []string{"10.0.0.3", "172.16.0.5", "10.0.0.2", "192.168.1.4", "10.0.0.1"}},
		{Sort{FieldOrganization, Ascending}, []string{"172.16.0.5", "10.0.0.1", "10.0.0.3", "10.0.0.2", "192.168.1.4"}},
		{Sort{FieldCountry, Ascending}, []string{"172.16.0.5", "10.0.0.2", "10.0.0.3", "10.0.0.1", "192.168.1.4"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.sort.Field, tt.sort.Direction), func(t *testing.T) {
			res := Apply(fixture(), Request{Sort: tt.sort})
			if got := addresses(res.Items); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := fixture()
	before := addresses(in)
	Apply(in, Request{Sort: Sort{FieldVisitCount, Descending}})
	if after := addresses(in); !reflect.DeepEqual(before, after) {
		t.Errorf("input reordered: %v", after)
	}
}

func TestApply_Pagination(t *testing.T) {
	records := make([]models.Visitor, 0, 60)
	for i := 0; i < 60; i++ {
		records = append(records, visitor(fmt.Sprintf("10.1.%03d", i), "Org", "US", i, 1))
	}

	tests := []struct {
		name           string
		page, size     int
		wantPage       int
		wantSize       int
		wantItems      int
		wantTotalPages int
	}{
		{name: "first page", page: 1, size: 25, wantPage: 1, wantSize: 25, wantItems: 25, wantTotalPages: 3},
		{name: "last partial", page: 3, size: 25, wantPage: 3, wantSize: 25, wantItems: 10, wantTotalPages: 3},
		{name: "beyond total", page: 4, size: 25, wantPage: 4, wantSize: 25, wantItems: 0, wantTotalPages: 3},
		{name: "page zero clamps", page: 0, size: 10, wantPage: 1, wantSize: 10, wantItems: 10, wantTotalPages: 6},
		{name: "negative page clamps", page: -3, size: 100, wantPage: 1, wantSize: 100, wantItems: 60, wantTotalPages: 1},
		{name: "bad size defaults", page: 1, size: 7, wantPage: 1, wantSize: 25, wantItems: 25, wantTotalPages: 3},
		{name: "size 50", page: 2, size: 50, wantPage: 2, wantSize: 50, wantItems: 10, wantTotalPages: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(records, Request{Page: tt.page, PageSize: tt.size, Sort: Sort{FieldAddress, Ascending}})
			if res.Page != tt.wantPage || res.PageSize != tt.wantSize {
				t.Errorf("page/size = %d/%d, want %d/%d", res.Page, res.PageSize, tt.wantPage, tt.wantSize)
			}
			if len(res.Items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(res.Items), tt.wantItems)
			}
			if res.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", res.TotalPages, tt.wantTotalPages)
			}
			if res.Total != 60 {
				t.Errorf("Total = %d, want 60", res.Total)
			}
		})
	}
}

func TestApply_PagesPartitionResult(t *testing.T) {
	records := fixture()
	seen := map[string]int{}
	for page := 1; page <= 3; page++ {
		res := Apply(records, Request{Page: page, PageSize: 10, Sort: DefaultSort()})
		for _, v := range res.Items {
			seen[v.Address]++
		}
	}
	if len(seen) != len(records) {
		t.Errorf("pages covered %d records, want %d", len(seen), len(records))
	}
	for addr, n := range seen {
		if n != 1 {
			t.Errorf("%s appeared %d times", addr, n)
		}
	}
}

func TestToggleSort(t *testing.T) {
	tests := []struct {
		name    string
		current Sort
		field   Field
		want    Sort
	}{
		{"same field desc flips", Sort{FieldCountry, Descending}, FieldCountry, Sort{FieldCountry, Ascending}},
		{"same field asc flips", Sort{FieldCountry, Ascending}, FieldCountry, Sort{FieldCountry, Descending}},
		{"new field starts desc", Sort{FieldCountry, Ascending}, FieldCity, Sort{FieldCity, Descending}},
		{"from zero value", Sort{}, FieldVisitCount, Sort{FieldVisitCount, Descending}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToggleSort(tt.current, tt.field); got != tt.want {
				t.Errorf("ToggleSort() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRequest_Normalize(t *testing.T) {
	got := Request{Sort: Sort{Field: "bogus", Direction: "sideways"}, Page: -1, PageSize: 1000}.Normalize()
	want := Request{Sort: DefaultSort(), Page: 1, PageSize: DefaultPageSize}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}

	got = Request{Sort: Sort{Field: FieldCity, Direction: "ASC"}, Page: 2, PageSize: 50}.Normalize()
	if got.Sort.Direction != Ascending || got.Page != 2 || got.PageSize != 50 {
		t.Errorf("Normalize() = %+v", got)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct{ total, size, want int }{
		{0, 25, 0},
		{1, 25, 1},
		{25, 25, 1},
		{26, 25, 2},
		{100, 10, 10},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}
