// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package query

import "sort"

// Link is one pagination control. Ellipsis links stand for skipped pages
// and carry no page number.
type Link struct {
	Page     int  `json:"page,omitempty"`
	Current  bool `json:"current,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// PageLinks returns the pagination controls for current out of total
// pages: the first and last page, the current page and its neighbours,
// with an ellipsis wherever pages are skipped. A current page past the end
// centres the links on the last page but marks no page as current.
func PageLinks(current, total int) []Link {
	if total <= 0 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	marked := current
	if current > total {
		current = total
		marked = 0
	}

	set := map[int]struct{}{1: {}, total: {}}
	for p := current - 1; p <= current+1; p++ {
		if p >= 1 && p <= total {
			set[p] = struct{}{}
		}
	}
	pages := make([]int, 0, len(set))
	for p := range set {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	links := make([]Link, 0, len(pages)+2)
	prev := 0
	for _, p := range pages {
		if prev != 0 && p-prev > 1 {
			links = append(links, Link{Ellipsis: true})
		}
		links = append(links, Link{Page: p, Current: p == marked})
		prev = p
	}
	return links
}
