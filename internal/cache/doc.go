// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package cache provides a thread-safe in-memory cache with TTL support.

It backs the statistics endpoint (results keyed by window, top-N and the
store's data version) and the geo resolver (lookups keyed by address).

Expired entries are removed lazily on Get and by a sweep every five minutes
until Close is called. GenerateKey hashes arbitrary parameters into a
compact key:

	c := cache.New(time.Minute)
	defer c.Close()

	key := cache.GenerateKey("statistics", params)
	if v, ok := c.Get(key); ok {
	    return v.(models.Statistics), nil
	}
*/
package cache
