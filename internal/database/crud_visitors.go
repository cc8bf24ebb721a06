// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sitelens/internal/database/sqlbuilder"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
	"github.com/tomtom215/sitelens/internal/query"
)

// sortColumns maps sortable fields to ORDER BY expressions. Text columns
// sort case-insensitively to match query.Compare.
var sortColumns = map[query.Field]string{
	query.FieldAddress:      "lower(address)",
	query.FieldOrganization: "lower(organization)",
	query.FieldCountry:      "lower(country)",
	query.FieldCity:         "lower(city)",
	query.FieldFirstSeen:    "first_seen",
	query.FieldLastSeen:     "last_seen",
	query.FieldVisitCount:   "visit_count",
}

// UpsertVisit merges u into the visitor record for (u.Address, u.Fingerprint)
// and returns the stored record.
// Uses a per-identity lock so concurrent events for one visitor never lose
// updates, and retries DuckDB transaction conflicts with exponential backoff.
func (db *DB) UpsertVisit(ctx context.Context, u models.VisitUpdate) (models.Visitor, error) {
	if u.Address == "" || u.Fingerprint == "" {
		return models.Visitor{}, ErrInvalidIdentity
	}
	if u.SeenAt.IsZero() {
		u.SeenAt = time.Now()
	}

	key := u.Address + "|" + u.Fingerprint
	mu := db.acquireVisitorLock(key)
	defer mu.Unlock()

	// Timeout to prevent indefinite hangs
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		v, err := db.doUpsertVisit(ctx, u)
		if err == nil {
			db.incrementDataVersion()
			metrics.RecordDBQuery("upsert", "visitors", time.Since(start), nil)
			return v, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			metrics.RecordDBQuery("upsert", "visitors", time.Since(start), ctx.Err())
			return models.Visitor{}, fmt.Errorf("operation timed out or canceled: %w", ctx.Err())
		}

		if isInternalError(err) {
			// INTERNAL errors are bugs - don't retry
			metrics.RecordDBQuery("upsert", "visitors", time.Since(start), err)
			return models.Visitor{}, fmt.Errorf("FATAL: DuckDB internal error: %w", err)
		}

		if isTransactionConflict(err) && attempt < maxRetries-1 {
			backoff := time.Millisecond * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
			metrics.DBUpsertRetries.Inc()
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return models.Visitor{}, ctx.Err()
			}
		}

		metrics.RecordDBQuery("upsert", "visitors", time.Since(start), err)
		return models.Visitor{}, err
	}

	metrics.RecordDBQuery("upsert", "visitors", time.Since(start), lastErr)
	return models.Visitor{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doUpsertVisit reads the current record, merges and writes it back in one transaction
func (db *DB) doUpsertVisit(ctx context.Context, u models.VisitUpdate) (models.Visitor, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Visitor{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE address = ? AND fingerprint = ?`,
		u.Address, u.Fingerprint)
	existing, err := scanVisitor(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Visitor{}, fmt.Errorf("failed to read visitor: %w", err)
	}
	var current *models.Visitor
	if err == nil {
		current = &existing
	}

	merged := MergeVisit(current, u)
	pages, err := json.Marshal(merged.Pages)
	if err != nil {
		return models.Visitor{}, fmt.Errorf("failed to encode pages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO visitors (
			address, fingerprint, organization, city, region, country, timezone, isp,
			pages, first_seen, last_seen, visit_count, client, referrer
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (address, fingerprint) DO UPDATE SET
			organization = EXCLUDED.organization,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			country = EXCLUDED.country,
			timezone = EXCLUDED.timezone,
			isp = EXCLUDED.isp,
			pages = EXCLUDED.pages,
			first_seen = EXCLUDED.first_seen,
			last_seen = EXCLUDED.last_seen,
			visit_count = EXCLUDED.visit_count,
			client = EXCLUDED.client,
			referrer = EXCLUDED.referrer`,
		merged.Address, merged.Fingerprint, merged.Organization, merged.City, merged.Region,
		merged.Country, merged.Timezone, merged.ISP, string(pages),
		merged.FirstVisited, merged.LastVisited, merged.VisitCount, merged.Client, merged.Referrer,
	)
	if err != nil {
		return models.Visitor{}, fmt.Errorf("failed to upsert visitor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Visitor{}, fmt.Errorf("failed to commit visitor: %w", err)
	}
	return merged, nil
}

// acquireVisitorLock locks and returns the mutex for one visitor identity
func (db *DB) acquireVisitorLock(key string) *sync.Mutex {
	muInterface, _ := db.visitorLocks.LoadOrStore(key, &sync.Mutex{})
	mu, ok := muInterface.(*sync.Mutex)
	if !ok {
		mu = &sync.Mutex{}
		db.visitorLocks.Store(key, mu)
	}
	mu.Lock()
	return mu
}

// GetVisitor returns the record for one identity.
// Returns nil with no error when the visitor does not exist.
func (db *DB) GetVisitor(ctx context.Context, address, fingerprint string) (*models.Visitor, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE address = ? AND fingerprint = ?`,
		address, fingerprint)
	v, err := scanVisitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visitor: %w", err)
	}
	return &v, nil
}

// ListVisitors filters, sorts and paginates visitors in SQL. It honours the
// same contract as query.Apply.
func (db *DB) ListVisitors(ctx context.Context, req query.Request) (query.Result, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	req = req.Normalize()
	wb := sqlbuilder.NewWhereBuilder().
		AddContains("organization", req.Filters.Organization).
		AddContains("country", req.Filters.Country).
		AddContains("address", req.Filters.Address).
		AddTimeRange("last_seen", req.Filters.From, req.Filters.To)
	whereClause, args := wb.Build()

	res := query.Result{
		Items:    []models.Visitor{},
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	err := db.withReconnect(ctx, func() error {
		var total int
		if err := db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM visitors WHERE `+whereClause, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count visitors: %w", err)
		}
		res.Total = total
		res.TotalPages = query.TotalPages(total, req.PageSize)
		if req.Offset() >= total {
			return nil
		}

		direction := "DESC"
		if req.Sort.Direction == query.Ascending {
			direction = "ASC"
		}
		sqlQuery := fmt.Sprintf(`SELECT %s FROM visitors WHERE %s
			ORDER BY %s %s, address ASC, fingerprint ASC
			LIMIT ? OFFSET ?`,
			visitorColumns, whereClause, sortColumns[req.Sort.Field], direction)
		pageArgs := append(append([]interface{}{}, args...), req.PageSize, req.Offset())

		items, err := db.queryVisitors(ctx, sqlQuery, pageArgs...)
		if err != nil {
			return err
		}
		res.Items = items
		return nil
	})
	metrics.RecordDBQuery("list", "visitors", time.Since(start), err)
	if err != nil {
		return query.Result{}, err
	}
	return res, nil
}

// VisitorsInRange returns every visitor whose activity overlaps [from, to]:
// last seen on or after from and first seen on or before to.
func (db *DB) VisitorsInRange(ctx context.Context, from, to time.Time) ([]models.Visitor, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	var out []models.Visitor
	err := db.withReconnect(ctx, func() error {
		var err error
		out, err = db.queryVisitors(ctx,
			`SELECT `+visitorColumns+` FROM visitors
			WHERE last_seen >= ? AND first_seen <= ?
			ORDER BY first_seen ASC, address ASC, fingerprint ASC`,
			from.UTC(), to.UTC())
		return err
	})
	metrics.RecordDBQuery("range", "visitors", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountVisitors returns the number of visitor records
func (db *DB) CountVisitors(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM visitors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return n, nil
}

func (db *DB) queryVisitors(ctx context.Context, sqlQuery string, args ...interface{}) ([]models.Visitor, error) {
	rows, err := db.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visitors: %w", err)
	}
	defer rows.Close()

	out := []models.Visitor{}
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visitor: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visitors: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVisitor(row rowScanner) (models.Visitor, error) {
	var v models.Visitor
	var pages string
	err := row.Scan(
		&v.Address, &v.Fingerprint, &v.Organization, &v.City, &v.Region, &v.Country,
		&v.Timezone, &v.ISP, &pages, &v.FirstVisited, &v.LastVisited, &v.VisitCount,
		&v.Client, &v.Referrer,
	)
	if err != nil {
		return models.Visitor{}, err
	}
	v.FirstVisited = v.FirstVisited.UTC()
	v.LastVisited = v.LastVisited.UTC()
	if err := json.Unmarshal([]byte(pages), &v.Pages); err != nil {
		return models.Visitor{}, fmt.Errorf("failed to decode pages: %w", err)
	}
	if v.Pages == nil {
		v.Pages = []string{}
	}
	return v, nil
}
