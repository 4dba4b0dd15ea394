package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"resourcegraph/internal/cache"
)

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullToTimePtr safely converts sql.NullTime to *time.Time
func nullToTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// classify maps SQLite failures onto the cache store errors.
// A full database is a quota failure; a database that cannot be opened,
// written or read is unavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_FULL:
			return fmt.Errorf("%w: %v", cache.ErrQuotaExceeded, err)
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_NOTADB,
			sqlite3.SQLITE_PERM, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CORRUPT:
			return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
		}
	}

	switch msg := err.Error(); {
	case strings.Contains(msg, "database or disk is full"):
		return fmt.Errorf("%w: %v", cache.ErrQuotaExceeded, err)
	case strings.Contains(msg, "database is closed"), strings.Contains(msg, "unable to open database"):
		return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return err
}
