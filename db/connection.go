package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

func connection(database string) (*sql.DB, error) {
	// Enable foreign keys and WAL mode
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", database))
	if err != nil {
		return nil, err
	}

	// SQLite only supports one writer at a time; serializing writes here is
	// what keeps concurrent refresh workers from corrupting feed rows.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -32000; -- 32MB cache
		PRAGMA temp_store = MEMORY;
	`); err != nil {
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return db, nil
}

// Open connects to the SQLite database at the given path and returns the
// repository set sharing one connection pool.
func Open(database string) (*Store, error) {
	conn, err := connection(database)
	if err != nil {
		return nil, err
	}
	return NewStore(conn), nil
}

// Store bundles the repositories over a shared connection.
type Store struct {
	db         *sql.DB
	Feeds      *Feeds
	Posts      *Posts
	Users      *Users
	ReadStates *ReadStates
}

func NewStore(conn *sql.DB) *Store {
	return &Store{
		db:         conn,
		Feeds:      &Feeds{db: conn},
		Posts:      &Posts{db: conn},
		Users:      &Users{db: conn},
		ReadStates: &ReadStates{db: conn},
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
