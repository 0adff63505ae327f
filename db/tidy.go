package db

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Tidy removes posts that have not been updated within the retention
// window from the database at the given path.
func Tidy(database string, retention time.Duration) error {
	store, err := Open(database)
	if err != nil {
		return err
	}
	defer store.Close()

	cutoff := time.Now().Add(-retention)
	deleted, err := store.Posts.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"deleted": deleted,
		"cutoff":  cutoff,
	}).Info("Tidied database")
	return nil
}
