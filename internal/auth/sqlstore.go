package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kumagoya/kumagoya/internal/db"
)

// SQLStore is an scs.Store on the sessions table for databases without a dedicated store.
type SQLStore struct {
	db          db.DB
	stopCleanup chan bool
}

// NewSQLStore returns a store that deletes expired sessions every cleanupInterval. A zero
// interval disables the cleanup goroutine.
func NewSQLStore(d db.DB, cleanupInterval time.Duration) *SQLStore {
	s := &SQLStore{db: d}
	if cleanupInterval > 0 {
		s.stopCleanup = make(chan bool)
		go s.startCleanup(cleanupInterval)
	}
	return s
}

func (s *SQLStore) Find(token string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(context.Background(),
		`SELECT data FROM sessions WHERE token = ? AND expiry > ?`, token, time.Now().UTC(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *SQLStore) Commit(token string, b []byte, expiry time.Time) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO sessions (token, data, expiry) VALUES (?, ?, ?)
		ON CONFLICT (token) DO UPDATE SET data = excluded.data, expiry = excluded.expiry`,
		token, b, expiry.UTC(),
	)
	return err
}

func (s *SQLStore) Delete(token string) error {
	_, err := s.db.ExecContext(context.Background(), `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (s *SQLStore) deleteExpired() error {
	_, err := s.db.ExecContext(context.Background(), `DELETE FROM sessions WHERE expiry < ?`, time.Now().UTC())
	return err
}

func (s *SQLStore) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.deleteExpired(); err != nil {
				authLogger.Error().Err(err).Msg("Error deleting expired sessions")
			}
		case <-s.stopCleanup:
			return
		}
	}
}

// StopCleanup terminates the cleanup goroutine.
func (s *SQLStore) StopCleanup() {
	if s.stopCleanup != nil {
		s.stopCleanup <- true
	}
}
