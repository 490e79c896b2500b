package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AcquireLock takes a named lease for ttl. It returns ok=false without
// error when another live holder has the lease; lock contention is a
// normal no-op for the caller, not a failure. The release func deletes the
// lease and is safe to call after expiry.
func (s *Store) AcquireLock(ctx context.Context, name string, ttl time.Duration) (release func() error, ok bool, err error) {
	holder := uuid.NewString()
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO locks (name, holder, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET holder = excluded.holder, expires_at = excluded.expires_at
		WHERE locks.expires_at < ?`,
		name, holder, now.Add(ttl).Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if n == 0 {
		return nil, false, nil
	}

	release = func() error {
		_, err := s.db.Exec("DELETE FROM locks WHERE name = ? AND holder = ?", name, holder)
		return err
	}
	return release, true, nil
}
