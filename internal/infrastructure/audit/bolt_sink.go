package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/pkg/crypto"
)

// Store persists audit entries in BoltDB. Recording is fire and forget from
// the business logic's perspective: storage trouble is logged here and never
// propagated back into a service operation.
type Store struct {
	db     *bolt.DB
	bucket []byte
	signer *crypto.Util
	logger *zap.Logger
}

// Open initializes the BoltDB file and ensures the audit bucket exists.
// The signer is optional; when present every entry is HMAC-signed for
// tamper evidence.
func Open(path, bucket string, signer *crypto.Util, logger *zap.Logger) (*Store, error) {
	if bucket == "" {
		bucket = "audit"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
		signer: signer,
		logger: logger,
	}, nil
}

// Record stores one audit entry. Details arrive already redacted by the
// domain constructor; this layer only signs and persists.
func (s *Store) Record(ctx context.Context, entry domain.AuditEntry) {
	if s == nil || s.db == nil {
		return
	}

	if s.signer != nil {
		entry.Signature = s.signer.Sign(signingInput(entry))
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error("audit entry serialization failed", zap.Error(err))
		return
	}

	key := buildKey(entry)
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(key, payload)
	}); err != nil {
		s.logger.Error("audit entry write failed",
			zap.String("tenant_id", entry.TenantID),
			zap.String("event_type", entry.EventType),
			zap.Error(err))
		return
	}

	if entry.Severity == domain.AuditCritical {
		s.logger.Warn("security incident recorded",
			zap.String("tenant_id", entry.TenantID),
			zap.String("actor_id", entry.ActorID),
			zap.String("event_type", entry.EventType))
	}
}

// RecentEntries returns up to limit entries for a tenant, newest last.
func (s *Store) RecentEntries(tenantID string, limit int) ([]domain.AuditEntry, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 100
	}

	var entries []domain.AuditEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(entries) < limit; k, v = c.Next() {
			var entry domain.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if tenantID != "" && entry.TenantID != tenantID {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Size returns the number of stored entries.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup removes entries older than the provided timestamp.
func (s *Store) Cleanup(olderThan time.Time) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry domain.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if entry.CreatedAt.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildKey(entry domain.AuditEntry) []byte {
	return []byte(fmt.Sprintf("%020d_%s", entry.CreatedAt.UnixNano(), entry.ID))
}

func signingInput(entry domain.AuditEntry) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%s|%d",
		entry.ID, entry.TenantID, entry.ActorID, entry.EventType, entry.CreatedAt.UnixNano()))
}
