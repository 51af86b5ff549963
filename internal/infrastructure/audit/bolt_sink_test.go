package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/pkg/crypto"
)

func openTestStore(t *testing.T, signer *crypto.Util) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"), "audit", signer, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecentEntries(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	store.Record(ctx, domain.NewAuditEntry("tenant-1", "user-1", "order.created", map[string]interface{}{
		"order_number": "PO-1",
	}, domain.AuditInfo))
	store.Record(ctx, domain.NewAuditEntry("tenant-2", "user-2", "order.created", nil, domain.AuditInfo))

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	entries, err := store.RecentEntries("tenant-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tenant-1", entries[0].TenantID)
	assert.Equal(t, "PO-1", entries[0].Details["order_number"])

	all, err := store.RecentEntries("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecordSignsEntries(t *testing.T) {
	signer, err := crypto.New("master-secret")
	require.NoError(t, err)
	store := openTestStore(t, signer)

	store.Record(context.Background(), domain.NewAuditEntry("tenant-1", "user-1", "order.created", nil, domain.AuditInfo))

	entries, err := store.RecentEntries("tenant-1", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	require.NotEmpty(t, entry.Signature)
	assert.True(t, signer.Verify(signingInput(entry), entry.Signature))

	// tampering with the stored entry breaks the signature
	entry.ActorID = "someone-else"
	assert.False(t, signer.Verify(signingInput(entry), entry.Signature))
}

func TestCleanup(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	old := domain.NewAuditEntry("tenant-1", "user-1", "order.created", nil, domain.AuditInfo)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	store.Record(ctx, old)
	store.Record(ctx, domain.NewAuditEntry("tenant-1", "user-1", "order.updated", nil, domain.AuditInfo))

	require.NoError(t, store.Cleanup(time.Now().Add(-24*time.Hour)))

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestClosedStoreIsSafe(t *testing.T) {
	var store *Store
	store.Record(context.Background(), domain.AuditEntry{})
	assert.NoError(t, store.Close())

	_, err := store.Size()
	assert.Error(t, err)
}
