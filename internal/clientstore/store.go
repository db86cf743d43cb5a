// Package clientstore provides durable client-local key/value storage, the
// server-side counterpart of a browser's localStorage.
package clientstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ziadkadry99/mydms/internal/db"
)

// Storage is a string key/value store scoped to a single client.
type Storage interface {
	// GetItem returns the stored value and whether the key exists.
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// SQLStore persists client storage in the client_storage table.
type SQLStore struct {
	db *db.DB
}

// NewSQLStore creates a SQLStore backed by the given database.
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database}
}

// For returns the Storage view of a single client.
func (s *SQLStore) For(clientID string) Storage {
	return &clientView{db: s.db, clientID: clientID}
}

// Keys lists every key stored for the client, in key order.
func (s *SQLStore) Keys(ctx context.Context, clientID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM client_storage WHERE client_id = ? ORDER BY key`, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing client storage keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning client storage key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type clientView struct {
	db       *db.DB
	clientID string
}

func (c *clientView) GetItem(key string) (string, bool, error) {
	var value string
	err := c.db.QueryRow(
		`SELECT value FROM client_storage WHERE client_id = ? AND key = ?`,
		c.clientID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

func (c *clientView) SetItem(key, value string) error {
	_, err := c.db.Exec(`
		INSERT INTO client_storage (client_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(client_id, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		c.clientID, key, value)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (c *clientView) RemoveItem(key string) error {
	_, err := c.db.Exec(`DELETE FROM client_storage WHERE client_id = ? AND key = ?`, c.clientID, key)
	if err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// MemoryStore is a process-local Storage, used by tests and by clients that
// do not need persistence.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (m *MemoryStore) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStore) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStore) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
