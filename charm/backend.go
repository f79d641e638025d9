// ABOUTME: Document backend storing store snapshots in charm KV
// ABOUTME: Maps missing keys to persist.ErrNoDocument and namespaces keys under KeyPrefix

package charm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/dealboard/persist"
)

// Backend implements persist.Backend over a Client.
type Backend struct {
	client *Client
}

var _ persist.Backend = (*Backend)(nil)

// NewBackend wraps client. Close on the backend closes the client.
func NewBackend(client *Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Load(key string) ([]byte, error) {
	doc, err := b.client.Get([]byte(KeyPrefix + key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, persist.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return doc, nil
}

func (b *Backend) Save(key string, doc []byte) error {
	if err := b.client.Set([]byte(KeyPrefix+key), doc); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Documents lists the stored document keys without the prefix.
func (b *Backend) Documents() ([]string, error) {
	keys, err := b.client.KeysWithPrefix([]byte(KeyPrefix))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(string(k), KeyPrefix))
	}
	return out, nil
}

// Sync pulls and pushes pending changes when the client has a server.
func (b *Backend) Sync() error {
	return b.client.Sync()
}

func (b *Backend) Close() error {
	return b.client.Close()
}
