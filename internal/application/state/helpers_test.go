package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gymdesk/internal/adapters/storage/kv"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/member"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestStore() (*kv.Store, *kv.MemoryBackend) {
	backend := kv.NewMemoryBackend()
	return kv.NewStore(backend), backend
}

func testMember(id, first string) member.Member {
	return member.Member{Person: entity.Person{
		ID:        entity.ID(id),
		FirstName: first,
		Email:     first + "@gym.example",
		Role:      entity.RoleMember,
		IsActive:  true,
		CreatedAt: fixedNow,
	}}
}

// storedLen decodes the raw JSON array under key and returns its length, -1 if absent.
func storedLen(t *testing.T, backend *kv.MemoryBackend, key string) int {
	t.Helper()
	raw, ok := backend.Raw(key)
	if !ok {
		return -1
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("stored %s is not a JSON array: %v", key, err)
	}
	return len(items)
}

var bg = context.Background()
