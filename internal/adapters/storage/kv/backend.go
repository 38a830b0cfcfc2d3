// Package kv is the durable key-value store that mirrors the in-memory
// collections, the activity log and the session.
package kv

import "context"

// Fixed keys.
const (
	KeyAuthToken         = "authToken"
	KeyUser              = "user"
	KeyRole              = "role"
	KeyUserEmail         = "userEmail"
	KeyTrainers          = "app_trainers"
	KeyMembers           = "app_members"
	KeyPayments          = "app_payments"
	KeyPackages          = "app_packages"
	KeyActivities        = "gym_activities"
	KeySidebarOpen       = "sidebarOpen"
	KeyGymInfo           = "gym_info"
	KeyOfflineCredential = "offline_credential"
)

// Backend persists raw string values under string keys.
// Every Write is a full overwrite of the previous value.
type Backend interface {
	// Read returns the value for key. ok is false when the key is absent.
	// PRE: key is non-empty
	// POST: err is non-nil only for backend failures, never for a missing key
	Read(ctx context.Context, key string) (value string, ok bool, err error)

	// Write replaces the value for key.
	// PRE: key is non-empty
	// POST: a later Read returns value
	Write(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
