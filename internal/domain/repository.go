package domain

import "craftcloud/pkg/sdk"

// CredentialRepository is satisfied by storage.GormStore and sdk.MemoryStore.
type CredentialRepository = sdk.CredentialStore
