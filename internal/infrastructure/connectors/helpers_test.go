package connectors

import (
	"github.com/google/uuid"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// testCreds builds a credential handle for adapter tests.
func testCreds(platform integration.PlatformCode, fields map[string]string) integration.CredentialHandle {
	return integration.NewCredentialHandle(uuid.New(), platform, fields, false)
}

// testSandboxCreds builds a sandbox-flagged credential handle.
func testSandboxCreds(platform integration.PlatformCode, fields map[string]string) integration.CredentialHandle {
	return integration.NewCredentialHandle(uuid.New(), platform, fields, true)
}
