package testutil

import (
	"context"

	"github.com/chatforge/attach/attachtypes"
)

// MockTokenSource is a mock implementation of TokenSource for testing.
type MockTokenSource struct {
	TokenFunc   func() (token, sessionID string, err error)
	RefreshFunc func(ctx context.Context) error

	// RefreshCalls counts how many times Refresh was invoked
	RefreshCalls int
}

// Token returns the configured credentials, defaulting to a fixed pair.
func (m *MockTokenSource) Token() (string, string, error) {
	if m.TokenFunc != nil {
		return m.TokenFunc()
	}
	return "test-token", "test-session", nil
}

// Refresh records the call and delegates to RefreshFunc when set.
func (m *MockTokenSource) Refresh(ctx context.Context) error {
	m.RefreshCalls++
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return nil
}

// Ensure MockTokenSource implements the attachtypes.TokenSource interface
var _ attachtypes.TokenSource = (*MockTokenSource)(nil)
