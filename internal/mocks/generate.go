// Package mocks provides mock implementations for testing the auth broker.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockUserStore(ctrl)
//	mockStore.EXPECT().FindByEmail(gomock.Any(), "a@b").Return(user, nil)
package mocks

// Generate mock for the UserStore interface from internal/ports.
// This creates MockUserStore with FindByEmail, CreateIfAbsent, SetRefreshToken.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_store_mock.go github.com/eduhub/authbroker/internal/ports UserStore

// Generate mock for the OAuthProvider interface from internal/ports.
// This creates MockOAuthProvider with Name, AuthURL, Exchange.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=oauth_provider_mock.go github.com/eduhub/authbroker/internal/ports OAuthProvider

// Generate mock for the RevocationStore interface from internal/ports.
// This creates MockRevocationStore with Revoke, IsRevoked.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=revocation_store_mock.go github.com/eduhub/authbroker/internal/ports RevocationStore
