// Package mocks provides mock implementations for testing the client core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the credential store port. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
// Hand-written doubles for the simpler ports live in mocks/auth.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	store := mocks.NewMockCredentialStore(ctrl)
//	store.EXPECT().Credential(gomock.Any()).Return("token", nil)
package mocks

// Generate mock for CredentialStore interface from internal/ports.
// This creates MockCredentialStore with methods for all CredentialStore
// interface methods: Write, WriteCredential, WriteIdentity, Read,
// Credential, Clear.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=credential_store_mock.go github.com/evently/evently-go/internal/ports CredentialStore
