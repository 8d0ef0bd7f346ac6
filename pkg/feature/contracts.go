package feature

import "context"

// The interfaces below are the external-collaborator contracts excluded
// from this system's core scope (spec §1): the user-management CRUD, the
// authenticator's session store, and the translation engine's TSV file
// format. The loader still must register something under their container
// keys so that any feature depending on them resolves successfully and so
// the boot-order graph and audit hard-gate can be exercised end-to-end
// without those subsystems' business logic.

// UserRepository is the persistence contract for user records, owned by
// the (out-of-scope) user-management subsystem.
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (username string, found bool, err error)
}

// UserService is the user-management subsystem's public contract.
type UserService interface {
	GetUsername(ctx context.Context, userID int64) (string, error)
}

// AuthService is the authenticator subsystem's public contract.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (userID int64, ok bool, err error)
}

// TranslationService is the translation engine's public contract.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string) (string, bool)
}

// StubUserRepository is a minimal in-memory UserRepository sufficient to
// let the loader's dependency graph and dispatch table exercise the
// user_management registration path without the real CRUD implementation.
type StubUserRepository struct{}

func (StubUserRepository) FindByID(_ context.Context, userID int64) (string, bool, error) {
	return "", false, nil
}

// StubUserService is a minimal UserService backed by StubUserRepository.
type StubUserService struct {
	Repo UserRepository
}

func (s StubUserService) GetUsername(ctx context.Context, userID int64) (string, error) {
	if name, ok, _ := s.Repo.FindByID(ctx, userID); ok {
		return name, nil
	}
	return "", nil
}

// StubAuthService is a minimal AuthService that authenticates nobody; it
// exists to satisfy the container key's resolution contract.
type StubAuthService struct{}

func (StubAuthService) Authenticate(_ context.Context, _, _ string) (int64, bool, error) {
	return 0, false, nil
}

// StubTranslationService is a minimal TranslationService with no loaded
// translation table.
type StubTranslationService struct{}

func (StubTranslationService) Translate(_ context.Context, _, _ string) (string, bool) {
	return "", false
}
