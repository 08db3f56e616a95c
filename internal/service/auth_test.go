package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlin/storefront-api/internal/auth"
	"github.com/mkarlin/storefront-api/internal/model"
)

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	if existing, ok := m.users[user.UID]; ok {
		existing.Name = user.Name
		existing.Email = user.Email
		existing.Role = user.Role
		existing.UpdatedAt = time.Now()
		*user = *existing
		return nil
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.UID] = &stored
	return nil
}

func (m *mockUserRepo) GetByUID(_ context.Context, uid string) (*model.User, error) {
	return m.users[uid], nil
}

func (m *mockUserRepo) UpdateRole(_ context.Context, uid string, role model.Role) error {
	if u, ok := m.users[uid]; ok {
		u.Role = role
	}
	return nil
}

type fakeVerifier struct {
	tokens map[string]*auth.Token
	claims map[string]model.Role
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{tokens: make(map[string]*auth.Token), claims: make(map[string]model.Role)}
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	token, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return token, nil
}

func (f *fakeVerifier) SetRoleClaim(_ context.Context, uid string, role model.Role) error {
	f.claims[uid] = role
	return nil
}

func TestAuthService_Login_CreatesUser(t *testing.T) {
	repo := newMockUserRepo()
	verifier := newFakeVerifier()
	verifier.tokens["good"] = &auth.Token{
		UID: "uid-1", Email: "jane@example.com", Name: "Jane Doe", Role: model.RoleCustomer,
	}
	svc := NewAuthService(repo, verifier, "test-secret", time.Hour)

	resp, err := svc.Login(context.Background(), "good")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "uid-1", resp.User.UID)
	assert.Equal(t, "customer", resp.User.Role)
	require.Contains(t, repo.users, "uid-1")
}

func TestAuthService_Login_RefreshesExistingUser(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["uid-1"] = &model.User{
		UID: "uid-1", Email: "old@example.com", Name: "Old Name",
		PhoneNumber: "555-0100", Role: model.RoleCustomer,
	}
	verifier := newFakeVerifier()
	verifier.tokens["good"] = &auth.Token{
		UID: "uid-1", Email: "new@example.com", Name: "New Name", Role: model.RoleAdmin,
	}
	svc := NewAuthService(repo, verifier, "test-secret", time.Hour)

	resp, err := svc.Login(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.Equal(t, "admin", resp.User.Role)
	// contact fields survive the refresh
	assert.Equal(t, "555-0100", resp.User.PhoneNumber)
}

func TestAuthService_Login_InvalidToken(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), newFakeVerifier(), "test-secret", time.Hour)
	_, err := svc.Login(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_SetRole(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["uid-1"] = &model.User{UID: "uid-1", Role: model.RoleCustomer}
	verifier := newFakeVerifier()
	svc := NewAuthService(repo, verifier, "test-secret", time.Hour)

	err := svc.SetRole(context.Background(), "uid-1", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, repo.users["uid-1"].Role)
	assert.Equal(t, model.RoleAdmin, verifier.claims["uid-1"])
}

func TestAuthService_SetRole_UserNotFound(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), newFakeVerifier(), "test-secret", time.Hour)
	err := svc.SetRole(context.Background(), "missing", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
