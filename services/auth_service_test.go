package services

import (
	"context"
	"testing"

	"github.com/matchpointhq/matchpoint-server/models"
	"github.com/matchpointhq/matchpoint-server/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return repositories.ErrUserEmailConflict
	}
	copied := *user
	r.byEmail[user.Email] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Email:    "scorer@example.com",
		Password: "s3cret-pass",
		Name:     "Court Scorer",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleScorer, user.Role)
	assert.Empty(t, user.PasswordHash, "hash must not leave the service")

	loggedIn, err := svc.Login(ctx, LoginInput{Email: "scorer@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "scorer@example.com", loggedIn.Email)
	assert.Empty(t, loggedIn.PasswordHash)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	input := RegisterInput{Email: "dup@example.com", Password: "s3cret-pass", Name: "First"}
	_, err := svc.Register(ctx, input)
	require.NoError(t, err)

	_, err = svc.Register(ctx, input)
	assert.ErrorIs(t, err, ErrAuthEmailTaken)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "right-pass", Name: "A"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "right-pass"})
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
}
