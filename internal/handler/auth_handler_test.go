package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/service"
)

type handlerAuthRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
}

func newHandlerAuthRepo() *handlerAuthRepo {
	return &handlerAuthRepo{users: make(map[string]models.User), refreshTokens: make(map[string]models.RefreshToken)}
}

func (f *handlerAuthRepo) addUser(id, email, password string, role models.UserRole, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	f.users[id] = models.User{ID: id, Email: email, PasswordHash: string(hash), FullName: "Test User", Role: role, Active: active}
}

func (f *handlerAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *handlerAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *handlerAuthRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-new"
	}
	f.users[user.ID] = *user
	return nil
}

func (f *handlerAuthRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.FindByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (f *handlerAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (f *handlerAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u := f.users[id]
	u.PasswordHash = passwordHash
	f.users[id] = u
	return nil
}

func (f *handlerAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (f *handlerAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	f.refreshTokens[token.Token] = *token
	return nil
}

func (f *handlerAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := f.refreshTokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *handlerAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return nil
}

func (f *handlerAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func newAuthHandler(repo *handlerAuthRepo) *AuthHandler {
	svc := service.NewAuthService(repo, testValidator(), testLogger(), service.AuthConfig{
		AccessTokenSecret:  "handler-test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "school-needs-api",
	})
	return NewAuthHandler(svc)
}

func TestAuthLoginReturnsTokens(t *testing.T) {
	repo := newHandlerAuthRepo()
	repo.addUser("user-1", "principal@example.org", "secret-pass", models.RolePrincipal, true)
	h := newAuthHandler(repo)

	c, rec := testContext(t, http.MethodPost, "/auth/login", `{"email":"principal@example.org","password":"secret-pass"}`)
	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)

	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &res))
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "principal@example.org", res.User.Email)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := newHandlerAuthRepo()
	repo.addUser("user-1", "principal@example.org", "secret-pass", models.RolePrincipal, true)
	h := newAuthHandler(repo)

	c, rec := testContext(t, http.MethodPost, "/auth/login", `{"email":"principal@example.org","password":"wrong"}`)
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "INVALID_CREDENTIALS", envelope.Error["code"])
}

func TestAuthLoginMalformedPayload(t *testing.T) {
	h := newAuthHandler(newHandlerAuthRepo())

	c, rec := testContext(t, http.MethodPost, "/auth/login", `{"email":`)
	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRegisterPrincipal(t *testing.T) {
	repo := newHandlerAuthRepo()
	h := newAuthHandler(repo)

	body := `{"email":"new@example.org","password":"long-enough","full_name":"New Principal"}`
	c, rec := testContext(t, http.MethodPost, "/auth/register", body)
	h.Register(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)

	var info models.UserInfo
	require.NoError(t, json.Unmarshal(envelope.Data, &info))
	assert.Equal(t, models.RolePrincipal, info.Role)

	stored, err := repo.FindByEmail(context.Background(), "new@example.org")
	require.NoError(t, err)
	assert.NotEqual(t, "long-enough", stored.PasswordHash)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	repo := newHandlerAuthRepo()
	repo.addUser("user-1", "taken@example.org", "secret-pass", models.RolePrincipal, true)
	h := newAuthHandler(repo)

	body := `{"email":"taken@example.org","password":"long-enough","full_name":"New Principal"}`
	c, rec := testContext(t, http.MethodPost, "/auth/register", body)
	h.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthMeRequiresClaims(t *testing.T) {
	h := newAuthHandler(newHandlerAuthRepo())

	c, rec := testContext(t, http.MethodGet, "/auth/me", "")
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = testContext(t, http.MethodGet, "/auth/me", "")
	authenticate(c, "user-1", models.RoleAdmin)
	h.Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}
