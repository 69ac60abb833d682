package services

import (
	"context"
	"testing"

	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthService(f *fixture) *AuthService {
	return NewAuthService(f.db, config.JWTConfig{Secret: testSecret, TTLHours: 1}, f.log)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{FullName: " Sam ", Email: " Sam@Example.com ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", user.Email)
	assert.Equal(t, "Sam", user.FullName)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "correct-horse", user.Password)

	_, err = svc.Register(ctx, RegisterInput{FullName: "Sam", Email: "SAM@example.com", Password: "correct-horse"})
	requireKind(t, err, KindConflict)
	_, err = svc.Register(ctx, RegisterInput{FullName: "Short", Email: "short@example.com", Password: "1234567"})
	requireKind(t, err, KindValidation)

	res, err := svc.Login(ctx, "SAM@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims["user_id"])
	assert.Equal(t, models.RoleStudent, claims["role"])

	_, err = svc.Login(ctx, "sam@example.com", "wrong-horse")
	requireKind(t, err, KindUnauthenticated)
	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	requireKind(t, err, KindUnauthenticated)

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	_, err = svc.Login(ctx, "sam@example.com", "correct-horse")
	requireKind(t, err, KindForbidden)
}

func TestResolvePrincipal(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)
	ctx := context.Background()

	tara := f.teacher(t, "tara", 100000)
	p, err := svc.ResolvePrincipal(ctx, tara.UserID)
	require.NoError(t, err)
	assert.Equal(t, tara, p)

	sam := f.student(t, "sam")
	p, err = svc.ResolvePrincipal(ctx, sam.UserID)
	require.NoError(t, err)
	assert.Equal(t, sam.UserID, p.ProfileID)

	_, err = svc.ResolvePrincipal(ctx, uuid.New())
	requireKind(t, err, KindUnauthenticated)

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", sam.UserID).Update("is_active", false).Error)
	_, err = svc.ResolvePrincipal(ctx, sam.UserID)
	requireKind(t, err, KindUnauthenticated)
}
