package auth

import (
	"testing"

	"backoffice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCapabilities(t *testing.T) {
	// super-admin holds every capability
	for _, cap := range []Capability{CapProducts, CapOrders, CapCustomers, CapCategories, CapAnalytics, CapSettings, CapUsers} {
		assert.True(t, RoleHas(models.RoleSuperAdmin, cap), "super-admin missing %s", cap)
	}

	assert.True(t, RoleHas(models.RoleAdmin, CapAnalytics))
	assert.False(t, RoleHas(models.RoleAdmin, CapSettings))
	assert.False(t, RoleHas(models.RoleAdmin, CapUsers))

	assert.True(t, RoleHas(models.RoleManager, CapProducts))
	assert.True(t, RoleHas(models.RoleManager, CapOrders))
	assert.False(t, RoleHas(models.RoleManager, CapCustomers))
	assert.False(t, RoleHas(models.RoleManager, CapAnalytics))

	// Unknown roles hold nothing
	assert.False(t, RoleHas("intern", CapProducts))
	assert.Empty(t, Capabilities("intern"))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(models.RoleSuperAdmin))
	assert.True(t, ValidRole(models.RoleAdmin))
	assert.True(t, ValidRole(models.RoleManager))
	assert.False(t, ValidRole("root"))
	assert.False(t, ValidRole(""))
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-password"))
	assert.False(t, VerifyPassword(hash, "wrong-password"))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", 30)

	token, err := issuer.Issue(42, models.RoleAdmin)
	require.NoError(t, err)

	adminID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), adminID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenIssuer("key-one", 30).Issue(1, models.RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenIssuer("key-two", 30).Verify(token)
	assert.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", 30)
	_, err := issuer.Verify("not.a.token")
	assert.Error(t, err)
}
