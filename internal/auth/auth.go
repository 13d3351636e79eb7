package auth

import (
	"fmt"
	"time"

	"backoffice/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Capability is a closed enum of operator permissions. Authorization is a
// static role table, not per-admin permission strings.
type Capability string

const (
	CapProducts   Capability = "products"
	CapOrders     Capability = "orders"
	CapCustomers  Capability = "customers"
	CapCategories Capability = "categories"
	CapAnalytics  Capability = "analytics"
	CapSettings   Capability = "settings"
	CapUsers      Capability = "users"
)

var roleCapabilities = map[string][]Capability{
	models.RoleSuperAdmin: {CapProducts, CapOrders, CapCustomers, CapCategories, CapAnalytics, CapSettings, CapUsers},
	models.RoleAdmin:      {CapProducts, CapOrders, CapCustomers, CapCategories, CapAnalytics},
	models.RoleManager:    {CapProducts, CapOrders, CapCategories},
}

// RoleHas reports whether the role grants the capability
func RoleHas(role string, cap Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == cap {
			return true
		}
	}
	return false
}

// Capabilities returns the capability set granted to a role
func Capabilities(role string) []Capability {
	return roleCapabilities[role]
}

// ValidRole reports whether r is a recognized admin role
func ValidRole(r string) bool {
	_, ok := roleCapabilities[r]
	return ok
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks a password against its stored hash
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// TokenIssuer signs and verifies admin bearer tokens
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

// NewTokenIssuer creates a token issuer; expiry is in days
func NewTokenIssuer(secret string, expiryDays int) *TokenIssuer {
	if expiryDays <= 0 {
		expiryDays = 30
	}
	return &TokenIssuer{
		secret: []byte(secret),
		expiry: time.Duration(expiryDays) * 24 * time.Hour,
	}
}

// Issue signs a token for an admin
func (ti *TokenIssuer) Issue(adminID int64, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", adminID),
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ti.expiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

// Verify parses a token and returns the admin id it was issued for
func (ti *TokenIssuer) Verify(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, fmt.Errorf("missing subject claim")
	}

	var adminID int64
	if _, err := fmt.Sscanf(sub, "%d", &adminID); err != nil {
		return 0, fmt.Errorf("malformed subject claim")
	}
	return adminID, nil
}
