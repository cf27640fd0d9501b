package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-32"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("lab-admin", RoleOperator, testSecret, "fleetlock", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret, "fleetlock")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "lab-admin" {
		t.Errorf("Subject = %q, want lab-admin", claims.Subject)
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want operator", claims.Role)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
}

func TestGenerateToken_Validation(t *testing.T) {
	if _, err := GenerateToken("x", RoleViewer, "", "", time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("empty secret error = %v, want ErrEmptySecret", err)
	}
	if _, err := GenerateToken("x", Role("root"), testSecret, "", time.Hour); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role error = %v, want ErrInvalidRole", err)
	}
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	token, err := GenerateToken("x", RoleViewer, testSecret, "", 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret, "")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultTokenTTL)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateToken("x", RoleViewer, testSecret, "fleetlock", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: RoleViewer,
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	noRoleToken, err := noRole.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
		issuer string
	}{
		{"garbage", "not-a-valid-jwt", testSecret, ""},
		{"wrong secret", valid, "another-secret-key-of-enough-length", ""},
		{"wrong issuer", valid, testSecret, "someone-else"},
		{"expired", expiredToken, testSecret, ""},
		{"missing role", noRoleToken, testSecret, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret, tt.issuer)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermDeviceRead, true},
		{RoleViewer, PermCommandRead, true},
		{RoleViewer, PermDeviceOperate, false},
		{RoleOperator, PermDeviceOperate, true},
		{Role("unknown"), PermDeviceRead, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}
