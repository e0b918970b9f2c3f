package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// RoleAdmin es el rol que afirma la credencial de sistema.
	RoleAdmin = "Admin"
	// RoleWarehouse confirma la entrega física de los traslados.
	RoleWarehouse = "Bodeguero"
)

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// Permissions permite que el middleware decida sin consultar Identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	UserName    string   `json:"user_name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	System      bool     `json:"system,omitempty"` // true solo en credenciales emitidas por el ejecutor
}

// HasPermission indica si el token incluye el permiso indicado.
func (c *Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Identity datos de la identidad a afirmar en un token.
type Identity struct {
	UserID      string
	UserName    string
	Role        string
	Permissions []string
	System      bool
}

// Generate genera un token JWT firmado para la identidad con expiración en ttl.
func Generate(secret, issuer string, id Identity, ttl time.Duration) (string, *Claims, error) {
	if secret == "" {
		return "", nil, fmt.Errorf("jwt: secret vacío")
	}
	if id.UserID == "" {
		return "", nil, fmt.Errorf("jwt: user_id vacío")
	}
	now := time.Now()
	perms := make([]string, len(id.Permissions))
	copy(perms, id.Permissions)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:      id.UserID,
		UserName:    id.UserName,
		Role:        id.Role,
		Permissions: perms,
		System:      id.System,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse valida el token y devuelve sus claims.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	return claims, nil
}
