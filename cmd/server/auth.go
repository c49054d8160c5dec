package main

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/nickyhof/EmbedDB/config"
)

// AuthConfig configures how clients prove who they are.
type AuthConfig struct {
	// Method is config.AuthNone, config.AuthMD5 or config.AuthJWT.
	Method string

	// Role is the only user md5 auth accepts.
	Role string

	// PasswordHash is md5<hex(md5(password + role))>, as stored in
	// pg_authid.
	PasswordHash string

	// JWTSecret is the shared secret for HS256 JWT validation.
	JWTSecret string

	// Issuer is the expected "iss" claim in JWTs (optional).
	Issuer string

	// Audience is the expected "aud" claim in JWTs (optional).
	Audience string

	// RoleClaim is the JWT claim that must equal the connecting user
	// (default: "role").
	RoleClaim string
}

func authConfigFrom(auth config.Auth) *AuthConfig {
	if auth.Method == "" || auth.Method == config.AuthNone {
		return nil
	}
	return &AuthConfig{
		Method:       auth.Method,
		Role:         auth.Role,
		PasswordHash: auth.PasswordHash,
		JWTSecret:    auth.JWTSecret,
		Issuer:       auth.Issuer,
		Audience:     auth.Audience,
		RoleClaim:    auth.RoleClaim,
	}
}

// MD5Credential returns the stored form of a password for role.
func MD5Credential(password, role string) string {
	return "md5" + md5Hex(password+role)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

var errAuthFailed = errors.New("authentication failed")

// authenticate runs the challenge for user. On failure the client has been
// sent a FATAL error and the connection must be closed.
func (s *Server) authenticate(c *clientConn, user string) error {
	if s.authConfig == nil {
		return nil
	}

	var err error
	switch s.authConfig.Method {
	case config.AuthMD5:
		err = s.authenticateMD5(c, user)
	case config.AuthJWT:
		err = s.authenticateJWT(c, user)
	default:
		err = fmt.Errorf("unsupported auth method: %s", s.authConfig.Method)
	}
	if err != nil {
		c.fatal(codeInvalidPassword, fmt.Sprintf("password authentication failed for user %q", user))
		return fmt.Errorf("%w: %v", errAuthFailed, err)
	}
	return nil
}

func (s *Server) authenticateMD5(c *clientConn, user string) error {
	var salt [4]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return err
	}
	if err := c.send(&pgproto3.AuthenticationMD5Password{Salt: salt}); err != nil {
		return err
	}

	password, err := c.readPassword()
	if err != nil {
		return err
	}
	if user != s.authConfig.Role {
		return fmt.Errorf("unknown role %q", user)
	}

	stored := strings.TrimPrefix(s.authConfig.PasswordHash, "md5")
	expected := "md5" + md5Hex(stored+string(salt[:]))
	if subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
		return errors.New("password mismatch")
	}
	return nil
}

func (s *Server) authenticateJWT(c *clientConn, user string) error {
	if err := c.send(&pgproto3.AuthenticationCleartextPassword{}); err != nil {
		return err
	}
	token, err := c.readPassword()
	if err != nil {
		return err
	}

	role, err := s.validateJWT(token)
	if err != nil {
		return err
	}
	if role != user {
		return fmt.Errorf("token role %q does not match user %q", role, user)
	}
	return nil
}

// validateJWT validates a JWT token and returns its role claim.
func (s *Server) validateJWT(tokenString string) (string, error) {
	roleClaim := s.authConfig.RoleClaim
	if roleClaim == "" {
		roleClaim = config.DefaultRoleClaim
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	if s.authConfig.Issuer != "" {
		issuer, _ := claims.GetIssuer()
		if issuer != s.authConfig.Issuer {
			return "", fmt.Errorf("invalid issuer: expected %s, got %s", s.authConfig.Issuer, issuer)
		}
	}
	if s.authConfig.Audience != "" {
		audiences, _ := claims.GetAudience()
		if !slices.Contains(audiences, s.authConfig.Audience) {
			return "", fmt.Errorf("invalid audience: expected %s", s.authConfig.Audience)
		}
	}

	role, _ := claims[roleClaim].(string)
	if role == "" {
		return "", fmt.Errorf("token missing %s claim", roleClaim)
	}
	return role, nil
}
