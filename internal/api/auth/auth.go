// Package auth implements the control surface's two auth modes, grounded
// on dnsmgr_api.Auth/Basic_Auth: an IP-allowlist gate applied first, and an
// optional basic-auth (or bearer JWT) layer applied on top of it. A request
// whose source address is not in a configured allowlist is rejected before
// credentials are even considered, matching the original's `Auth.auth`
// short-circuit.
package auth

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"dnsmgr/internal/config"
)

// Authenticator gates HTTP requests by source address and, optionally,
// basic credentials or a bearer JWT.
type Authenticator struct {
	allowedPrefixes []*net.IPNet
	username        string
	passwordHash    string
	jwtSecret       []byte
}

// New builds an Authenticator from the optional api configuration block.
// A nil cfg or one with neither AllowedIPs nor basic-auth credentials
// configured allows every request, matching an absent `api.auth` in the
// original.
func New(cfg *config.API) (*Authenticator, error) {
	a := &Authenticator{}
	if cfg == nil {
		return a, nil
	}
	for _, prefix := range cfg.AllowedIPs {
		_, network, err := net.ParseCIDR(prefix)
		if err != nil {
			ip := net.ParseIP(prefix)
			if ip == nil {
				return nil, &Error{Msg: "invalid allowed_ips entry " + prefix}
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			_, network, _ = net.ParseCIDR(ip.String() + "/" + strconv.Itoa(bits))
		}
		a.allowedPrefixes = append(a.allowedPrefixes, network)
	}
	a.username = cfg.BasicAuthUser
	a.passwordHash = cfg.BasicAuthHash
	if cfg.JWTSecret != "" {
		a.jwtSecret = []byte(cfg.JWTSecret)
	}
	return a, nil
}

// Error reports a malformed auth configuration.
type Error struct{ Msg string }

func (e *Error) Error() string { return "api/auth: " + e.Msg }

// ipAllowed reports whether addr passes the allowlist gate. An empty
// allowlist means the gate is a no-op, matching Auth with valid_prefixes
// unset.
func (a *Authenticator) ipAllowed(addr string) bool {
	if len(a.allowedPrefixes) == 0 {
		return true
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, prefix := range a.allowedPrefixes {
		if prefix.Contains(ip) {
			return true
		}
	}
	return false
}

// basicAuthRequired reports whether a basic-auth or bearer layer sits on
// top of the IP gate.
func (a *Authenticator) basicAuthRequired() bool {
	return a.username != "" && a.passwordHash != ""
}

func (a *Authenticator) checkBearer(tokenString string) bool {
	if len(a.jwtSecret) == 0 || tokenString == "" {
		return false
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.jwtSecret, nil
	})
	return err == nil && token.Valid
}

// IssueToken mints a bearer token for username, for clients that prefer
// not to send basic credentials on every request.
func (a *Authenticator) IssueToken() (string, error) {
	claims := jwt.MapClaims{
		"sub": a.username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// Middleware enforces the IP gate and, when configured, the basic/bearer
// credential layer.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.ipAllowed(c.RealIP()) {
				return echo.NewHTTPError(http.StatusForbidden, "source address not allowed")
			}
			if !a.basicAuthRequired() {
				return next(c)
			}

			if bearer, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer "); ok {
				if a.checkBearer(bearer) {
					return next(c)
				}
			}

			user, pass, ok := c.Request().BasicAuth()
			if ok && user == a.username && config.CheckPassword(a.passwordHash, pass) {
				return next(c)
			}

			c.Response().Header().Set("WWW-Authenticate", `Basic realm="dnsmgr"`)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
	}
}
