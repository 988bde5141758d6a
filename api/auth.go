package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/erikbos/moontv-server/backup"
	"github.com/erikbos/moontv-server/database/model"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	Role  model.Role `json:"role"`
}

// POST /api/login
func (a *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror(w, "invalid request", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		apierror(w, "missing credentials", http.StatusBadRequest)
		return
	}

	role := model.RoleUser
	if a.backup.IsOwner(req.Username, req.Password) {
		role = model.RoleOwner
	} else {
		ok, err := a.db.VerifyUser(r.Context(), req.Username, req.Password)
		if errors.Is(err, model.ErrMalformed) || (err == nil && !ok) {
			apierror(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			a.errorResponse(w, r, err)
			return
		}
		if entry := a.userEntry(r, req.Username); entry != nil {
			if entry.Banned {
				apierror(w, "user is banned", http.StatusUnauthorized)
				return
			}
			if entry.Role != "" {
				role = entry.Role
			}
		}
	}

	token, err := issueToken(req.Username, a.secret, a.tokenTTL)
	if err != nil {
		a.logger.Error("cannot issue token", zap.Error(err))
		apierror(w, "failed to create token", http.StatusInternalServerError)
		return
	}
	serveJSON(LoginResponse{Token: token, Role: role}, w)
}

// userEntry returns the site configuration entry of a user.
func (a *API) userEntry(r *http.Request, userName string) *model.UserEntry {
	config, err := a.db.GetAdminConfig(r.Context())
	if err != nil || config == nil {
		return nil
	}
	for i := range config.UserConfig.Users {
		if config.UserConfig.Users[i].Username == userName {
			return &config.UserConfig.Users[i]
		}
	}
	return nil
}

// principal returns the authenticated caller of a request, nil if the
// request carries no valid token.
func (a *API) principal(r *http.Request) *backup.Principal {
	tokenString, err := bearerToken(r)
	if err != nil {
		return nil
	}
	subject, err := parseTokenSubject(tokenString, a.secret)
	if err != nil {
		return nil
	}
	return &backup.Principal{Username: subject}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(token), nil
}

var errNoSecret = errors.New("token signing key not set")

func issueToken(subject string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errNoSecret
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errNoSecret
	}
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}
