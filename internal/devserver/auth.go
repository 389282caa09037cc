package devserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"freelanceflow/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

const userIDKey ctxKey = "userID"

func (s *Server) issueToken(userID int64, ttl time.Duration, typ string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"jti":  uuid.NewString(),
		"type": typ,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
}

// IssueToken mints an access token for userID, e.g. to seed a stored credential in tests.
func (s *Server) IssueToken(userID int64) (string, error) {
	return s.issueToken(userID, s.opts.TokenTTL, "access")
}

func (s *Server) parseToken(raw string) (int64, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.opts.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("unexpected claims")
	}
	if typ, _ := claims["type"].(string); typ != "access" {
		return 0, fmt.Errorf("not an access token")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(sub, 10, 64)
}

func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		uid, err := s.parseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) int64 {
	uid, _ := r.Context().Value(userIDKey).(int64)
	return uid
}

func (s *Server) authResponse(w http.ResponseWriter, status int, u model.User) {
	access, err := s.issueToken(u.ID, s.opts.TokenTTL, "access")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	refresh, err := s.issueToken(u.ID, 7*24*time.Hour, "refresh")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, map[string]any{
		"user":          u,
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(stringField(data, "email")))
	password := stringField(data, "password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not hash password")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.user.Email == email {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
	}
	u := model.User{ID: s.allocID("users"), Email: email}
	s.users[u.ID] = &userRow{user: u, hash: hash}
	s.mu.Unlock()

	s.authResponse(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(stringField(data, "email")))
	password := stringField(data, "password")

	s.mu.Lock()
	var row *userRow
	for _, u := range s.users {
		if u.user.Email == email {
			row = u
			break
		}
	}
	s.mu.Unlock()

	if row == nil || bcrypt.CompareHashAndPassword(row.hash, []byte(password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.authResponse(w, http.StatusOK, row.user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	row, ok := s.users[userID(r)]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": row.user})
}
