package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ArtistHub/core/auth"
	"ArtistHub/core/release"
	"ArtistHub/logger"
	"ArtistHub/model"
	"ArtistHub/repository"
)

type identityKey struct{}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"` // 可以是用户名或邮箱
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// RegisterHandler handles user registration requests
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "username, password and email are required")
		return
	}
	if strings.Contains(req.Username, "@") {
		writeError(w, http.StatusBadRequest, "username must not contain @")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("[Register] 密码加密失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not complete operation")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		DisplayName:  strings.TrimSpace(req.DisplayName),
	}
	userID, err := h.users.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] 用户名或邮箱已存在",
				logger.String("username", req.Username),
				logger.String("email", req.Email))
			writeError(w, http.StatusConflict, "username or email already exists")
			return
		}
		logger.Error("[Register] 创建用户失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not complete operation")
		return
	}
	user.ID = userID

	h.issueToken(w, http.StatusCreated, user)
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username/email and password are required")
		return
	}

	// 支持用户名或邮箱登录
	var user *model.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = h.users.GetUserByEmail(r.Context(), req.Username)
	} else {
		user, err = h.users.GetUserByUsername(r.Context(), req.Username)
	}
	if err != nil {
		logger.Error("[Login] 查询用户失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not complete operation")
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 用户名或密码错误", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "invalid username/email or password")
		return
	}

	logger.Info("[Login] 登录成功", logger.String("username", user.Username))
	h.issueToken(w, http.StatusOK, user)
}

func (h *APIHandler) issueToken(w http.ResponseWriter, status int, user *model.User) {
	token, err := h.tokens.GenerateToken(user.ID, user.Username, user.DisplayName, user.Email)
	if err != nil {
		logger.Error("生成Token失败", logger.UserID(user.ID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not complete operation")
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: user})
}

// IdentityMiddleware attaches the caller's identity when a bearer token is
// present. Requests without one continue anonymously; the release service
// decides what anonymous callers may do. A malformed or expired token is
// rejected outright.
func (h *APIHandler) IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		id, err := h.identityFromToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (h *APIHandler) identityFromToken(token string) (release.Identity, error) {
	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return release.Identity{}, err
	}
	return release.Identity{
		UserID:      claims.UserID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
	}, nil
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id release.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity, or the zero Identity.
func IdentityFromContext(ctx context.Context) release.Identity {
	id, _ := ctx.Value(identityKey{}).(release.Identity)
	return id
}
