package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/team-calendar/internal/application"
)

type authService interface {
	CreateUser(ctx context.Context, username, email, password string) (application.User, error)
	GetUser(ctx context.Context, id string) (application.User, error)
	VerifyPassword(ctx context.Context, email, password string) (application.User, error)
}

type tokenIssuer interface {
	Issue(user application.User) (string, error)
	Revoke(token string)
}

type AuthHandler struct {
	service   authService
	tokens    tokenIssuer
	validate  *validator.Validate
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, tokens tokenIssuer, validate *validator.Validate, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{
		service:   service,
		tokens:    tokens,
		validate:  validate,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Register", "username", req.Username)

	user, err := h.service.CreateUser(r.Context(), req.Username, normalizeEmail(req.Email), req.Password)
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "user registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toUserDTO(user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.tokens == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	email := normalizeEmail(req.Email)
	logger := h.log(r.Context(), "Login", "email", email)

	user, err := h.service.VerifyPassword(r.Context(), email, req.Password)
	if err != nil {
		logger.ErrorContext(r.Context(), "login rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		logger.ErrorContext(r.Context(), "token issuance failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "user authenticated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, loginResponse{
		Token: token,
		User:  toUserDTO(user),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := extractTokenFromRequest(r)
	if token == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingToken)
		return
	}

	h.tokens.Revoke(token)
	h.log(r.Context(), "Logout").InfoContext(r.Context(), "token revoked")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingToken)
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		h.log(r.Context(), "Me", "user_id", claims.UserID).ErrorContext(r.Context(), "lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTO(user))
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// normalizeEmail is the single case-folding point for account emails. Both
// registration and login pass through it, so an address authenticates with
// whatever casing it was typed in.
func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: formatTimestamp(user.CreatedAt),
		UpdatedAt: formatTimestamp(user.UpdatedAt),
	}
}
