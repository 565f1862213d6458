package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"siam/internal/domain"
	apperror "siam/internal/errors"
	"siam/internal/pkg/logger"
)

// Cabeçalhos preenchidos pelo gateway de autenticação à frente do SIAM.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderRequestID = "X-Request-ID"
)

// ContextKey evita colisão com chaves de outros pacotes.
type ContextKey int

const (
	UserClaimsKey ContextKey = iota
	RequestIDKey
)

// UserClaims identifica quem fez a requisição.
type UserClaims struct {
	UserID string
	Role   domain.UserRole
}

// Identity lê a identidade dos cabeçalhos e a anexa ao contexto. Não rejeita requisições
// anônimas; isso fica a cargo de RequireUser.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// 1. Request ID (propaga o recebido ou gera um novo)
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx = context.WithValue(ctx, RequestIDKey, reqID)

		// 2. Usuário
		if userID := strings.TrimSpace(r.Header.Get(HeaderUserID)); userID != "" {
			ctx = context.WithValue(ctx, UserClaimsKey, UserClaims{
				UserID: userID,
				Role:   domain.UserRole(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
			})
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserClaimsFromContext é uma função utilitária para extrair as claims no handler.
func GetUserClaimsFromContext(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(UserClaims)
	return claims, ok
}

// GetRequestID devolve o ID da requisição, ou "" fora de uma requisição HTTP.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// RequireUser rejeita com 401 requisições sem X-User-ID.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserClaimsFromContext(r.Context()); !ok {
			writeError(w, apperror.NewUnauthorizedError("Cabeçalho X-User-ID ausente."))
			return
		}
		next.ServeHTTP(w, r)
	}
}

// PermissionMiddleware libera o handler apenas para os papéis informados.
func PermissionMiddleware(requiredRoles ...domain.UserRole) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			// 1. Tentar extrair as Claims do contexto
			claims, ok := GetUserClaimsFromContext(r.Context())
			if !ok {
				writeError(w, apperror.NewUnauthorizedError("Cabeçalho X-User-ID ausente."))
				return
			}

			// 2. Verificar Permissão
			for _, role := range requiredRoles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, apperror.NewForbiddenError("o papel "+string(claims.Role)+" não pode executar esta operação."))
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger registra método, rota, status e duração de cada requisição.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  w.Header().Get(HeaderRequestID),
			}
			if claims, ok := GetUserClaimsFromContext(r.Context()); ok {
				fields["user_id"] = claims.UserID
			}
			if rec.status >= http.StatusInternalServerError {
				log.Warn("Requisição HTTP com falha.", fields)
				return
			}
			log.Info("Requisição HTTP.", fields)
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, category, msg := apperror.MapToHTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: msg})
}
