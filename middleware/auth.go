package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pans/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"

	legacyTokenHeader = "x-auth-token"
)

// AuthRequired ensures the request carries a valid, unrevoked JWT, either as
// a Bearer token or in the x-auth-token header. blacklist may be nil.
func AuthRequired(secret string, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearerToken(ctx.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString = strings.TrimSpace(ctx.GetHeader(legacyTokenHeader))
		}
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, "No token, authorization denied")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil || blacklist.IsRevoked(ctx.Request.Context(), tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, "Token is not valid")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// bearerToken returns the token part of "Bearer <token>", or "" for any
// other header shape.
func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
