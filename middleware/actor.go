package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"case_registry_go/models"
	"case_registry_go/services"

	"github.com/labstack/echo/v4"
)

const (
	// HeaderUserID carries the authenticated staff user id, set by the upstream auth gateway
	HeaderUserID = "X-User-ID"
	// ContextKeyUser is the context key for the acting staff user
	ContextKeyUser = "user"
)

// ActorContext resolves the X-User-ID header through the user directory and stores
// the user in the context. Requests without the header pass through anonymously.
func ActorContext(users services.UserDirectory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
			if userID == "" {
				return next(c)
			}

			user, err := users.ResolveUser(c.Request().Context(), userID)
			if errors.Is(err, services.ErrUserNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{"error": "Unknown user"})
			}
			if err != nil {
				log.Printf("[WARNING] Failed to resolve user %s: %v", userID, err)
				return echo.NewHTTPError(http.StatusInternalServerError, map[string]string{"error": "Failed to resolve user"})
			}
			if !user.IsActive {
				return echo.NewHTTPError(http.StatusForbidden, map[string]string{"error": "User is inactive"})
			}

			c.Set(ContextKeyUser, user)
			return next(c)
		}
	}
}

// RequireActor rejects requests without a resolved staff user
func RequireActor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetCurrentUser(c) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
			}
			return next(c)
		}
	}
}

// RequireRole is middleware that requires specific roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetCurrentUser(c) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
			}
			if !HasRole(c, roles...) {
				return echo.NewHTTPError(http.StatusForbidden, map[string]string{"error": "Insufficient permissions"})
			}
			return next(c)
		}
	}
}

// HasRole reports whether the acting user holds one of roles
func HasRole(c echo.Context, roles ...string) bool {
	user := GetCurrentUser(c)
	if user == nil {
		return false
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

// GetCurrentUser retrieves the acting user from context, nil for anonymous requests
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetActor returns the acting user as a lifecycle actor, nil for anonymous requests
func GetActor(c echo.Context) *services.Actor {
	user := GetCurrentUser(c)
	if user == nil {
		return nil
	}
	return &services.Actor{ID: user.ID, Name: user.Name}
}
