package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	apperrors "taskflow/internal/errors"
	"taskflow/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	tokens *auth.TokenService,
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = HTTPErrorHandler

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes: these produce the token, so they bypass the gateway.
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)

	// Secured routes go through the bearer token gateway.
	secured := api.Group("", Gateway(tokens))

	secured.GET("/auth/profile", authHandler.GetProfile)
	secured.PUT("/auth/profile", authHandler.UpdateProfile)

	secured.POST("/tasks", taskHandler.Create)
	secured.GET("/tasks", taskHandler.List)
	secured.PUT("/tasks/:id", taskHandler.Update)
	secured.DELETE("/tasks/:id", taskHandler.Delete)
}

// Gateway returns the bearer token middleware. It extracts a token from the
// Authorization header, verifies it through the token service and attaches
// the decoded user ID to the request context. It rejects or annotates the
// request and has no other side effects.
func Gateway(tokens *auth.TokenService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, tokenString string) (interface{}, error) {
			return tokens.Verify(tokenString)
		},
		SuccessHandler: func(c echo.Context) {
			if id, ok := c.Get("user").(uuid.UUID); ok {
				c.Set(handler.UserIDContextKey, id)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				return echo.NewHTTPError(http.StatusUnauthorized, "Session expired. Please log in again.")
			case errors.Is(err, auth.ErrTokenMalformed):
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token. Authentication failed.")
			case errors.Is(err, auth.ErrNoSecret):
				return echo.NewHTTPError(http.StatusInternalServerError, "Authentication error. Please try again.")
			default:
				// no token in the Authorization header
				return echo.NewHTTPError(http.StatusUnauthorized, "Access denied. No token provided.")
			}
		},
	})
}

// HTTPErrorHandler renders every error as {"error": message}, except
// unmatched routes which answer {"message": "Route not found"}. Internal
// details never reach the client beyond the message string.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if errors.Is(err, echo.ErrNotFound) {
		_ = c.JSON(http.StatusNotFound, map[string]string{"message": "Route not found"})
		return
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		he = echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, apperrors.ErrorResponse{Error: fmt.Sprintf("%v", he.Message)})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
