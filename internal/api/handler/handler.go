package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"roomgo/backend/internal/apperr"
	"roomgo/backend/internal/auth"
	"roomgo/backend/internal/chathub"
	"roomgo/backend/internal/models"
	"roomgo/backend/internal/room"
	"roomgo/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler тримає залежності REST- та WebSocket-ендпоінтів.
type Handler struct {
	Hub     *chathub.Manager
	Rooms   *room.Service
	Storage storage.Storage
	Tokens  *auth.TokenService
}

func NewHandler(hub *chathub.Manager, rooms *room.Service, store storage.Storage, tokens *auth.TokenService) *Handler {
	return &Handler{Hub: hub, Rooms: rooms, Storage: store, Tokens: tokens}
}

// RegisterRoutes прив'язує всі маршрути до роутера gin.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/auth/signup", h.Signup)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/refresh", h.Refresh)

		users := api.Group("/users")
		{
			users.GET("/me", h.RequireAuth, h.Me)
			users.GET("/:userUuid", h.GetUser)
		}

		roomAPI := api.Group("/room")
		{
			roomAPI.GET("", h.ListRooms)
			roomAPI.GET("/:roomUuid", h.GetRoom)

			authed := roomAPI.Group("", h.RequireAuth)
			{
				authed.POST("", h.CreateRoom)
				authed.PATCH("/:roomUuid", h.UpdateRoom)
				authed.DELETE("/:roomUuid", h.DeleteRoom)
				authed.POST("/:roomUuid/join", h.JoinRoom)
				authed.POST("/:roomUuid/leave", h.LeaveRoom)
				authed.GET("/:roomUuid/members", h.ListMembers)
				authed.GET("/:roomUuid/membership", h.CheckMembership)
			}
		}
	}

	r.GET("/ws", h.ServeWebSocket)
}

// envelope — уніфікована обгортка відповіді REST API.
type envelope struct {
	Success   bool               `json:"success"`
	Data      interface{}        `json:"data"`
	Error     []models.ErrorInfo `json:"error,omitempty"`
	Message   string             `json:"message,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// respondError мапить apperr на HTTP-статус та конверт помилки.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(err, "Internal error")
	}

	infos := make([]models.ErrorInfo, 0, len(appErr.Messages))
	for _, msg := range appErr.Messages {
		infos = append(infos, models.ErrorInfo{Code: string(appErr.Code), Message: msg})
	}

	c.JSON(appErr.HTTPStatus(), envelope{
		Success:   false,
		Error:     infos,
		Timestamp: time.Now().UTC(),
	})
}

// bearerToken витягує значення Bearer-токена із заголовка Authorization.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

const contextUserKey = "currentUser"

// RequireAuth — middleware, що перевіряє access-токен та завантажує
// користувача в контекст запиту.
func (h *Handler) RequireAuth(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{
			Success:   false,
			Error:     []models.ErrorInfo{{Code: string(apperr.Unauthorized), Message: "Authorization token missing"}},
			Timestamp: time.Now().UTC(),
		})
		return
	}

	user, err := h.resolveUser(token)
	if err != nil {
		respondError(c, err)
		c.Abort()
		return
	}

	c.Set(contextUserKey, user)
	c.Next()
}

// resolveUser перевіряє access-токен і розв'язує claims у запис користувача.
func (h *Handler) resolveUser(token string) (*models.User, error) {
	claims, err := h.Tokens.Verify(token, auth.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	user, err := h.Storage.FindUserByIndex(claims.UserIndex)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load user")
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "Invalid token")
	}
	return user, nil
}

func currentUser(c *gin.Context) *models.User {
	value, _ := c.Get(contextUserKey)
	user, _ := value.(*models.User)
	return user
}
