package handler

import (
	"net/http"

	"roomgo/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket автентифікує handshake та оновлює з'єднання до WebSocket.
// Відсутній, невалідний або refresh-типу токен — відмова без реєстрації.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}

	// Перевірка токена та розв'язання claims у запис користувача —
	// до будь-якої реєстрації в реєстрі.
	user, err := h.resolveUser(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("user", user.UUID).Msg("failed to upgrade connection")
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, *user, conn)

	// Реєстрація рівно один раз на успішне підключення; попереднє
	// з'єднання цього користувача буде витіснене хабом.
	h.Hub.RegisterCh <- client
	client.Run()
}
