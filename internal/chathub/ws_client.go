package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"roomgo/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient реалізує інтерфейс chathub.Client поверх gorilla/websocket.
// Канал Send ніколи не закривається: Close закриває done, і помпи зупиняються
// самі. Це робить Close безпечним навіть коли з'єднання вже витіснене.
type WebSocketClient struct {
	User models.User
	Conn *websocket.Conn
	Hub  *Manager
	Send chan models.WireResponse

	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketClient будує клієнта для щойно оновленого з'єднання.
func NewWebSocketClient(hub *Manager, user models.User, conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		User: user,
		Conn: conn,
		Hub:  hub,
		Send: make(chan models.WireResponse, 256),
		done: make(chan struct{}),
	}
}

// --- Реалізація методів інтерфейсу ---

func (c *WebSocketClient) UserUUID() string                        { return c.User.UUID }
func (c *WebSocketClient) UserIndex() int64                        { return c.User.Index }
func (c *WebSocketClient) Nickname() string                        { return c.User.Nickname }
func (c *WebSocketClient) SendChannel() chan<- models.WireResponse { return c.Send }

// Run запускає 'pumps' для WebSocket.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close зупиняє обидві помпи та закриває з'єднання. Ідемпотентний.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}

func (c *WebSocketClient) readPump() {
	// Зняття реєстрації виконується безумовно, навіть якщо з'єднання
	// так і не стало активним — повторні виклики безпечні.
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("user", c.User.UUID).Msg("read error")
			}
			break
		}

		var req models.WireRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Type == "" {
			// Структурно невалідне повідомлення — типізована помилка
			// лише відправнику, ніколи не обрив з'єднання.
			Deliver(c, models.NewWireError(models.TypeError, []models.ErrorInfo{
				{Code: "BAD_REQUEST", Message: "Malformed message"},
			}))
			continue
		}

		// Диспетчеризація виконується синхронно в goroutine цього
		// з'єднання: повідомлення одного клієнта обробляються в порядку
		// надходження, різні з'єднання — паралельно.
		c.Hub.Dispatch(c, req)
	}
}

// writePump читає конверти з каналу Send і записує їх у WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case envelope := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := json.Marshal(envelope)
			if err != nil {
				log.Error().Err(err).Str("user", c.User.UUID).Msg("failed to encode envelope")
				continue
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Перевіряємо, чи є ще повідомлення у каналі (для ефективності)
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next := <-c.Send
				extra, err := json.Marshal(next)
				if err != nil {
					log.Error().Err(err).Str("user", c.User.UUID).Msg("failed to encode envelope")
					continue
				}
				w.Write([]byte{'\n'})
				w.Write(extra)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
