package chathub

import (
	"encoding/json"
	"errors"
	"time"

	"roomgo/backend/internal/apperr"
	"roomgo/backend/internal/models"
	"roomgo/backend/internal/room"
	"roomgo/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// monitorPeriod — інтервал діагностичного логування стану реєстру.
const monitorPeriod = time.Minute

// Manager is the session gateway hub: it owns the connection registry,
// dispatches inbound wire requests to the membership engine, and fans room
// events out to joined members. Register/unregister flow through channels;
// request dispatch runs in each connection's own goroutine.
type Manager struct {
	Registry *Registry
	Rooms    *room.Service
	Storage  storage.Storage

	RegisterCh   chan Client
	UnregisterCh chan Client
}

func NewManager(store storage.Storage, rooms *room.Service) *Manager {
	return &Manager{
		Registry:     NewRegistry(),
		Rooms:        rooms,
		Storage:      store,
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
	}
}

// Deliver пушить конверт клієнту без блокування: повільний або вже закритий
// клієнт просто не отримує повідомлення.
func Deliver(c Client, env models.WireResponse) {
	select {
	case c.SendChannel() <- env:
	default:
	}
}

// Run — головний цикл шлюзу: обробляє реєстрацію/зняття реєстрації з'єднань
// та періодичний моніторинг. Слухач шини подій запускається окремо,
// через RunEventListener.
func (m *Manager) Run() {
	monitor := time.NewTicker(monitorPeriod)
	defer monitor.Stop()

	for {
		select {
		case c := <-m.RegisterCh:
			m.register(c)

		case c := <-m.UnregisterCh:
			m.unregister(c)

		case <-monitor.C:
			online, _ := m.Storage.CountOnlineUsers()
			log.Info().
				Int("connections", m.Registry.Size()).
				Int64("online", online).
				Msg("registry monitor")
		}
	}
}

// register прив'язує з'єднання до користувача. Попереднє з'єднання того ж
// користувача витісняється і закривається тут, а не в реєстрі.
func (m *Manager) register(c Client) {
	displaced, replaced := m.Registry.Register(c.UserUUID(), c)
	if replaced {
		log.Info().Str("user", c.UserUUID()).Msg("displacing previous connection")
		displaced.Close()
	}
	if err := m.Storage.AddOnlineUser(c.UserUUID()); err != nil {
		log.Error().Err(err).Str("user", c.UserUUID()).Msg("failed to mark user online")
	}
	log.Info().Str("user", c.UserUUID()).Int("connections", m.Registry.Size()).Msg("client connected")
}

func (m *Manager) unregister(c Client) {
	userUUID, removed := m.Registry.Unregister(c)
	c.Close()
	if !removed {
		// Або з'єднання ніколи не реєструвалося, або його вже витіснила
		// новіша прив'язка. В обох випадках — тихий no-op.
		return
	}
	if err := m.Storage.RemoveOnlineUser(userUUID); err != nil {
		log.Error().Err(err).Str("user", userUUID).Msg("failed to mark user offline")
	}
	log.Info().Str("user", userUUID).Int("connections", m.Registry.Size()).Msg("client disconnected")
}

// --- Диспетчеризація вхідних повідомлень ---

type roomRef struct {
	RoomUUID string `json:"room_uuid"`
}

type listPayload struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type joinPayload struct {
	RoomUUID string `json:"room_uuid"`
	Password string `json:"password,omitempty"`
}

type updatePayload struct {
	RoomUUID string `json:"room_uuid"`
	room.UpdateParams
}

type chatPayload struct {
	RoomUUID string `json:"room_uuid"`
	Content  string `json:"content"`
}

// Dispatch validates and routes one inbound wire request, replying to the
// sender with a uniform envelope. Unknown types get a typed error response,
// never a dropped message or a closed connection.
func (m *Manager) Dispatch(c Client, req models.WireRequest) {
	identity := room.Identity{
		Index:    c.UserIndex(),
		UUID:     c.UserUUID(),
		Nickname: c.Nickname(),
	}

	var (
		data interface{}
		err  error
	)

	switch req.Type {
	case models.TypeRoomCreate:
		var p room.CreateParams
		if err = decode(req.Payload, &p); err == nil {
			data, err = m.Rooms.CreateRoom(identity, p)
		}

	case models.TypeRoomList:
		var p listPayload
		// Єдиний запит без обов'язкових полів: відсутній payload означає
		// типові page/limit.
		if len(req.Payload) != 0 {
			err = decode(req.Payload, &p)
		}
		if err == nil {
			var views []room.View
			var total int64
			views, total, err = m.Rooms.ListRooms(p.Page, p.Limit)
			if err == nil {
				data = map[string]interface{}{
					"rooms": views,
					"total": total,
					"page":  p.Page,
					"limit": p.Limit,
				}
			}
		}

	case models.TypeRoomGet:
		var p roomRef
		if err = decode(req.Payload, &p); err == nil {
			data, err = m.Rooms.GetRoom(p.RoomUUID)
		}

	case models.TypeRoomUpdate:
		var p updatePayload
		if err = decode(req.Payload, &p); err == nil {
			data, err = m.Rooms.UpdateRoom(p.RoomUUID, identity.Index, p.UpdateParams)
		}

	case models.TypeRoomDelete:
		var p roomRef
		if err = decode(req.Payload, &p); err == nil {
			err = m.Rooms.DeleteRoom(p.RoomUUID, identity.Index)
			data = map[string]string{"room_uuid": p.RoomUUID}
		}

	case models.TypeRoomJoin:
		var p joinPayload
		if err = decode(req.Payload, &p); err == nil {
			data, err = m.Rooms.JoinRoom(p.RoomUUID, identity, p.Password)
		}

	case models.TypeRoomLeave:
		var p roomRef
		if err = decode(req.Payload, &p); err == nil {
			err = m.Rooms.LeaveRoom(p.RoomUUID, identity.Index)
			data = map[string]string{"room_uuid": p.RoomUUID}
		}

	case models.TypeRoomMembers:
		var p roomRef
		if err = decode(req.Payload, &p); err == nil {
			data, err = m.Rooms.ListMembers(p.RoomUUID)
		}

	case models.TypeRoomIsMember:
		var p roomRef
		if err = decode(req.Payload, &p); err == nil {
			var member bool
			member, err = m.Rooms.IsMember(p.RoomUUID, identity.Index)
			data = map[string]bool{"is_member": member}
		}

	case models.TypeMessageSend:
		var p chatPayload
		if err = decode(req.Payload, &p); err == nil {
			err = m.sendMessage(identity, p)
			data = map[string]string{"room_uuid": p.RoomUUID}
		}

	default:
		Deliver(c, models.NewWireError(models.TypeError, []models.ErrorInfo{
			{Code: "BAD_REQUEST", Message: "Unknown message type: " + req.Type},
		}))
		return
	}

	if err != nil {
		Deliver(c, models.NewWireError(req.Type, toErrorInfo(err)))
		return
	}
	Deliver(c, models.NewWireResponse(req.Type, data))
}

// sendMessage ретранслює текстове повідомлення учасникам кімнати.
// Історія не зберігається — лише доставка наживо.
func (m *Manager) sendMessage(sender room.Identity, p chatPayload) error {
	if p.Content == "" {
		return apperr.New(apperr.BadRequest, "Message content is required")
	}
	member, err := m.Rooms.IsMember(p.RoomUUID, sender.Index)
	if err != nil {
		return err
	}
	if !member {
		return apperr.New(apperr.Forbidden, "Not a member of this room")
	}

	event := models.RoomEvent{
		RoomUUID:   p.RoomUUID,
		Event:      models.EventMessage,
		SenderUUID: sender.UUID,
		UserIndex:  sender.Index,
		Nickname:   sender.Nickname,
		Content:    p.Content,
		SentAt:     time.Now().UTC(),
	}
	if err := m.Storage.PublishEvent(event); err != nil {
		return apperr.Wrap(err, "Failed to send message")
	}
	return nil
}

// RunEventListener слухає шину подій та роздає події локальним з'єднанням
// JOINED-учасників відповідної кімнати.
func (m *Manager) RunEventListener() {
	pubsub := m.Storage.SubscribeEvents()
	if pubsub == nil {
		// Сховище без шини подій (напр., in-memory у тестах).
		return
	}
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var event models.RoomEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Error().Err(err).Msg("failed to decode room event")
			continue
		}
		m.fanOut(event)
	}
}

// fanOut доставляє подію всім локальним клієнтам, які є JOINED-учасниками
// кімнати події.
func (m *Manager) fanOut(event models.RoomEvent) {
	members, err := m.Storage.FindMemberships(event.RoomUUID, models.MemberJoined)
	if err != nil {
		log.Error().Err(err).Str("room", event.RoomUUID).Msg("failed to resolve event recipients")
		return
	}
	indexes := make(map[int64]bool, len(members))
	for _, member := range members {
		indexes[member.UserIndex] = true
	}

	envelope := models.NewWireResponse(models.TypeRoomEvent, event)
	m.Registry.ForEach(func(_ string, c Client) {
		if indexes[c.UserIndex()] {
			Deliver(c, envelope)
		}
	})
}

func decode(payload json.RawMessage, dst interface{}) error {
	if len(payload) == 0 {
		return apperr.New(apperr.BadRequest, "Missing payload")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return apperr.New(apperr.BadRequest, "Malformed payload")
	}
	return nil
}

// toErrorInfo розгортає apperr.Error у список ErrorInfo для конверта.
func toErrorInfo(err error) []models.ErrorInfo {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		infos := make([]models.ErrorInfo, 0, len(appErr.Messages))
		for _, msg := range appErr.Messages {
			infos = append(infos, models.ErrorInfo{Code: string(appErr.Code), Message: msg})
		}
		if len(infos) == 0 {
			infos = append(infos, models.ErrorInfo{Code: string(appErr.Code)})
		}
		return infos
	}
	return []models.ErrorInfo{{Code: string(apperr.Internal), Message: "Internal error"}}
}
