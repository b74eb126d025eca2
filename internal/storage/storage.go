package storage

import (
	"context"
	"encoding/json"
	"errors"

	"roomgo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// eventChannel — канал Redis Pub/Sub для подій кімнат.
const eventChannel = "room_events"

// onlineUsersKey — Redis-set із UUID користувачів, які зараз онлайн.
const onlineUsersKey = "online_users"

// Storage is the durable room-store contract consumed by the membership engine
// and the hub. Absence is reported as (nil, nil), not as an error.
type Storage interface {
	SaveUser(user *models.User) error
	FindUserByIndex(index int64) (*models.User, error)
	FindUserByUUID(uuid string) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)

	SaveRoom(room *models.Room) error
	FindRoomByUUID(uuid string, onlyActive bool) (*models.Room, error)
	FindAndCountRooms(skip, limit int) ([]models.Room, int64, error)
	// CreateRoomWithOwner persists the room and its OWNER membership as a
	// single transaction; partial success is never observable.
	CreateRoomWithOwner(room *models.Room, owner *models.Membership) error

	SaveMembership(m *models.Membership) error
	FindMembership(roomUUID string, userIndex int64, status models.MembershipStatus) (*models.Membership, error)
	CountMemberships(roomUUID string, status models.MembershipStatus) (int64, error)
	FindMemberships(roomUUID string, status models.MembershipStatus) ([]models.Membership, error)
	CountMembershipsByRooms(roomUUIDs []string) (map[string]int64, error)
	FindRoomMembers(roomUUID string) ([]models.RoomMember, error)
	FindUsersByIndexes(indexes []int64) ([]models.User, error)

	PublishEvent(event models.RoomEvent) error
	SubscribeEvents() *redis.PubSub
	AddOnlineUser(userUUID string) error
	RemoveOnlineUser(userUUID string) error
	CountOnlineUsers() (int64, error)
}

// Service реалізує Storage поверх PostgreSQL (GORM) та Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// SaveUser зберігає користувача в PostgreSQL.
func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *Service) FindUserByIndex(index int64) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "index = ?", index).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) FindUserByUUID(uuid string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "uuid = ?", uuid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveRoom зберігає кімнату в PostgreSQL.
func (s *Service) SaveRoom(room *models.Room) error {
	return s.DB.Save(room).Error
}

// FindRoomByUUID шукає кімнату за UUID; onlyActive обмежує пошук ACTIVE-кімнатами.
func (s *Service) FindRoomByUUID(uuid string, onlyActive bool) (*models.Room, error) {
	var room models.Room
	q := s.DB.Where("uuid = ?", uuid)
	if onlyActive {
		q = q.Where("status = ?", models.StatusActive)
	}
	err := q.First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Str("room", uuid).Msg("failed to load room")
		return nil, err
	}
	return &room, nil
}

// FindAndCountRooms повертає сторінку ACTIVE-кімнат, що мають хоча б одного
// JOINED-учасника, від найновіших до найстаріших, та загальну кількість.
func (s *Service) FindAndCountRooms(skip, limit int) ([]models.Room, int64, error) {
	joined := s.DB.Model(&models.Membership{}).
		Select("room_uuid").
		Where("status = ?", models.MemberJoined)

	base := s.DB.Model(&models.Room{}).
		Where("status = ?", models.StatusActive).
		Where("uuid IN (?)", joined)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []models.Room
	err := base.
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to list rooms")
		return nil, 0, err
	}
	return rooms, total, nil
}

// CreateRoomWithOwner створює кімнату та OWNER-членство в одній транзакції.
func (s *Service) CreateRoomWithOwner(room *models.Room, owner *models.Membership) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		owner.RoomUUID = room.UUID
		return tx.Create(owner).Error
	})
}

// SaveMembership зберігає членство в PostgreSQL.
func (s *Service) SaveMembership(m *models.Membership) error {
	return s.DB.Save(m).Error
}

func (s *Service) FindMembership(roomUUID string, userIndex int64, status models.MembershipStatus) (*models.Membership, error) {
	var m models.Membership
	err := s.DB.
		Where("room_uuid = ? AND user_index = ? AND status = ?", roomUUID, userIndex, status).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) CountMemberships(roomUUID string, status models.MembershipStatus) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Membership{}).
		Where("room_uuid = ? AND status = ?", roomUUID, status).
		Count(&count).Error
	return count, err
}

// FindMemberships повертає членства кімнати, впорядковані за роллю
// (OWNER, MANAGER, MEMBER), далі за часом приєднання.
func (s *Service) FindMemberships(roomUUID string, status models.MembershipStatus) ([]models.Membership, error) {
	var members []models.Membership
	err := s.DB.
		Where("room_uuid = ? AND status = ?", roomUUID, status).
		Order("CASE role WHEN 'OWNER' THEN 0 WHEN 'MANAGER' THEN 1 ELSE 2 END, joined_at ASC").
		Find(&members).Error
	if err != nil {
		log.Error().Err(err).Str("room", roomUUID).Msg("failed to load memberships")
		return nil, err
	}
	return members, nil
}

// CountMembershipsByRooms повертає кількість JOINED-учасників для кожної кімнати.
func (s *Service) CountMembershipsByRooms(roomUUIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(roomUUIDs))
	if len(roomUUIDs) == 0 {
		return counts, nil
	}

	type roomCount struct {
		RoomUUID string
		Total    int64
	}
	var rows []roomCount
	err := s.DB.Model(&models.Membership{}).
		Select("room_uuid, COUNT(*) AS total").
		Where("room_uuid IN ? AND status = ?", roomUUIDs, models.MemberJoined).
		Group("room_uuid").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.RoomUUID] = row.Total
	}
	return counts, nil
}

// FindRoomMembers повертає JOINED-учасників кімнати разом із нікнеймами,
// впорядкованих за роллю та часом приєднання.
func (s *Service) FindRoomMembers(roomUUID string) ([]models.RoomMember, error) {
	var members []models.RoomMember
	err := s.DB.Model(&models.Membership{}).
		Select("memberships.user_index, users.nickname, memberships.role, memberships.joined_at").
		Joins("JOIN users ON users.index = memberships.user_index").
		Where("memberships.room_uuid = ? AND memberships.status = ?", roomUUID, models.MemberJoined).
		Order("CASE memberships.role WHEN 'OWNER' THEN 0 WHEN 'MANAGER' THEN 1 ELSE 2 END, memberships.joined_at ASC").
		Scan(&members).Error
	if err != nil {
		log.Error().Err(err).Str("room", roomUUID).Msg("failed to load room members")
		return nil, err
	}
	return members, nil
}

func (s *Service) FindUsersByIndexes(indexes []int64) ([]models.User, error) {
	if len(indexes) == 0 {
		return nil, nil
	}
	var users []models.User
	err := s.DB.Where("index IN ?", indexes).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// PublishEvent публікує подію кімнати в Redis Pub/Sub.
func (s *Service) PublishEvent(event models.RoomEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, eventChannel, string(payload)).Err()
}

// SubscribeEvents підписується на канал подій кімнат.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, eventChannel)
}

// AddOnlineUser додає користувача до множини онлайн-користувачів.
func (s *Service) AddOnlineUser(userUUID string) error {
	return s.Redis.SAdd(s.Ctx, onlineUsersKey, userUUID).Err()
}

// RemoveOnlineUser видаляє користувача з множини онлайн-користувачів.
func (s *Service) RemoveOnlineUser(userUUID string) error {
	return s.Redis.SRem(s.Ctx, onlineUsersKey, userUUID).Err()
}

// CountOnlineUsers повертає кількість онлайн-користувачів.
func (s *Service) CountOnlineUsers() (int64, error) {
	return s.Redis.SCard(s.Ctx, onlineUsersKey).Result()
}
