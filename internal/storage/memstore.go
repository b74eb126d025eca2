package storage

import (
	"sort"
	"sync"
	"time"

	"roomgo/backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MemStore is an in-memory Storage implementation for tests and local
// development without PostgreSQL/Redis. It has no event bus: SubscribeEvents
// returns nil and published events are recorded for inspection instead.
type MemStore struct {
	mu          sync.Mutex
	users       map[int64]models.User
	rooms       map[string]models.Room
	memberships map[uint]models.Membership
	online      map[string]bool
	events      []models.RoomEvent
	nextUser    int64
	nextMember  uint
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:       make(map[int64]models.User),
		rooms:       make(map[string]models.Room),
		memberships: make(map[uint]models.Membership),
		online:      make(map[string]bool),
		nextUser:    1,
		nextMember:  1,
	}
}

func (m *MemStore) SaveUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.Index == 0 {
		user.Index = m.nextUser
		m.nextUser++
	}
	if user.UUID == "" {
		user.UUID = uuid.New().String()
	}
	m.users[user.Index] = *user
	return nil
}

func (m *MemStore) FindUserByIndex(index int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[index]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *MemStore) FindUserByUUID(userUUID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UUID == userUUID {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemStore) FindUserByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemStore) SaveRoom(room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.UUID == "" {
		room.UUID = uuid.New().String()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	m.rooms[room.UUID] = *room
	return nil
}

func (m *MemStore) FindRoomByUUID(roomUUID string, onlyActive bool) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomUUID]
	if !ok {
		return nil, nil
	}
	if onlyActive && room.Status != models.StatusActive {
		return nil, nil
	}
	return &room, nil
}

func (m *MemStore) FindAndCountRooms(skip, limit int) ([]models.Room, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Room
	for _, room := range m.rooms {
		if room.Status != models.StatusActive {
			continue
		}
		if m.countLocked(room.UUID, models.MemberJoined) == 0 {
			continue
		}
		matched = append(matched, room)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if skip >= len(matched) {
		return []models.Room{}, total, nil
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (m *MemStore) CreateRoomWithOwner(room *models.Room, owner *models.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.UUID == "" {
		room.UUID = uuid.New().String()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	m.rooms[room.UUID] = *room
	owner.RoomUUID = room.UUID
	if owner.ID == 0 {
		owner.ID = m.nextMember
		m.nextMember++
	}
	m.memberships[owner.ID] = *owner
	return nil
}

func (m *MemStore) SaveMembership(membership *models.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if membership.ID == 0 {
		membership.ID = m.nextMember
		m.nextMember++
	}
	m.memberships[membership.ID] = *membership
	return nil
}

func (m *MemStore) FindMembership(roomUUID string, userIndex int64, status models.MembershipStatus) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, membership := range m.memberships {
		if membership.RoomUUID == roomUUID && membership.UserIndex == userIndex && membership.Status == status {
			return &membership, nil
		}
	}
	return nil, nil
}

func (m *MemStore) CountMemberships(roomUUID string, status models.MembershipStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(roomUUID, status), nil
}

func (m *MemStore) countLocked(roomUUID string, status models.MembershipStatus) int64 {
	var count int64
	for _, membership := range m.memberships {
		if membership.RoomUUID == roomUUID && membership.Status == status {
			count++
		}
	}
	return count
}

func (m *MemStore) FindMemberships(roomUUID string, status models.MembershipStatus) ([]models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Membership
	for _, membership := range m.memberships {
		if membership.RoomUUID == roomUUID && membership.Status == status {
			result = append(result, membership)
		}
	}
	sortMemberships(result)
	return result, nil
}

func (m *MemStore) CountMembershipsByRooms(roomUUIDs []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64, len(roomUUIDs))
	for _, roomUUID := range roomUUIDs {
		counts[roomUUID] = m.countLocked(roomUUID, models.MemberJoined)
	}
	return counts, nil
}

func (m *MemStore) FindRoomMembers(roomUUID string) ([]models.RoomMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var memberships []models.Membership
	for _, membership := range m.memberships {
		if membership.RoomUUID == roomUUID && membership.Status == models.MemberJoined {
			memberships = append(memberships, membership)
		}
	}
	sortMemberships(memberships)

	members := make([]models.RoomMember, 0, len(memberships))
	for _, membership := range memberships {
		members = append(members, models.RoomMember{
			UserIndex: membership.UserIndex,
			Nickname:  m.users[membership.UserIndex].Nickname,
			Role:      membership.Role,
			JoinedAt:  membership.JoinedAt,
		})
	}
	return members, nil
}

func (m *MemStore) FindUsersByIndexes(indexes []int64) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, index := range indexes {
		if u, ok := m.users[index]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (m *MemStore) PublishEvent(event models.RoomEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of all published events, in publish order.
func (m *MemStore) Events() []models.RoomEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RoomEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemStore) SubscribeEvents() *redis.PubSub { return nil }

func (m *MemStore) AddOnlineUser(userUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userUUID] = true
	return nil
}

func (m *MemStore) RemoveOnlineUser(userUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.online, userUUID)
	return nil
}

func (m *MemStore) CountOnlineUsers() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.online)), nil
}

// sortMemberships впорядковує членства за роллю (OWNER, MANAGER, MEMBER),
// далі за часом приєднання.
func sortMemberships(memberships []models.Membership) {
	sort.Slice(memberships, func(i, j int) bool {
		if memberships[i].Role.RoleRank() != memberships[j].Role.RoleRank() {
			return memberships[i].Role.RoleRank() < memberships[j].Role.RoleRank()
		}
		return memberships[i].JoinedAt.Before(memberships[j].JoinedAt)
	})
}
