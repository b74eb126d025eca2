// Package room implements the room-membership state machine: create, join,
// leave, update, delete, with capacity, password, and ownership invariants
// enforced under concurrent access.
package room

import (
	"sync"
	"time"

	"roomgo/backend/internal/apperr"
	"roomgo/backend/internal/auth"
	"roomgo/backend/internal/models"
	"roomgo/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Identity — автентифікована особа, що виконує операцію.
// Заповнюється шлюзом після перевірки токена.
type Identity struct {
	Index    int64
	UUID     string
	Nickname string
}

// CreateParams are the inputs for CreateRoom.
type CreateParams struct {
	Name               string                `json:"name"`
	MaxUsers           int                   `json:"max_users"`
	Visibility         models.RoomVisibility `json:"visibility"`
	JoinPolicy         models.RoomJoinPolicy `json:"join_policy"`
	Password           string                `json:"password,omitempty"`
	InvitedUserIndexes []int64               `json:"invited_user_indexes,omitempty"`
}

// UpdateParams are the partial inputs for UpdateRoom; nil fields stay untouched.
type UpdateParams struct {
	Name               *string                `json:"name,omitempty"`
	MaxUsers           *int                   `json:"max_users,omitempty"`
	Visibility         *models.RoomVisibility `json:"visibility,omitempty"`
	JoinPolicy         *models.RoomJoinPolicy `json:"join_policy,omitempty"`
	Password           *string                `json:"password,omitempty"`
	InvitedUserIndexes *[]int64               `json:"invited_user_indexes,omitempty"`
}

// OwnerInfo is the owner slice of a room view.
type OwnerInfo struct {
	Index    int64  `json:"index"`
	Nickname string `json:"nickname"`
}

// View is the outward representation of a room. The password digest never
// leaves the engine; only HasPassword does.
type View struct {
	UUID         string                `json:"uuid"`
	Name         string                `json:"name"`
	MaxUsers     int                   `json:"max_users"`
	Visibility   models.RoomVisibility `json:"visibility"`
	JoinPolicy   models.RoomJoinPolicy `json:"join_policy"`
	Status       models.RoomStatus     `json:"status"`
	HasPassword  bool                  `json:"has_password"`
	CurrentUsers int64                 `json:"current_users"`
	Owner        OwnerInfo             `json:"owner"`
	CreatedAt    time.Time             `json:"created_at"`
}

// Service is the membership engine. Capacity-affecting operations on the same
// room are serialized through a per-room mutex; unrelated rooms never contend.
type Service struct {
	store storage.Storage

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store storage.Storage) *Service {
	return &Service{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// roomLock повертає м'ютекс кімнати, створюючи його за потреби.
func (s *Service) roomLock(roomUUID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[roomUUID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[roomUUID] = l
	}
	return l
}

// dropLock прибирає м'ютекс кімнати після її видалення, щоб мапа не росла
// безмежно. Операції, що встигли захопити старий м'ютекс, все одно впруться
// в NotFound — DELETED-кімната не проходить activeRoom.
func (s *Service) dropLock(roomUUID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, roomUUID)
}

// CreateRoom validates the parameters and atomically persists the room plus
// an OWNER membership for the creator.
func (s *Service) CreateRoom(owner Identity, params CreateParams) (*View, error) {
	if params.Name == "" {
		return nil, apperr.New(apperr.BadRequest, "Room name is required")
	}
	if params.MaxUsers < models.MinRoomUsers || params.MaxUsers > models.MaxRoomUsers {
		return nil, apperr.New(apperr.BadRequest, "max_users must be between 2 and 100")
	}
	if !params.Visibility.Valid() {
		return nil, apperr.New(apperr.BadRequest, "Unknown room visibility")
	}
	if !params.JoinPolicy.Valid() {
		return nil, apperr.New(apperr.BadRequest, "Unknown room join policy")
	}

	room := &models.Room{
		Name:       params.Name,
		MaxUsers:   params.MaxUsers,
		Visibility: params.Visibility,
		JoinPolicy: params.JoinPolicy,
		Status:     models.StatusActive,
		OwnerIndex: owner.Index,
	}

	// Дайджест пароля зберігається лише для PASSWORD-кімнат.
	if params.JoinPolicy == models.JoinPolicyPassword {
		if params.Password == "" {
			return nil, apperr.New(apperr.BadRequest, "Password required for PASSWORD rooms")
		}
		digest, err := auth.HashPassword(params.Password)
		if err != nil {
			return nil, apperr.Wrap(err, "failed to hash room password")
		}
		room.PasswordDigest = &digest
	}
	if params.JoinPolicy == models.JoinPolicyInvite {
		room.InvitedUserIndexes = params.InvitedUserIndexes
	}

	membership := &models.Membership{
		UserIndex: owner.Index,
		Status:    models.MemberJoined,
		Role:      models.RoleOwner,
		JoinedAt:  time.Now(),
	}

	if err := s.store.CreateRoomWithOwner(room, membership); err != nil {
		log.Error().Err(err).Str("owner", owner.UUID).Msg("failed to create room")
		return nil, apperr.Wrap(err, "Failed to create room")
	}

	log.Info().Str("room", room.UUID).Int64("owner", owner.Index).Msg("room created")
	return s.buildView(room, 1, owner.Index, owner.Nickname), nil
}

// ListRooms returns a page of active rooms that have at least one JOINED
// member, newest first, plus the total count.
func (s *Service) ListRooms(page, limit int) ([]View, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	skip := (page - 1) * limit

	rooms, total, err := s.store.FindAndCountRooms(skip, limit)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "Failed to list rooms")
	}

	views, err := s.buildViews(rooms)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetRoom returns the ACTIVE room with the given uuid.
func (s *Service) GetRoom(roomUUID string) (*View, error) {
	room, err := s.activeRoom(roomUUID)
	if err != nil {
		return nil, err
	}
	views, err := s.buildViews([]models.Room{*room})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdateRoom applies partial updates; only the owner may update.
func (s *Service) UpdateRoom(roomUUID string, actingUserIndex int64, params UpdateParams) (*View, error) {
	lock := s.roomLock(roomUUID)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.activeRoom(roomUUID)
	if err != nil {
		return nil, err
	}
	if room.OwnerIndex != actingUserIndex {
		return nil, apperr.New(apperr.Forbidden, "Only room owner can update the room")
	}

	if params.Name != nil {
		if *params.Name == "" {
			return nil, apperr.New(apperr.BadRequest, "Room name is required")
		}
		room.Name = *params.Name
	}
	if params.Visibility != nil {
		if !params.Visibility.Valid() {
			return nil, apperr.New(apperr.BadRequest, "Unknown room visibility")
		}
		room.Visibility = *params.Visibility
	}
	if params.MaxUsers != nil {
		if *params.MaxUsers < models.MinRoomUsers || *params.MaxUsers > models.MaxRoomUsers {
			return nil, apperr.New(apperr.BadRequest, "max_users must be between 2 and 100")
		}
		current, err := s.store.CountMemberships(roomUUID, models.MemberJoined)
		if err != nil {
			return nil, apperr.Wrap(err, "Failed to update room")
		}
		// Не можна опустити місткість нижче поточної кількості учасників.
		if int64(*params.MaxUsers) < current {
			return nil, apperr.New(apperr.BadRequest, "max_users cannot be below current member count")
		}
		room.MaxUsers = *params.MaxUsers
	}
	if params.JoinPolicy != nil {
		if !params.JoinPolicy.Valid() {
			return nil, apperr.New(apperr.BadRequest, "Unknown room join policy")
		}
		room.JoinPolicy = *params.JoinPolicy
	}
	if params.InvitedUserIndexes != nil {
		room.InvitedUserIndexes = *params.InvitedUserIndexes
	}

	// Інваріант: дайджест присутній тоді й лише тоді, коли політика PASSWORD.
	switch room.JoinPolicy {
	case models.JoinPolicyPassword:
		if params.Password != nil {
			if *params.Password == "" {
				return nil, apperr.New(apperr.BadRequest, "Password must not be empty")
			}
			digest, err := auth.HashPassword(*params.Password)
			if err != nil {
				return nil, apperr.Wrap(err, "failed to hash room password")
			}
			room.PasswordDigest = &digest
		}
		if !room.HasPassword() {
			return nil, apperr.New(apperr.BadRequest, "Password required for PASSWORD rooms")
		}
	default:
		room.PasswordDigest = nil
	}

	if err := s.store.SaveRoom(room); err != nil {
		log.Error().Err(err).Str("room", roomUUID).Msg("failed to update room")
		return nil, apperr.Wrap(err, "Failed to update room")
	}

	views, err := s.buildViews([]models.Room{*room})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeleteRoom soft-deletes the room: status becomes DELETED, memberships and
// messages are left as they are.
func (s *Service) DeleteRoom(roomUUID string, actingUserIndex int64) error {
	lock := s.roomLock(roomUUID)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.activeRoom(roomUUID)
	if err != nil {
		return err
	}
	if room.OwnerIndex != actingUserIndex {
		return apperr.New(apperr.Forbidden, "Only room owner can delete the room")
	}

	room.Status = models.StatusDeleted
	if err := s.store.SaveRoom(room); err != nil {
		log.Error().Err(err).Str("room", roomUUID).Msg("failed to delete room")
		return apperr.Wrap(err, "Failed to delete room")
	}
	s.dropLock(roomUUID)

	log.Info().Str("room", roomUUID).Msg("room deleted")
	s.publishEvent(models.RoomEvent{
		RoomUUID: roomUUID,
		Event:    models.EventRoomDeleted,
		SentAt:   time.Now().UTC(),
	})
	return nil
}

// JoinRoom runs the ordered join checks and creates (or revives) a JOINED
// MEMBER membership. The whole sequence holds the room lock so two concurrent
// joins cannot both take the last open slot.
func (s *Service) JoinRoom(roomUUID string, joining Identity, password string) (*models.Membership, error) {
	lock := s.roomLock(roomUUID)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.activeRoom(roomUUID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindMembership(roomUUID, joining.Index, models.MemberJoined)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to join room")
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, "Already joined this room")
	}

	current, err := s.store.CountMemberships(roomUUID, models.MemberJoined)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to join room")
	}
	if current >= int64(room.MaxUsers) {
		return nil, apperr.New(apperr.Conflict, "Room is full")
	}

	if room.JoinPolicy == models.JoinPolicyInvite && !room.IsInvited(joining.Index) {
		return nil, apperr.New(apperr.Forbidden, "Not invited to this room")
	}

	if room.JoinPolicy == models.JoinPolicyPassword {
		if password == "" {
			return nil, apperr.New(apperr.BadRequest, "Password required")
		}
		if !room.HasPassword() || !auth.CheckPassword(password, *room.PasswordDigest) {
			return nil, apperr.New(apperr.BadRequest, "Invalid password")
		}
	}

	// Повторний вхід оживляє попередній LEFT-рядок замість створення нового.
	membership, err := s.store.FindMembership(roomUUID, joining.Index, models.MemberLeft)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to join room")
	}
	if membership == nil {
		membership = &models.Membership{
			RoomUUID:  roomUUID,
			UserIndex: joining.Index,
		}
	}
	membership.Status = models.MemberJoined
	membership.Role = models.RoleMember
	membership.JoinedAt = time.Now()

	if err := s.store.SaveMembership(membership); err != nil {
		log.Error().Err(err).Str("room", roomUUID).Int64("user", joining.Index).Msg("failed to join room")
		return nil, apperr.Wrap(err, "Failed to join room")
	}

	log.Info().Str("room", roomUUID).Int64("user", joining.Index).Msg("user joined room")
	s.publishEvent(models.RoomEvent{
		RoomUUID:  roomUUID,
		Event:     models.EventMemberJoined,
		UserIndex: joining.Index,
		Nickname:  joining.Nickname,
		SentAt:    time.Now().UTC(),
	})
	return membership, nil
}

// LeaveRoom transitions the caller's membership to LEFT. Owners cannot leave;
// they must delete the room instead.
func (s *Service) LeaveRoom(roomUUID string, userIndex int64) error {
	lock := s.roomLock(roomUUID)
	lock.Lock()
	defer lock.Unlock()

	membership, err := s.store.FindMembership(roomUUID, userIndex, models.MemberJoined)
	if err != nil {
		return apperr.Wrap(err, "Failed to leave room")
	}
	if membership == nil {
		return apperr.New(apperr.NotFound, "Not a member of this room")
	}
	if membership.Role == models.RoleOwner {
		return apperr.New(apperr.BadRequest, "Owner cannot leave. Please delete the room or transfer ownership")
	}

	membership.Status = models.MemberLeft
	if err := s.store.SaveMembership(membership); err != nil {
		log.Error().Err(err).Str("room", roomUUID).Int64("user", userIndex).Msg("failed to leave room")
		return apperr.Wrap(err, "Failed to leave room")
	}

	log.Info().Str("room", roomUUID).Int64("user", userIndex).Msg("user left room")
	s.publishEvent(models.RoomEvent{
		RoomUUID:  roomUUID,
		Event:     models.EventMemberLeft,
		UserIndex: userIndex,
		SentAt:    time.Now().UTC(),
	})
	return nil
}

// ListMembers returns the JOINED members of the room with nicknames,
// ordered by role then join time.
func (s *Service) ListMembers(roomUUID string) ([]models.RoomMember, error) {
	if _, err := s.activeRoom(roomUUID); err != nil {
		return nil, err
	}
	members, err := s.store.FindRoomMembers(roomUUID)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to list room members")
	}
	return members, nil
}

// IsMember reports whether the user currently has a JOINED membership.
func (s *Service) IsMember(roomUUID string, userIndex int64) (bool, error) {
	membership, err := s.store.FindMembership(roomUUID, userIndex, models.MemberJoined)
	if err != nil {
		return false, apperr.Wrap(err, "Failed to check membership")
	}
	return membership != nil, nil
}

// activeRoom завантажує ACTIVE-кімнату або повертає NotFound.
func (s *Service) activeRoom(roomUUID string) (*models.Room, error) {
	room, err := s.store.FindRoomByUUID(roomUUID, true)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load room")
	}
	if room == nil {
		return nil, apperr.New(apperr.NotFound, "Room not found")
	}
	return room, nil
}

func (s *Service) buildView(room *models.Room, currentUsers int64, ownerIndex int64, ownerNickname string) *View {
	return &View{
		UUID:         room.UUID,
		Name:         room.Name,
		MaxUsers:     room.MaxUsers,
		Visibility:   room.Visibility,
		JoinPolicy:   room.JoinPolicy,
		Status:       room.Status,
		HasPassword:  room.HasPassword(),
		CurrentUsers: currentUsers,
		Owner:        OwnerInfo{Index: ownerIndex, Nickname: ownerNickname},
		CreatedAt:    room.CreatedAt,
	}
}

// buildViews збирає подання кімнат разом із кількістю учасників та
// нікнеймами власників.
func (s *Service) buildViews(rooms []models.Room) ([]View, error) {
	if len(rooms) == 0 {
		return []View{}, nil
	}

	uuids := make([]string, 0, len(rooms))
	ownerIdx := make([]int64, 0, len(rooms))
	for _, r := range rooms {
		uuids = append(uuids, r.UUID)
		ownerIdx = append(ownerIdx, r.OwnerIndex)
	}

	counts, err := s.store.CountMembershipsByRooms(uuids)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to count room members")
	}
	owners, err := s.store.FindUsersByIndexes(ownerIdx)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load room owners")
	}
	nicknames := make(map[int64]string, len(owners))
	for _, u := range owners {
		nicknames[u.Index] = u.Nickname
	}

	views := make([]View, 0, len(rooms))
	for i := range rooms {
		r := rooms[i]
		views = append(views, *s.buildView(&r, counts[r.UUID], r.OwnerIndex, nicknames[r.OwnerIndex]))
	}
	return views, nil
}

// publishEvent надсилає подію в шину; невдача публікації лише логується,
// операцію членства вона не скасовує.
func (s *Service) publishEvent(event models.RoomEvent) {
	if err := s.store.PublishEvent(event); err != nil {
		log.Error().Err(err).Str("room", event.RoomUUID).Str("event", event.Event).Msg("failed to publish room event")
	}
}
