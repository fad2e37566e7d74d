package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

const connectedSessionsKey = "connected_sessions"

func roomKey(id domain.RoomID) string         { return fmt.Sprintf("room:%s", id) }
func participantsKey(id domain.RoomID) string { return fmt.Sprintf("class:%s:participants", id) }

// RedisStore keeps rooms and membership in Redis so every gateway
// instance sees one logical view. All mutations are single commands, so
// concurrent joins and leaves on the same room never lose an update.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	log.Info().Str("module", "presence.redis").Msg("connected to redis")
	return &RedisStore{client: client}, nil
}

// Client exposes the underlying connection for the pub/sub bridge.
func (s *RedisStore) Client() redis.UniversalClient { return s.client }

func (s *RedisStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	opts, err := json.Marshal(room.Options)
	if err != nil {
		return fmt.Errorf("marshal room opts: %w", err)
	}
	err = s.client.HSet(ctx, roomKey(room.ID), map[string]any{
		"name":       room.Name,
		"created_by": string(room.CreatedBy),
		"opts":       string(opts),
	}).Err()
	if err != nil {
		return fmt.Errorf("write room %s: %w", room.ID, err)
	}
	return nil
}

func (s *RedisStore) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	if err := s.client.Del(ctx, roomKey(id), participantsKey(id)).Err(); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	data, err := s.client.HGetAll(ctx, roomKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	room := &domain.Room{
		ID:        id,
		Name:      data["name"],
		CreatedBy: domain.UserID(data["created_by"]),
	}
	if raw := data["opts"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &room.Options); err != nil {
			return nil, fmt.Errorf("unmarshal opts for room %s: %w", id, err)
		}
	}
	return room, nil
}

func (s *RedisStore) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	var rooms []*domain.Room
	iter := s.client.Scan(ctx, 0, "room:*", 100).Iterator()
	for iter.Next(ctx) {
		id := domain.RoomID(strings.TrimPrefix(iter.Val(), "room:"))
		room, err := s.GetRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		// Room may have been reaped between SCAN and HGETALL.
		if room != nil {
			rooms = append(rooms, room)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	return rooms, nil
}

func (s *RedisStore) RoomSize(ctx context.Context, id domain.RoomID) (int, error) {
	n, err := s.client.SCard(ctx, participantsKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("size of room %s: %w", id, err)
	}
	return int(n), nil
}

func (s *RedisStore) AddMember(ctx context.Context, id domain.RoomID, user domain.UserID) error {
	if err := s.client.SAdd(ctx, participantsKey(id), string(user)).Err(); err != nil {
		return fmt.Errorf("add member to room %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) RemoveMember(ctx context.Context, id domain.RoomID, user domain.UserID) error {
	if err := s.client.SRem(ctx, participantsKey(id), string(user)).Err(); err != nil {
		return fmt.Errorf("remove member from room %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Members(ctx context.Context, id domain.RoomID) ([]domain.UserID, error) {
	raw, err := s.client.SMembers(ctx, participantsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("members of room %s: %w", id, err)
	}
	out := make([]domain.UserID, 0, len(raw))
	for _, m := range raw {
		out = append(out, domain.UserID(m))
	}
	return out, nil
}

func (s *RedisStore) IsMember(ctx context.Context, id domain.RoomID, user domain.UserID) (bool, error) {
	ok, err := s.client.SIsMember(ctx, participantsKey(id), string(user)).Result()
	if err != nil {
		return false, fmt.Errorf("membership check for room %s: %w", id, err)
	}
	return ok, nil
}

func (s *RedisStore) MarkConnected(ctx context.Context, user domain.UserID) error {
	if err := s.client.SAdd(ctx, connectedSessionsKey, string(user)).Err(); err != nil {
		return fmt.Errorf("mark connected: %w", err)
	}
	return nil
}

func (s *RedisStore) MarkDisconnected(ctx context.Context, user domain.UserID) error {
	if err := s.client.SRem(ctx, connectedSessionsKey, string(user)).Err(); err != nil {
		return fmt.Errorf("mark disconnected: %w", err)
	}
	return nil
}

func (s *RedisStore) IsConnected(ctx context.Context, user domain.UserID) (bool, error) {
	ok, err := s.client.SIsMember(ctx, connectedSessionsKey, string(user)).Result()
	if err != nil {
		return false, fmt.Errorf("liveness check: %w", err)
	}
	return ok, nil
}
