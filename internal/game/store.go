package game

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const SessionDuration = 2 * time.Hour

var (
	ErrWorldNotFound   = errors.New("world_not_found")
	ErrSessionNotFound = errors.New("session_not_found")
	ErrInvalidClientID = errors.New("invalid_client_id")
)

// ClientSession records which world a websocket client is attached to.
type ClientSession struct {
	ClientID    string    `json:"clientId"`
	WorldID     string    `json:"worldId"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type Store struct {
	redis *redis.Client
	now   func() time.Time
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{
		redis: redisClient,
		now:   time.Now,
	}
}

func worldKey(worldID string) string {
	return "world:" + worldID
}

func sessionKey(clientID string) string {
	return "session:" + clientID
}

// LoadWorld returns the stored world, creating it on first use.
func (store *Store) LoadWorld(ctx context.Context, worldID string) (*World, error) {
	key := worldKey(worldID)

	worldJSON, err := store.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		world := NewWorld(worldID)
		world.UpdatedAt = store.now().UTC()

		serialized, err := json.Marshal(world)
		if err != nil {
			log.Error().Err(err).Msg("Failed to serialize world.")
			return nil, err
		}

		// Another replica may have created it in the meantime; its copy wins.
		created, err := store.redis.SetNX(ctx, key, serialized, 0).Result()
		if err != nil {
			log.Error().Err(err).Msg("Failed to save world to Redis.")
			return nil, err
		}
		if created {
			return world, nil
		}
		worldJSON, err = store.redis.Get(ctx, key).Bytes()
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		log.Error().Err(err).Msg("Failed to get world from Redis.")
		return nil, err
	}

	var world World
	if err := json.Unmarshal(worldJSON, &world); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal world from Redis.")
		return nil, err
	}
	return &world, nil
}

// ApplyAction runs an action against the stored world under optimistic
// locking and returns the resulting snapshot.
func (store *Store) ApplyAction(ctx context.Context, worldID string, action Action) (*GameState, error) {
	if _, err := ResolveAction(action); err != nil {
		return nil, err
	}
	if _, err := store.LoadWorld(ctx, worldID); err != nil {
		return nil, err
	}

	key := worldKey(worldID)
	var updated World

	for {
		err := store.redis.Watch(ctx, func(tx *redis.Tx) error {
			worldJSON, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrWorldNotFound
			}
			if err != nil {
				log.Error().Err(err).Msg("Failed to get world from Redis.")
				return err
			}

			updated = World{}
			if err := json.Unmarshal(worldJSON, &updated); err != nil {
				log.Error().Err(err).Msg("Failed to unmarshal world from Redis.")
				return err
			}

			if err := updated.Apply(action, store.now()); err != nil {
				return err
			}

			updatedJSON, err := json.Marshal(updated)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updatedJSON, 0)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			log.Debug().Str("world_id", worldID).Msg("World changed concurrently, retrying.")
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	return updated.Snapshot(), nil
}

func (store *Store) CreateClientSession(ctx context.Context, clientID, worldID string) (*ClientSession, error) {
	if clientID == "" {
		return nil, ErrInvalidClientID
	}

	session := &ClientSession{
		ClientID:    clientID,
		WorldID:     worldID,
		ConnectedAt: store.now().UTC(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		log.Error().Err(err).Msg("Failed to serialize session.")
		return nil, err
	}

	if err := store.redis.Set(ctx, sessionKey(clientID), data, SessionDuration).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to save session to Redis.")
		return nil, err
	}
	return session, nil
}

func (store *Store) ClientSession(ctx context.Context, clientID string) (*ClientSession, error) {
	data, err := store.redis.Get(ctx, sessionKey(clientID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to get session from Redis.")
		return nil, err
	}

	var session ClientSession
	if err := json.Unmarshal(data, &session); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal session from Redis.")
		return nil, err
	}
	return &session, nil
}

func (store *Store) EndClientSession(ctx context.Context, clientID string) error {
	return store.redis.Del(ctx, sessionKey(clientID)).Err()
}
