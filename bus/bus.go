// Package bus adapts Redis pub/sub into the per-room broadcast channel and
// keeps the explicit roster of connected players per room. Any process
// instance may publish; every subscribed instance receives, in publish order
// per channel.
package bus

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Bus struct {
	redis *redis.Client
}

func New(redisClient *redis.Client) *Bus {
	return &Bus{redis: redisClient}
}

func channelKey(roomCode string) string {
	return "room:" + roomCode
}

func rosterKey(roomCode string) string {
	return "room:" + roomCode + ":users"
}

func (b *Bus) Publish(ctx context.Context, roomCode string, payload []byte) error {
	return b.redis.Publish(ctx, channelKey(roomCode), payload).Err()
}

// Subscribe opens a dedicated subscription for one connection. The caller
// owns the returned PubSub and must Close it on disconnect.
func (b *Bus) Subscribe(ctx context.Context, roomCode string) *redis.PubSub {
	return b.redis.Subscribe(ctx, channelKey(roomCode))
}

// JoinRoster marks a player as an active responder for the room. The roster
// is the completion oracle: a phase is complete when every rostered player
// has acted, so it is only ever adjusted by explicit connect/disconnect.
func (b *Bus) JoinRoster(ctx context.Context, roomCode string, userID uint) error {
	return b.redis.SAdd(ctx, rosterKey(roomCode), userID).Err()
}

func (b *Bus) LeaveRoster(ctx context.Context, roomCode string, userID uint) error {
	return b.redis.SRem(ctx, rosterKey(roomCode), userID).Err()
}

func (b *Bus) RosterCount(ctx context.Context, roomCode string) (int, error) {
	n, err := b.redis.SCard(ctx, rosterKey(roomCode)).Result()
	return int(n), err
}

func transitionKey(roomCode, marker string) string {
	return "room:" + roomCode + ":transition:" + marker
}

// AcquireTransition claims the named phase transition. Exactly one caller
// across all instances gets true, so completion checks that race on the same
// boundary cannot double-fire the transition.
func (b *Bus) AcquireTransition(ctx context.Context, roomCode, marker string) (bool, error) {
	return b.redis.SetNX(ctx, transitionKey(roomCode, marker), 1, 2*time.Hour).Result()
}

// ReleaseTransition frees a claimed marker. A transition that failed after
// the claim must release it, or no later completion check could ever retry
// the phase change.
func (b *Bus) ReleaseTransition(ctx context.Context, roomCode, marker string) error {
	return b.redis.Del(ctx, transitionKey(roomCode, marker)).Err()
}
