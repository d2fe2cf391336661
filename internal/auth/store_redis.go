// Copyright (c) 2026 Hemeroteca. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/constants"
)

// # Token Blacklist Repository

// RedisBlacklistRepository implements BlacklistRepository using Redis.
//
// # Why Redis?
//
// Entries carry a TTL equal to the remaining natural life of the token, so
// the deny-list prunes itself: a blacklisted token lapses the instant its
// own cryptographic expiry passes, with no sweep job and no growing table.
type RedisBlacklistRepository struct {
	client *redis.Client
}

// NewBlacklistRepository creates a new Redis-backed BlacklistRepository.
func NewBlacklistRepository(client *redis.Client) *RedisBlacklistRepository {
	return &RedisBlacklistRepository{client: client}
}

/*
Record deny-lists a token until its natural expiry.

Description: A token already past its expiry is not stored at all; the gate
would reject it on verification anyway.

Parameters:
  - context: context.Context
  - token: string
  - naturalExpiry: time.Time

Returns:
  - error: Execution errors
*/
func (repository *RedisBlacklistRepository) Record(context context.Context, token string, naturalExpiry time.Time) error {

	// Remaining life of the token decides the entry TTL
	remaining := time.Until(naturalExpiry)
	if remaining <= 0 {
		return nil
	}

	// Use constants for key prefix
	key := constants.RedisPrefixBlacklist + token

	// Set the marker with TTL
	if err := repository.client.Set(context, key, "1", remaining).Err(); err != nil {
		return fmt.Errorf("redis_blacklist_record_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
IsBlacklisted reports whether the token is currently deny-listed.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - bool: true while the entry has not lapsed
  - error: Connectivity errors
*/
func (repository *RedisBlacklistRepository) IsBlacklisted(context context.Context, token string) (bool, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixBlacklist + token

	// Check existence; expired entries are already gone
	count, err := repository.client.Exists(context, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis_blacklist_check_failed: %w", err)
	}

	// Return the result
	return count > 0, nil
}

// # Verification Token Repository

// RedisVerificationTokenRepository implements VerificationTokenRepository using Redis.
type RedisVerificationTokenRepository struct {
	client *redis.Client
}

// NewVerificationTokenRepository creates a new Redis-backed VerificationTokenRepository.
func NewVerificationTokenRepository(client *redis.Client) *RedisVerificationTokenRepository {
	return &RedisVerificationTokenRepository{client: client}
}

/*
Set stores a verification token with its associated userID and TTL.

Parameters:
  - context: context.Context
  - token: string
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisVerificationTokenRepository) Set(context context.Context, token string, userID string, ttl time.Duration) error {

	// Use constants for key prefix
	key := constants.RedisPrefixVerifyToken + token

	// Set the token with TTL
	if err := repository.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_set_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Get retrieves the userID for a given verification token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: Original UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisVerificationTokenRepository) Get(context context.Context, token string) (string, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixVerifyToken + token

	// Get the token from Redis
	userID, err := repository.client.Get(context, key).Result()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Verification token is invalid or expired")
		}
		return "", fmt.Errorf("redis_verify_token_get_failed: %w", err)
	}

	// Return the userID
	return userID, nil
}

/*
Delete removes the verification token from Redis.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisVerificationTokenRepository) Delete(context context.Context, token string) error {

	// Use constants for key prefix
	key := constants.RedisPrefixVerifyToken + token

	// Delete the token from Redis
	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_delete_failed: %w", err)
	}

	// Return nil on success
	return nil
}
