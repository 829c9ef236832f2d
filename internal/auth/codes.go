package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/firewatch/firewatch/internal/shared"
)

const maxCodeAttempts = 5

// CodeStore keeps one live verification code per e-mail and purpose.
type CodeStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

type storedCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCodeStore constructs a CodeStore whose codes live for ttl.
func NewCodeStore(client *redis.Client, ttl time.Duration) *CodeStore {
	return &CodeStore{client: client, ttl: ttl, now: time.Now}
}

// Issue replaces any live code for the pair with a fresh six-digit code.
func (s *CodeStore) Issue(ctx context.Context, email string, purpose Purpose) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("auth: generate code: %w", err)
	}
	data, err := json.Marshal(storedCode{Code: code, ExpiresAt: s.now().Add(s.ttl)})
	if err != nil {
		return "", err
	}
	// The key outlives the code so an expired attempt is reported as such.
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey(email, purpose), data, 2*s.ttl)
		pipe.Del(ctx, attemptsKey(email, purpose))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("auth: store code: %w", err)
	}
	return code, nil
}

// Consume checks the code and deletes it on success. Codes are single use;
// repeated failures burn the code.
func (s *CodeStore) Consume(ctx context.Context, email string, purpose Purpose, code string) error {
	key := codeKey(email, purpose)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.ErrVerificationInvalid
		}
		return fmt.Errorf("auth: load code: %w", err)
	}
	var stored storedCode
	if err := json.Unmarshal(raw, &stored); err != nil {
		_ = s.client.Del(ctx, key).Err()
		return shared.ErrVerificationInvalid
	}
	if s.now().After(stored.ExpiresAt) {
		_ = s.client.Del(ctx, key).Err()
		return shared.ErrVerificationExpired
	}
	if subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) != 1 {
		return s.fail(ctx, email, purpose)
	}

	var (
		deleted  *redis.IntCmd
		attempts *redis.StringCmd
	)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		attempts = pipe.Get(ctx, attemptsKey(email, purpose))
		deleted = pipe.Del(ctx, key)
		pipe.Del(ctx, attemptsKey(email, purpose))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: consume code: %w", err)
	}
	if n, _ := attempts.Int(); n >= maxCodeAttempts {
		return shared.ErrVerificationInvalid
	}
	if deleted.Val() == 0 {
		return shared.ErrVerificationInvalid
	}
	return nil
}

// fail counts a wrong guess. The counter is shared by concurrent callers, so
// whichever guess reaches the limit burns the code.
func (s *CodeStore) fail(ctx context.Context, email string, purpose Purpose) error {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, attemptsKey(email, purpose))
		pipe.Expire(ctx, attemptsKey(email, purpose), 2*s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth: count attempt: %w", err)
	}
	if incr.Val() >= maxCodeAttempts {
		_ = s.client.Del(ctx, codeKey(email, purpose)).Err()
	}
	return shared.ErrVerificationInvalid
}

func codeKey(email string, purpose Purpose) string {
	return "verify:" + string(purpose) + ":" + normalizeEmail(email)
}

func attemptsKey(email string, purpose Purpose) string {
	return "verify-attempts:" + string(purpose) + ":" + normalizeEmail(email)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
