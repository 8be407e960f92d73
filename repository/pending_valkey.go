package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainDecision "github.com/AzielCF/aegisx/domains/decision"
	"github.com/AzielCF/aegisx/infrastructure/valkey"
	valkeylib "github.com/valkey-io/valkey-go"
)

type pendingPayload struct {
	Attempt domainDecision.Attempt `json:"attempt"`
	RuleID  string                 `json:"rule_id"`
}

// PendingValkeyStore keeps require_pin attempts in valkey so the PIN
// follow-up call can be served by any server behind the balancer. TTL is
// enforced by valkey itself.
type PendingValkeyStore struct {
	client *valkey.Client
}

func NewPendingValkeyStore(client *valkey.Client) *PendingValkeyStore {
	return &PendingValkeyStore{client: client}
}

func (s *PendingValkeyStore) Put(ctx context.Context, attemptID string, attempt domainDecision.Attempt, ruleID string, ttl time.Duration) error {
	payload, err := json.Marshal(pendingPayload{Attempt: attempt, RuleID: ruleID})
	if err != nil {
		return fmt.Errorf("marshal pending attempt: %w", err)
	}

	key := s.client.Key("pending", attemptID)
	inner := s.client.Inner()
	cmd := inner.B().Set().Key(key).Value(string(payload)).ExSeconds(int64(ttl.Seconds())).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("store pending attempt: %w", err)
	}
	return nil
}

func (s *PendingValkeyStore) Take(ctx context.Context, attemptID string) (domainDecision.Attempt, string, error) {
	key := s.client.Key("pending", attemptID)
	inner := s.client.Inner()

	resp := inner.Do(ctx, inner.B().Getdel().Key(key).Build())
	if err := resp.Error(); err != nil {
		if valkeylib.IsValkeyNil(err) {
			return domainDecision.Attempt{}, "", domainDecision.ErrPendingNotFound
		}
		return domainDecision.Attempt{}, "", fmt.Errorf("fetch pending attempt: %w", err)
	}

	raw, err := resp.AsBytes()
	if err != nil {
		return domainDecision.Attempt{}, "", fmt.Errorf("read pending attempt: %w", err)
	}

	var payload pendingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domainDecision.Attempt{}, "", fmt.Errorf("unmarshal pending attempt: %w", err)
	}
	return payload.Attempt, payload.RuleID, nil
}
