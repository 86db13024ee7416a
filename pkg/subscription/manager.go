package subscription

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lpmanager/pkg/pool/whirlpool"
)

// PoolUpdateHandler is called with every decoded pool update, in slot order.
type PoolUpdateHandler func(pool *whirlpool.Whirlpool, slot uint64)

// AccountSubscriber is the account half of *WebSocketClient.
type AccountSubscriber interface {
	SubscribeAccount(accountID string, commitment string, handler AccountUpdateHandler) (uint64, error)
	Unsubscribe(id uint64) error
}

var ErrAlreadyWatching = errors.New("pool already watched")

type watch struct {
	subID    uint64
	lastSlot uint64
	handler  PoolUpdateHandler
	// subscribed is false while SubscribeAccount is in flight.
	subscribed bool
	// removed by UnwatchPool before the subscription id arrived
	cancelled bool
}

// SubscriptionManager streams decoded whirlpool state. Nothing is cached:
// every update goes straight to the handler, older slots are dropped.
type SubscriptionManager struct {
	ws         AccountSubscriber
	commitment string
	logger     *zap.Logger

	mu      sync.Mutex
	watches map[solana.PublicKey]*watch
}

func NewSubscriptionManager(ws AccountSubscriber, commitment string, logger *zap.Logger) *SubscriptionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if commitment == "" {
		commitment = "confirmed"
	}
	return &SubscriptionManager{
		ws:         ws,
		commitment: commitment,
		logger:     logger.With(zap.String("component", "pool_watcher")),
		watches:    make(map[solana.PublicKey]*watch),
	}
}

// WatchPool subscribes to pool's account.
func (sm *SubscriptionManager) WatchPool(pool solana.PublicKey, handler PoolUpdateHandler) error {
	sm.mu.Lock()
	if _, exists := sm.watches[pool]; exists {
		sm.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyWatching, pool)
	}
	w := &watch{handler: handler}
	sm.watches[pool] = w
	sm.mu.Unlock()

	subID, err := sm.ws.SubscribeAccount(pool.String(), sm.commitment, func(_ string, data []byte, slot uint64) {
		sm.handleAccountUpdate(pool, data, slot)
	})
	if err != nil {
		sm.mu.Lock()
		if sm.watches[pool] == w {
			delete(sm.watches, pool)
		}
		sm.mu.Unlock()
		return fmt.Errorf("subscribe pool %s: %w", pool, err)
	}

	sm.mu.Lock()
	w.subID = subID
	w.subscribed = true
	cancelled := w.cancelled
	sm.mu.Unlock()
	if cancelled {
		sm.logger.Info("pool unwatched while subscribing", zap.Stringer("pool", pool), zap.Uint64("sub_id", subID))
		return sm.ws.Unsubscribe(subID)
	}
	sm.logger.Info("watching pool", zap.Stringer("pool", pool), zap.Uint64("sub_id", subID))
	return nil
}

func (sm *SubscriptionManager) handleAccountUpdate(pool solana.PublicKey, data []byte, slot uint64) {
	decoded, err := whirlpool.ParseWhirlpool(pool, data)
	if err != nil {
		sm.logger.Warn("bad pool update", zap.Stringer("pool", pool), zap.Uint64("slot", slot), zap.Error(err))
		return
	}

	sm.mu.Lock()
	w, exists := sm.watches[pool]
	if !exists || slot < w.lastSlot {
		sm.mu.Unlock()
		return
	}
	w.lastSlot = slot
	handler := w.handler
	sm.mu.Unlock()

	if handler != nil {
		handler(decoded, slot)
	}
}

// UnwatchPool stops updates for pool. A subscription still being set up is
// torn down by WatchPool once its id is known.
func (sm *SubscriptionManager) UnwatchPool(pool solana.PublicKey) error {
	sm.mu.Lock()
	w, exists := sm.watches[pool]
	delete(sm.watches, pool)
	subscribed := exists && w.subscribed
	if exists && !subscribed {
		w.cancelled = true
	}
	sm.mu.Unlock()
	if !subscribed {
		return nil
	}
	return sm.ws.Unsubscribe(w.subID)
}

// Watching returns the watched pools.
func (sm *SubscriptionManager) Watching() []solana.PublicKey {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	out := make([]solana.PublicKey, 0, len(sm.watches))
	for pool := range sm.watches {
		out = append(out, pool)
	}
	return out
}

// Close unwatches every pool. The websocket client stays open.
func (sm *SubscriptionManager) Close() error {
	var errs []error
	for _, pool := range sm.Watching() {
		if err := sm.UnwatchPool(pool); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
