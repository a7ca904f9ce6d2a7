package instance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/linanwx/companion/logger"
	"github.com/linanwx/companion/message"
)

// CodeExchanger trades an OpenRouter authorization code for an API key.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// KeyStore persists the OpenRouter API key.
type KeyStore interface {
	SaveOpenRouterKey(key string) error
	HasOpenRouterKey() bool
	// APIProvider returns the selected provider name, empty if none.
	APIProvider() string
}

// AssistantConfig configures DefaultAssistant.
type AssistantConfig struct {
	Version   string
	Exchanger CodeExchanger
	Keys      KeyStore
	Clock     clockwork.Clock
}

// DefaultAssistant keeps the task history and the provider state the view
// hydrates from. It does not run tasks.
type DefaultAssistant struct {
	cfg AssistantConfig

	mu       sync.Mutex
	history  []message.HistoryItem
	lastCode string
}

// NewDefaultAssistant creates an assistant with an empty history.
func NewDefaultAssistant(cfg AssistantConfig) *DefaultAssistant {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &DefaultAssistant{cfg: cfg}
}

// State returns the current snapshot.
func (a *DefaultAssistant) State() message.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *DefaultAssistant) stateLocked() message.State {
	st := message.State{
		Version:     a.cfg.Version,
		TaskHistory: append([]message.HistoryItem{}, a.history...),
	}
	if a.cfg.Keys != nil {
		st.APIProvider = a.cfg.Keys.APIProvider()
		st.HasOpenRouterKey = a.cfg.Keys.HasOpenRouterKey()
	}
	return st
}

// HandleViewMessage answers the view's launch with a state snapshot and
// records submitted tasks. Other kinds are ignored.
func (a *DefaultAssistant) HandleViewMessage(ctx context.Context, inst *Instance, msg message.Message) error {
	switch m := msg.(type) {
	case message.WebviewDidLaunch:
		return inst.PostMessage(ctx, message.StateSnapshot{State: a.State()})
	case message.NewTask:
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return nil
		}
		a.mu.Lock()
		a.history = append(a.history, message.HistoryItem{
			ID:   uuid.NewString(),
			Task: text,
			TS:   a.cfg.Clock.Now().UnixMilli(),
		})
		st := a.stateLocked()
		a.mu.Unlock()
		return inst.PostMessage(ctx, message.StateSnapshot{State: st})
	default:
		logger.Debug("view message ignored", "type", msg.Type())
		return nil
	}
}

// HandleOpenRouterCallback exchanges code for an API key, stores it and
// re-posts state. A code identical to the last one handled is ignored.
func (a *DefaultAssistant) HandleOpenRouterCallback(ctx context.Context, inst *Instance, code string) error {
	a.mu.Lock()
	if code == a.lastCode {
		a.mu.Unlock()
		logger.Debug("duplicate openrouter code ignored")
		return nil
	}
	a.mu.Unlock()

	if a.cfg.Exchanger == nil || a.cfg.Keys == nil {
		return errors.New("openrouter auth not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	key, err := a.cfg.Exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange openrouter code: %w", err)
	}
	if err := a.cfg.Keys.SaveOpenRouterKey(key); err != nil {
		return fmt.Errorf("save openrouter key: %w", err)
	}

	a.mu.Lock()
	a.lastCode = code
	a.mu.Unlock()

	logger.Info("openrouter key stored")
	return inst.PostMessage(ctx, message.StateSnapshot{State: a.State()})
}
