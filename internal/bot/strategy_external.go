package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
	"github.com/freeeve/iron-alliance/api/pkg/eap"
)

// ExternalOption configures an ExternalStrategy before launch.
type ExternalOption func(*ExternalStrategy)

// WithMoveTime sets the search budget sent with each go command.
func WithMoveTime(ms int) ExternalOption {
	return func(e *ExternalStrategy) {
		e.moveTimeMs = ms
	}
}

// WithTimeout sets how long to wait for bestaction before stopping the
// search.
func WithTimeout(d time.Duration) ExternalOption {
	return func(e *ExternalStrategy) {
		e.timeout = d
	}
}

// WithEngineOption queues a setoption command for the handshake.
func WithEngineOption(name, value string) ExternalOption {
	return func(e *ExternalStrategy) {
		e.options = append(e.options, [2]string{name, value})
	}
}

// ExternalStrategy asks an engine process speaking the external engine
// protocol for each action. Answers that are not legal, and engine
// failures, fall back to the easy strategy.
type ExternalStrategy struct {
	moveTimeMs int
	timeout    time.Duration
	options    [][2]string

	mu       sync.Mutex
	engine   *eap.Engine
	fallback Strategy
}

// NewExternalStrategy starts the engine at enginePath and completes the
// handshake.
func NewExternalStrategy(ctx context.Context, enginePath string, opts ...ExternalOption) (*ExternalStrategy, error) {
	return newExternal(ctx, eap.NewEngine(enginePath), opts...)
}

func newExternal(ctx context.Context, engine *eap.Engine, opts ...ExternalOption) (*ExternalStrategy, error) {
	e := &ExternalStrategy{
		moveTimeMs: 2000,
		timeout:    5 * time.Second,
		engine:     engine,
		fallback:   EasyStrategy{},
	}
	for _, o := range opts {
		o(e)
	}
	engine.MoveTime = e.moveTimeMs
	if err := engine.Init(ctx); err != nil {
		return nil, fmt.Errorf("external strategy: %w", err)
	}
	for _, o := range e.options {
		if err := engine.SetOption(o[0], o[1]); err != nil {
			engine.Close()
			return nil, fmt.Errorf("external strategy: set %s: %w", o[0], err)
		}
	}
	if len(e.options) > 0 {
		if err := engine.IsReady(ctx); err != nil {
			engine.Close()
			return nil, fmt.Errorf("external strategy: %w", err)
		}
	}
	return e, nil
}

// newExternalOrFallback launches the engine, or logs and returns the easy
// strategy when it cannot be started.
func newExternalOrFallback(path string) Strategy {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := NewExternalStrategy(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("engine", path).Msg("External engine unavailable, using easy strategy")
		return EasyStrategy{}
	}
	return s
}

func (e *ExternalStrategy) Name() string { return "external" }

// EngineName returns the name the engine reported during the handshake.
func (e *ExternalStrategy) EngineName() string { return e.engine.ID.Name }

func (e *ExternalStrategy) ChooseAction(gs *campaign.GameState, g campaign.Graph, legal []campaign.LegalAction) campaign.Action {
	a, err := e.query(gs, legal)
	if err != nil {
		log.Warn().Err(err).
			Str("faction", string(gs.Current)).
			Str("phase", string(gs.Phase)).
			Msg("External engine failed, falling back to easy")
		return e.fallback.ChooseAction(gs, g, legal)
	}
	return a
}

func (e *ExternalStrategy) query(gs *campaign.GameState, legal []campaign.LegalAction) (campaign.Action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.engine.SetPosition(gs); err != nil {
		return campaign.Action{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	res, err := e.engine.BestAction(ctx)
	if err != nil {
		return campaign.Action{}, err
	}
	if res.Action.Kind == campaign.ActionUndo {
		return campaign.Action{}, fmt.Errorf("engine gave up")
	}
	want := campaign.FormatAction(res.Action)
	for _, la := range legal {
		if campaign.FormatAction(la.Action) == want {
			return la.Action, nil
		}
	}
	return campaign.Action{}, fmt.Errorf("engine chose %q, which is not legal", res.Notation)
}

// Close shuts the engine down.
func (e *ExternalStrategy) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.Close()
}

// EngineServer serves s over the external engine protocol, so built-in
// strategies can stand in for an engine process.
func EngineServer(s Strategy, g campaign.Graph) *eap.Server {
	return &eap.Server{
		Name:   "iron-alliance-" + s.Name(),
		Author: "iron-alliance",
		Search: func(_ context.Context, gs *campaign.GameState, _ eap.GoParams) (campaign.Action, error) {
			e, err := campaign.NewFromState(g, gs)
			if err != nil {
				return campaign.Action{}, err
			}
			legal := e.LegalActions()
			if len(legal) == 0 {
				return campaign.Action{}, fmt.Errorf("no legal actions")
			}
			return s.ChooseAction(e.State(), g, legal), nil
		},
	}
}
