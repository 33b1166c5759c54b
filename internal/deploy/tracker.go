package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"craftcloud/internal/catalog"
	"craftcloud/internal/domain"
	"craftcloud/pkg/sdk"

	"github.com/google/uuid"
)

type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrInFlight is returned when a template already has a deploy being
	// submitted. No request is issued.
	ErrInFlight        = errors.New("deployment already in progress")
	ErrUnknownTemplate = errors.New("unknown template")
)

// Deployer issues the deploy call. *sdk.Session satisfies it.
type Deployer interface {
	Deploy(ctx context.Context, req domain.DeploymentRequest) (*sdk.Ack, error)
}

// Refresher is asked for one out-of-band dashboard refresh after a
// successful deploy. *dashboard.Heartbeat satisfies it.
type Refresher interface {
	RefreshNow()
}

type Attempt struct {
	ID         string
	TemplateID string
	State      State
	Config     map[string]string
	Ack        *sdk.Ack
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

type Transition struct {
	TemplateID string
	AttemptID  string
	From       State
	To         State
	Err        error
}

type TrackerConfig struct {
	Catalog   *catalog.Catalog
	Deployer  Deployer
	Refresher Refresher
	// Observer receives every state change, outside the tracker lock.
	Observer func(Transition)
	Logger   *slog.Logger
}

// Tracker holds one deployment attempt per template. Attempts on
// different templates are independent.
type Tracker struct {
	catalog   *catalog.Catalog
	deployer  Deployer
	refresher Refresher
	observer  func(Transition)
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	attempts map[string]*Attempt
}

func NewTracker(config TrackerConfig) *Tracker {
	t := &Tracker{
		catalog:   config.Catalog,
		deployer:  config.Deployer,
		refresher: config.Refresher,
		observer:  config.Observer,
		logger:    config.Logger,
		now:       time.Now,
		attempts:  make(map[string]*Attempt),
	}
	if t.catalog == nil {
		t.catalog = catalog.Default()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.observer == nil {
		t.observer = func(Transition) {}
	}
	return t
}

func (t *Tracker) State(templateID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.attempts[templateID]; ok {
		return a.State
	}
	return Idle
}

func (t *Tracker) Attempt(templateID string) (Attempt, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.attempts[templateID]
	if !ok {
		return Attempt{}, false
	}
	return *a, true
}

// Trigger deploys templateID and blocks until the attempt is terminal.
// While an attempt for the same template is Submitting, Trigger returns
// ErrInFlight and does nothing. A failed deploy is not retried.
func (t *Tracker) Trigger(ctx context.Context, templateID string, config map[string]string) (Attempt, error) {
	tmpl, ok := t.catalog.Get(templateID)
	if !ok {
		return Attempt{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}

	normalized, dropped, err := tmpl.Normalize(config)
	if err != nil {
		return Attempt{}, err
	}
	if len(dropped) > 0 {
		t.logger.Debug("ignoring undeclared config keys", "template", templateID, "keys", dropped)
	}

	t.mu.Lock()
	from := Idle
	if current, ok := t.attempts[templateID]; ok {
		if current.State == Submitting {
			t.mu.Unlock()
			return *current, ErrInFlight
		}
		from = current.State
	}
	attempt := &Attempt{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		State:      Submitting,
		Config:     normalized,
		StartedAt:  t.now(),
	}
	t.attempts[templateID] = attempt
	t.mu.Unlock()

	t.logger.Info("deploying server", "template", templateID, "attempt", attempt.ID)
	t.observer(Transition{TemplateID: templateID, AttemptID: attempt.ID, From: from, To: Submitting})

	ack, deployErr := t.deployer.Deploy(ctx, domain.DeploymentRequest{TemplateID: templateID, Config: normalized})

	t.mu.Lock()
	attempt.FinishedAt = t.now()
	if deployErr != nil {
		attempt.State = Failed
		attempt.Err = deployErr
	} else {
		attempt.State = Succeeded
		attempt.Ack = ack
	}
	result := *attempt
	t.mu.Unlock()

	t.observer(Transition{TemplateID: templateID, AttemptID: attempt.ID, From: Submitting, To: result.State, Err: deployErr})

	if deployErr != nil {
		t.logger.Warn("deploy failed", "template", templateID, "attempt", attempt.ID, "error", deployErr)
		return result, fmt.Errorf("deploy %s: %w", templateID, deployErr)
	}

	t.logger.Info("deploy accepted", "template", templateID, "attempt", attempt.ID)
	if t.refresher != nil {
		t.refresher.RefreshNow()
	}
	return result, nil
}
