package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"craftcloud/internal/catalog"
	"craftcloud/internal/domain"
	"craftcloud/pkg/sdk"
)

type fakeDeployer struct {
	calls   atomic.Int32
	gate    chan struct{}
	entered chan struct{}
	err     error
	mu      sync.Mutex
	last    domain.DeploymentRequest
}

func (f *fakeDeployer) Deploy(_ context.Context, req domain.DeploymentRequest) (*sdk.Ack, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return &sdk.Ack{Status: "success", ContainerID: req.TemplateID + "-1"}, nil
}

type countingRefresher struct{ calls atomic.Int32 }

func (c *countingRefresher) RefreshNow() { c.calls.Add(1) }

type transitionLog struct {
	mu  sync.Mutex
	all []Transition
}

func (l *transitionLog) record(tr Transition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, tr)
}

func (l *transitionLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]State, len(l.all))
	for i, tr := range l.all {
		out[i] = tr.To
	}
	return out
}

func newTestTracker(deployer Deployer, refresher Refresher, log *transitionLog) *Tracker {
	return NewTracker(TrackerConfig{
		Catalog:   catalog.Default(),
		Deployer:  deployer,
		Refresher: refresher,
		Observer:  log.record,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestValheimDeploySucceeds(t *testing.T) {
	deployer := &fakeDeployer{}
	refresher := &countingRefresher{}
	log := &transitionLog{}
	tracker := newTestTracker(deployer, refresher, log)

	attempt, err := tracker.Trigger(context.Background(), "valheim", map[string]string{"VALHEIM_SERVER_NAME": "X"})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if attempt.State != Succeeded || tracker.State("valheim") != Succeeded {
		t.Errorf("expected Succeeded, got %s / %s", attempt.State, tracker.State("valheim"))
	}
	if refresher.calls.Load() != 1 {
		t.Errorf("expected exactly one out-of-band refresh, got %d", refresher.calls.Load())
	}
	if deployer.last.Config["VALHEIM_SERVER_NAME"] != "X" {
		t.Errorf("config not forwarded: %v", deployer.last.Config)
	}
	if got := log.states(); len(got) != 2 || got[0] != Submitting || got[1] != Succeeded {
		t.Errorf("unexpected transitions %v", got)
	}
}

func TestDeployFailureIsNotRetried(t *testing.T) {
	deployer := &fakeDeployer{err: &sdk.FetchError{Kind: sdk.FetchServer, Status: 402, Detail: "Insufficient credits."}}
	refresher := &countingRefresher{}
	log := &transitionLog{}
	tracker := newTestTracker(deployer, refresher, log)

	attempt, err := tracker.Trigger(context.Background(), "minecraft", nil)
	var fetchErr *sdk.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if attempt.State != Failed {
		t.Errorf("expected Failed, got %s", attempt.State)
	}
	if deployer.calls.Load() != 1 {
		t.Errorf("expected a single deploy call, got %d", deployer.calls.Load())
	}
	if refresher.calls.Load() != 0 {
		t.Error("failed deploy must not trigger a refresh")
	}

	// A fresh trigger re-arms the control.
	deployer.err = nil
	attempt, err = tracker.Trigger(context.Background(), "minecraft", nil)
	if err != nil || attempt.State != Succeeded {
		t.Errorf("retry by user should succeed, got %s %v", attempt.State, err)
	}
	if got := log.all[2].From; got != Failed {
		t.Errorf("second attempt should start from Failed, got %s", got)
	}
}

func TestTriggerWhileSubmittingIsNoop(t *testing.T) {
	deployer := &fakeDeployer{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	tracker := newTestTracker(deployer, &countingRefresher{}, &transitionLog{})

	done := make(chan error, 1)
	go func() {
		_, err := tracker.Trigger(context.Background(), "rust", nil)
		done <- err
	}()
	<-deployer.entered

	if tracker.State("rust") != Submitting {
		t.Fatalf("expected Submitting, got %s", tracker.State("rust"))
	}
	_, err := tracker.Trigger(context.Background(), "rust", nil)
	if !errors.Is(err, ErrInFlight) {
		t.Errorf("expected ErrInFlight, got %v", err)
	}

	close(deployer.gate)
	if err := <-done; err != nil {
		t.Fatalf("first trigger failed: %v", err)
	}
	if deployer.calls.Load() != 1 {
		t.Errorf("expected one network call, got %d", deployer.calls.Load())
	}
}

func TestTemplatesAreIndependent(t *testing.T) {
	deployer := &fakeDeployer{gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	tracker := newTestTracker(deployer, &countingRefresher{}, &transitionLog{})

	var wg sync.WaitGroup
	for _, id := range []string{"rust", "palworld"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tracker.Trigger(context.Background(), id, nil); err != nil {
				t.Errorf("%s: %v", id, err)
			}
		}()
	}
	<-deployer.entered
	<-deployer.entered
	close(deployer.gate)
	wg.Wait()

	if deployer.calls.Load() != 2 {
		t.Errorf("expected two deploys, got %d", deployer.calls.Load())
	}
}

func TestTriggerValidation(t *testing.T) {
	deployer := &fakeDeployer{}
	log := &transitionLog{}
	tracker := newTestTracker(deployer, &countingRefresher{}, log)

	if _, err := tracker.Trigger(context.Background(), "factorio", nil); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}

	_, err := tracker.Trigger(context.Background(), "valheim", map[string]string{"VALHEIM_WORLD_NAME": "W"})
	var missing *catalog.MissingConfigError
	if !errors.As(err, &missing) {
		t.Errorf("expected MissingConfigError, got %v", err)
	}
	if tracker.State("valheim") != Idle {
		t.Errorf("rejected config must leave the control Idle, got %s", tracker.State("valheim"))
	}
	if deployer.calls.Load() != 0 || len(log.states()) != 0 {
		t.Error("validation failures must not reach the backend or transition")
	}
}

func TestNonConfigurableTemplateSendsEmptyConfig(t *testing.T) {
	deployer := &fakeDeployer{}
	tracker := newTestTracker(deployer, &countingRefresher{}, &transitionLog{})

	if _, err := tracker.Trigger(context.Background(), "palworld", map[string]string{"STRAY": "1"}); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if deployer.last.Config == nil || len(deployer.last.Config) != 0 {
		t.Errorf("expected empty config, got %v", deployer.last.Config)
	}
}
