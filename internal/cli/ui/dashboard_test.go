package ui

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"craftcloud/internal/catalog"
	"craftcloud/internal/dashboard"
	"craftcloud/internal/deploy"
	"craftcloud/internal/domain"
	"craftcloud/internal/payment"
	"craftcloud/pkg/sdk"

	tea "github.com/charmbracelet/bubbletea"
)

type countingRefresher struct{ calls atomic.Int32 }

func (c *countingRefresher) Refresh(context.Context) domain.Snapshot {
	c.calls.Add(1)
	return domain.Snapshot{Servers: []domain.ServerDetail{}}
}

type fakeBackend struct {
	mu      sync.Mutex
	power   []string
	deploys []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/power"):
		var req sdk.PowerRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.power = append(b.power, req.Action)
		json.NewEncoder(w).Encode(sdk.Ack{Status: "success"})
	case r.URL.Path == "/servers/deploy":
		var req sdk.DeployRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.deploys = append(b.deploys, req.GameID)
		json.NewEncoder(w).Encode(sdk.Ack{Status: "success", ContainerID: req.GameID + "-1"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestModel(t *testing.T) (model, *countingRefresher, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := sdk.NewClient(sdk.ClientConfig{BaseURL: server.URL, Logger: logger})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.NewSession(sdk.NewMemoryStore("tok"))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	refresher := &countingRefresher{}
	heartbeat := dashboard.NewHeartbeat(dashboard.HeartbeatConfig{Refresher: refresher, Logger: logger})
	games := catalog.Default()
	tracker := deploy.NewTracker(deploy.TrackerConfig{
		Catalog:   games,
		Deployer:  session,
		Refresher: heartbeat,
		Logger:    logger,
	})
	m := newModel(context.Background(), session, heartbeat, tracker, payment.NewStore(session, logger), games)
	return m, refresher, backend
}

func press(m model, key string) (model, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func send(m model, msg tea.Msg) (model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func onlineServer(id string) domain.ServerDetail {
	cpu, ram, players := 10.0, 20.0, 2
	return domain.ServerDetail{
		ServerSummary: domain.ServerSummary{ID: id, Name: "srv " + id, Status: domain.StatusOnline},
		CPU:           &cpu,
		RAM:           &ram,
		Players:       &players,
	}
}

func TestSnapshotKeepsLastKnownProfile(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = send(m, snapshotMsg{Seq: 1, Servers: []domain.ServerDetail{onlineServer("a")}, User: &domain.UserProfile{Username: "alice", Credits: 12.5}})
	m, _ = send(m, snapshotMsg{Seq: 2, Servers: []domain.ServerDetail{}})

	if m.user == nil || m.user.Username != "alice" {
		t.Errorf("profile should survive a snapshot without one, got %+v", m.user)
	}
	if len(m.servers) != 0 || len(m.table.Rows()) != 0 {
		t.Errorf("fleet should be replaced wholesale, got %d servers", len(m.servers))
	}
}

func TestSessionEndQuits(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, cmd := send(m, sessionEndedMsg{})
	if !m.expired {
		t.Error("expected expired flag")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestManualRefreshIsRateLimited(t *testing.T) {
	m, refresher, _ := newTestModel(t)

	for i := 0; i < 3; i++ {
		m, _ = press(m, "r")
	}
	m.heartbeat.Wait()

	if refresher.calls.Load() != 2 {
		t.Errorf("expected 2 refreshes within the burst, got %d", refresher.calls.Load())
	}
	if !strings.Contains(m.message, "Slow down") {
		t.Errorf("expected rate limit message, got %q", m.message)
	}
}

func TestPowerToggleStopsOnlineServer(t *testing.T) {
	m, refresher, backend := newTestModel(t)
	m, _ = send(m, snapshotMsg{Seq: 1, Servers: []domain.ServerDetail{onlineServer("a")}})

	m, cmd := press(m, "p")
	if cmd == nil {
		t.Fatal("expected power command")
	}
	result, ok := cmd().(actionResultMsg)
	if !ok || !strings.Contains(string(result), "stop") {
		t.Errorf("unexpected result %v", result)
	}
	m.heartbeat.Wait()

	if len(backend.power) != 1 || backend.power[0] != sdk.PowerStop {
		t.Errorf("expected one stop request, got %v", backend.power)
	}
	if refresher.calls.Load() != 1 {
		t.Errorf("expected one refresh after power, got %d", refresher.calls.Load())
	}
}

func TestStartOnOnlineServerIsRefused(t *testing.T) {
	m, _, backend := newTestModel(t)
	m, _ = send(m, snapshotMsg{Seq: 1, Servers: []domain.ServerDetail{onlineServer("a")}})

	m, _ = press(m, "s")
	if !strings.Contains(m.message, "already online") {
		t.Errorf("unexpected message %q", m.message)
	}
	if len(backend.power) != 0 {
		t.Errorf("no request expected, got %v", backend.power)
	}
}

func TestDeployFromCatalog(t *testing.T) {
	m, refresher, backend := newTestModel(t)

	m, _ = press(m, "c")
	m, _ = press(m, "down") // minecraft
	m, cmd := press(m, "enter")
	if cmd == nil {
		t.Fatal("expected deploy command")
	}
	done, ok := cmd().(deployDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("unexpected deploy result %+v", done)
	}
	m, _ = send(m, done)
	m.heartbeat.Wait()

	if len(backend.deploys) != 1 || backend.deploys[0] != "minecraft" {
		t.Errorf("unexpected deploys %v", backend.deploys)
	}
	if refresher.calls.Load() != 1 {
		t.Errorf("expected one refresh after deploy, got %d", refresher.calls.Load())
	}
	if !strings.Contains(m.message, "minecraft-1") {
		t.Errorf("unexpected message %q", m.message)
	}
}

func TestDeployFormRequiresServerName(t *testing.T) {
	m, _, backend := newTestModel(t)

	m, _ = press(m, "c")
	m, _ = press(m, "enter") // valheim
	if m.screen != screenDeployForm || m.form == nil {
		t.Fatalf("expected deploy form, got screen %d", m.screen)
	}

	m.form.inputs[0].SetValue("   ")
	m.form.focus = len(m.form.inputs) - 1
	m, cmd := press(m, "enter")

	if cmd != nil {
		t.Error("no deploy should be issued")
	}
	if m.screen != screenDeployForm || !strings.Contains(m.form.err, "VALHEIM_SERVER_NAME") {
		t.Errorf("expected form error, got %q", m.form.err)
	}
	if len(backend.deploys) != 0 {
		t.Errorf("unexpected deploys %v", backend.deploys)
	}
}

func TestTransitionUpdatesCatalogLabel(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = send(m, transitionMsg{TemplateID: "rust", From: deploy.Submitting, To: deploy.Failed,
		Err: &sdk.FetchError{Kind: sdk.FetchServer, Status: 402, Detail: "Insufficient credits."}})

	if got := m.deployLabel("rust"); !strings.Contains(got, "Insufficient credits.") {
		t.Errorf("unexpected label %q", got)
	}

	m, _ = send(m, transitionMsg{TemplateID: "rust", From: deploy.Failed, To: deploy.Submitting})
	if _, ok := m.deployErrors["rust"]; ok {
		t.Error("new attempt should clear the previous error")
	}
}
