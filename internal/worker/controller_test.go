package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/tomstetson/HomeTracker/internal/emporia"
	"github.com/tomstetson/HomeTracker/internal/power"
)

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	email    string
	password string
	credsErr error

	gid    string
	gidErr error

	readings []power.Reading
	storeErr error

	bumps   []int64
	bumpErr error
}

func (s *fakeStore) Credentials(context.Context) (string, string, error) {
	return s.email, s.password, s.credsErr
}

func (s *fakeStore) DeviceGID(context.Context) (string, error) {
	return s.gid, s.gidErr
}

func (s *fakeStore) SaveDeviceGID(_ context.Context, gid string) error {
	s.gid = gid
	return nil
}

func (s *fakeStore) StoreReading(_ context.Context, reading power.Reading) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.readings = append(s.readings, reading)
	return nil
}

func (s *fakeStore) BumpLearningStatus(_ context.Context, ts int64) error {
	if s.bumpErr != nil {
		return s.bumpErr
	}
	s.bumps = append(s.bumps, ts)
	return nil
}

// fakeClient is a scripted VueClient.
type fakeClient struct {
	loginErr   error
	loginCalls int

	devices      []emporia.Device
	devicesErr   error
	devicesCalls int

	usage      []emporia.ChannelUsage
	usageErr   error
	usageCalls int
}

func (c *fakeClient) Login(context.Context, string, string) error {
	c.loginCalls++
	return c.loginErr
}

func (c *fakeClient) Devices(context.Context) ([]emporia.Device, error) {
	c.devicesCalls++
	return c.devices, c.devicesErr
}

func (c *fakeClient) DeviceUsage(context.Context, string) ([]emporia.ChannelUsage, error) {
	c.usageCalls++
	return c.usage, c.usageErr
}

// recorder captures every emitted event.
type recorder struct {
	readings []ReadingEvent
	statuses []StatusEvent
	errors   []ErrorEvent
}

func (r *recorder) EmitReading(e ReadingEvent) { r.readings = append(r.readings, e) }
func (r *recorder) EmitStatus(e StatusEvent)   { r.statuses = append(r.statuses, e) }
func (r *recorder) EmitError(e ErrorEvent)     { r.errors = append(r.errors, e) }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// testConfig uses distinct durations so tests can tell the sleeps apart.
func testConfig() Config {
	return Config{
		PollInterval:           2 * time.Second,
		ConfigWait:             30 * time.Second,
		DiscoveryCooldown:      60 * time.Second,
		FailureCooldown:        10 * time.Second,
		ErrorCooldown:          60 * time.Second,
		MaxConsecutiveFailures: 5,
	}
}

// newTestController wires a controller around the fakes with a fixed clock.
func newTestController(t *testing.T, cfg Config, store *fakeStore, client *fakeClient) (*Controller, *recorder) {
	t.Helper()

	var factory ClientFactory
	if client != nil {
		factory = func() VueClient { return client }
	}

	rec := &recorder{}
	gen := power.NewGeneratorWithSource(rand.NewSource(42), func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	})

	ctrl := NewController(cfg, store, factory, rec, gen, nopLogger{})
	ctrl.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}
	return ctrl, rec
}

func mains(total float64) []emporia.ChannelUsage {
	return []emporia.ChannelUsage{{ChannelNum: "1,2,3", Usage: &total}}
}

func TestDemoCycle_StoresAndEmits(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig()
	cfg.DemoMode = true
	ctrl, rec := newTestController(t, cfg, store, &fakeClient{})

	delay := ctrl.runOnce(context.Background())

	if delay != cfg.PollInterval {
		t.Errorf("delay = %v, want %v", delay, cfg.PollInterval)
	}
	if len(store.readings) != 1 || len(store.bumps) != 1 {
		t.Fatalf("stored %d readings, %d bumps, want 1 and 1", len(store.readings), len(store.bumps))
	}
	if len(rec.readings) != 1 {
		t.Fatalf("emitted %d readings, want 1", len(rec.readings))
	}
	if !rec.readings[0].Demo {
		t.Error("demo reading emitted without demo flag")
	}
	if rec.readings[0].Type != "reading" {
		t.Errorf("event type = %q, want reading", rec.readings[0].Type)
	}
}

func TestDemoCycle_WithoutClientFactory(t *testing.T) {
	// A nil factory means no upstream is wired at all; the loop must fall
	// back to demo generation without DemoMode being set.
	store := &fakeStore{}
	ctrl, rec := newTestController(t, testConfig(), store, nil)

	ctrl.runOnce(context.Background())

	if len(rec.readings) != 1 || !rec.readings[0].Demo {
		t.Fatalf("events = %+v, want one demo reading", rec.readings)
	}
}

func TestDemoCycle_SchemaMissing(t *testing.T) {
	store := &fakeStore{storeErr: fmt.Errorf("inserting reading: %w", power.ErrSchemaMissing)}
	cfg := testConfig()
	cfg.DemoMode = true
	ctrl, rec := newTestController(t, cfg, store, &fakeClient{})

	delay := ctrl.runOnce(context.Background())

	if delay != cfg.ConfigWait {
		t.Errorf("delay = %v, want config wait %v", delay, cfg.ConfigWait)
	}
	if len(rec.statuses) != 1 || rec.statuses[0].Status != StatusWaitingForConfig {
		t.Fatalf("statuses = %+v, want single waiting_for_config", rec.statuses)
	}
	if len(rec.readings) != 0 {
		t.Errorf("emitted %d readings, want 0", len(rec.readings))
	}
}

func TestLiveCycle_NoCredentials(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{}
	cfg := testConfig()
	ctrl, rec := newTestController(t, cfg, store, client)

	delay := ctrl.runOnce(context.Background())

	if delay != cfg.ConfigWait {
		t.Errorf("delay = %v, want config wait %v", delay, cfg.ConfigWait)
	}
	if len(rec.statuses) != 1 || rec.statuses[0].Status != StatusWaitingForConfig {
		t.Fatalf("statuses = %+v, want single waiting_for_config", rec.statuses)
	}
	if client.loginCalls != 0 {
		t.Errorf("login attempted %d times without credentials", client.loginCalls)
	}
	if len(store.bumps) != 0 {
		t.Errorf("learning status bumped %d times without a reading", len(store.bumps))
	}
}

func TestLiveCycle_SchemaMissing(t *testing.T) {
	store := &fakeStore{credsErr: fmt.Errorf("querying credentials: %w", power.ErrSchemaMissing)}
	cfg := testConfig()
	ctrl, rec := newTestController(t, cfg, store, &fakeClient{})

	delay := ctrl.runOnce(context.Background())

	if delay != cfg.ConfigWait {
		t.Errorf("delay = %v, want config wait %v", delay, cfg.ConfigWait)
	}
	if len(rec.statuses) != 1 || rec.statuses[0].Status != StatusWaitingForConfig {
		t.Fatalf("statuses = %+v, want single waiting_for_config", rec.statuses)
	}
}

func TestConnect_NoDevices(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret"}
	client := &fakeClient{}
	cfg := testConfig()
	ctrl, rec := newTestController(t, cfg, store, client)

	delay := ctrl.runOnce(context.Background())

	if delay != cfg.DiscoveryCooldown {
		t.Errorf("delay = %v, want discovery cooldown %v", delay, cfg.DiscoveryCooldown)
	}
	if len(rec.errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", rec.errors)
	}
	if rec.errors[0].Error != "no_devices_found" {
		t.Errorf("error = %q, want no_devices_found", rec.errors[0].Error)
	}
	if rec.errors[0].RetryIn != 60 {
		t.Errorf("retry_in = %d, want 60", rec.errors[0].RetryIn)
	}
	if ctrl.conn.session() != nil {
		t.Error("session established despite empty device list")
	}
}

func TestConnect_DiscoversAndPersistsDevice(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret"}
	client := &fakeClient{devices: []emporia.Device{
		{DeviceGID: 12345, Model: "Vue2"},
		{DeviceGID: 67890, Model: "Vue2"},
	}}
	ctrl, rec := newTestController(t, testConfig(), store, client)

	delay := ctrl.runOnce(context.Background())

	if delay != 0 {
		t.Errorf("delay = %v, want immediate poll after connect", delay)
	}
	if store.gid != "12345" {
		t.Errorf("persisted gid = %q, want 12345", store.gid)
	}
	want := []StatusEvent{
		{Status: StatusConnecting},
		{Status: StatusConnected, DeviceGID: "12345"},
	}
	if len(rec.statuses) != 2 || rec.statuses[0] != want[0] || rec.statuses[1] != want[1] {
		t.Errorf("statuses = %+v, want %+v", rec.statuses, want)
	}
}

func TestConnect_ReusesPersistedDevice(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret", gid: "99999"}
	client := &fakeClient{}
	ctrl, rec := newTestController(t, testConfig(), store, client)

	ctrl.runOnce(context.Background())

	if client.devicesCalls != 0 {
		t.Errorf("device discovery called %d times with a persisted gid", client.devicesCalls)
	}
	if sess := ctrl.conn.session(); sess == nil || sess.deviceGID != "99999" {
		t.Fatalf("session = %+v, want device 99999", ctrl.conn.session())
	}
	if rec.statuses[len(rec.statuses)-1].DeviceGID != "99999" {
		t.Errorf("connected status = %+v, want device 99999", rec.statuses)
	}
}

func TestConnect_LoginFailure(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "wrong"}
	client := &fakeClient{loginErr: emporia.ErrLoginFailed}
	cfg := testConfig()
	ctrl, rec := newTestController(t, cfg, store, client)

	delay := ctrl.runOnce(context.Background())

	if delay != cfg.ErrorCooldown {
		t.Errorf("delay = %v, want error cooldown %v", delay, cfg.ErrorCooldown)
	}
	if len(rec.errors) != 1 || rec.errors[0].RetryIn != 60 {
		t.Fatalf("errors = %+v, want one with retry_in 60", rec.errors)
	}
	if ctrl.conn.session() != nil {
		t.Error("session established despite failed login")
	}
}

func TestPoll_SuccessStoresAndEmits(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret", gid: "12345"}
	client := &fakeClient{usage: mains(1234.567)}
	cfg := testConfig()
	ctrl, rec := newTestController(t, cfg, store, client)

	// First cycle connects, second polls.
	ctrl.runOnce(context.Background())
	delay := ctrl.runOnce(context.Background())

	if delay != cfg.PollInterval {
		t.Errorf("delay = %v, want poll interval %v", delay, cfg.PollInterval)
	}
	if len(store.readings) != 1 {
		t.Fatalf("stored %d readings, want 1", len(store.readings))
	}
	if store.readings[0].Total != 1234.567 {
		t.Errorf("stored total = %v, want unrounded 1234.567", store.readings[0].Total)
	}
	if len(store.bumps) != 1 || store.bumps[0] != store.readings[0].TS {
		t.Errorf("bumps = %v, want single bump at reading ts", store.bumps)
	}
	if len(rec.readings) != 1 {
		t.Fatalf("emitted %d readings, want 1", len(rec.readings))
	}
	if rec.readings[0].Total != 1234.57 {
		t.Errorf("emitted total = %v, want rounded 1234.57", rec.readings[0].Total)
	}
	if rec.readings[0].Demo {
		t.Error("live reading emitted with demo flag")
	}
}

func TestPoll_SuccessResetsFailureCount(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret", gid: "12345"}
	client := &fakeClient{usageErr: errors.New("timeout")}
	ctrl, _ := newTestController(t, testConfig(), store, client)

	ctx := context.Background()
	ctrl.runOnce(ctx) // connect
	ctrl.runOnce(ctx) // fail
	ctrl.runOnce(ctx) // fail
	if ctrl.failures != 2 {
		t.Fatalf("failures = %d after two failed polls, want 2", ctrl.failures)
	}

	client.usageErr = nil
	client.usage = mains(500)
	ctrl.runOnce(ctx)

	if ctrl.failures != 0 {
		t.Errorf("failures = %d after successful poll, want 0", ctrl.failures)
	}
}

func TestPoll_FailureBelowThresholdKeepsSession(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret", gid: "12345"}
	client := &fakeClient{usageErr: errors.New("connection reset")}
	cfg := testConfig()
	ctrl, rec := newTestController(t, cfg, store, client)

	ctx := context.Background()
	ctrl.runOnce(ctx) // connect
	delay := ctrl.runOnce(ctx)

	if delay != cfg.PollInterval {
		t.Errorf("delay = %v, want normal poll interval %v", delay, cfg.PollInterval)
	}
	if ctrl.conn.session() == nil {
		t.Error("session discarded below failure threshold")
	}
	if len(rec.errors) != 1 || rec.errors[0].Type != "poll_error" {
		t.Fatalf("errors = %+v, want one poll_error", rec.errors)
	}
	if rec.errors[0].Error != "connection reset" {
		t.Errorf("error = %q, want connection reset", rec.errors[0].Error)
	}
}

func TestPoll_FailureThresholdForcesReconnect(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret", gid: "12345"}
	client := &fakeClient{usageErr: errors.New("timeout")}
	cfg := testConfig()
	ctrl, rec := newTestController(t, cfg, store, client)

	ctx := context.Background()
	ctrl.runOnce(ctx) // connect

	var delay time.Duration
	for i := 0; i < cfg.MaxConsecutiveFailures; i++ {
		delay = ctrl.runOnce(ctx)
	}

	if delay != cfg.FailureCooldown {
		t.Errorf("delay = %v, want failure cooldown %v", delay, cfg.FailureCooldown)
	}
	if ctrl.conn.session() != nil {
		t.Error("session kept after reaching the failure threshold")
	}
	if ctrl.failures != 0 {
		t.Errorf("failures = %d after forced reconnect, want 0", ctrl.failures)
	}
	if len(rec.errors) != cfg.MaxConsecutiveFailures {
		t.Errorf("emitted %d errors, want one per failed poll (%d)", len(rec.errors), cfg.MaxConsecutiveFailures)
	}

	// The next cycle reconnects with a fresh login.
	logins := client.loginCalls
	ctrl.runOnce(ctx)
	if client.loginCalls != logins+1 {
		t.Errorf("login calls = %d, want a fresh login after reset", client.loginCalls)
	}
}

func TestPoll_NoDeviceData(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret", gid: "12345"}
	client := &fakeClient{usageErr: emporia.ErrNoDeviceData}
	ctrl, rec := newTestController(t, testConfig(), store, client)

	ctx := context.Background()
	ctrl.runOnce(ctx) // connect
	ctrl.runOnce(ctx)

	if len(rec.errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", rec.errors)
	}
	want := ErrorEvent{Error: "no_device_data", DeviceGID: "12345"}
	if rec.errors[0] != want {
		t.Errorf("error = %+v, want %+v", rec.errors[0], want)
	}
	if ctrl.failures != 1 {
		t.Errorf("failures = %d, want 1; no_device_data counts toward the threshold", ctrl.failures)
	}
}

func TestPoll_StoreFailureCountsAsPollFailure(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret", gid: "12345", storeErr: errors.New("disk I/O error")}
	client := &fakeClient{usage: mains(500)}
	ctrl, rec := newTestController(t, testConfig(), store, client)

	ctx := context.Background()
	ctrl.runOnce(ctx) // connect
	ctrl.runOnce(ctx)

	if ctrl.failures != 1 {
		t.Errorf("failures = %d, want 1", ctrl.failures)
	}
	if len(rec.errors) != 1 || rec.errors[0].Type != "poll_error" {
		t.Fatalf("errors = %+v, want one poll_error", rec.errors)
	}
	if len(rec.readings) != 0 {
		t.Errorf("emitted %d readings despite store failure, want 0", len(rec.readings))
	}
}

func TestRunOnce_RecoversFromPanic(t *testing.T) {
	store := &fakeStore{email: "a@b.c", password: "secret", gid: "12345"}
	client := &fakeClient{}
	cfg := testConfig()
	ctrl, rec := newTestController(t, cfg, store, client)

	ctx := context.Background()
	ctrl.runOnce(ctx) // connect

	// A nil generator dereference stands in for any unexpected fault.
	ctrl.conn.active.client = nil
	delay := ctrl.runOnce(ctx)

	if delay != cfg.ErrorCooldown {
		t.Errorf("delay = %v, want error cooldown %v", delay, cfg.ErrorCooldown)
	}
	if len(rec.errors) != 1 || rec.errors[0].RetryIn != 60 {
		t.Fatalf("errors = %+v, want one with retry_in 60", rec.errors)
	}
	if ctrl.conn.session() != nil {
		t.Error("session kept after a cycle panic")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig()
	cfg.DemoMode = true
	cfg.PollInterval = time.Millisecond
	ctrl, _ := newTestController(t, cfg, store, &fakeClient{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancellation")
	}

	if len(store.readings) == 0 {
		t.Error("Run() produced no readings before cancellation")
	}
}
