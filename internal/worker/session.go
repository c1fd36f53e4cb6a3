package worker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomstetson/HomeTracker/internal/emporia"
	"github.com/tomstetson/HomeTracker/internal/power"
)

// VueClient is the slice of the cloud API client the worker needs.
// Satisfied by *emporia.Client.
type VueClient interface {
	Login(ctx context.Context, email, password string) error
	Devices(ctx context.Context) ([]emporia.Device, error)
	DeviceUsage(ctx context.Context, deviceGID string) ([]emporia.ChannelUsage, error)
}

// ClientFactory builds a fresh cloud client. A new client is created for
// every connection attempt so a discarded session leaves no stale token
// behind. A nil factory forces demo mode.
type ClientFactory func() VueClient

// Store is the persistence surface the worker needs.
// Satisfied by *power.SQLiteRepository.
type Store interface {
	Credentials(ctx context.Context) (email, password string, err error)
	DeviceGID(ctx context.Context) (string, error)
	SaveDeviceGID(ctx context.Context, gid string) error
	StoreReading(ctx context.Context, reading power.Reading) error
	BumpLearningStatus(ctx context.Context, ts int64) error
}

// session is an authenticated cloud client bound to one device.
type session struct {
	client    VueClient
	deviceGID string
}

// connectionManager owns the lazy connect / discard-and-rebuild lifecycle.
// Sessions are never repaired in place: any doubt about their health and
// the whole session is dropped, to be rebuilt on a later cycle.
type connectionManager struct {
	store     Store
	newClient ClientFactory
	active    *session
}

func newConnectionManager(store Store, factory ClientFactory) *connectionManager {
	return &connectionManager{
		store:     store,
		newClient: factory,
	}
}

// session returns the active session, or nil when disconnected.
func (m *connectionManager) session() *session {
	return m.active
}

// reset discards the active session. The next connect builds a new client
// and authenticates from scratch.
func (m *connectionManager) reset() {
	m.active = nil
}

// connect authenticates and resolves the device to poll.
//
// A previously persisted device GID is reused without a discovery call.
// Otherwise the account's devices are listed, the first one is chosen and
// its GID persisted for subsequent runs. An account with no devices
// returns ErrNoDevices and leaves the manager disconnected.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - email: Account email
//   - password: Account password
//
// Returns:
//   - string: GID of the connected device
//   - error: ErrNoDevices on an empty account, otherwise login or storage errors
func (m *connectionManager) connect(ctx context.Context, email, password string) (string, error) {
	client := m.newClient()

	if err := client.Login(ctx, email, password); err != nil {
		return "", fmt.Errorf("logging in: %w", err)
	}

	gid, err := m.store.DeviceGID(ctx)
	if err != nil {
		return "", fmt.Errorf("reading device gid: %w", err)
	}

	if gid == "" {
		devices, err := client.Devices(ctx)
		if err != nil {
			return "", fmt.Errorf("listing devices: %w", err)
		}
		if len(devices) == 0 {
			return "", ErrNoDevices
		}

		gid = strconv.FormatInt(devices[0].DeviceGID, 10)
		if err := m.store.SaveDeviceGID(ctx, gid); err != nil {
			return "", fmt.Errorf("persisting device gid: %w", err)
		}
	}

	m.active = &session{client: client, deviceGID: gid}
	return gid, nil
}
