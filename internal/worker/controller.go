package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomstetson/HomeTracker/internal/emporia"
	"github.com/tomstetson/HomeTracker/internal/power"
)

// Config carries the poll loop timing and failure policy. Callers build it
// from the application configuration; keeping plain durations here keeps
// the loop independent of the configuration package.
type Config struct {
	// PollInterval is the delay between poll cycles.
	PollInterval time.Duration

	// ConfigWait is the sleep applied while credentials are absent or the
	// schema has not been migrated yet.
	ConfigWait time.Duration

	// DiscoveryCooldown is the sleep applied after the account reports an
	// empty device list.
	DiscoveryCooldown time.Duration

	// FailureCooldown is the sleep applied after a forced reconnect.
	FailureCooldown time.Duration

	// ErrorCooldown is the sleep applied after an unclassified cycle error.
	ErrorCooldown time.Duration

	// MaxConsecutiveFailures is the number of failed polls that forces the
	// session to be torn down and rebuilt.
	MaxConsecutiveFailures int

	// DemoMode forces the synthetic generator even when a client factory
	// is available.
	DemoMode bool
}

// Controller runs the poll loop: one cycle fetches (or generates) a
// reading, persists it, updates the learning counters and emits it.
//
// The loop is deliberately single-threaded. Cycles never overlap, failure
// counting needs no locking, and every sleep is a plain context-aware wait.
type Controller struct {
	cfg      Config
	store    Store
	emitter  Emitter
	gen      *power.Generator
	conn     *connectionManager
	log      Logger
	failures int
	now      func() time.Time
}

// NewController creates a poll loop controller.
//
// Parameters:
//   - cfg: Timing and failure policy
//   - store: Persistence gateway
//   - factory: Builds cloud clients; nil forces demo mode
//   - emitter: Event sink (stdout stream plus any mirrors)
//   - gen: Synthetic reading generator for demo mode
//   - log: Logger for operational messages
//
// Returns:
//   - *Controller: Controller ready for Run
func NewController(cfg Config, store Store, factory ClientFactory, emitter Emitter, gen *power.Generator, log Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		store:   store,
		emitter: emitter,
		gen:     gen,
		conn:    newConnectionManager(store, factory),
		log:     log,
		now:     time.Now,
	}
}

// Run executes poll cycles until the context is cancelled.
//
// Cancellation is the only exit: every failure inside a cycle is emitted
// and absorbed, never returned.
//
// Parameters:
//   - ctx: Context whose cancellation stops the loop
//
// Returns:
//   - error: Always nil; the signature matches the run group convention
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("poll loop started",
		"demo_mode", c.cfg.DemoMode || c.conn.newClient == nil,
		"poll_interval", c.cfg.PollInterval,
	)

	for {
		if ctx.Err() != nil {
			c.log.Info("poll loop stopped")
			return nil
		}

		delay := c.runOnce(ctx)
		if delay <= 0 {
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.log.Info("poll loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// runOnce executes a single poll cycle and returns the delay before the
// next one. A zero delay means the next cycle should run immediately.
//
// A panic inside a cycle is treated as an unclassified error: the session
// is discarded and the loop cools down rather than crashing the worker.
func (c *Controller) runOnce(ctx context.Context) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.handleUnclassified(fmt.Errorf("cycle panic: %v", r))
			delay = c.cfg.ErrorCooldown
		}
	}()

	if c.cfg.DemoMode || c.conn.newClient == nil {
		return c.demoCycle(ctx)
	}
	return c.liveCycle(ctx)
}

// demoCycle generates one synthetic reading, persists and emits it.
func (c *Controller) demoCycle(ctx context.Context) time.Duration {
	reading := c.gen.Reading()

	if err := c.persist(ctx, reading); err != nil {
		if errors.Is(err, power.ErrSchemaMissing) {
			c.emitter.EmitStatus(StatusEvent{Status: StatusWaitingForConfig})
			return c.cfg.ConfigWait
		}
		c.handleUnclassified(err)
		return c.cfg.ErrorCooldown
	}

	c.emitter.EmitReading(NewReadingEvent(reading, true))
	return c.cfg.PollInterval
}

// liveCycle runs one cycle against the cloud API: gate on credentials,
// connect if needed, then poll the active session.
func (c *Controller) liveCycle(ctx context.Context) time.Duration {
	email, password, err := c.store.Credentials(ctx)
	if err != nil {
		if errors.Is(err, power.ErrSchemaMissing) {
			c.emitter.EmitStatus(StatusEvent{Status: StatusWaitingForConfig})
			return c.cfg.ConfigWait
		}
		c.handleUnclassified(err)
		return c.cfg.ErrorCooldown
	}
	if email == "" || password == "" {
		c.emitter.EmitStatus(StatusEvent{Status: StatusWaitingForConfig})
		return c.cfg.ConfigWait
	}

	if c.conn.session() == nil {
		c.emitter.EmitStatus(StatusEvent{Status: StatusConnecting})

		gid, err := c.conn.connect(ctx, email, password)
		if err != nil {
			if errors.Is(err, ErrNoDevices) {
				c.emitter.EmitError(ErrorEvent{
					Error:   errNoDevicesFound,
					RetryIn: seconds(c.cfg.DiscoveryCooldown),
				})
				return c.cfg.DiscoveryCooldown
			}
			c.handleUnclassified(err)
			return c.cfg.ErrorCooldown
		}

		c.log.Info("connected to device", "device_gid", gid)
		c.emitter.EmitStatus(StatusEvent{Status: StatusConnected, DeviceGID: gid})
		c.failures = 0
		// Poll straight away on the fresh session.
		return 0
	}

	return c.poll(ctx)
}

// poll fetches one snapshot from the active session, normalizes, persists
// and emits it. Any failure counts toward the forced-reconnect threshold.
func (c *Controller) poll(ctx context.Context) time.Duration {
	sess := c.conn.session()

	channels, err := sess.client.DeviceUsage(ctx, sess.deviceGID)
	if err != nil {
		return c.handlePollFailure(sess.deviceGID, err)
	}

	reading := power.Normalize(c.now().Unix(), toChannels(channels))
	if err := c.persist(ctx, reading); err != nil {
		return c.handlePollFailure(sess.deviceGID, err)
	}

	c.failures = 0
	c.emitter.EmitReading(NewReadingEvent(reading, false))
	return c.cfg.PollInterval
}

// persist stores a reading and bumps the learning counters. The two writes
// are separate statements; a reading that stores but fails to count is
// acceptable, the counter is advisory.
func (c *Controller) persist(ctx context.Context, reading power.Reading) error {
	if err := c.store.StoreReading(ctx, reading); err != nil {
		return err
	}
	if err := c.store.BumpLearningStatus(ctx, reading.TS); err != nil {
		return err
	}
	return nil
}

// handlePollFailure emits the failure, counts it and forces a reconnect at
// the threshold. Below the threshold the loop keeps the session and retries
// at the normal cadence.
func (c *Controller) handlePollFailure(deviceGID string, err error) time.Duration {
	c.failures++

	event := ErrorEvent{Error: err.Error(), Type: errTypePollError}
	if errors.Is(err, emporia.ErrNoDeviceData) {
		event = ErrorEvent{Error: errNoDeviceData, DeviceGID: deviceGID}
	}
	c.emitter.EmitError(event)

	if c.failures >= c.cfg.MaxConsecutiveFailures {
		c.log.Warn("consecutive poll failures reached threshold, reconnecting",
			"failures", c.failures,
			"device_gid", deviceGID,
		)
		c.conn.reset()
		c.failures = 0
		return c.cfg.FailureCooldown
	}

	c.log.Debug("poll failed", "failures", c.failures, "error", err)
	return c.cfg.PollInterval
}

// handleUnclassified emits a generic error and discards the session.
// Rebuilding from scratch after the cooldown is always safe, whatever the
// actual fault was.
func (c *Controller) handleUnclassified(err error) {
	c.log.Error("poll cycle error", "error", err)
	c.emitter.EmitError(ErrorEvent{
		Error:   err.Error(),
		RetryIn: seconds(c.cfg.ErrorCooldown),
	})
	c.conn.reset()
	c.failures = 0
}

// toChannels converts cloud API channel snapshots into their normalized form.
func toChannels(usages []emporia.ChannelUsage) []power.Channel {
	channels := make([]power.Channel, 0, len(usages))
	for _, u := range usages {
		channels = append(channels, power.Channel{
			Num:   u.ChannelNum,
			Name:  u.Name,
			Usage: u.Usage,
		})
	}
	return channels
}

// seconds converts a duration to whole seconds for the retry_in field.
func seconds(d time.Duration) int {
	return int(d / time.Second)
}
