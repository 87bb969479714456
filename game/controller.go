package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/models"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

// ErrInvalidTransition is returned when a controller action does not apply to
// its current state.
var ErrInvalidTransition = errors.New("invalid controller transition")

// Channel carries a player's authoritative updates to the state store. Every call
// is fire-and-forget: an error is the caller's to log, not to retry.
type Channel interface {
	Join(rec models.PlayerRecord) error
	Update(rec models.PlayerRecord) error
	Leave(guid string) error
}

type State int

const (
	StateDisconnected State = iota
	StateJoining
	StateActive
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller binds one blob in a World to local input and to the channel. It is
// the only thing allowed to originate updates for that blob.
type Controller struct {
	mu sync.Mutex

	world *World
	ch    Channel
	cfg   config.Game
	rng   *rand.Rand

	state State
	guid  string

	onRemoved func(guid string)
}

// NewController starts Disconnected and watches the world for the owned blob
// being absorbed.
func NewController(world *World, ch Channel, cfg config.Game, seed uint64) *Controller {
	c := &Controller{
		world: world,
		ch:    ch,
		cfg:   cfg.Normalize(),
		rng:   rand.New(rand.NewSource(seed)),
		state: StateDisconnected,
	}
	world.OnOwnedRemoved(c.ownedAbsorbed)
	return c
}

// OnRemoved registers the user-visible hook fired on Active -> Removed.
func (c *Controller) OnRemoved(fn func(guid string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRemoved = fn
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GUID is the guid of the current or last owned blob.
func (c *Controller) GUID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guid
}

// Connect marks the channel as up: Disconnected -> Joining.
func (c *Controller) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDisconnected {
		return fmt.Errorf("%w: connect from %s", ErrInvalidTransition, c.state)
	}
	c.state = StateJoining
	return nil
}

// Join creates the owned blob with a fresh guid at a random spot, registers it
// with the store and goes Active. From Removed it is a rejoin; nothing of the old
// blob is reused.
func (c *Controller) Join(name string, style models.Style) (string, error) {
	c.mu.Lock()
	if c.state != StateJoining && c.state != StateRemoved {
		st := c.state
		c.mu.Unlock()
		return "", fmt.Errorf("%w: join from %s", ErrInvalidTransition, st)
	}
	c.state = StateJoining

	arena := c.world.Arena()
	guid := uuid.NewString()
	b := models.NewBlob(guid, name, c.cfg.Blob.Mass, c.rng.Float64()*arena.Width, c.rng.Float64()*arena.Height)
	b.SetStyle(style)

	c.world.AddBlob(b)
	c.world.SetOwned(guid)
	c.guid = guid
	c.state = StateActive
	c.mu.Unlock()

	if err := c.ch.Join(b.Record()); err != nil {
		log.Printf("[player] join %s: %v", guid, err)
	}
	return guid, nil
}

// Steer sets the owned blob's facing angle and thrust.
func (c *Controller) Steer(angle float64, moving bool) {
	c.mu.Lock()
	guid, active := c.guid, c.state == StateActive
	c.mu.Unlock()
	if !active {
		return
	}
	c.world.UpdateBlob(guid, func(b *models.Blob) {
		b.Steer(angle, moving)
	})
}

// Push sends the owned blob's full state. It is a no-op unless Active.
func (c *Controller) Push() {
	c.mu.Lock()
	guid, active := c.guid, c.state == StateActive
	c.mu.Unlock()
	if !active {
		return
	}
	b, ok := c.world.Blob(guid)
	if !ok {
		return
	}
	if err := c.ch.Update(b.Record()); err != nil {
		log.Printf("[player] update %s: %v", guid, err)
	}
}

// Run pushes state every 1000/tick_rate ms until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.TickPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Push()
		}
	}
}

// Leave is the explicit user exit: Active -> Removed.
func (c *Controller) Leave() error {
	c.mu.Lock()
	if c.state != StateActive {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: leave from %s", ErrInvalidTransition, st)
	}
	guid := c.guid
	c.state = StateRemoved
	hook := c.onRemoved
	c.mu.Unlock()

	c.world.RemoveBlob(guid)
	c.emitLeave(guid)
	if hook != nil {
		hook(guid)
	}
	return nil
}

// Disconnect drops the channel. An Active player leaves first.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	wasActive := c.state == StateActive
	guid := c.guid
	c.state = StateDisconnected
	c.mu.Unlock()

	if wasActive {
		c.world.RemoveBlob(guid)
		c.emitLeave(guid)
	}
}

func (c *Controller) ownedAbsorbed(guid string) {
	c.mu.Lock()
	if c.state != StateActive || guid != c.guid {
		c.mu.Unlock()
		return
	}
	c.state = StateRemoved
	hook := c.onRemoved
	c.mu.Unlock()

	c.emitLeave(guid)
	if hook != nil {
		hook(guid)
	}
}

func (c *Controller) emitLeave(guid string) {
	if err := c.ch.Leave(guid); err != nil {
		log.Printf("[player] leave %s: %v", guid, err)
	}
}
