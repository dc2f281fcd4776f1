// Package matrix relays chat for the classroom through a Matrix room.
//
// An authenticated client logs in with a password, joins the room and follows
// it with mautrix's sync loop. A guest client cannot send and instead polls
// the room's message history, deduplicating by event id.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"blackboard/tools/errs"
	"blackboard/tools/logger"
)

const (
	// DefaultHomeserver is the classroom's Matrix server
	DefaultHomeserver = "https://matrix.inquiry.institute"

	// DefaultPollInterval is how often a guest polls the room history
	DefaultPollInterval = 2 * time.Second

	historyLimit = 50
)

var (
	ErrNotConnected = errors.New("not connected to matrix")
	ErrGuest        = errors.New("guests cannot send messages")
)

// Message is one chat line from the room
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Callback receives delivered messages
type Callback func(Message)

type subscriber struct {
	key int
	cb  Callback
}

// Client follows one room through a mautrix client
type Client struct {
	mx           *mautrix.Client
	roomID       id.RoomID
	pollInterval time.Duration
	log          *logger.Logger

	mu            sync.Mutex
	userID        string
	connected     bool
	authenticated bool
	hooked        bool
	subscribers   []subscriber
	nextSub       int
	seen          map[id.EventID]bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New creates a client for roomID on homeserver
func New(homeserver, roomID string, log *logger.Logger) (*Client, error) {
	if homeserver == "" {
		homeserver = DefaultHomeserver
	}
	if log == nil {
		log = logger.Default()
	}
	mx, err := mautrix.NewClient(homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("invalid homeserver %q: %w", homeserver, err)
	}
	return &Client{
		mx:           mx,
		roomID:       id.RoomID(roomID),
		pollInterval: DefaultPollInterval,
		log:          log.WithPrefix("matrix"),
		seen:         make(map[id.EventID]bool),
	}, nil
}

// SetPollInterval changes the guest polling interval
func (c *Client) SetPollInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollInterval = d
}

// Connected reports whether a connect call succeeded and Disconnect has not
// been called since
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Authenticated reports whether the client can send
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && c.authenticated
}

// UserID returns the logged in user, empty for guests
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// --- Connection ---

// Connect logs in with a password, joins the room and starts syncing
func (c *Client) Connect(ctx context.Context, user, password string) error {
	done := c.log.Step("matrix login")
	defer done()

	login, err := c.mx.Login(ctx, &mautrix.ReqLogin{
		Type:             mautrix.AuthTypePassword,
		Identifier:       mautrix.UserIdentifier{Type: mautrix.IdentifierTypeUser, User: user},
		Password:         password,
		StoreCredentials: true,
	})
	if err != nil {
		return fmt.Errorf("%w: login failed: %v", errs.ErrTransport, err)
	}

	if _, err := c.mx.JoinRoomByID(ctx, c.roomID); err != nil {
		return fmt.Errorf("%w: join %s failed: %v", errs.ErrTransport, c.roomID, err)
	}
	c.log.Info("joined %s as %s", c.roomID, login.UserID)

	if err := c.hook(); err != nil {
		return err
	}

	c.mu.Lock()
	c.userID = login.UserID.String()
	c.authenticated = true
	c.mu.Unlock()

	c.start(func(ctx context.Context) {
		if err := c.mx.SyncWithContext(ctx); err != nil && ctx.Err() == nil {
			c.log.Error("sync stopped: %v", err)
		}
	})
	return nil
}

// hook registers the sync handlers once. The first sync only establishes
// the position; history is not replayed.
func (c *Client) hook() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hooked {
		return nil
	}
	syncer, ok := c.mx.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unsupported syncer %T", c.mx.Syncer)
	}
	syncer.OnSync(func(_ context.Context, _ *mautrix.RespSync, since string) bool {
		return since != ""
	})
	syncer.OnEventType(event.EventMessage, func(_ context.Context, evt *event.Event) {
		if msg, ok := c.accept(evt); ok {
			c.deliver(msg)
		}
	})
	c.hooked = true
	return nil
}

// ConnectAsGuest follows the room by polling its history without logging in
func (c *Client) ConnectAsGuest(ctx context.Context) error {
	c.start(c.pollLoop)
	return nil
}

func (c *Client) start(loop func(context.Context)) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.connected = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		loop(ctx)
	}()
}

// Disconnect stops following the room and drops every subscriber
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.connected = false
	c.subscribers = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// --- Messages ---

// SendMessage posts text to the room. Only logged in clients can send.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	c.mu.Lock()
	connected, authenticated := c.connected, c.authenticated
	c.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if !authenticated {
		return ErrGuest
	}
	if _, err := c.mx.SendText(ctx, c.roomID, text); err != nil {
		return fmt.Errorf("%w: send failed: %v", errs.ErrTransport, err)
	}
	return nil
}

// OnMessage subscribes cb to delivered messages. The returned func removes it.
func (c *Client) OnMessage(cb Callback) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	key := c.nextSub
	c.subscribers = append(c.subscribers, subscriber{key: key, cb: cb})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subscribers {
			if s.key == key {
				c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) deliver(msg Message) {
	c.mu.Lock()
	subs := append([]subscriber(nil), c.subscribers...)
	c.mu.Unlock()

	c.log.Message(msg.Sender, msg.Content)
	for _, s := range subs {
		c.safeCall(s.cb, msg)
	}
}

func (c *Client) safeCall(cb Callback, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("message callback panicked: %v", r)
		}
	}()
	cb(msg)
}

// accept marks evt seen and converts it, reporting false for events from
// other rooms, non-text events and events already delivered
func (c *Client) accept(evt *event.Event) (Message, bool) {
	if evt.Type.Type != event.EventMessage.Type {
		return Message{}, false
	}
	if evt.RoomID != "" && evt.RoomID != c.roomID {
		return Message{}, false
	}
	body, ok := textBody(evt)
	if !ok {
		return Message{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[evt.ID] {
		return Message{}, false
	}
	c.seen[evt.ID] = true

	ts := time.Now()
	if evt.Timestamp > 0 {
		ts = time.UnixMilli(evt.Timestamp)
	}
	return Message{ID: evt.ID.String(), Sender: evt.Sender.String(), Content: body, Timestamp: ts}, true
}

// textBody reads an m.text body whether or not the syncer parsed the content.
// History pages arrive unparsed.
func textBody(evt *event.Event) (string, bool) {
	if msg, ok := evt.Content.Parsed.(*event.MessageEventContent); ok {
		return msg.Body, msg.MsgType == event.MsgText
	}
	msgtype, _ := evt.Content.Raw["msgtype"].(string)
	body, _ := evt.Content.Raw["body"].(string)
	return body, msgtype == string(event.MsgText)
}

// --- Guest polling ---

func (c *Client) pollLoop(ctx context.Context) {
	for {
		if err := c.poll(ctx); err != nil && ctx.Err() == nil {
			c.log.Error("error polling messages: %v", err)
		}
		if !c.sleep(ctx) {
			return
		}
	}
}

// poll fetches the latest history page and delivers unseen messages oldest first
func (c *Client) poll(ctx context.Context) error {
	page, err := c.mx.Messages(ctx, c.roomID, "", "", mautrix.DirectionBackward, nil, historyLimit)
	if errors.Is(err, mautrix.MForbidden) {
		c.log.Warn("room %s requires authentication", c.roomID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}

	for i := len(page.Chunk) - 1; i >= 0; i-- {
		if msg, ok := c.accept(page.Chunk[i]); ok {
			c.deliver(msg)
		}
	}
	return nil
}

func (c *Client) sleep(ctx context.Context) bool {
	c.mu.Lock()
	d := c.pollInterval
	c.mu.Unlock()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
