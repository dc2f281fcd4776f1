package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackboard/entities/board"
	"blackboard/entities/params"
	"blackboard/entities/shape"
	"blackboard/tools/llm"
	"blackboard/tools/logger"
	"blackboard/tools/matrix"
	"blackboard/tools/server"
	"blackboard/tools/surface/konva"
)

type fakeSage struct{ out string }

func (f fakeSage) Execute(context.Context, string) (string, error) { return f.out, nil }

type fakeAnswers struct {
	reply string
	err   error
}

func (f fakeAnswers) Ask(context.Context, string, []llm.Message) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply}, nil
}

type fakeChat struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
	cb      matrix.Callback
	closed  bool
}

func (f *fakeChat) Authenticated() bool { return true }
func (f *fakeChat) UserID() string      { return "@me:example.org" }

func (f *fakeChat) SendMessage(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.sendErr
}

func (f *fakeChat) OnMessage(cb matrix.Callback) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
	return func() {}
}

func (f *fakeChat) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeChat) deliver(msg matrix.Message) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	cb(msg)
}

func openClassroom(t *testing.T, svc services) *Classroom {
	t.Helper()
	c := newClassroom(Config{}.withDefaults(), konva.New(800, 600, logger.Discard()), svc, logger.Discard())
	c.Start(context.Background())
	t.Cleanup(c.Stop)
	return c
}

// waitForMessage waits until a message from sender containing text is posted
func waitForMessage(t *testing.T, c *Classroom, sender, text string) ChatMessage {
	t.Helper()
	var found ChatMessage
	require.Eventually(t, func() bool {
		for _, m := range c.Messages() {
			if m.Sender == sender && strings.Contains(m.Content, text) {
				found = m
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "no %s message containing %q in %v", sender, text, c.Messages())
	return found
}

func TestDefaultParameters(t *testing.T) {
	c := openClassroom(t, services{})
	assert.Equal(t, []params.Parameter{
		{Name: "radius", Min: 0, Max: 200, Value: 50, Step: 1},
		{Name: "angle", Min: 0, Max: 360, Value: 0, Step: 1},
	}, c.Parameters())
}

func TestSubmitDrawing(t *testing.T) {
	c := openClassroom(t, services{})

	var mu sync.Mutex
	var boards int
	c.Subscribe(func(ev server.Event) {
		if ev.Type == "board" {
			mu.Lock()
			boards++
			mu.Unlock()
		}
	})

	c.Submit("draw a circle radius 30")
	waitForMessage(t, c, senderSystem, "Drawing command executed")

	msgs := c.Messages()
	assert.Equal(t, senderYou, msgs[0].Sender)
	assert.Equal(t, "draw a circle radius 30", msgs[0].Content)
	assert.Equal(t, []shape.Command{shape.Circle{Center: shape.Pt(400, 300), Radius: 30}}, c.Commands())

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, boards)
}

func TestSubmitIgnoresBlankLines(t *testing.T) {
	c := openClassroom(t, services{})
	c.Submit("   ")
	// a slider round trip drains the queue
	require.NoError(t, c.Slide("angle", 10))
	assert.Empty(t, c.Messages())
}

func TestSubmitReportsErrors(t *testing.T) {
	c := openClassroom(t, services{})
	c.Submit("make me a sandwich")
	waitForMessage(t, c, senderSystem, "Error: ")
	assert.Empty(t, c.Commands())
}

func TestComputationResult(t *testing.T) {
	c := openClassroom(t, services{sage: fakeSage{out: "Area = 9*pi"}})
	c.Submit("what is the area of a circle with radius 3")
	msg := waitForMessage(t, c, senderSystem, "Computation result: Area = 9*pi")
	assert.Contains(t, msg.Content, "Computed circle area with radius 3")
}

func TestComputationWithoutBackend(t *testing.T) {
	c := openClassroom(t, services{})
	c.Submit("compute the area of a circle")
	waitForMessage(t, c, senderSystem, "no computation backend configured")
}

func TestTutorDirectiveIsDrawn(t *testing.T) {
	answers := fakeAnswers{reply: `Here is a small circle: {"command":"draw","type":"circle","params":{"x":100,"y":120,"radius":20}}`}
	c := openClassroom(t, services{answers: answers})

	c.Submit("hello Pythagoras")
	waitForMessage(t, c, "Pythagoras", "Here is a small circle")

	require.Eventually(t, func() bool { return len(c.Commands()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, shape.Circle{Center: shape.Pt(100, 120), Radius: 20}, c.Commands()[0])
}

func TestTutorProseIsNotAnError(t *testing.T) {
	c := openClassroom(t, services{answers: fakeAnswers{reply: "You could make a table of values first."}})

	c.Submit("why?")
	waitForMessage(t, c, "Pythagoras", "table of values")
	// a slider round trip drains the queue
	require.NoError(t, c.Slide("angle", 5))
	for _, m := range c.Messages() {
		assert.NotEqual(t, senderSystem, m.Sender, m.Content)
	}
	assert.Empty(t, c.Commands())
}

func TestTutorUnavailable(t *testing.T) {
	c := openClassroom(t, services{answers: fakeAnswers{err: errors.New("boom")}})
	c.Submit("hello")
	waitForMessage(t, c, senderSystem, "Pythagoras is unavailable")
}

func TestChatRelay(t *testing.T) {
	chat := &fakeChat{}
	c := openClassroom(t, services{chat: chat})

	c.Submit("hello room")
	require.Eventually(t, func() bool {
		chat.mu.Lock()
		defer chat.mu.Unlock()
		return len(chat.sent) == 1 && chat.sent[0] == "hello room"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestChatRelayFailure(t *testing.T) {
	chat := &fakeChat{sendErr: errors.New("offline")}
	c := openClassroom(t, services{chat: chat})

	c.Submit("hello room")
	waitForMessage(t, c, senderSystem, "Failed to send message to chat.")
}

func TestChatMessagesAreProcessed(t *testing.T) {
	chat := &fakeChat{}
	c := openClassroom(t, services{chat: chat})

	at := time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)
	chat.deliver(matrix.Message{ID: "$own", Sender: "@me:example.org", Content: "draw a line", Timestamp: at})
	chat.deliver(matrix.Message{ID: "$1", Sender: "@euclid:example.org", Content: "draw a triangle", Timestamp: at})

	msg := waitForMessage(t, c, "@euclid:example.org", "draw a triangle")
	assert.True(t, at.Equal(msg.Timestamp))
	waitForMessage(t, c, senderSystem, "Drawing command executed")

	cmds := c.Commands()
	require.Len(t, cmds, 1, "own relayed lines are skipped")
	assert.Equal(t, shape.KindTriangle, cmds[0].Kind())
}

func TestSliderResizesCircles(t *testing.T) {
	c := openClassroom(t, services{})

	var mu sync.Mutex
	var last []params.Parameter
	c.Subscribe(func(ev server.Event) {
		if ev.Type == "parameters" {
			mu.Lock()
			last = ev.Parameters
			mu.Unlock()
		}
	})

	c.Submit("draw a circle radius 30")
	waitForMessage(t, c, senderSystem, "Drawing command executed")

	require.NoError(t, c.Slide("radius", 500))
	assert.Equal(t, shape.Circle{Center: shape.Pt(400, 300), Radius: 200}, c.Commands()[0], "clamped to the slider range")

	mu.Lock()
	require.NotEmpty(t, last)
	assert.Equal(t, 200.0, last[0].Value)
	mu.Unlock()

	require.Error(t, c.Slide("missing", 1))
}

func TestPointerTools(t *testing.T) {
	c := openClassroom(t, services{})

	require.Error(t, c.SelectTool("spray"))

	require.NoError(t, c.SelectTool("text"))
	require.NoError(t, c.Pointer("down", shape.Pt(10, 20), "hello"))
	require.NoError(t, c.Pointer("down", shape.Pt(30, 40), ""), "empty text places nothing")

	require.NoError(t, c.SelectTool("line"))
	require.NoError(t, c.Pointer("down", shape.Pt(0, 0), ""))
	require.NoError(t, c.Pointer("move", shape.Pt(50, 0), ""))
	assert.Len(t, c.Commands(), 1, "provisional shapes are not live")
	require.NoError(t, c.Pointer("up", shape.Pt(50, 0), ""))

	assert.Equal(t, []shape.Command{
		shape.Text{Position: shape.Pt(10, 20), Text: "hello"},
		shape.Line{From: shape.Pt(0, 0), To: shape.Pt(50, 0)},
	}, c.Commands())

	require.Error(t, c.Pointer("hover", shape.Pt(0, 0), ""))
}

func TestFinishPolygon(t *testing.T) {
	c := openClassroom(t, services{})
	require.NoError(t, c.SelectTool(string(board.ToolPolygon)))

	require.NoError(t, c.Pointer("down", shape.Pt(0, 0), ""))
	require.NoError(t, c.Pointer("down", shape.Pt(10, 0), ""))
	require.Error(t, c.FinishPolygon())

	require.NoError(t, c.Pointer("down", shape.Pt(10, 10), ""))
	require.NoError(t, c.FinishPolygon())
	require.Len(t, c.Commands(), 1)
	assert.Equal(t, shape.KindPolygon, c.Commands()[0].Kind())
}

func TestClearResetsParameters(t *testing.T) {
	c := openClassroom(t, services{})
	c.Submit("draw a square")
	waitForMessage(t, c, senderSystem, "Drawing command executed")
	c.Submit("set speed to 7")
	waitForMessage(t, c, senderSystem, "Created parameter speed = 7")
	require.NoError(t, c.Slide("radius", 120))

	require.NoError(t, c.Clear())
	assert.Empty(t, c.Commands())

	ps := c.Parameters()
	require.Len(t, ps, 2)
	assert.Equal(t, "radius", ps[0].Name)
	assert.Equal(t, 50.0, ps[0].Value)
	assert.Equal(t, "angle", ps[1].Name)
}

func TestStop(t *testing.T) {
	chat := &fakeChat{}
	c := newClassroom(Config{}.withDefaults(), konva.New(800, 600, logger.Discard()), services{chat: chat}, logger.Discard())
	c.Start(context.Background())
	c.Stop()

	assert.ErrorIs(t, c.Slide("radius", 10), errClosed)
	assert.True(t, chat.closed)
}

func TestNewClassroomBackends(t *testing.T) {
	surface := konva.New(800, 600, logger.Discard())

	_, err := NewClassroom(Config{Tutor: "oracle"}, surface, nil, logger.Discard())
	require.ErrorContains(t, err, `unknown tutor backend "oracle"`)

	_, err = NewClassroom(Config{Tutor: "anthropic"}, surface, nil, logger.Discard())
	require.Error(t, err)

	_, err = NewClassroom(Config{Tutor: "none", SagePath: "/no/such/sage"}, surface, nil, logger.Discard())
	require.Error(t, err)

	c, err := NewClassroom(Config{}, surface, nil, logger.Discard())
	require.NoError(t, err)
	assert.NotNil(t, c.tutor, "faculty tutor by default")
	assert.Nil(t, c.chat)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, defaultSupabaseURL, cfg.SupabaseURL)
	assert.Equal(t, "", cfg.SupabaseAnonKey)
	assert.Equal(t, "https://sagecell.sagemath.org", cfg.SageCellURL)
	assert.Equal(t, 10*time.Second, cfg.SageTimeout)
	assert.Equal(t, 1200.0, cfg.Width)
	assert.Equal(t, "konva", cfg.Surface)
}

func TestNewSurface(t *testing.T) {
	for _, name := range []string{"konva", "tldraw", "excalidraw", "raster"} {
		s, err := newSurface(Config{Surface: name}.withDefaults(), logger.Discard())
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
		assert.Equal(t, 1200.0, s.Viewport().Width)
	}
	_, err := newSurface(Config{Surface: "chalk"}, logger.Discard())
	require.Error(t, err)
}

func TestConnectChatDisabled(t *testing.T) {
	chat, err := connectChat(context.Background(), Config{}, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, chat)
}
