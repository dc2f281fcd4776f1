package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"blackboard/entities/board"
	"blackboard/entities/controller"
	"blackboard/entities/interpreter"
	"blackboard/entities/params"
	"blackboard/entities/shape"
	"blackboard/entities/tutor"
	"blackboard/tools/errs"
	"blackboard/tools/llm"
	"blackboard/tools/logger"
	"blackboard/tools/matrix"
	"blackboard/tools/sage"
	"blackboard/tools/server"
)

const (
	queueSize    = 256
	historyLimit = 200
)

var errClosed = errors.New("classroom is closed")

// chatRoom is the chat relay as the classroom uses it
type chatRoom interface {
	Authenticated() bool
	UserID() string
	SendMessage(ctx context.Context, text string) error
	OnMessage(cb matrix.Callback) func()
	Disconnect()
}

// services are the classroom's outside collaborators. Any of them may be nil.
type services struct {
	sage    sage.Backend
	answers llm.Client
	chat    chatRoom
}

// Classroom owns the board and everything that talks to it. Board and
// registry changes happen only on the event loop goroutine.
type Classroom struct {
	config     Config
	board      *board.Board
	registry   *params.Registry
	controller *controller.Controller
	tutor      *tutor.Tutor
	chat       chatRoom
	log        *logger.Logger

	events          chan func()
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	unsubscribeChat func()

	mu      sync.Mutex
	subs    map[int]func(server.Event)
	nextSub int
	history []ChatMessage

	pending string // text for the next text or label placement
}

// NewClassroom creates a classroom drawing on surface. chat may be nil; when
// set it must already be connected.
func NewClassroom(config Config, surface board.Surface, chat *matrix.Client, log *logger.Logger) (*Classroom, error) {
	config = config.withDefaults()
	if log == nil {
		log = logger.Default()
	}

	var svc services
	if chat != nil {
		svc.chat = chat
	}

	switch {
	case config.SagePath != "":
		runner, err := sage.NewLocalRunner(config.SagePath, "", log)
		if err != nil {
			return nil, fmt.Errorf("failed to create sage runner: %w", err)
		}
		runner.SetTimeout(config.SageTimeout)
		svc.sage = runner
	case config.SageCellURL != "":
		cell := sage.NewCellClient(config.SageCellURL, log)
		cell.SetTimeout(config.SageTimeout)
		svc.sage = cell
	}

	switch config.Tutor {
	case "faculty":
		svc.answers = llm.NewFacultyClient(config.SupabaseURL, config.SupabaseAnonKey, log)
	case "anthropic":
		if config.AnthropicKey == "" {
			return nil, fmt.Errorf("Anthropic API key is required for the anthropic tutor")
		}
		svc.answers = llm.NewAnthropicClient(config.AnthropicKey, config.Model, WhiteboardPrompt, log)
	case "local":
		svc.answers = llm.NewLocalClient(config.LocalLLMURL, WhiteboardPrompt, log)
	case "none":
	default:
		return nil, fmt.Errorf("unknown tutor backend %q", config.Tutor)
	}

	return newClassroom(config, surface, svc, log), nil
}

func newClassroom(config Config, surface board.Surface, svc services, log *logger.Logger) *Classroom {
	if log == nil {
		log = logger.Default()
	}
	interp := interpreter.New(log)
	b := board.New(surface, log)
	registry := params.New(log)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Classroom{
		config:     config,
		board:      b,
		registry:   registry,
		controller: controller.New(interp, b, registry, svc.sage, log),
		chat:       svc.chat,
		log:        log.WithPrefix("classroom"),
		events:     make(chan func(), queueSize),
		ctx:        ctx,
		cancel:     cancel,
		subs:       make(map[int]func(server.Event)),
	}
	if svc.answers != nil {
		c.tutor = tutor.New(svc.answers, log)
	}

	b.SetPrompt(func(board.Tool) (string, bool) {
		return c.pending, c.pending != ""
	})
	registry.OnChange(c.onParameter)
	registry.OnRebuild(func(ps []params.Parameter) {
		c.publish(server.ParametersEvent(ps))
	})
	addDefaultParameters(registry)

	return c
}

// addDefaultParameters registers the sliders every board starts with
func addDefaultParameters(registry *params.Registry) {
	registry.Add("radius", 0, 200, 50, 1)
	registry.Add("angle", 0, 360, 0, 1)
}

// Start runs the event loop until ctx is done or Stop is called
func (c *Classroom) Start(ctx context.Context) {
	context.AfterFunc(ctx, c.cancel)

	c.wg.Add(1)
	go c.loop()

	if c.chat != nil {
		c.unsubscribeChat = c.chat.OnMessage(c.onChat)
	}
	c.log.Info("classroom open on %s", c.board.Surface().Name())
}

// Stop ends the event loop and disconnects from chat
func (c *Classroom) Stop() {
	c.cancel()
	c.wg.Wait()
	if c.unsubscribeChat != nil {
		c.unsubscribeChat()
	}
	if c.chat != nil {
		c.chat.Disconnect()
	}
}

func (c *Classroom) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case task := <-c.events:
			task()
		}
	}
}

func (c *Classroom) enqueue(task func()) bool {
	select {
	case c.events <- task:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// call runs task on the loop and waits for its result
func (c *Classroom) call(task func() error) error {
	result := make(chan error, 1)
	if !c.enqueue(func() { result <- task() }) {
		return errClosed
	}
	select {
	case err := <-result:
		return err
	case <-c.ctx.Done():
		return errClosed
	}
}

// --- Subscribers ---

// Subscribe registers fn for every outbound event. fn must not block.
func (c *Classroom) Subscribe(fn func(server.Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Classroom) publish(ev server.Event) {
	c.mu.Lock()
	subs := make([]func(server.Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (c *Classroom) publishBoard() {
	data, err := c.board.Export()
	if err != nil {
		c.log.Error("export board: %v", err)
		return
	}
	prov, _ := c.board.ProvisionalPrimitive()
	c.publish(server.BoardEvent(data, prov))
}

// post records a chat line and fans it out
func (c *Classroom) post(sender, content string, at time.Time) {
	c.log.Message(sender, content)
	c.mu.Lock()
	c.history = append(c.history, ChatMessage{Sender: sender, Content: content, Timestamp: at})
	if n := len(c.history); n > historyLimit {
		c.history = append([]ChatMessage(nil), c.history[n-historyLimit:]...)
	}
	c.mu.Unlock()
	c.publish(server.MessageEvent(sender, content, at))
}

func (c *Classroom) system(content string) {
	c.post(senderSystem, content, time.Now())
}

// Messages returns the recent conversation, oldest first
func (c *Classroom) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatMessage(nil), c.history...)
}

// --- Chat ---

// Submit handles a line typed locally. The line is echoed, relayed to chat,
// processed as a command and, with a tutor, answered.
func (c *Classroom) Submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.enqueue(func() {
		c.post(senderYou, text, time.Now())
		if c.chat != nil && c.chat.Authenticated() {
			go c.relay(text)
		}
		c.process(text)
		if c.tutor != nil {
			go c.ask(text)
		}
	})
}

func (c *Classroom) relay(text string) {
	if err := c.chat.SendMessage(c.ctx, text); err != nil {
		c.log.Warn("relay failed: %v", err)
		c.enqueue(func() { c.system("Failed to send message to chat.") })
	}
}

func (c *Classroom) onChat(msg matrix.Message) {
	// our own relayed lines come back through sync
	if id := c.chat.UserID(); id != "" && msg.Sender == id {
		return
	}
	c.enqueue(func() {
		c.post(msg.Sender, msg.Content, msg.Timestamp)
		c.process(msg.Content)
	})
}

// process runs a line through the controller. Computations leave the loop
// while the backend works and report back through the queue.
func (c *Classroom) process(text string) {
	switch controller.Classify(text) {
	case 0:
		return
	case controller.KindComputation:
		go func() {
			res, err := c.controller.Process(c.ctx, text)
			c.enqueue(func() { c.report(res, err) })
		}()
		return
	}

	res, err := c.controller.Process(c.ctx, text)
	c.report(res, err)
	if err == nil {
		c.publishBoard()
	}
}

func (c *Classroom) report(res *controller.Result, err error) {
	switch {
	case err != nil:
		c.system("Error: " + err.Error())
	case res == nil:
	case res.Output != "":
		c.system(fmt.Sprintf("%s\nComputation result: %s", res.Message, res.Output))
	default:
		c.system(res.Message)
	}
}

// --- Tutor ---

func (c *Classroom) ask(text string) {
	resp, err := c.tutor.Ask(c.ctx, text)
	if err != nil {
		c.log.Warn("%v", err)
		c.enqueue(func() { c.system(tutor.Name + " is unavailable right now.") })
		return
	}
	if resp.WasTruncated() {
		c.log.Warn("%s's answer was cut short", tutor.Name)
	}
	directive, scanErr := tutor.ScanCommands(resp.Content)

	c.enqueue(func() {
		c.post(tutor.Name, resp.Content, time.Now())
		if scanErr != nil {
			c.system("Error: " + scanErr.Error())
			return
		}
		c.run(directive)
	})
}

// run carries out a directive found in a tutor answer. Prose that merely
// mentions drawing is not an error.
func (c *Classroom) run(d tutor.Directive) {
	var err error
	switch d.Kind {
	case tutor.DirectiveDraw:
		err = c.board.Execute(d.Command)
	case tutor.DirectiveGraph:
		err = c.controller.Plot(d.Equation)
	case tutor.DirectiveInstruction:
		err = c.controller.Draw(d.Instruction)
		if errors.Is(err, errs.ErrUnrecognizedInstruction) {
			c.log.Debug("nothing to draw in answer: %v", err)
			return
		}
	default:
		return
	}
	if err != nil {
		c.system(fmt.Sprintf("Could not draw %s: %v", d.Kind, err))
		return
	}
	c.publishBoard()
}

// --- Board input ---

// Pointer applies one pointer event. text is used when the text or label tool
// places a shape on "down".
func (c *Classroom) Pointer(phase string, p shape.Point, text string) error {
	return c.call(func() error {
		var err error
		switch phase {
		case "down":
			c.pending = strings.TrimSpace(text)
			err = c.board.PointerDown(p)
			c.pending = ""
		case "move":
			err = c.board.PointerMove(p)
		case "up":
			err = c.board.PointerUp(p)
		default:
			return fmt.Errorf("unknown pointer phase %q", phase)
		}
		if err != nil {
			return err
		}
		c.publishBoard()
		return nil
	})
}

// SelectTool switches the pointer tool by name
func (c *Classroom) SelectTool(name string) error {
	t, err := board.ParseTool(name)
	if err != nil {
		return err
	}
	return c.call(func() error {
		if err := c.board.SetTool(t); err != nil {
			return err
		}
		c.publishBoard()
		return nil
	})
}

// Slide sets a parameter from its slider
func (c *Classroom) Slide(name string, value float64) error {
	return c.call(func() error {
		_, err := c.registry.SetValue(name, value)
		return err
	})
}

// FinishPolygon closes the polygon being drawn
func (c *Classroom) FinishPolygon() error {
	return c.call(func() error {
		ok, err := c.board.FinishPolygon()
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("a polygon needs at least three points")
		}
		c.publishBoard()
		return nil
	})
}

// Clear empties the board. Parameters created since start are dropped and the
// defaults come back at their initial values.
func (c *Classroom) Clear() error {
	return c.call(func() error {
		if err := c.board.Clear(); err != nil {
			return err
		}
		c.registry.Clear()
		addDefaultParameters(c.registry)
		c.publishBoard()
		return nil
	})
}

func (c *Classroom) onParameter(name string, value float64) {
	if name == "radius" {
		n, err := c.board.SetCircleRadius(value)
		if err != nil {
			c.log.Error("resize circles: %v", err)
		} else if n > 0 {
			c.publishBoard()
		}
	}
	c.publish(server.ParametersEvent(c.registry.List()))
}

// --- Queries ---

func (c *Classroom) Export() ([]byte, error)            { return c.board.Export() }
func (c *Classroom) Commands() []shape.Command          { return c.board.Commands() }
func (c *Classroom) Viewport() shape.Viewport           { return c.board.Viewport() }
func (c *Classroom) Parameters() []params.Parameter     { return c.registry.List() }
func (c *Classroom) Board() *board.Board                { return c.board }
func (c *Classroom) Registry() *params.Registry         { return c.registry }
func (c *Classroom) Controller() *controller.Controller { return c.controller }
