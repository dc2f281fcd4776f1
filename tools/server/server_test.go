package server

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackboard/entities/params"
	"blackboard/entities/shape"
	"blackboard/tools/logger"
)

type fakeRoom struct {
	mu        sync.Mutex
	submitted []string
	pointers  []string
	tool      string
	cleared   int
	slides    map[string]float64
	subs      []func(Event)
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{slides: map[string]float64{}}
}

func (f *fakeRoom) Submit(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
}

func (f *fakeRoom) Pointer(phase string, p shape.Point, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointers = append(f.pointers, phase)
	return nil
}

func (f *fakeRoom) SelectTool(name string) error {
	if name == "spray" {
		return errors.New("unknown tool spray")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tool = name
	return nil
}

func (f *fakeRoom) Slide(name string, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slides[name] = value
	return nil
}

func (f *fakeRoom) FinishPolygon() error { return nil }

func (f *fakeRoom) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *fakeRoom) Export() ([]byte, error) {
	return []byte(`[{"kind":"circle"}]`), nil
}

func (f *fakeRoom) Commands() []shape.Command {
	return []shape.Command{
		shape.Line{From: shape.Pt(0, 20), To: shape.Pt(40, 20)},
		shape.Circle{Center: shape.Pt(20, 20), Radius: 10},
	}
}

func (f *fakeRoom) Viewport() shape.Viewport {
	return shape.Viewport{Width: 40, Height: 30}
}

func (f *fakeRoom) Parameters() []params.Parameter {
	return []params.Parameter{{Name: "radius", Min: 0, Max: 200, Value: 50, Step: 1}}
}

func (f *fakeRoom) Subscribe(fn func(Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeRoom) publish(ev Event) {
	f.mu.Lock()
	subs := append(([]func(Event))(nil), f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (f *fakeRoom) snapshot() (submitted, pointers []string, tool string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...), append([]string(nil), f.pointers...), f.tool
}

func startServer(t *testing.T) (*fakeRoom, *httptest.Server) {
	t.Helper()
	room := newFakeRoom()
	s := New(room, logger.Discard())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return room, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebsocketSnapshotOnConnect(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)

	ev := readEvent(t, conn)
	assert.Equal(t, "board", ev.Type)
	assert.JSONEq(t, `[{"kind":"circle"}]`, string(ev.Primitives))

	ev = readEvent(t, conn)
	assert.Equal(t, "parameters", ev.Type)
	require.Len(t, ev.Parameters, 1)
	assert.Equal(t, "radius", ev.Parameters[0].Name)
}

func TestWebsocketInbound(t *testing.T) {
	room, ts := startServer(t)
	conn := dial(t, ts)
	readEvent(t, conn)
	readEvent(t, conn)

	frames := []Inbound{
		{Type: "instruction", Text: "draw a circle"},
		{Type: "tool", Tool: "line"},
		{Type: "pointer", Phase: "down", X: 1, Y: 2},
		{Type: "pointer", Phase: "up", X: 3, Y: 4},
		{Type: "slider", Name: "radius", Value: 80},
	}
	for _, f := range frames {
		require.NoError(t, conn.WriteJSON(f))
	}

	require.Eventually(t, func() bool {
		room.mu.Lock()
		defer room.mu.Unlock()
		return room.slides["radius"] == 80
	}, 2*time.Second, 10*time.Millisecond)

	submitted, pointers, tool := room.snapshot()
	assert.Equal(t, []string{"draw a circle"}, submitted)
	assert.Equal(t, []string{"down", "up"}, pointers)
	assert.Equal(t, "line", tool)
}

func TestWebsocketErrorsComeBackAsSystemMessages(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)
	readEvent(t, conn)
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(Inbound{Type: "tool", Tool: "spray"}))
	ev := readEvent(t, conn)
	assert.Equal(t, "message", ev.Type)
	assert.Equal(t, "System", ev.Sender)
	assert.Contains(t, ev.Content, "spray")

	require.NoError(t, conn.WriteJSON(Inbound{Type: "dance"}))
	ev = readEvent(t, conn)
	assert.Contains(t, ev.Content, `unknown frame type "dance"`)
}

func TestBroadcast(t *testing.T) {
	room, ts := startServer(t)
	a := dial(t, ts)
	b := dial(t, ts)
	for _, c := range []*websocket.Conn{a, b} {
		readEvent(t, c)
		readEvent(t, c)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	room.publish(MessageEvent("Pythagoras", "Consider the hypotenuse.", at))

	for _, c := range []*websocket.Conn{a, b} {
		ev := readEvent(t, c)
		assert.Equal(t, "message", ev.Type)
		assert.Equal(t, "Pythagoras", ev.Sender)
		require.NotNil(t, ev.Timestamp)
		assert.True(t, at.Equal(*ev.Timestamp))
	}
}

func TestExport(t *testing.T) {
	_, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/api/export")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="whiteboard-export.json"`, resp.Header.Get("Content-Disposition"))
	var prims []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&prims))
	assert.Equal(t, "circle", prims[0]["kind"])
}

func TestClear(t *testing.T) {
	room, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/api/clear")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/clear", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	room.mu.Lock()
	defer room.mu.Unlock()
	assert.Equal(t, 1, room.cleared)
}

func TestParameters(t *testing.T) {
	_, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/api/parameters")
	require.NoError(t, err)
	defer resp.Body.Close()

	var ps []params.Parameter
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ps))
	assert.Equal(t, []params.Parameter{{Name: "radius", Min: 0, Max: 200, Value: 50, Step: 1}}, ps)
}

func TestSnapshot(t *testing.T) {
	_, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/api/snapshot.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestRenderRejectsGraph(t *testing.T) {
	_, err := Render([]shape.Command{shape.Graph{Origin: shape.Pt(10, 10), AxisLength: 10}},
		shape.Viewport{Width: 20, Height: 20}, logger.Discard())
	require.Error(t, err)
}
