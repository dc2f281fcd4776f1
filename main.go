package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/joho/godotenv"

	"blackboard/entities/board"
	"blackboard/entities/shape"
	"blackboard/tools/logger"
	"blackboard/tools/matrix"
	"blackboard/tools/server"
	"blackboard/tools/surface/excalidraw"
	"blackboard/tools/surface/fynesurface"
	"blackboard/tools/surface/konva"
	"blackboard/tools/surface/raster"
	"blackboard/tools/surface/tldraw"
)

func main() {
	// CLI flags
	addr := flag.String("addr", defaultAddr, "HTTP listen address")
	surfaceName := flag.String("surface", "konva", "Drawing surface: konva, tldraw, excalidraw, raster or fyne")
	width := flag.Float64("width", shape.DefaultViewport.Width, "Board width")
	height := flag.Float64("height", shape.DefaultViewport.Height, "Board height")
	gui := flag.Bool("gui", false, "Open a desktop window showing the board (implies -surface fyne)")
	tutorName := flag.String("tutor", "faculty", "Tutor backend: faculty, anthropic, local or none")
	apiKey := flag.String("key", "", "Anthropic API key (or set ANTHROPIC_API_KEY env)")
	model := flag.String("model", "", "Model to use with the anthropic tutor")
	localURL := flag.String("local-url", "", "OpenAI-compatible endpoint for the local tutor")
	sagePath := flag.String("sage", "", "Path to a local sage executable (default: use SageMathCell)")
	guest := flag.Bool("guest", false, "Read the chat room as a guest when no Matrix user is set")
	envFile := flag.String("env", ".env", "Environment file to load")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Blackboard - collaborative math whiteboard

Usage:
  blackboard [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  blackboard -addr :8080
  blackboard -gui -tutor anthropic -v

Environment (also read from .env):
  SUPABASE_URL, SUPABASE_ANON_KEY - faculty tutor endpoint
  ANTHROPIC_API_KEY               - API key for the anthropic tutor
  SAGECELL_URL                    - SageMathCell server
  MATRIX_HOMESERVER, MATRIX_ROOM  - chat room
  MATRIX_USER, MATRIX_PASSWORD    - chat login
`)
	}

	flag.Parse()

	logLevel := logger.LevelInfo
	if *verbose {
		logLevel = logger.LevelDebug
	}
	log := logger.New(os.Stdout, logLevel, "blackboard")

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("could not load %s: %v", *envFile, err)
	}

	key := *apiKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}

	config := Config{
		Addr:             *addr,
		Surface:          *surfaceName,
		Width:            *width,
		Height:           *height,
		Tutor:            *tutorName,
		SupabaseURL:      os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:  os.Getenv("SUPABASE_ANON_KEY"),
		AnthropicKey:     key,
		Model:            *model,
		LocalLLMURL:      *localURL,
		SageCellURL:      os.Getenv("SAGECELL_URL"),
		SagePath:         *sagePath,
		MatrixHomeserver: os.Getenv("MATRIX_HOMESERVER"),
		MatrixRoom:       os.Getenv("MATRIX_ROOM"),
		MatrixUser:       os.Getenv("MATRIX_USER"),
		MatrixPassword:   os.Getenv("MATRIX_PASSWORD"),
		MatrixGuest:      *guest,
		VerboseLogging:   *verbose,
	}
	if *gui {
		config.Surface = "fyne"
	}
	config = config.withDefaults()

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, shutting down...")
		cancel()
	}()

	surface, err := newSurface(config, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	chat, err := connectChat(ctx, config, log)
	if err != nil {
		log.Warn("chat unavailable: %v", err)
	}

	classroom, err := NewClassroom(config, surface, chat, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating classroom: %v\n", err)
		os.Exit(1)
	}
	classroom.Start(ctx)
	defer classroom.Stop()

	srv := server.New(classroom, log)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(ctx, config.Addr) }()

	if canvas, ok := surface.(*fynesurface.Canvas); ok {
		runWindow(canvas, config, cancel)
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error serving: %v\n", err)
		os.Exit(1)
	}
}

// newSurface builds the configured drawing surface
func newSurface(config Config, log *logger.Logger) (board.Surface, error) {
	vp := shape.Viewport{Width: config.Width, Height: config.Height}
	switch config.Surface {
	case "konva":
		return konva.New(vp.Width, vp.Height, log), nil
	case "tldraw":
		return tldraw.New(vp, log), nil
	case "excalidraw":
		return excalidraw.New(vp, log), nil
	case "raster":
		return raster.New(int(vp.Width), int(vp.Height), log), nil
	case "fyne":
		return fynesurface.New(float32(vp.Width), float32(vp.Height), log), nil
	}
	return nil, fmt.Errorf("unknown surface %q", config.Surface)
}

// connectChat joins the configured room. A failed login falls back to guest
// reading. No user and no guest flag means no chat.
func connectChat(ctx context.Context, config Config, log *logger.Logger) (*matrix.Client, error) {
	if config.MatrixUser == "" && !config.MatrixGuest {
		return nil, nil
	}
	client, err := matrix.New(config.MatrixHomeserver, config.MatrixRoom, log)
	if err != nil {
		return nil, err
	}
	if config.MatrixUser != "" {
		err = client.Connect(ctx, config.MatrixUser, config.MatrixPassword)
		if err == nil {
			return client, nil
		}
		log.Warn("matrix login failed, trying guest mode: %v", err)
	}
	if err := client.ConnectAsGuest(ctx); err != nil {
		return nil, fmt.Errorf("failed to join %s: %w", config.MatrixRoom, err)
	}
	return client, nil
}

// runWindow shows the board until the window closes, then cancels the rest
func runWindow(canvas *fynesurface.Canvas, config Config, cancel context.CancelFunc) {
	a := app.New()
	w := a.NewWindow("Blackboard")
	w.SetContent(canvas.Content())
	w.Resize(fyne.NewSize(float32(config.Width), float32(config.Height)))
	w.ShowAndRun()
	cancel()
}
