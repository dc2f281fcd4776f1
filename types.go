package main

import (
	"time"

	"blackboard/entities/shape"
	"blackboard/tools/llm"
	"blackboard/tools/matrix"
	"blackboard/tools/sage"
)

const (
	defaultAddr        = ":8080"
	defaultSupabaseURL = "https://xougqdomkoisrxdnagcj.supabase.co"
	defaultMatrixRoom  = "!math:matrix.inquiry.institute"
)

// Config holds configuration for the classroom.
type Config struct {
	Addr    string // HTTP listen address
	Surface string // konva, tldraw, excalidraw, raster or fyne
	Width   float64
	Height  float64

	// Tutor backend: faculty, anthropic, local or none
	Tutor           string
	SupabaseURL     string
	SupabaseAnonKey string
	AnthropicKey    string
	Model           string
	LocalLLMURL     string

	SageCellURL string
	SagePath    string // local sage executable, preferred over the cell server when set
	SageTimeout time.Duration

	MatrixHomeserver string
	MatrixRoom       string
	MatrixUser       string
	MatrixPassword   string
	MatrixGuest      bool

	VerboseLogging bool
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.Surface == "" {
		c.Surface = "konva"
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = shape.DefaultViewport.Width, shape.DefaultViewport.Height
	}
	if c.Tutor == "" {
		c.Tutor = "faculty"
	}
	if c.SupabaseURL == "" {
		c.SupabaseURL = defaultSupabaseURL
	}
	if c.LocalLLMURL == "" {
		c.LocalLLMURL = llm.DefaultLocalURL
	}
	if c.SageCellURL == "" {
		c.SageCellURL = sage.DefaultCellURL
	}
	if c.SageTimeout <= 0 {
		c.SageTimeout = sage.Timeout
	}
	if c.MatrixHomeserver == "" {
		c.MatrixHomeserver = matrix.DefaultHomeserver
	}
	if c.MatrixRoom == "" {
		c.MatrixRoom = defaultMatrixRoom
	}
	return c
}

// ChatMessage is one line of the classroom conversation.
type ChatMessage struct {
	Sender    string
	Content   string
	Timestamp time.Time
}

const (
	senderYou    = "You"
	senderSystem = "System"
)
