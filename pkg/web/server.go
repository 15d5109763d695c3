// Package web provides the HTTP and websocket surface of thorcamd.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/visikit/thorcam/internal/log"
	"github.com/visikit/thorcam/pkg/camera"
	"github.com/visikit/thorcam/pkg/frame"
	"github.com/visikit/thorcam/pkg/hub"
	"github.com/visikit/thorcam/pkg/sdk"
	"github.com/visikit/thorcam/pkg/stream"
)

// FrameSource is the slice of the streamer the server needs.
type FrameSource interface {
	Latest() *frame.Frame
	Stats() stream.Stats
}

// Status is the daemon state reported by /api/status and /ws/status.
type Status struct {
	Connected bool           `json:"connected"`
	Backend   string         `json:"backend"`
	Camera    sdk.CameraInfo `json:"camera"`
	Sensor    sdk.Sensor     `json:"sensor"`
	Stats     stream.Stats   `json:"stats"`
	Clients   int            `json:"clients"`
}

// Server is the thorcamd web server
type Server struct {
	app  *fiber.App
	port string

	source  FrameSource
	manager *camera.Manager

	// Fixed at construction
	info   sdk.CameraInfo
	sensor sdk.Sensor

	// Discovery callback for /api/cameras
	OnDiscover func() ([]sdk.CameraInfo, error)

	// Hubs for websocket broadcast
	frameHub  *hub.Hub
	statusHub *hub.Hub

	mu      sync.Mutex
	started bool
}

// NewServer creates a web server for one open camera stream.
func NewServer(port string, source FrameSource, manager *camera.Manager, cam sdk.Camera) *Server {
	s := &Server{
		port:      port,
		source:    source,
		manager:   manager,
		info:      cam.Info(),
		sensor:    cam.Sensor(),
		frameHub:  hub.New("frames"),
		statusHub: hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "thorcamd",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/cameras", s.handleCameras)
	api.Get("/status", s.handleStatus)
	api.Get("/stats", s.handleStats)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handleSetConfig)
	api.Get("/presets", s.handlePresets)
	api.Get("/frame.jpg", s.handleSnapshot)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start starts the web server and blocks until shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if !s.started {
		s.started = true
		go s.frameHub.Run()
		go s.statusHub.Run()
	}
	s.mu.Unlock()

	log.Info("web server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server stopped", "error", err)
		}
	}()
}

// SendFrame broadcasts an encoded JPEG frame to all websocket clients.
func (s *Server) SendFrame(jpegData []byte) {
	s.frameHub.BroadcastBinary(jpegData)
}

// BroadcastStatus pushes the current status to all websocket clients.
func (s *Server) BroadcastStatus() {
	s.statusHub.BroadcastJSON(s.status())
}

// FrameClientCount returns the number of connected frame consumers.
func (s *Server) FrameClientCount() int {
	return s.frameHub.ClientCount()
}

// status assembles the current daemon state.
func (s *Server) status() Status {
	return Status{
		Connected: true,
		Backend:   s.source.Stats().Backend,
		Camera:    s.info,
		Sensor:    s.sensor,
		Stats:     s.source.Stats(),
		Clients:   s.frameHub.ClientCount(),
	}
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	s.frameHub.Stop()
	s.statusHub.Stop()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}
