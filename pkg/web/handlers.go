package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/visikit/thorcam/pkg/camera"
	"github.com/visikit/thorcam/pkg/hub"
	"github.com/visikit/thorcam/pkg/sdk"
)

// handleCameras returns the cameras visible to the SDK
func (s *Server) handleCameras(c *fiber.Ctx) error {
	if s.OnDiscover == nil {
		return c.JSON([]sdk.CameraInfo{s.info})
	}
	cameras, err := s.OnDiscover()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(cameras)
}

// handleStatus returns the daemon status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleStats returns stream statistics
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.source.Stats())
}

// handleGetConfig returns the current acquisition configuration
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.manager.GetConfigJSON())
}

// handleSetConfig applies a partial configuration update.
// Accepts any subset of config fields plus an optional "preset" key.
func (s *Server) handleSetConfig(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.manager.UpdateConfig(params); err != nil {
		return c.Status(422).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.BroadcastStatus()
	return c.JSON(s.manager.GetConfigJSON())
}

// handlePresets returns the named preset configurations
func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"names":   camera.PresetNames(),
		"presets": camera.Presets(),
		"limits":  camera.Capabilities(),
	})
}

// handleSnapshot returns the latest frame as JPEG
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	f := s.source.Latest()
	if f == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "no frame captured yet",
		})
	}

	data, err := f.EncodeJPEG(s.manager.GetConfig().Quality)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "image/jpeg")
	return c.Send(data)
}

// handleFramesWS streams binary JPEG frames to a websocket client
func (s *Server) handleFramesWS(c *websocket.Conn) {
	client := hub.NewClient(s.frameHub, c)
	client.Run() // Blocks until connection closes
}

// handleStatusWS streams status updates to a websocket client
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Send the current state immediately on connect
	c.WriteJSON(s.status())

	client := hub.NewClient(s.statusHub, c)
	client.Run()
}
