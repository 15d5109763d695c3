// thorcamd streams frames from a Thorlabs scientific camera over HTTP
// and websocket.
//
// Configuration is via environment variables:
//
//	THORCAM_PORT          HTTP listen port (default 8090)
//	THORCAM_CAMERA_INDEX  camera to open (default 0)
//	THORCAM_BACKEND       sdk backend: auto, thorlabs, mock
//	THORCAM_SDK_DIR       directory holding the vendor DLLs
//	THORCAM_JPEG_QUALITY  initial stream quality (default 85)
//	THORCAM_LOG_LEVEL     debug, info, warn, error
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visikit/thorcam/internal/config"
	"github.com/visikit/thorcam/internal/log"
	"github.com/visikit/thorcam/pkg/camera"
	"github.com/visikit/thorcam/pkg/sdk"
	"github.com/visikit/thorcam/pkg/stream"
	"github.com/visikit/thorcam/pkg/web"
)

func main() {
	log.Init(config.LogLevel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acq := camera.DefaultConfig()
	acq.Quality = config.JPEGQuality()

	openCfg := stream.OpenConfig{
		SDK:         sdk.DefaultConfig(),
		CameraIndex: config.CameraIndex(),
		Acquisition: acq,
	}
	if backend := config.Backend(); backend != "" {
		openCfg.SDK.Backend = sdk.Backend(backend)
	}
	openCfg.SDK.SDKDir = config.SDKDir()

	ctrl, err := stream.Open(ctx, openCfg, log.L())
	if err != nil {
		log.Error("failed to open camera", "error", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	manager := camera.NewManager()
	manager.SetConfig(acq)
	manager.OnConfigChange = ctrl.Apply

	server := web.NewServer(config.Port(), ctrl, manager, ctrl.Camera())
	server.OnDiscover = ctrl.SDK().Discover
	server.StartAsync()

	go pumpFrames(ctx, ctrl, manager, server)
	go pumpStatus(ctx, server)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Info("shutting down", "signal", sig.String())
	cancel()
	if err := server.Shutdown(); err != nil {
		log.Warn("web server shutdown", "error", err)
	}
	if err := ctrl.Close(); err != nil {
		log.Warn("camera shutdown", "error", err)
	}
}

// pumpFrames encodes captured frames and broadcasts them to websocket
// clients. Encoding is skipped while nobody is connected.
func pumpFrames(ctx context.Context, ctrl *stream.Controller, manager *camera.Manager, server *web.Server) {
	for {
		f, err := ctrl.Frame(ctx)
		if err != nil {
			return
		}
		if server.FrameClientCount() == 0 {
			continue
		}

		data, err := f.EncodeJPEG(manager.GetConfig().Quality)
		if err != nil {
			log.Warn("frame encode failed", "seq", f.Seq, "error", err)
			continue
		}
		server.SendFrame(data)
	}
}

// pumpStatus broadcasts daemon status once a second.
func pumpStatus(ctx context.Context, server *web.Server) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			server.BroadcastStatus()
		}
	}
}
