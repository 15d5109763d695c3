// snapshot grabs frames from a camera and writes them as JPEG files.
//
// Usage:
//
//	snapshot -n 10 -out ./captures -index 0 -backend mock
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/visikit/thorcam/internal/config"
	"github.com/visikit/thorcam/internal/log"
	"github.com/visikit/thorcam/pkg/sdk"
	"github.com/visikit/thorcam/pkg/stream"
)

func main() {
	var (
		count   = flag.Int("n", 1, "number of frames to capture")
		outDir  = flag.String("out", ".", "output directory")
		index   = flag.Int("index", 0, "camera index")
		backend = flag.String("backend", "", "sdk backend (auto, thorlabs, mock)")
		quality = flag.Int("quality", 90, "JPEG quality (1-100)")
		timeout = flag.Duration("timeout", 10*time.Second, "per-frame wait timeout")
	)
	flag.Parse()

	log.Init(config.LogLevel())

	openCfg := stream.OpenConfig{
		SDK:         sdk.DefaultConfig(),
		CameraIndex: *index,
	}
	if *backend != "" {
		openCfg.SDK.Backend = sdk.Backend(*backend)
	}
	openCfg.SDK.SDKDir = config.SDKDir()

	ctrl, err := stream.Open(context.Background(), openCfg, log.L())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open camera: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	info := ctrl.Camera().Info()
	fmt.Printf("capturing %d frame(s) from %s (%s)\n", *count, info.Name, info.Serial)

	for i := 0; i < *count; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		f, err := ctrl.Frame(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "frame %d: %v\n", i, err)
			os.Exit(1)
		}

		data, err := f.EncodeJPEG(*quality)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode frame %d: %v\n", i, err)
			os.Exit(1)
		}

		name := filepath.Join(*outDir, fmt.Sprintf("%s_%06d.jpg", info.Serial, f.Seq))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%dx%d, %d bytes)\n", name, f.Width, f.Height, len(data))
	}
}
