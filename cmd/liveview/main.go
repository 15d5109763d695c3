// liveview shows the camera stream in an OpenCV window.
// Press 'q' to quit.
package main

import (
	"context"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/visikit/thorcam/internal/config"
	"github.com/visikit/thorcam/internal/log"
	"github.com/visikit/thorcam/pkg/frame"
	"github.com/visikit/thorcam/pkg/sdk"
	"github.com/visikit/thorcam/pkg/stream"
)

func main() {
	log.Init(config.LogLevel())

	openCfg := stream.OpenConfig{
		SDK:         sdk.DefaultConfig(),
		CameraIndex: config.CameraIndex(),
	}
	if backend := config.Backend(); backend != "" {
		openCfg.SDK.Backend = sdk.Backend(backend)
	}
	openCfg.SDK.SDKDir = config.SDKDir()

	ctrl, err := stream.Open(context.Background(), openCfg, log.L())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open camera: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	info := ctrl.Camera().Info()
	window := gocv.NewWindow(fmt.Sprintf("thorcam - %s", info.Name))
	defer window.Close()

	fmt.Println("live view running, press 'q' to quit")

	for {
		if f, ok := ctrl.TryFrame(); ok {
			mat, err := toMat(f)
			if err != nil {
				log.Warn("frame conversion failed", "seq", f.Seq, "error", err)
			} else {
				window.IMShow(mat)
				mat.Close()
			}
		}

		if key := window.WaitKey(10); key == 'q' {
			break
		}
	}
}

// toMat converts a frame to a BGR or grayscale Mat for display.
func toMat(f *frame.Frame) (gocv.Mat, error) {
	switch f.Format {
	case frame.Mono8:
		return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Data)

	case frame.RGB24:
		rgb, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
		if err != nil {
			return gocv.NewMat(), err
		}
		defer rgb.Close()

		// OpenCV windows expect BGR
		bgr := gocv.NewMat()
		gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)
		return bgr, nil

	default:
		return gocv.NewMat(), fmt.Errorf("unsupported display format %q", f.Format)
	}
}
