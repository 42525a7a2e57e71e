// Command gate runs the vehicle gate controller: it watches a camera,
// asks the authority about each centered vehicle and drives the gate.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gocv.io/x/gocv"

	"github.com/Naresh-ado/parking-final/internal/access"
	"github.com/Naresh-ado/parking-final/internal/config"
	"github.com/Naresh-ado/parking-final/internal/control"
	"github.com/Naresh-ado/parking-final/internal/db"
	"github.com/Naresh-ado/parking-final/internal/gate"
	"github.com/Naresh-ado/parking-final/internal/httputil"
	"github.com/Naresh-ado/parking-final/internal/monitoring"
	"github.com/Naresh-ado/parking-final/internal/serialmux"
	"github.com/Naresh-ado/parking-final/internal/timeutil"
	"github.com/Naresh-ado/parking-final/internal/version"
	"github.com/Naresh-ado/parking-final/internal/vision"
)

// closedCamera stands in for a camera that could not be opened; the first
// read fails and ends the session.
type closedCamera struct{}

func (closedCamera) Read(*gocv.Mat) bool { return false }

func main() {
	var opts options
	fs := newFlagSet(&opts)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if opts.version {
		fmt.Println(version.String())
		return
	}
	if opts.listPorts {
		ports, err := serialmux.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	monitoring.SetVerbose(opts.verbose)
	log.Printf("gate %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		if errors.Is(err, control.ErrCaptureFailed) || errors.Is(err, context.Canceled) {
			log.Printf("session ended: %v", err)
			return
		}
		log.Fatalf("gate: %v", err)
	}
}

func run(ctx context.Context, cfg *config.GateConfig, opts options) error {
	clock := timeutil.RealClock{}
	timings := gate.Timings{
		FeatureDwell:  cfg.GetFeatureDwell(),
		FeatureSettle: cfg.GetFeatureSettle(),
		RegionDwell:   cfg.GetRegionDwell(),
		ConnectDelay:  gate.DefaultTimings().ConnectDelay,
	}

	// Vision
	extractor := vision.NewExtractor(cfg.GetMaxFeatures())
	defer extractor.Close()

	log.Printf("Loading reference images from %s...", cfg.GetTrainingDir())
	lib, err := vision.LoadLibrary(cfg.GetTrainingDir(), extractor, vision.LibraryOptions{})
	if err != nil {
		log.Printf("Warning: %v. Feature matching disabled.", err)
		lib = vision.NewLibrary()
	}
	defer lib.Close()
	log.Printf("Loaded %d reference images.", lib.Len())

	features := vision.NewFeatureDetector(lib, extractor, vision.FeatureOptions{
		MaxDistance: cfg.GetMatchDistance(),
		Threshold:   cfg.GetMatchThreshold(),
	})
	defer features.Close()

	var regions control.RegionProposer
	if rd, err := vision.NewRegionDetector(cfg.GetCascadePath(), vision.RegionOptions{MinArea: cfg.GetMinRegionArea()}); err != nil {
		log.Printf("Warning: %v. Region fallback disabled.", err)
	} else {
		defer rd.Close()
		regions = rd
	}

	// Camera
	var frames control.FrameSource = closedCamera{}
	camera := cfg.GetCamera()
	var source interface{} = camera
	if idx, ok := cfg.CameraDevice(); ok {
		source = idx
	}
	if cam, err := gocv.OpenVideoCapture(source); err != nil {
		log.Printf("Warning: could not open camera %s: %v", camera, err)
	} else {
		defer cam.Close()
		frames = cam
	}

	bg := newBackground(ctx)
	defer func() {
		if err := bg.Stop(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	// Gate
	actuator, serial := gate.Connect(ctx, serialmux.OpenPort, cfg.GetSerialPort(),
		serialmux.PortOptions{BaudRate: cfg.GetBaudRate()}, clock, timings)
	bg.CloseAfter(serial)

	if !actuator.Simulated() {
		bg.Go(func(ctx context.Context) {
			if err := serial.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("serial monitor stopped: %v", err)
			}
		})
		bg.Go(func(ctx context.Context) {
			id, lines := serial.Subscribe()
			defer serial.Unsubscribe(id)
			for {
				select {
				case line, ok := <-lines:
					if !ok {
						return
					}
					monitoring.Debugf("gate board: %s", line)
				case <-ctx.Done():
					return
				}
			}
		})
	}

	// Journal
	var journal *db.DB
	if path := cfg.GetJournalPath(); path != "" {
		if journal, err = db.NewDB(path); err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		bg.CloseAfter(journal)
	}

	checker := access.NewClient(cfg.GetAuthorityURL(), cfg.GetSpotID(), httputil.NewTimeoutClient(cfg.GetHTTPTimeout()))

	loopCfg := control.Config{
		Frames:       frames,
		Features:     features,
		Regions:      regions,
		Colors:       vision.NewColorClassifier(cfg.GetMinColorArea()),
		Access:       checker,
		Gate:         actuator,
		Clock:        clock,
		CenterWindow: cfg.GetCenterWindow(),
		Simulated:    actuator.Simulated(),
	}
	if journal != nil {
		loopCfg.Journal = journal
	}
	if opts.preview {
		preview := control.NewWindowPreview("Gate")
		defer preview.Close()
		loopCfg.Preview = preview
	} else {
		loopCfg.Quit = control.WatchLines(os.Stdin)
	}

	loop, err := control.New(loopCfg)
	if err != nil {
		return err
	}

	if listen := cfg.GetListen(); listen != "" {
		mux, err := newAdminMux(loop, actuator, serial, journal)
		if err != nil {
			return fmt.Errorf("failed to attach admin routes: %w", err)
		}
		bg.Go(func(ctx context.Context) { serveAdmin(ctx, listen, mux) })
	}

	step, err := loop.Run(bg.Context())
	log.Printf("session finished: %s", step.Outcome)
	return err
}
