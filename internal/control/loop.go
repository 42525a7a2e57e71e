package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/Naresh-ado/parking-final/internal/access"
	"github.com/Naresh-ado/parking-final/internal/db"
	"github.com/Naresh-ado/parking-final/internal/gate"
	"github.com/Naresh-ado/parking-final/internal/monitoring"
	"github.com/Naresh-ado/parking-final/internal/timeutil"
	"github.com/Naresh-ado/parking-final/internal/vision"
)

// FrameSource yields camera frames. gocv.VideoCapture satisfies it.
type FrameSource interface {
	Read(m *gocv.Mat) bool
}

// FeatureMatcher recognises known vehicles in a grayscale frame.
type FeatureMatcher interface {
	Detect(gray gocv.Mat) vision.Detection
}

// RegionProposer finds and classifies vehicle regions in a grayscale frame.
type RegionProposer interface {
	Detect(gray gocv.Mat) []vision.Detection
}

// ColorSampler labels the dominant color of a BGR region.
type ColorSampler interface {
	Classify(roi gocv.Mat) vision.Color
}

// AccessChecker asks the authority for a decision.
type AccessChecker interface {
	Check(ctx context.Context, vehicleType, color string) access.Result
}

// Actuator applies decisions to the gate.
type Actuator interface {
	Apply(allowed bool) error
	Hold(ctx context.Context, path gate.Path) error
}

// Journal records decisions. *db.DB satisfies it.
type Journal interface {
	RecordDecision(d *db.Decision) error
}

// QuitSignal is polled once per iteration.
type QuitSignal interface {
	Requested() bool
}

// Config wires a Loop to its collaborators. Frames, Features, Colors, Access
// and Gate are required; the rest are optional.
type Config struct {
	Frames   FrameSource
	Features FeatureMatcher
	// Regions is the fallback detector; nil disables the fallback.
	Regions RegionProposer
	Colors  ColorSampler
	Access  AccessChecker
	Gate    Actuator

	Journal Journal
	Quit    QuitSignal
	Preview Preview
	Clock   timeutil.Clock

	// CenterWindow is the half-width in pixels of the lane window a region's
	// center must fall in.
	CenterWindow int
	// Simulated is recorded with each journal entry.
	Simulated bool
}

// Step is the result of one iteration.
type Step struct {
	Outcome Outcome
	// Trace lists the states visited, starting with StateScanning.
	Trace []State
	// Detection and Color describe the vehicle that was decided on, or the
	// last one considered when none was.
	Detection vision.Detection
	Color     vision.Color
	Access    access.Result
	Err       error
}

func (s *Step) enter(st State) {
	s.Trace = append(s.Trace, st)
}

// Status is a snapshot of the loop for diagnostics.
type Status struct {
	State      State
	Frames     int
	Decisions  int
	Grants     int
	LastStep   Outcome
	LastResult string
	LastAt     time.Time
}

// Loop is the frame-by-frame control state machine. Step and Run must be
// called from one goroutine; Status may be read from any.
type Loop struct {
	cfg Config

	mu     sync.Mutex
	status Status
}

// New validates cfg and returns a Loop.
func New(cfg Config) (*Loop, error) {
	switch {
	case cfg.Frames == nil:
		return nil, errors.New("control: frame source is required")
	case cfg.Features == nil:
		return nil, errors.New("control: feature matcher is required")
	case cfg.Colors == nil:
		return nil, errors.New("control: color sampler is required")
	case cfg.Access == nil:
		return nil, errors.New("control: access checker is required")
	case cfg.Gate == nil:
		return nil, errors.New("control: actuator is required")
	}
	if cfg.CenterWindow <= 0 {
		cfg.CenterWindow = vision.DefaultCenterWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Loop{cfg: cfg}, nil
}

// Status returns a copy of the loop's diagnostics.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.status.State = s
	l.mu.Unlock()
}

// Run steps until an iteration is terminal and returns that step. The error
// is ErrCaptureFailed for a capture failure, the context error when
// cancelled, and nil for a grant or an operator quit.
func (l *Loop) Run(ctx context.Context) (Step, error) {
	monitoring.Logf("Starting vehicle recognition loop. Press 'q' to quit.")
	for {
		step := l.Step(ctx)
		if step.Outcome.Terminal() {
			switch step.Outcome {
			case OutcomeCaptureFailed, OutcomeCancelled:
				return step, step.Err
			}
			return step, nil
		}
	}
}

// Step runs one iteration of the state machine.
func (l *Loop) Step(ctx context.Context) Step {
	step := Step{}
	step.enter(StateScanning)
	l.setState(StateScanning)

	if err := ctx.Err(); err != nil {
		return l.finish(&step, OutcomeCancelled, err)
	}

	frame := gocv.NewMat()
	defer frame.Close()
	if !l.cfg.Frames.Read(&frame) || frame.Empty() {
		monitoring.Logf("Failed to grab frame")
		return l.finish(&step, OutcomeCaptureFailed, ErrCaptureFailed)
	}
	l.mu.Lock()
	l.status.Frames++
	l.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	toGray(frame, &gray)

	var marks []Annotation
	outcome := l.scan(ctx, &step, frame, gray, &marks)

	if l.cfg.Preview != nil && !outcome.Terminal() {
		if l.cfg.Preview.Show(frame, marks) {
			outcome = OutcomeQuit
		}
	}
	if !outcome.Terminal() && l.cfg.Quit != nil && l.cfg.Quit.Requested() {
		outcome = OutcomeQuit
	}
	if outcome == OutcomeQuit {
		monitoring.Logf("Quit requested.")
	}
	return l.finish(&step, outcome, step.Err)
}

// scan runs detection and, for a qualifying vehicle, the decision.
func (l *Loop) scan(ctx context.Context, step *Step, frame, gray gocv.Mat, marks *[]Annotation) Outcome {
	det := l.cfg.Features.Detect(gray)
	if det.Found() {
		step.enter(StateFeatureMatch)
		roi := vision.CenterThird(frame)
		color := l.cfg.Colors.Classify(roi)
		roi.Close()

		*marks = append(*marks, Annotation{Label: "MATCH: " + det.String(), Color: markGreen})
		return l.decide(ctx, step, det, color, gate.PathFeatures, marks)
	}

	if l.cfg.Regions == nil {
		step.enter(StateNoMatch)
		return OutcomeNoVehicle
	}

	regions := l.cfg.Regions.Detect(gray)
	outcome := OutcomeNoVehicle
	if len(regions) > 0 {
		outcome = OutcomeOffCenter
	}
	for _, det := range regions {
		color := vision.ColorUnknown
		roi, ok := vision.Crop(frame, det.Region)
		if ok {
			color = l.cfg.Colors.Classify(roi)
		}
		roi.Close()
		*marks = append(*marks, Annotation{Rect: det.Region, Label: string(color) + " " + string(det.Category), Color: markGreen})
		step.Detection, step.Color = det, color

		if !vision.Centered(det.Region, frame.Cols(), l.cfg.CenterWindow) {
			continue
		}
		step.enter(StateRegionMatch)
		outcome = l.decide(ctx, step, det, color, gate.PathRegion, marks)
		if outcome.Terminal() {
			return outcome
		}
	}
	if outcome == OutcomeNoVehicle || outcome == OutcomeOffCenter {
		step.enter(StateNoMatch)
	}
	return outcome
}

// decide asks the authority about det and actuates the gate accordingly.
func (l *Loop) decide(ctx context.Context, step *Step, det vision.Detection, color vision.Color, path gate.Path, marks *[]Annotation) Outcome {
	step.enter(StateDeciding)
	l.setState(StateDeciding)
	step.Detection, step.Color = det, color

	res := l.cfg.Access.Check(ctx, string(det.Category), string(color))
	step.Access = res
	monitoring.Logf("API Result: %v", res)
	l.record(det, color, res)

	status := Annotation{Label: "Access: " + boolLabel(res.Allowed()), Color: markRed}
	if res.Allowed() {
		status.Color = markGreen
	}
	*marks = append(*marks, status)

	step.enter(StateActuating)
	l.setState(StateActuating)
	if err := l.cfg.Gate.Apply(res.Allowed()); err != nil {
		monitoring.Logf("gate actuation failed: %v", err)
		step.Err = err
		if res.Allowed() {
			// The gate never opened, so there is nothing to hold.
			return OutcomeActuationFailed
		}
	}

	if !res.Allowed() {
		monitoring.Logf("Access Denied. Loop continuing...")
		return OutcomeDenied
	}

	if err := l.cfg.Gate.Hold(ctx, path); err != nil {
		monitoring.Logf("gate hold interrupted: %v", err)
		step.Err = err
	}
	monitoring.Logf("Exiting...")
	l.mu.Lock()
	l.status.Grants++
	l.mu.Unlock()
	return OutcomeGranted
}

func (l *Loop) record(det vision.Detection, color vision.Color, res access.Result) {
	l.mu.Lock()
	l.status.Decisions++
	l.status.LastResult = res.String()
	l.mu.Unlock()

	if l.cfg.Journal == nil {
		return
	}
	d := &db.Decision{
		CreatedAt:   l.cfg.Clock.Now(),
		Source:      det.Source.String(),
		VehicleType: string(det.Category),
		Color:       string(color),
		Score:       det.Score,
		RegionW:     det.Region.Dx(),
		RegionH:     det.Region.Dy(),
		Allowed:     res.Allowed(),
		Message:     res.Decision.Message,
		Outcome:     string(res.Outcome),
		Simulated:   l.cfg.Simulated,
	}
	if err := l.cfg.Journal.RecordDecision(d); err != nil {
		monitoring.Logf("failed to journal decision: %v", err)
	}
}

func (l *Loop) finish(step *Step, outcome Outcome, err error) Step {
	step.Outcome = outcome
	if err != nil {
		step.Err = err
	}
	final := StateContinue
	if outcome.Terminal() {
		final = StateTerminate
	}
	step.enter(final)

	l.mu.Lock()
	l.status.State = final
	l.status.LastStep = outcome
	l.status.LastAt = l.cfg.Clock.Now()
	l.mu.Unlock()
	return *step
}

// toGray converts a BGR frame to grayscale; single channel frames are copied.
func toGray(frame gocv.Mat, gray *gocv.Mat) {
	if frame.Channels() == 1 {
		frame.CopyTo(gray)
		return
	}
	gocv.CvtColor(frame, gray, gocv.ColorBGRToGray)
}

func boolLabel(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
