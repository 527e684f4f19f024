// Package replay drives the interaction tools from recorded YAML scripts
// against a headless scene.
package replay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jobrunner/geodraw/internal/adapters/scene"
	"github.com/jobrunner/geodraw/internal/domain"
)

// EventType names a scripted input event.
type EventType string

// Event types.
const (
	EventTool        EventType = "tool"
	EventClick       EventType = "click"
	EventDoubleClick EventType = "dblclick"
	EventMove        EventType = "move"
	EventCancel      EventType = "cancel"
	EventFinish      EventType = "finish"
	EventStyle       EventType = "style"
	EventClear       EventType = "clear"
)

// Event is one scripted input. X and Y are window pixels; At is the offset
// from the start of the script.
type Event struct {
	Type  EventType         `yaml:"type"`
	X     float64           `yaml:"x"`
	Y     float64           `yaml:"y"`
	At    time.Duration     `yaml:"at"`
	Tool  string            `yaml:"tool"` // draw, measure
	Kind  string            `yaml:"kind"` // shape kind, or distance/area for measure
	Style domain.StylePatch `yaml:"style"`
}

// Screen returns the event position.
func (e Event) Screen() domain.ScreenPosition {
	return domain.ScreenPosition{X: e.X, Y: e.Y}
}

// CameraSpec positions the headless camera. Center is [lon, lat].
type CameraSpec struct {
	Center         []float64 `yaml:"center"`
	Width          float64   `yaml:"width"`
	Height         float64   `yaml:"height"`
	MetersPerPixel float64   `yaml:"meters_per_pixel"`
}

// Camera converts the scripted camera to a scene camera.
func (c CameraSpec) Camera() scene.Camera {
	cam := scene.Camera{Width: c.Width, Height: c.Height, MetersPerPixel: c.MetersPerPixel}
	if len(c.Center) >= 2 {
		cam.Center = domain.NewGeodeticPosition(c.Center[0], c.Center[1])
	}
	return cam
}

// Script is a recorded interaction session.
type Script struct {
	Name   string     `yaml:"name"`
	Camera CameraSpec `yaml:"camera"`
	Events []Event    `yaml:"events"`
}

// Load reads a script from a YAML file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parsing script: %v", domain.ErrInvalidInput, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks event types, timestamps and the camera centre.
func (s *Script) Validate() error {
	var errs []error
	if c := s.Camera.Center; len(c) != 0 {
		if len(c) != 2 {
			errs = append(errs, fmt.Errorf("camera center: want [lon, lat]: %w", domain.ErrInvalidInput))
		} else if err := domain.NewGeodeticPosition(c[0], c[1]).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("camera center: %w", err))
		}
	}

	var last time.Duration
	for i, e := range s.Events {
		switch e.Type {
		case EventTool:
			if e.Tool != "draw" && e.Tool != "measure" {
				errs = append(errs, eventError(i, "unknown tool %q", e.Tool))
			}
		case EventClick, EventDoubleClick, EventMove, EventCancel, EventFinish, EventStyle, EventClear:
		default:
			errs = append(errs, eventError(i, "unknown type %q", e.Type))
		}
		if e.At < last {
			errs = append(errs, eventError(i, "timestamp %s before %s", e.At, last))
		}
		if e.At > last {
			last = e.At
		}
	}
	return errors.Join(errs...)
}

func eventError(i int, format string, args ...interface{}) error {
	return fmt.Errorf("event %d: %s: %w", i, fmt.Sprintf(format, args...), domain.ErrInvalidInput)
}
