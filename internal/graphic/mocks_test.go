package graphic

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// mockScene records primitives in memory.
type mockScene struct {
	next     int
	entities map[output.EntityID]output.Primitive
	removed  int
}

func newMockScene() *mockScene {
	return &mockScene{entities: make(map[output.EntityID]output.Primitive)}
}

func (m *mockScene) Add(p output.Primitive) output.EntityID {
	m.next++
	id := output.EntityID(fmt.Sprintf("e%d", m.next))
	m.entities[id] = p
	return id
}

func (m *mockScene) Remove(id output.EntityID) bool {
	if _, ok := m.entities[id]; !ok {
		return false
	}
	delete(m.entities, id)
	m.removed++
	return true
}

func (m *mockScene) SetVisible(id output.EntityID, v bool) bool {
	p, ok := m.entities[id]
	if !ok {
		return false
	}
	p.Show = v
	m.entities[id] = p
	return true
}

func (m *mockScene) count(role string) int {
	n := 0
	for _, p := range m.entities {
		if p.Role == role {
			n++
		}
	}
	return n
}

func (m *mockScene) visible() int {
	n := 0
	for _, p := range m.entities {
		if p.Show {
			n++
		}
	}
	return n
}

func (m *mockScene) labels() []string {
	var out []string
	for _, p := range m.entities {
		if p.Kind == output.PrimitiveLabel {
			out = append(out, p.Text)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func world(lon, lat float64) domain.WorldPosition {
	return geodesy.WGS84.ToWorld(domain.NewGeodeticPosition(lon, lat))
}

func newTestGraphic(kind domain.Kind, scene *mockScene) *Graphic {
	g, err := New(kind, scene, Options{Logger: testLogger()})
	if err != nil {
		panic(err)
	}
	return g
}
