package history

import (
	"io"
	"log/slog"
	"sync"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	msg "github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeWriteAPI records points; tests own the errors channel.
type fakeWriteAPI struct {
	api.WriteAPI
	mu      sync.Mutex
	points  []*write.Point
	flushes int
	errs    chan error
}

func newFakeWriteAPI() *fakeWriteAPI { return &fakeWriteAPI{errs: make(chan error)} }

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}

func (f *fakeWriteAPI) Errors() <-chan error { return f.errs }

func (f *fakeWriteAPI) written() []*write.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*write.Point(nil), f.points...)
}

func msgCrop(session string) msg.RecommendationEvent {
	return msg.RecommendationEvent{Kind: msg.KindCrop, SessionID: session, Top: "rice", Probability: 0.9}
}
