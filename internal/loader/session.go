package loader

import (
	"context"
	"io"
	diffimage "overlap-diff/internal/diff/image"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/xerrors"
)

// Session keeps one loaded image per named slot. Loading into a slot releases
// whatever the slot held before, and Close releases everything.
type Session struct {
	Log logr.Logger

	mu     sync.Mutex
	slots  map[string]*handle
	nextID uint64
}

type handle struct {
	id     uint64
	source string
	stream io.ReadCloser
	once   sync.Once
	buffer *diffimage.PixelBuffer
	format string
}

func (h *handle) release() {
	h.once.Do(func() {
		h.stream.Close()
	})
}

func NewSession(log logr.Logger) *Session {
	return &Session{
		Log:   log,
		slots: map[string]*handle{},
	}
}

// Load opens source, registers the open stream under slot and decodes it. A
// decode failure releases the stream and leaves the slot empty.
func (s *Session) Load(ctx context.Context, slot string, source Source) (*diffimage.PixelBuffer, error) {
	s.Release(slot)

	stream, err := source.Open(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to open %s: %w", source.Name(), err)
	}
	h := s.register(slot, source.Name(), stream)

	if err := ctx.Err(); err != nil {
		s.unregister(slot, h)
		return nil, err
	}

	buffer, format, err := Decode(stream)
	if err != nil {
		s.unregister(slot, h)
		s.log().Info("failed to decode image", "slot", slot, "source", h.source, "error", err.Error())
		return nil, xerrors.Errorf("failed to load %s: %w", source.Name(), err)
	}
	h.release()

	s.mu.Lock()
	h.buffer = buffer
	h.format = format
	s.mu.Unlock()

	s.log().V(1).Info("loaded image", "slot", slot, "source", h.source, "format", format, "width", buffer.Width, "height", buffer.Height)
	return buffer, nil
}

func (s *Session) register(slot string, source string, stream io.ReadCloser) *handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		s.slots = map[string]*handle{}
	}
	s.nextID++
	h := &handle{
		id:     s.nextID,
		source: source,
		stream: stream,
	}
	if prior, ok := s.slots[slot]; ok {
		prior.release()
	}
	s.slots[slot] = h
	return h
}

// unregister releases h and removes it from slot unless a later Load has
// already replaced it.
func (s *Session) unregister(slot string, h *handle) {
	h.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.slots[slot]; ok && current.id == h.id {
		delete(s.slots, slot)
	}
}

// Buffer returns the image held by slot, if it finished loading.
func (s *Session) Buffer(slot string) (*diffimage.PixelBuffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.slots[slot]
	if !ok || h.buffer == nil {
		return nil, false
	}
	return h.buffer, true
}

// Format returns the encoding the image in slot was decoded from.
func (s *Session) Format(slot string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.slots[slot]; ok {
		return h.format
	}
	return ""
}

func (s *Session) Release(slot string) {
	s.mu.Lock()
	h, ok := s.slots[slot]
	delete(s.slots, slot)
	s.mu.Unlock()

	if ok {
		h.release()
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	slots := s.slots
	s.slots = map[string]*handle{}
	s.mu.Unlock()

	for _, h := range slots {
		h.release()
	}
	return nil
}

func (s *Session) log() logr.Logger {
	if s.Log.GetSink() == nil {
		return logr.Discard()
	}
	return s.Log
}
