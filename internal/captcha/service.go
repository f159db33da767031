// Package captcha generates arithmetic captcha images and checks answers
// against a short-lived session store.
package captcha

import (
	"context"
	crand "crypto/rand"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/golang/freetype/truetype"
)

// DefaultTTL is how long an answer stays valid after Create.
const DefaultTTL = 300 * time.Second

// Store is the session store the service keeps answers in. Get returns 0
// for a key that is absent or expired.
type Store interface {
	Get(ctx context.Context, key string) (int, error)
	Set(ctx context.Context, key string, value int, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetDeleter is implemented by stores that can read and remove a key in one
// atomic step. Verify uses it when available so that two concurrent
// attempts cannot both see the same answer.
type GetDeleter interface {
	GetDel(ctx context.Context, key string) (int, error)
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSource sets the factory called once per Create for a fresh random
// source. Tests use it with a fixed-seed PCG.
func WithSource(fn func() rand.Source) Option {
	return func(s *Service) {
		if fn != nil {
			s.source = fn
		}
	}
}

// WithFont draws glyphs with f instead of the bundled font.
func WithFont(f *truetype.Font) Option {
	return func(s *Service) { s.font = f }
}

// WithJPEGQuality sets the encoder quality (1..100).
func WithJPEGQuality(q int) Option {
	return func(s *Service) { s.quality = q }
}

// Service creates captcha images and verifies answers.
type Service struct {
	store    Store
	ttl      time.Duration
	source   func() rand.Source
	font     *truetype.Font
	quality  int
	renderer *Renderer

	result atomic.Int64
}

// New returns a Service keeping answers in store.
func New(store Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:   store,
		ttl:     DefaultTTL,
		source:  cryptoSource,
		quality: DefaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.font == nil {
		f, err := LoadFont("", "")
		if err != nil {
			return nil, err
		}
		s.font = f
	}
	s.renderer = NewRenderer(s.font, s.quality)
	return s, nil
}

// Create draws a new challenge for scene, stores its answer for the
// configured TTL and returns the JPEG image.
func (s *Service) Create(ctx context.Context, scene string) ([]byte, error) {
	if scene == "" {
		return nil, ErrEmptyScene
	}
	r := rand.New(s.source())

	c, err := GenerateChallenge(r)
	if err != nil {
		return nil, renderingFailure(err, "generate challenge")
	}
	img, err := s.renderer.Render(c, r)
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, scene, c.Result, s.ttl); err != nil {
		return nil, storeFailure(err, "store answer for scene "+scene)
	}
	s.result.Store(int64(c.Result))
	return img, nil
}

// Verify compares code with the answer stored for scene. The entry is
// removed whatever the outcome, so only the first attempt can succeed.
// An absent or expired entry compares as 0.
func (s *Service) Verify(ctx context.Context, scene string, code int) (bool, error) {
	if scene == "" {
		return false, nil
	}
	if gd, ok := s.store.(GetDeleter); ok {
		stored, err := gd.GetDel(ctx, scene)
		if err != nil {
			return false, storeFailure(err, "take answer for scene "+scene)
		}
		return code == stored, nil
	}

	stored, err := s.store.Get(ctx, scene)
	if err != nil {
		return false, storeFailure(err, "read answer for scene "+scene)
	}
	if err := s.store.Delete(ctx, scene); err != nil {
		return false, storeFailure(err, "delete answer for scene "+scene)
	}
	return code == stored, nil
}

// Result returns the answer of the most recently stored challenge.
func (s *Service) Result() int {
	return int(s.result.Load())
}

func cryptoSource() rand.Source {
	var seed [32]byte
	// crypto/rand.Read never returns an error since Go 1.24
	crand.Read(seed[:])
	return rand.NewChaCha8(seed)
}
