package vehicle

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Serialized funnels all Detect calls through a single goroutine that owns
// the wrapped detector. Use it for detectors that are not safe for
// concurrent use, such as a model session shared by a batch worker pool.
//
// Callers block until their request has been served or their context ends.
// A request whose context is already done when it reaches the owner is
// answered without calling the wrapped detector.
type Serialized struct {
	inner    Detector
	requests chan serializedRequest
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

type serializedRequest struct {
	ctx   context.Context
	img   image.Image
	reply chan serializedReply
}

type serializedReply struct {
	dets []Detection
	err  error
}

// NewSerialized starts the owner goroutine for inner. Call Close to stop it.
func NewSerialized(inner Detector) *Serialized {
	s := &Serialized{
		inner:    inner,
		requests: make(chan serializedRequest),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Serialized) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case req := <-s.requests:
			if err := req.ctx.Err(); err != nil {
				req.reply <- serializedReply{err: err}
				continue
			}
			dets, err := s.inner.Detect(req.ctx, req.img)
			req.reply <- serializedReply{dets: dets, err: err}
		}
	}
}

// Detect implements Detector.
func (s *Serialized) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	req := serializedRequest{ctx: ctx, img: img, reply: make(chan serializedReply, 1)}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, fmt.Errorf("%w: detector queue closed", ErrUnavailable)
	}

	select {
	case r := <-req.reply:
		return r.dets, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the owner goroutine after the request in flight, if any,
// completes. It is safe to call more than once.
func (s *Serialized) Close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}
