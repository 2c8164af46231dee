package service

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	journalx "github.com/tanpawarit/chative-intent-router/agent/journal"
	nodex "github.com/tanpawarit/chative-intent-router/agent/nodes"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidRequest = nodex.ErrInvalidRequest

// Router is the classify/dispatch core the service drives.
type Router interface {
	nodex.Classifier
	nodex.Dispatcher
}

type Service struct {
	router  Router
	journal contractx.Journal

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(router Router, journal contractx.Journal) (*Service, error) {
	if router == nil {
		return nil, errors.New("router is required")
	}
	if journal == nil {
		journal = journalx.Nop{}
	}

	s := &Service{
		router:  router,
		journal: journal,
		now:     time.Now,
		newID:   uuid.NewString,
	}

	graphRunner, err := s.compileHandleRequestGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// Handle classifies and dispatches one request.
func (s *Service) Handle(ctx context.Context, text string) (contractx.Outcome, error) {
	out, err := s.HandleWithID(ctx, "", text)
	return out.Outcome, err
}

// HandleWithID is Handle with a caller-chosen request id. An empty id gets a fresh UUID.
func (s *Service) HandleWithID(ctx context.Context, requestID string, text string) (nodex.GraphOutput, error) {
	out, err := s.graphRunner.Invoke(ctx, nodex.GraphInput{
		RequestID: requestID,
		Text:      text,
	})
	if err != nil {
		return nodex.GraphOutput{}, err
	}
	return out, nil
}

type BatchResult struct {
	Request string
	Output  nodex.GraphOutput
	Err     error
}

// HandleBatch handles requests concurrently, at most limit at a time, and
// returns results in input order. One failed request does not stop the others.
func (s *Service) HandleBatch(ctx context.Context, requests []string, limit int) []BatchResult {
	results := make([]BatchResult, len(requests))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			out, err := s.HandleWithID(ctx, "", req)
			results[i] = BatchResult{Request: req, Output: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
