package repository

import (
	"context"
	"errors"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
)

// FanoutPublisher delivers every event to each underlying publisher.
// One slow or failing sink does not stop the others.
type FanoutPublisher struct {
	pubs []drepo.EventPublisher
}

func NewFanoutPublisher(pubs ...drepo.EventPublisher) *FanoutPublisher {
	out := make([]drepo.EventPublisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return &FanoutPublisher{pubs: out}
}

func (f *FanoutPublisher) PublishEvent(ctx context.Context, ev models.EngineEvent) error {
	var errs []error
	for _, p := range f.pubs {
		if err := p.PublishEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutPublisher) Close() error {
	var errs []error
	for _, p := range f.pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ drepo.EventPublisher = (*FanoutPublisher)(nil)
