package settings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/noah-isme/backend-dealdesk/internal/approval"
	"github.com/noah-isme/backend-dealdesk/internal/pricing"
)

// Snapshot is an immutable view of one configuration version with its
// normalized kernel configs precomputed. Consumers hold the snapshot value
// for the duration of a computation so an operator edit mid-flight can
// never produce a torn read.
type Snapshot struct {
	Version  int64
	Settings Settings
	Pricing  pricing.Config
	Approval approval.Config
}

// Service owns the current configuration snapshot and its persistence.
type Service struct {
	repo    Repo
	current atomic.Pointer[Snapshot]
}

// NewService loads the latest stored configuration, seeding the factory
// default when none exists yet.
func NewService(ctx context.Context, repo Repo) (*Service, error) {
	if repo == nil {
		return nil, errors.New("settings: repo is required")
	}
	svc := &Service{repo: repo}

	stored, version, err := repo.Latest(ctx)
	if errors.Is(err, ErrNoSettings) {
		stored = Default()
		version, err = repo.Save(ctx, stored)
	}
	if err != nil {
		return nil, fmt.Errorf("settings: initial load: %w", err)
	}
	svc.publish(stored, version)
	return svc, nil
}

// Current returns the active snapshot.
func (s *Service) Current() Snapshot {
	return *s.current.Load()
}

// Update validates and persists a full replacement configuration, then
// publishes a fresh snapshot.
func (s *Service) Update(ctx context.Context, next Settings) (Snapshot, error) {
	if err := next.Validate(); err != nil {
		return Snapshot{}, err
	}
	version, err := s.repo.Save(ctx, next)
	if err != nil {
		return Snapshot{}, err
	}
	s.publish(next, version)
	return s.Current(), nil
}

// Reset restores the factory default as a new version.
func (s *Service) Reset(ctx context.Context) (Snapshot, error) {
	return s.Update(ctx, Default())
}

func (s *Service) publish(stored Settings, version int64) {
	pcfg, acfg := Normalize(stored)
	s.current.Store(&Snapshot{
		Version:  version,
		Settings: stored,
		Pricing:  pcfg,
		Approval: acfg,
	})
}
