package mocks

import (
	"context"

	"github.com/molscreen/molscreen/prep"
	"github.com/stretchr/testify/mock"
)

// Provider is a mock implementation of the scoring.Provider interface for
// testing.
type Provider struct {
	mock.Mock
}

func (m *Provider) Prepare(ctx context.Context, cfg prep.Config) error {
	args := m.Called(ctx, cfg)

	return args.Error(0)
}

func (m *Provider) Score(ctx context.Context, ligand []byte) (float64, error) {
	args := m.Called(ctx, ligand)

	return args.Get(0).(float64), args.Error(1)
}

func (m *Provider) WritePose(ctx context.Context, itemID, outputDir string) error {
	args := m.Called(ctx, itemID, outputDir)

	return args.Error(0)
}
