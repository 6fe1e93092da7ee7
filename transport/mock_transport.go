package transport

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a mock type for the Transport type
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) List(ctx context.Context, root string) ([]Entry, error) {
	args := m.Called(ctx, root)
	entries, _ := args.Get(0).([]Entry)
	return entries, args.Error(1)
}

func (m *MockTransport) Fetch(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockTransport) Inspect(ctx context.Context, limit int) (*Inspection, error) {
	args := m.Called(ctx, limit)
	insp, _ := args.Get(0).(*Inspection)
	return insp, args.Error(1)
}

func (m *MockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}
