package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/relay"
)

type mockChatStore struct {
	mock.Mock
}

func (m *mockChatStore) Append(ctx context.Context, roomID string, msg *domain.ChatMessage) error {
	return m.Called(ctx, roomID, msg).Error(0)
}

func (m *mockChatStore) ReadAll(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID)
	msgs, _ := args.Get(0).([]domain.ChatMessage)
	return msgs, args.Error(1)
}

func (m *mockChatStore) CreateChatLog(ctx context.Context, roomID string) (string, error) {
	args := m.Called(ctx, roomID)
	return args.String(0), args.Error(1)
}

func (m *mockChatStore) Close() error {
	return m.Called().Error(0)
}

type mockRelay struct {
	mock.Mock
}

func (m *mockRelay) Publish(ctx context.Context, msg *domain.ChatMessage, connectionID string) error {
	return m.Called(ctx, msg, connectionID).Error(0)
}

func (m *mockRelay) Subscribe(ctx context.Context, handler relay.Handler) error {
	return m.Called(ctx, handler).Error(0)
}

func (m *mockRelay) Close() error {
	return m.Called().Error(0)
}

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) ProduceMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockProducer) Close() error {
	return m.Called().Error(0)
}
