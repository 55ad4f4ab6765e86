package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ret := m.Called(name, durable, autoDelete, exclusive, noWait, args)
	return amqp.Queue{Name: name}, ret.Error(0)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestRelay_Mirror(t *testing.T) {
	ch := &mockChannel{}
	ch.On("QueueDeclare", DefaultQueue, true, false, false, false, amqp.Table(nil)).Return(nil)
	ch.On("PublishWithContext", mock.Anything, "", DefaultQueue, false, false, mock.MatchedBy(func(msg amqp.Publishing) bool {
		return msg.Type == "new_order" &&
			msg.DeliveryMode == amqp.Persistent &&
			msg.ContentType == "application/json" &&
			msg.MessageId != "" &&
			string(msg.Body) == `{"type":"new_order"}`
	})).Return(nil)

	r, err := New(ch, Config{}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, DefaultQueue, r.Queue())

	require.NoError(t, r.Mirror(context.Background(), "new_order", []byte(`{"type":"new_order"}`)))
	ch.AssertExpectations(t)
}

func TestRelay_MirrorFailure(t *testing.T) {
	ch := &mockChannel{}
	ch.On("QueueDeclare", "kitchen", true, false, false, false, amqp.Table(nil)).Return(nil)
	ch.On("PublishWithContext", mock.Anything, "", "kitchen", false, false, mock.Anything).Return(errors.New("channel closed"))

	r, err := New(ch, Config{Queue: "kitchen", Timeout: time.Second}, nil)
	require.NoError(t, err)

	err = r.Mirror(context.Background(), "order_status", []byte(`{}`))
	assert.ErrorContains(t, err, "order_status")
	assert.ErrorContains(t, err, "channel closed")
}

func TestNew_DeclareFailureClosesChannel(t *testing.T) {
	ch := &mockChannel{}
	ch.On("QueueDeclare", DefaultQueue, true, false, false, false, amqp.Table(nil)).Return(errors.New("access refused"))
	ch.On("Close").Return(nil)

	_, err := New(ch, Config{}, nil)
	assert.ErrorContains(t, err, "access refused")
	ch.AssertCalled(t, "Close")
}

func TestRelay_Close(t *testing.T) {
	ch := &mockChannel{}
	ch.On("QueueDeclare", DefaultQueue, true, false, false, false, amqp.Table(nil)).Return(nil)
	ch.On("Close").Return(nil)

	r, err := New(ch, Config{}, nil)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
	ch.AssertCalled(t, "Close")
}
