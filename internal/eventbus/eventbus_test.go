package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDeliversInRegistrationOrder(t *testing.T) {
	bus := New()

	var got []string
	bus.Subscribe("topic", func(ctx context.Context, payload any) error {
		got = append(got, "first")
		return nil
	})
	bus.Subscribe("topic", func(ctx context.Context, payload any) error {
		got = append(got, "second")
		return nil
	})

	bus.Emit(context.Background(), "topic", "payload")

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestEmitPassesPayload(t *testing.T) {
	bus := New()

	var got any
	bus.Subscribe(TopicPaymentSucceeded, func(ctx context.Context, payload any) error {
		got = payload
		return nil
	})

	event := PaymentSucceeded{PaymentID: "pay-1", BuyerID: "b1", CourseID: "c1", Amount: 500, Currency: "INR"}
	bus.Emit(context.Background(), TopicPaymentSucceeded, event)

	require.IsType(t, PaymentSucceeded{}, got)
	assert.Equal(t, event, got)
}

func TestFailingSubscriberDoesNotStopOthers(t *testing.T) {
	bus := New()

	ran := false
	bus.Subscribe("topic", func(ctx context.Context, payload any) error {
		return errors.New("boom")
	})
	bus.Subscribe("topic", func(ctx context.Context, payload any) error {
		ran = true
		return nil
	})

	bus.Emit(context.Background(), "topic", nil)

	assert.True(t, ran)
}

func TestPanickingSubscriberIsRecovered(t *testing.T) {
	bus := New()

	ran := false
	bus.Subscribe("topic", func(ctx context.Context, payload any) error {
		panic("boom")
	})
	bus.Subscribe("topic", func(ctx context.Context, payload any) error {
		ran = true
		return nil
	})

	assert.NotPanics(t, func() {
		bus.Emit(context.Background(), "topic", nil)
	})
	assert.True(t, ran)
}

func TestUnsubscribe(t *testing.T) {
	bus := New()

	calls := 0
	sub := bus.Subscribe("topic", func(ctx context.Context, payload any) error {
		calls++
		return nil
	})

	bus.Emit(context.Background(), "topic", nil)
	bus.Unsubscribe(sub)
	bus.Emit(context.Background(), "topic", nil)

	assert.Equal(t, 1, calls)
}

func TestEmitWithoutSubscribersIsNoop(t *testing.T) {
	bus := New()

	assert.NotPanics(t, func() {
		bus.Emit(context.Background(), "nobody-listens", nil)
	})
}
