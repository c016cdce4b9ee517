package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/automations/pkg/channels/gochannel"
	"github.com/dukex/automations/pkg/eventbus"
	"github.com/dukex/automations/pkg/events"
	"github.com/dukex/automations/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	pub, sub := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub, nil)

	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.AutomationSaved, 1)

	require.NoError(t, bus.Handle(events.AutomationSavedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.AutomationSaved)

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	def := models.WorkflowDefinition{ID: "a-1", Name: "Welcome", Triggers: []models.Trigger{{Kind: models.TriggerKindManual}}}
	require.NoError(t, bus.Publish(ctx, def.ID, events.NewAutomationSaved(def, false, nil)))

	select {
	case event := <-received:
		assert.Equal(t, "a-1", event.AutomationID)
		assert.Equal(t, "Welcome", event.Name)
		assert.Equal(t, []string{"manual"}, event.TriggerKinds)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestWatermillEventBus_UnhandledTypesAreAcked(t *testing.T) {
	pub, sub := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub, nil)

	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	done := make(chan error, 1)

	go func() {
		done <- bus.Publish(ctx, "a-1", events.NewAutomationStepsSaved("a-1", 2))
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on an unhandled event")
	}
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, eventbus.Discard.Publish(t.Context(), "a", events.NewAutomationStepsSaved("a", 0)))
	assert.NotEmpty(t, eventbus.NewWatermillEventBus(nil, nil, nil).GenerateID())
}
