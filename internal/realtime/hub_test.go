package realtime

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-todo/internal/models"
)

func insertChange(id, userID string) models.TodoChange {
	return models.TodoChange{
		Type: models.ChangeInsert,
		New:  &models.Todo{ID: id, UserID: userID, Text: "A"},
	}
}

func receive(t *testing.T, sub *Subscription) models.TodoChange {
	t.Helper()
	select {
	case change, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return change
	case <-time.After(time.Second):
		t.Fatal("no change received")
		return models.TodoChange{}
	}
}

func assertEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case change := <-sub.C():
		t.Fatalf("unexpected change: %+v", change)
	default:
	}
}

func TestHub_PublishDeliversToOwnerOnly(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 4)
	alice := hub.Subscribe("alice")
	aliceOther := hub.Subscribe("alice")
	bob := hub.Subscribe("bob")

	hub.Publish(insertChange("1", "alice"))

	assert.Equal(t, "1", receive(t, alice).New.ID)
	assert.Equal(t, "1", receive(t, aliceOther).New.ID)
	assertEmpty(t, bob)
}

func TestHub_DeleteRoutedByOldRow(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 4)
	bob := hub.Subscribe("bob")

	hub.Publish(models.TodoChange{
		Type: models.ChangeDelete,
		Old:  &models.Todo{ID: "9", UserID: "bob"},
	})

	change := receive(t, bob)
	assert.Equal(t, models.ChangeDelete, change.Type)
	assert.Equal(t, "9", change.Old.ID)
}

func TestHub_ChangeWithoutRowIsDropped(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 4)
	sub := hub.Subscribe("alice")

	hub.Publish(models.TodoChange{Type: models.ChangeInsert})

	assertEmpty(t, sub)
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 1)
	sub := hub.Subscribe("alice")

	done := make(chan struct{})
	go func() {
		hub.Publish(insertChange("1", "alice"))
		hub.Publish(insertChange("2", "alice"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, "1", receive(t, sub).New.ID)
	assertEmpty(t, sub)
}

func TestSubscription_Close(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 4)
	sub := hub.Subscribe("alice")
	require.Equal(t, 1, hub.Len())

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Len())
	_, ok := <-sub.C()
	assert.False(t, ok)

	hub.Publish(insertChange("1", "alice"))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 4)
	sub := hub.Subscribe("alice")

	hub.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Len())

	// closing the subscription afterwards is harmless
	sub.Close()

	late := hub.Subscribe("alice")
	_, ok = <-late.C()
	assert.False(t, ok)
}
