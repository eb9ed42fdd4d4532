package notify

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/clothconnect/internal/model"
)

func newTestHub(buffer int) *Hub {
	return NewHub(buffer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_SendReachesEveryConnection(t *testing.T) {
	h := newTestHub(4)
	a := h.Connect("u1")
	b := h.Connect("u1")
	other := h.Connect("u2")

	n := model.Notification{ID: "n1", Title: "Donation accepted"}
	assert.Equal(t, 2, h.Send("u1", n))

	assert.Equal(t, "n1", (<-a.C).ID)
	assert.Equal(t, "n1", (<-b.C).ID)
	assert.Empty(t, other.C)
}

func TestHub_SendToNobody(t *testing.T) {
	h := newTestHub(4)
	assert.Equal(t, 0, h.Send("ghost", model.Notification{ID: "n1"}))
}

func TestHub_SendDoesNotBlockOnFullBuffer(t *testing.T) {
	h := newTestHub(1)
	sub := h.Connect("u1")

	assert.Equal(t, 1, h.Send("u1", model.Notification{ID: "first"}))
	assert.Equal(t, 0, h.Send("u1", model.Notification{ID: "second"}), "full buffer drops")

	assert.Equal(t, "first", (<-sub.C).ID)
}

func TestHub_Disconnect(t *testing.T) {
	h := newTestHub(4)
	sub := h.Connect("u1")
	require.Equal(t, 1, h.Connections("u1"))

	h.Disconnect(sub)
	h.Disconnect(sub)

	assert.Equal(t, 0, h.Connections("u1"))
	_, open := <-sub.C
	assert.False(t, open, "channel is closed on disconnect")
	assert.Equal(t, 0, h.Send("u1", model.Notification{ID: "late"}))
}

func TestHub_ConcurrentUse(t *testing.T) {
	h := newTestHub(64)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := h.Connect("u1")
			h.Send("u1", model.Notification{ID: "x"})
			h.Disconnect(sub)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.Connections("u1"))
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.Send(context.Background(), "donor@example.com", "Verify your email", "token"))
	assert.Contains(t, buf.String(), "to=donor@example.com")
	assert.Contains(t, buf.String(), `subject="Verify your email"`)
}
