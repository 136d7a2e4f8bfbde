package realtime

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topics []string
	err    error
}

func (f *fakePublisher) PublishTopicEvent(topic, event string, payload []byte) error {
	f.topics = append(f.topics, topic+"/"+event)
	return f.err
}

func localClient(h *Hub, id, topic string) *Client {
	c := &Client{ID: id, Topic: topic, hub: h, send: make(chan WSMessage, 4)}
	h.Register(c)
	return c
}

func TestPublishWithoutRedisBroadcastsLocally(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a := localClient(h, "a", TopicTalks)
	other := localClient(h, "b", "elsewhere")

	h.Publish(TopicTalks, "talk_status_changed", map[string]int{"n": 1})

	require.Len(t, a.send, 1)
	msg := <-a.send
	assert.Equal(t, "talk_status_changed", msg.Event)
	assert.JSONEq(t, `{"n":1}`, string(msg.Data))
	assert.Empty(t, other.send)
}

func TestPublishWithRedisDefersToSubscriber(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHub(nil, pub, nil)
	a := localClient(h, "a", TopicTalks)

	h.Publish(TopicTalks, "talk_status_changed", map[string]int{"n": 1})
	assert.Equal(t, []string{"talks/talk_status_changed"}, pub.topics)
	assert.Empty(t, a.send)

	pub.err = errors.New("down")
	h.Publish(TopicTalks, "talk_status_changed", map[string]int{"n": 2})
	assert.Len(t, a.send, 1)
}

func TestUnregisterDropsEmptyTopics(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a := localClient(h, "a", TopicTalks)
	b := localClient(h, "b", TopicTalks)
	assert.Equal(t, 2, h.Subscribers(TopicTalks))
	h.Unregister(a)
	h.Unregister(b)
	assert.Equal(t, 0, h.Subscribers(TopicTalks))
	h.Broadcast(TopicTalks, "x", nil)
}

func TestServeWsStreamsTopicEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub(nil, nil, nil)
	r := gin.New()
	r.GET("/ws", ServeWs(h, nil, TopicTalks))
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?topic=talks"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Subscribers(TopicTalks) == 1 }, time.Second, 10*time.Millisecond)
	h.Publish(TopicTalks, "talk_status_changed", map[string]string{"email": "ada@example.org"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "talk_status_changed", msg.Event)
	var data map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "ada@example.org", data["email"])

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest("GET", "/ws?topic=nope", nil))
	assert.Equal(t, 400, resp.Code)
}
