package ws

import (
	"context"
	"encoding/json"

	"MiCiudadSV/internal/metrics"
	"MiCiudadSV/internal/model"

	"github.com/sirupsen/logrus"
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Event is the frame pushed to stream clients.
type Event struct {
	Type    string            `json:"type"`
	Message model.MessageView `json:"message"`
}

// Hub manages stream subscriptions by community ID, remembering which user owns
// each client. Only the Run goroutine touches clients.
type Hub struct {
	clients   map[uint64]map[Subscriber]uint64
	register  chan subscription
	unreg     chan subscription
	evict     chan subscription
	broadcast chan frame
	done      chan struct{}
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

type frame struct {
	communityID uint64
	payload     []byte
}

type subscription struct {
	communityID uint64
	userID      uint64
	client      Subscriber
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:   make(map[uint64]map[Subscriber]uint64),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		evict:     make(chan subscription),
		broadcast: make(chan frame, 64),
		done:      make(chan struct{}),
		metrics:   m,
		log:       logrus.WithField("component", "stream"),
	}
}

// Run owns the subscriber map until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, clients := range h.clients {
				for c := range clients {
					h.drop(id, c)
				}
			}
			return
		case sub := <-h.register:
			if _, ok := h.clients[sub.communityID]; !ok {
				h.clients[sub.communityID] = make(map[Subscriber]uint64)
			}
			h.clients[sub.communityID][sub.client] = sub.userID
			h.metrics.StreamClients(1)
		case sub := <-h.unreg:
			if _, ok := h.clients[sub.communityID][sub.client]; ok {
				h.drop(sub.communityID, sub.client)
			}
		case sub := <-h.evict:
			for c, userID := range h.clients[sub.communityID] {
				if userID == sub.userID {
					h.drop(sub.communityID, c)
				}
			}
		case f := <-h.broadcast:
			for c := range h.clients[f.communityID] {
				if err := c.Send(f.payload); err != nil {
					h.log.WithError(err).WithField("community_id", f.communityID).Debug("dropping stream client")
					h.drop(f.communityID, c)
				}
			}
		}
	}
}

func (h *Hub) drop(communityID uint64, c Subscriber) {
	clients := h.clients[communityID]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.clients, communityID)
	}
	c.Close()
	h.metrics.StreamClients(-1)
}

// Register adds a user's client to a community stream. It returns false once the hub has stopped.
func (h *Hub) Register(communityID, userID uint64, client Subscriber) bool {
	select {
	case h.register <- subscription{communityID: communityID, userID: userID, client: client}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(communityID uint64, client Subscriber) {
	select {
	case h.unreg <- subscription{communityID: communityID, client: client}:
	case <-h.done:
	}
}

// Evict closes every client the user holds on the community stream.
func (h *Hub) Evict(communityID, userID uint64) {
	select {
	case h.evict <- subscription{communityID: communityID, userID: userID}:
	case <-h.done:
	}
}

// Publish queues a new message for the community's subscribers.
func (h *Hub) Publish(communityID uint64, msg model.MessageView) {
	payload, err := json.Marshal(Event{Type: model.EventMessageCreated, Message: msg})
	if err != nil {
		h.log.WithError(err).Warn("stream payload encode failed")
		return
	}
	select {
	case h.broadcast <- frame{communityID: communityID, payload: payload}:
	case <-h.done:
	}
}
