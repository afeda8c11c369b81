// Package sse keeps the Server-Sent Events streams open in editor pages.
package sse

import (
	"sync"

	"github.com/kumagoya/kumagoya/internal/model"
)

const clientBuffer = 8

type Client struct {
	Msg    chan string
	UserID model.UserID
}

func NewClient(userID model.UserID) *Client {
	return &Client{Msg: make(chan string, clientBuffer), UserID: userID}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.Msg)
	}
}

// Broadcast sends msg to every stream of userID. Clients that are not keeping up miss it.
func (s *SSEClients) Broadcast(userID model.UserID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.UserID == userID {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}

func (s *SSEClients) Count(userID model.UserID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for client := range s.clients {
		if client.UserID == userID {
			n++
		}
	}
	return n
}
