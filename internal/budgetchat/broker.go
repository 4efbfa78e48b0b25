// Package budgetchat implements protohackers problem 3: a line-oriented
// chat room that relays messages between named participants.
package budgetchat

import (
	"fmt"
	"strings"
	"sync"
)

// Broker holds every active user's pending outbound message queue. A
// single Broker is shared by every connection on the server.
type Broker struct {
	mu    sync.Mutex
	users map[string][]string
}

// NewBroker returns an empty room.
func NewBroker() *Broker {
	return &Broker{users: make(map[string][]string)}
}

// Register adds name to the room if it isn't already taken, announces the
// join to everyone else, and queues for the new user a notice listing the
// users present before this join. It returns an error if name is taken.
func (b *Broker) Register(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, taken := b.users[name]; taken {
		return fmt.Errorf("user %s already exists", name)
	}

	active := make([]string, 0, len(b.users))
	joinNotice := fmt.Sprintf("* %s has entered the room\n", name)
	for existing, queue := range b.users {
		active = append(active, existing)
		b.users[existing] = append(queue, joinNotice)
	}

	roomNotice := fmt.Sprintf("* The room contains: %s\n", strings.Join(active, ", "))
	b.users[name] = []string{roomNotice}
	return nil
}

// Receive pops the next queued message for name, if any.
func (b *Broker) Receive(name string) (msg string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.users[name]
	if len(queue) == 0 {
		return "", false
	}
	b.users[name] = queue[1:]
	return queue[0], true
}

// Send queues message, attributed to name, for delivery to every other
// registered user.
func (b *Broker) Send(name, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := fmt.Sprintf("[%s] %s\n", name, message)
	for user, queue := range b.users {
		if user == name {
			continue
		}
		b.users[user] = append(queue, out)
	}
}

// Logoff removes name from the room and announces the departure.
func (b *Broker) Logoff(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.users, name)
	notice := fmt.Sprintf("* %s has left the room\n", name)
	for user, queue := range b.users {
		b.users[user] = append(queue, notice)
	}
}
