// Package sessions tracks a server's live streaming connections, one entry
// per open channel, keyed by an opaque identifier issued at registration.
package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
)

// Chan is the server-to-client half of one streaming connection. The
// registry stores channels without ever closing them: lifecycle belongs to
// the transport that registered them.
type Chan interface {
	// Send pushes one named frame to the client.
	Send(event string, data []byte) error
}

var ErrNotFound = errors.New("no such session")

type Registry struct {
	mu    sync.Mutex
	chans map[string]Chan
}

// Register stores ch under a fresh identifier and returns it. Identifiers
// are 128-bit random tokens, and one is never reissued while still
// registered.
func (me *Registry) Register(ch Chan) (id string) {
	me.mu.Lock()
	defer me.mu.Unlock()
	if me.chans == nil {
		me.chans = make(map[string]Chan)
	}
	for {
		id = newId()
		if _, ok := me.chans[id]; !ok {
			break
		}
	}
	me.chans[id] = ch
	return
}

// Lookup returns the channel registered under id, or ErrNotFound.
func (me *Registry) Lookup(id string) (Chan, error) {
	me.mu.Lock()
	defer me.mu.Unlock()
	ch, ok := me.chans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ch, nil
}

// Unregister forgets id. Unregistering an unknown id is a no-op, so the
// teardown paths don't have to coordinate.
func (me *Registry) Unregister(id string) {
	me.mu.Lock()
	defer me.mu.Unlock()
	delete(me.chans, id)
}

func (me *Registry) Len() int {
	me.mu.Lock()
	defer me.mu.Unlock()
	return len(me.chans)
}

// Ids returns the identifiers of all live sessions, in no particular order.
func (me *Registry) Ids() (ret []string) {
	me.mu.Lock()
	defer me.mu.Unlock()
	ret = make([]string, 0, len(me.chans))
	for id := range me.chans {
		ret = append(ret, id)
	}
	return
}

func newId() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
