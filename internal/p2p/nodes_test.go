package p2p

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSocket struct {
	sent [][]byte
}

func (f *fakeSocket) Send(message []byte) error {
	f.sent = append(f.sent, message)
	return nil
}

func (f *fakeSocket) Close() error { return nil }

func TestAddKeepsURIsAndSocketsCoherent(t *testing.T) {
	n := NewNodesNetwork()
	n.Add("ws://a:1", &fakeSocket{})
	n.Add("ws://b:2", &fakeSocket{})

	assert.Equal(t, 2, n.Len())
	assert.Len(t, n.URIs(), len(n.Sockets()))
}

func TestRemoveDropsBoth(t *testing.T) {
	n := NewNodesNetwork()
	n.Add("ws://a:1", &fakeSocket{})
	n.Remove("ws://a:1")

	assert.Equal(t, 0, n.Len())
	assert.False(t, n.Has("ws://a:1"))
}

func TestReaddingReplacesSocket(t *testing.T) {
	n := NewNodesNetwork()
	first := &fakeSocket{}
	second := &fakeSocket{}
	n.Add("ws://a:1", first)
	n.Add("ws://a:1", second)

	assert.Equal(t, 1, n.Len())
	sockets := n.Sockets()
	assert.Len(t, sockets, 1)
	assert.Same(t, second, sockets[0])
}
