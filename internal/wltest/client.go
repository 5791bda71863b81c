package wltest

import (
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// Client is a bare go-wayland connection to a Server, with every
// advertised global collected, for tests of individual protocol
// bindings.
type Client struct {
	Display  *client.Display
	Registry *client.Registry
	Globals  []client.RegistryGlobalEvent
}

// Dial connects to s and waits for the initial globals.
func Dial(s *Server) (*Client, error) {
	display, err := client.Connect(s.Path())
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	c := &Client{Display: display}
	c.Registry, err = display.GetRegistry()
	if err != nil {
		display.Context().Close()
		return nil, fmt.Errorf("get registry: %w", err)
	}
	c.Registry.SetGlobalHandler(func(ev client.RegistryGlobalEvent) {
		c.Globals = append(c.Globals, ev)
	})
	if err := c.Roundtrip(); err != nil {
		display.Context().Close()
		return nil, err
	}
	return c, nil
}

// Global returns the first advertisement of iface.
func (c *Client) Global(iface string) (client.RegistryGlobalEvent, bool) {
	for _, g := range c.Globals {
		if g.Interface == iface {
			return g, true
		}
	}
	return client.RegistryGlobalEvent{}, false
}

// Roundtrip waits until the server has handled every request sent so far
// and the events it sent back have been dispatched.
func (c *Client) Roundtrip() error {
	cb, err := c.Display.Sync()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	defer c.Display.Context().Unregister(cb)
	done := false
	cb.SetDoneHandler(func(client.CallbackDoneEvent) { done = true })
	for !done {
		if err := c.Display.Context().Dispatch(); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.Display.Context().Close()
}
