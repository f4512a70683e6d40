package tui

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// routeMsg asks the model to move to a client route.
type routeMsg struct{ target string }

// externalMsg reports that the browser was sent to an absolute URL.
type externalMsg struct {
	url string
	err error
}

// Navigator turns navigation effects into messages for the running program.
// Absolute URLs are handed to open (a browser launcher) first.
type Navigator struct {
	events chan tea.Msg
	done   chan struct{}
	stop   sync.Once
	open   func(url string) error
}

func NewNavigator(open func(url string) error) *Navigator {
	return &Navigator{events: make(chan tea.Msg, 16), done: make(chan struct{}), open: open}
}

// Stop releases senders and the listener once the program has exited.
func (n *Navigator) Stop() {
	n.stop.Do(func() { close(n.done) })
}

func (n *Navigator) Navigate(target string) error {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		var err error
		if n.open != nil {
			err = n.open(target)
		}
		n.post(externalMsg{url: target, err: err})
		return nil
	}
	n.post(routeMsg{target: target})
	return nil
}

// post is only called from commands and session listeners, never from
// Update, so waiting for the listener cannot deadlock the event loop.
func (n *Navigator) post(msg tea.Msg) {
	select {
	case n.events <- msg:
	case <-n.done:
	}
}

// wait delivers the next navigation message.
func (n *Navigator) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-n.events:
			return msg
		case <-n.done:
			return nil
		}
	}
}
