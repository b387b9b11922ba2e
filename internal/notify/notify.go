// Package notify forwards tree changes to logs and NATS subscribers.
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/nats-io/nats.go"
)

// Static errors for err113 compliance.
var (
	ErrNoNotifiers = errors.New("no notifiers configured")
)

// Event describes one changed node.
type Event struct {
	Kind     string   `json:"kind"`
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Path     []string `json:"path"`
	Expanded bool     `json:"expanded"`
	Loading  bool     `json:"loading"`
	Children []string `json:"children"`
}

// NewEvent captures n. It must run on the tree's owner.
func NewEvent(n *tree.Node) Event {
	event := Event{
		Kind:     n.Kind(),
		Key:      n.Key(),
		Label:    n.Label(),
		Path:     n.Path(),
		Expanded: n.Expanded(),
		Loading:  n.Loading(),
		Children: []string{},
	}

	if event.Path == nil {
		event.Path = []string{}
	}

	for _, child := range n.Children() {
		event.Children = append(event.Children, child.Label())
	}

	return event
}

// Log writes one debug entry per change.
type Log struct {
	logger capi.Logger
}

// NewLog creates a log notifier.
func NewLog(logger capi.Logger) *Log {
	return &Log{logger: logger}
}

// NodeChanged implements tree.Notifier.
func (l *Log) NodeChanged(n *tree.Node) {
	event := NewEvent(n)

	l.logger.Debug("tree node changed", map[string]interface{}{
		"kind":     event.Kind,
		"path":     strings.Join(event.Path, "/"),
		"expanded": event.Expanded,
		"loading":  event.Loading,
		"children": len(event.Children),
	})
}

// Publisher sends a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATS publishes every change as a JSON Event on "<prefix>.<kind>".
type NATS struct {
	publisher Publisher
	prefix    string
	logger    capi.Logger
}

// NewNATS creates a NATS notifier. An empty prefix selects the default.
func NewNATS(publisher Publisher, prefix string, logger capi.Logger) *NATS {
	if prefix == "" {
		prefix = constants.DefaultNATSSubjectPrefix
	}

	return &NATS{
		publisher: publisher,
		prefix:    strings.TrimSuffix(prefix, "."),
		logger:    logger,
	}
}

// Subject returns the subject events of kind are published on.
func (n *NATS) Subject(kind string) string {
	return n.prefix + "." + kind
}

// NodeChanged implements tree.Notifier. Publish failures are logged and
// never block the tree.
func (n *NATS) NodeChanged(node *tree.Node) {
	event := NewEvent(node)

	err := n.publish(event)
	if err != nil {
		n.logger.Warn("failed to publish tree event", map[string]interface{}{
			"subject": n.Subject(event.Kind),
			"error":   err.Error(),
		})
	}
}

func (n *NATS) publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = n.publisher.Publish(n.Subject(event.Kind), data)
	if err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	return nil
}

// Connect dials a NATS server for publishing change events.
func Connect(url string, logger capi.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("cfsync"),
		nats.Timeout(constants.NATSConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("reconnected to NATS", map[string]interface{}{"url": conn.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	return conn, nil
}

// Multi fans changes out to several notifiers in order.
type Multi []tree.Notifier

// NodeChanged implements tree.Notifier.
func (m Multi) NodeChanged(n *tree.Node) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.NodeChanged(n)
		}
	}
}

// Combine returns the single non-nil notifier or a Multi over all of them.
func Combine(notifiers ...tree.Notifier) (tree.Notifier, error) {
	var out Multi

	for _, notifier := range notifiers {
		if notifier != nil {
			out = append(out, notifier)
		}
	}

	switch len(out) {
	case 0:
		return nil, ErrNoNotifiers
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}
