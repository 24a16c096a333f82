// Package collision resolves human-readable body and link names to engine
// handles and answers pairwise distance and collision questions.
package collision

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// BaseName is the link name that selects a body's base.
const BaseName = "none"

// NamedObject references a collision shape by body and link name.
// An empty link or "none" selects the base.
type NamedObject struct {
	Body string `yaml:"body"`
	Link string `yaml:"link"`
}

// Named returns a NamedObject for the given body and link.
func Named(body, link string) NamedObject {
	return NamedObject{Body: body, Link: link}
}

// IsBase reports whether the object selects the base link.
func (o NamedObject) IsBase() bool {
	return o.Link == "" || strings.EqualFold(o.Link, BaseName)
}

func (o NamedObject) String() string {
	if o.IsBase() {
		return o.Body
	}
	return o.Body + "/" + o.Link
}

// IndexedObject references a collision shape by engine handles.
type IndexedObject struct {
	Body sim.BodyID
	Link sim.LinkIndex
}

// Indexed returns an IndexedObject for the given body and link.
func Indexed(body sim.BodyID, link sim.LinkIndex) IndexedObject {
	return IndexedObject{Body: body, Link: link}
}

func (o IndexedObject) String() string {
	return fmt.Sprintf("(%d, %d)", o.Body, o.Link)
}

// less orders objects by body, then link.
func (o IndexedObject) less(other IndexedObject) bool {
	if o.Body != other.Body {
		return o.Body < other.Body
	}
	return o.Link < other.Link
}

// NamedPair is two named objects checked against each other.
type NamedPair struct {
	A NamedObject `yaml:"a"`
	B NamedObject `yaml:"b"`
}

// IndexedPair is two indexed objects checked against each other.
type IndexedPair struct {
	A IndexedObject
	B IndexedObject
}

// Key returns the pair with its objects in canonical order, so that a pair
// and its swap share one key.
func (p IndexedPair) Key() IndexedPair {
	if p.B.less(p.A) {
		return IndexedPair{A: p.B, B: p.A}
	}
	return p
}

func (p IndexedPair) String() string {
	return p.A.String() + "-" + p.B.String()
}

// LookupError reports a body or link name missing from the engine metadata.
type LookupError struct {
	Body string
	Link string // empty when the body itself is unknown
}

func (e *LookupError) Error() string {
	if e.Link == "" {
		return fmt.Sprintf("body %q not found", e.Body)
	}
	return fmt.Sprintf("link %q of body %q not found", e.Link, e.Body)
}

// Unwrap makes errors.Is(err, sim.ErrNotFound) hold.
func (e *LookupError) Unwrap() error {
	return sim.ErrNotFound
}

type options struct {
	log *zap.Logger
}

// Option configures a Resolver, Detector or PairDetector.
type Option func(*options)

// WithLogger sets the logger for cache fills and engine round trips.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
