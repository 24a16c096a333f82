package collision

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Resolver maps named objects to indexed objects.
//
// The link table of a body is read from the engine once, on the first
// lookup that needs it, and kept until Invalidate or Reset. Removing and
// recreating a body makes its cached entries stale; the caller must
// invalidate them.
type Resolver struct {
	engine sim.Introspector
	log    *zap.Logger

	registered map[string]sim.BodyID
	bodies     map[string]sim.BodyID
	links      map[sim.BodyID]map[string]sim.LinkIndex
}

// NewResolver creates a resolver with empty caches.
func NewResolver(engine sim.Introspector, opts ...Option) *Resolver {
	o := buildOptions(opts)
	return &Resolver{
		engine:     engine,
		log:        o.log,
		registered: make(map[string]sim.BodyID),
		bodies:     make(map[string]sim.BodyID),
		links:      make(map[sim.BodyID]map[string]sim.LinkIndex),
	}
}

// Register binds a body name to a handle. Registered names take
// precedence over the names the engine reports.
func (r *Resolver) Register(name string, body sim.BodyID) {
	r.registered[name] = body
}

// Resolve returns the indexed object for o. Repeated calls for the same
// name return the same reference without further engine calls.
func (r *Resolver) Resolve(o NamedObject) (IndexedObject, error) {
	body, err := r.body(o.Body)
	if err != nil {
		return IndexedObject{}, err
	}
	if o.IsBase() {
		return IndexedObject{Body: body, Link: sim.BaseLink}, nil
	}

	links, err := r.linkTable(body)
	if err != nil {
		return IndexedObject{}, err
	}
	link, ok := links[o.Link]
	if !ok {
		return IndexedObject{}, &LookupError{Body: o.Body, Link: o.Link}
	}
	return IndexedObject{Body: body, Link: link}, nil
}

// ResolvePair resolves both objects of p.
func (r *Resolver) ResolvePair(p NamedPair) (IndexedPair, error) {
	a, err := r.Resolve(p.A)
	if err != nil {
		return IndexedPair{}, err
	}
	b, err := r.Resolve(p.B)
	if err != nil {
		return IndexedPair{}, err
	}
	return IndexedPair{A: a, B: b}, nil
}

// ResolvePairs resolves every pair, stopping at the first failure.
func (r *Resolver) ResolvePairs(pairs []NamedPair) ([]IndexedPair, error) {
	out := make([]IndexedPair, 0, len(pairs))
	for _, p := range pairs {
		ip, err := r.ResolvePair(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ip)
	}
	return out, nil
}

// Invalidate drops every cached entry for body. Registered names stay.
func (r *Resolver) Invalidate(body sim.BodyID) {
	delete(r.links, body)
	for name, id := range r.bodies {
		if id == body {
			delete(r.bodies, name)
		}
	}
}

// Reset drops every cached entry. Registered names stay.
func (r *Resolver) Reset() {
	r.bodies = make(map[string]sim.BodyID)
	r.links = make(map[sim.BodyID]map[string]sim.LinkIndex)
}

// Cached reports whether the link table of body is cached.
func (r *Resolver) Cached(body sim.BodyID) bool {
	_, ok := r.links[body]
	return ok
}

func (r *Resolver) body(name string) (sim.BodyID, error) {
	if id, ok := r.registered[name]; ok {
		return id, nil
	}
	if id, ok := r.bodies[name]; ok {
		return id, nil
	}

	id, err := sim.BodyByName(r.engine, name)
	if errors.Is(err, sim.ErrNotFound) {
		return sim.NoBody, &LookupError{Body: name}
	}
	if err != nil {
		return sim.NoBody, err
	}
	r.bodies[name] = id
	return id, nil
}

// linkTable returns the cached link table of body, reading it from the
// engine on first use. The base link is listed under its reported name.
func (r *Resolver) linkTable(body sim.BodyID) (map[string]sim.LinkIndex, error) {
	if links, ok := r.links[body]; ok {
		return links, nil
	}

	joints, err := sim.Joints(r.engine, body)
	if err != nil {
		return nil, err
	}
	info, err := r.engine.BodyInfo(body)
	if err != nil {
		return nil, err
	}

	links := make(map[string]sim.LinkIndex, len(joints)+1)
	for _, j := range joints {
		if prev, dup := links[j.LinkName]; dup {
			r.log.Warn("duplicate link name, keeping first",
				zap.Int("body", int(body)),
				zap.String("link", j.LinkName),
				zap.Int("kept", int(prev)),
				zap.Int("ignored", j.Index))
			continue
		}
		links[j.LinkName] = sim.LinkIndex(j.Index)
	}
	if _, ok := links[info.BaseName]; !ok && info.BaseName != "" {
		links[info.BaseName] = sim.BaseLink
	}

	r.links[body] = links
	r.log.Debug("link table cached", zap.Int("body", int(body)), zap.Int("links", len(links)))
	return links, nil
}
