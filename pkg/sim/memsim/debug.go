package memsim

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// AddDebugLine stores a debug line. A line with ReplaceID overwrites that
// item and keeps its id.
func (e *Engine) AddDebugLine(line sim.DebugLine) (sim.DebugItemID, error) {
	if err := e.checkOpen(); err != nil {
		return sim.NoDebugItem, err
	}
	if line.ParentLink == sim.AnyLink {
		line.ParentLink = sim.BaseLink
	}
	if line.ParentBody != sim.NoBody {
		b, err := e.body(line.ParentBody)
		if err != nil {
			return sim.NoDebugItem, err
		}
		if err := checkLinkFilter(b, line.ParentLink); err != nil {
			return sim.NoDebugItem, err
		}
	}

	id := line.ReplaceID
	if id == sim.NoDebugItem {
		id = e.nextDebug
		e.nextDebug++
	} else if _, ok := e.debugItems[id]; !ok {
		return sim.NoDebugItem, fmt.Errorf("debug item %d: %w", id, sim.ErrNotFound)
	}
	line.ReplaceID = sim.NoDebugItem
	e.debugItems[id] = line
	e.stats.Mutations++
	return id, nil
}

// RemoveDebugItem deletes a debug item.
func (e *Engine) RemoveDebugItem(id sim.DebugItemID) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if _, ok := e.debugItems[id]; !ok {
		return fmt.Errorf("debug item %d: %w", id, sim.ErrNotFound)
	}
	delete(e.debugItems, id)
	e.stats.Mutations++
	return nil
}

// DebugItems returns the ids of the live debug items in ascending order.
func (e *Engine) DebugItems() []sim.DebugItemID {
	ids := make([]sim.DebugItemID, 0, len(e.debugItems))
	for id := range e.debugItems {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DebugLine returns a stored line with its endpoints in world coordinates.
func (e *Engine) DebugLine(id sim.DebugItemID) (line sim.DebugLine, from, to mgl64.Vec3, ok bool) {
	line, ok = e.debugItems[id]
	if !ok {
		return sim.DebugLine{}, mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	from, to = line.From, line.To
	if b, exists := e.bodies[line.ParentBody]; exists {
		frame := b.linkFrame(line.ParentLink, nil)
		from, to = frame.TransformPoint(from), frame.TransformPoint(to)
	}
	return line, from, to, true
}
