package sim

import "fmt"

// Bodies lists every body in the simulation in serial order.
func Bodies(e Introspector) ([]BodyID, error) {
	n, err := e.NumBodies()
	if err != nil {
		return nil, err
	}
	ids := make([]BodyID, 0, n)
	for i := 0; i < n; i++ {
		id, err := e.BodyID(i)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BodyByName returns the first body whose body name or base link name
// equals name.
func BodyByName(e Introspector, name string) (BodyID, error) {
	ids, err := Bodies(e)
	if err != nil {
		return NoBody, err
	}
	for _, id := range ids {
		info, err := e.BodyInfo(id)
		if err != nil {
			return NoBody, err
		}
		if info.BodyName == name || info.BaseName == name {
			return id, nil
		}
	}
	return NoBody, fmt.Errorf("body %q: %w", name, ErrNotFound)
}

// Joints returns the joint info of every joint of body, in index order.
func Joints(e Introspector, body BodyID) ([]JointInfo, error) {
	n, err := e.NumJoints(body)
	if err != nil {
		return nil, err
	}
	joints := make([]JointInfo, 0, n)
	for i := 0; i < n; i++ {
		info, err := e.JointInfo(body, i)
		if err != nil {
			return nil, err
		}
		joints = append(joints, info)
	}
	return joints, nil
}

// JointIndexByName returns the index of the joint called name.
func JointIndexByName(e Introspector, body BodyID, name string) (int, error) {
	joints, err := Joints(e, body)
	if err != nil {
		return -1, err
	}
	for _, j := range joints {
		if j.Name == name {
			return j.Index, nil
		}
	}
	return -1, fmt.Errorf("joint %q of body %d: %w", name, body, ErrNotFound)
}

// ClosestPoints queries closest points between two links with the
// engine's defaults filled in. Pass AnyLink to consider every link.
func ClosestPoints(e Querier, a BodyID, linkA LinkIndex, b BodyID, linkB LinkIndex, maxDistance float64) ([]ContactPoint, error) {
	q := ClosestPointsQuery{BodyA: a, BodyB: b, LinkA: linkA, LinkB: linkB, MaxDistance: maxDistance}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return e.ClosestPoints(q)
}

// MinDistance returns the smallest contact distance among points, or
// maxDistance when there are none. The result never exceeds maxDistance.
func MinDistance(points []ContactPoint, maxDistance float64) float64 {
	d := maxDistance
	for _, p := range points {
		if p.Distance < d {
			d = p.Distance
		}
	}
	return d
}

// LinkNames returns the name of every link of body, indexed by link.
func LinkNames(e Introspector, body BodyID) ([]string, error) {
	joints, err := Joints(e, body)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(joints))
	for i, j := range joints {
		names[i] = j.LinkName
	}
	return names, nil
}

// ContactsBetween returns the contacts of the last step between a and b,
// reported with a as body A.
func ContactsBetween(e Querier, a, b BodyID) ([]ContactPoint, error) {
	f := AllContacts()
	f.BodyA, f.BodyB = a, b
	points, err := e.ContactPoints(f)
	if err != nil {
		return nil, err
	}
	for i, p := range points {
		if p.BodyA != a {
			points[i] = p.Swap()
		}
	}
	return points, nil
}
