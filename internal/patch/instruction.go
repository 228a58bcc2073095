package patch

import (
	"time"
)

// AddStart proposes a start time for an existing event, citing the
// predecessor patches it supersedes.
type AddStart struct {
	Parents RefSet
	Event   EventRef
	Time    time.Time
}

func (a AddStart) key() string {
	return contentKey(map[string]any{
		"parents": refStrings(a.Parents),
		"event":   string(a.Event),
		"time":    canonicalTime(a.Time),
	})
}

// RemoveStart tombstones a previously added start by value. Patch names
// the patch that added the start; Parents optionally cites further
// predecessors. A nil Parents set means none were cited.
type RemoveStart struct {
	Parents RefSet
	Patch   Ref
	Event   EventRef
	Time    time.Time
}

func (r RemoveStart) key() string {
	return contentKey(map[string]any{
		"parents": refStrings(r.Parents),
		"patch":   r.Patch.String(),
		"event":   string(r.Event),
		"time":    canonicalTime(r.Time),
	})
}

// AddTag attaches a tag to an existing event.
type AddTag struct {
	Parents RefSet
	Event   EventRef
	Tag     Tag
}

func (a AddTag) key() string {
	return contentKey(map[string]any{
		"parents": refStrings(a.Parents),
		"event":   string(a.Event),
		"tag":     string(a.Tag),
	})
}

// RemoveTag tombstones a previously added tag by value.
type RemoveTag struct {
	Parents RefSet
	Patch   Ref
	Event   EventRef
	Tag     Tag
}

func (r RemoveTag) key() string {
	return contentKey(map[string]any{
		"parents": refStrings(r.Parents),
		"patch":   r.Patch.String(),
		"event":   string(r.Event),
		"tag":     string(r.Tag),
	})
}

// CreateEvent brings a new event into existence with an initial start and
// tag set, in one atomic instruction.
type CreateEvent struct {
	Event EventRef
	Start time.Time
	Tags  []Tag
}

func (c CreateEvent) key() string {
	tags := make([]string, len(c.Tags))
	for i, t := range c.Tags {
		tags[i] = string(t)
	}
	return contentKey(map[string]any{
		"event": string(c.Event),
		"start": canonicalTime(c.Start),
		"tags":  tags,
	})
}
