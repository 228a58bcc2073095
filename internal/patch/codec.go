package patch

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Patch wire format: a TOML record keyed by "id", with one repeated
// [[...]] block per instruction and kebab-case field names. An empty
// instruction set is omitted from the record entirely rather than written
// as an empty array, and timestamps are quoted RFC 3339 strings, not
// native TOML datetimes; existing persisted logs depend on that exact
// layout.

type patchDoc struct {
	ID           string           `toml:"id"`
	AddStarts    []addStartDoc    `toml:"add-start,omitempty"`
	RemoveStarts []removeStartDoc `toml:"remove-start,omitempty"`
	AddTags      []addTagDoc      `toml:"add-tag,omitempty"`
	RemoveTags   []removeTagDoc   `toml:"remove-tag,omitempty"`
	CreateEvents []createEventDoc `toml:"create-event,omitempty"`
}

type addStartDoc struct {
	Parents []string `toml:"parents,omitempty"`
	Event   string   `toml:"event"`
	Time    string   `toml:"time"`
}

type removeStartDoc struct {
	Parents []string `toml:"parents,omitempty"`
	Patch   string   `toml:"patch"`
	Event   string   `toml:"event"`
	Time    string   `toml:"time"`
}

type addTagDoc struct {
	Parents []string `toml:"parents,omitempty"`
	Event   string   `toml:"event"`
	Tag     string   `toml:"tag"`
}

type removeTagDoc struct {
	Parents []string `toml:"parents,omitempty"`
	Patch   string   `toml:"patch"`
	Event   string   `toml:"event"`
	Tag     string   `toml:"tag"`
}

type createEventDoc struct {
	Event string   `toml:"event"`
	Start string   `toml:"start"`
	Tags  []string `toml:"tags"`
}

// Marshal renders p as a TOML patch record. Instruction blocks appear in
// canonical-key order, so the same patch always serializes to the same
// bytes.
func Marshal(p *Patch) ([]byte, error) {
	doc := patchDoc{ID: p.id.String()}

	for _, a := range p.AddStarts() {
		doc.AddStarts = append(doc.AddStarts, addStartDoc{
			Parents: refStrings(a.Parents),
			Event:   string(a.Event),
			Time:    formatTime(a.Time),
		})
	}
	for _, r := range p.RemoveStarts() {
		doc.RemoveStarts = append(doc.RemoveStarts, removeStartDoc{
			Parents: refStrings(r.Parents),
			Patch:   r.Patch.String(),
			Event:   string(r.Event),
			Time:    formatTime(r.Time),
		})
	}
	for _, a := range p.AddTags() {
		doc.AddTags = append(doc.AddTags, addTagDoc{
			Parents: refStrings(a.Parents),
			Event:   string(a.Event),
			Tag:     string(a.Tag),
		})
	}
	for _, r := range p.RemoveTags() {
		doc.RemoveTags = append(doc.RemoveTags, removeTagDoc{
			Parents: refStrings(r.Parents),
			Patch:   r.Patch.String(),
			Event:   string(r.Event),
			Tag:     string(r.Tag),
		})
	}
	for _, c := range p.CreateEvents() {
		tags := make([]string, len(c.Tags))
		for i, t := range c.Tags {
			tags[i] = string(t)
		}
		doc.CreateEvents = append(doc.CreateEvents, createEventDoc{
			Event: string(c.Event),
			Start: formatTime(c.Start),
			Tags:  tags,
		})
	}

	return toml.Marshal(doc)
}

// Unmarshal parses a TOML patch record.
func Unmarshal(data []byte) (*Patch, error) {
	var doc patchDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse patch record: %w", err)
	}

	id, err := ParseRef(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("parse patch id %q: %w", doc.ID, err)
	}
	p := WithID(id)

	for _, a := range doc.AddStarts {
		parents, err := parseRefs(a.Parents)
		if err != nil {
			return nil, fmt.Errorf("add-start: %w", err)
		}
		at, err := parseTime(a.Time)
		if err != nil {
			return nil, fmt.Errorf("add-start: %w", err)
		}
		p.InsertAddStart(AddStart{
			Parents: parents,
			Event:   EventRef(a.Event),
			Time:    at,
		})
	}
	for _, r := range doc.RemoveStarts {
		parents, err := parseRefs(r.Parents)
		if err != nil {
			return nil, fmt.Errorf("remove-start: %w", err)
		}
		ref, err := ParseRef(r.Patch)
		if err != nil {
			return nil, fmt.Errorf("remove-start patch %q: %w", r.Patch, err)
		}
		at, err := parseTime(r.Time)
		if err != nil {
			return nil, fmt.Errorf("remove-start: %w", err)
		}
		p.InsertRemoveStart(RemoveStart{
			Parents: parents,
			Patch:   ref,
			Event:   EventRef(r.Event),
			Time:    at,
		})
	}
	for _, a := range doc.AddTags {
		parents, err := parseRefs(a.Parents)
		if err != nil {
			return nil, fmt.Errorf("add-tag: %w", err)
		}
		p.InsertAddTag(AddTag{
			Parents: parents,
			Event:   EventRef(a.Event),
			Tag:     Tag(a.Tag),
		})
	}
	for _, r := range doc.RemoveTags {
		parents, err := parseRefs(r.Parents)
		if err != nil {
			return nil, fmt.Errorf("remove-tag: %w", err)
		}
		ref, err := ParseRef(r.Patch)
		if err != nil {
			return nil, fmt.Errorf("remove-tag patch %q: %w", r.Patch, err)
		}
		p.InsertRemoveTag(RemoveTag{
			Parents: parents,
			Patch:   ref,
			Event:   EventRef(r.Event),
			Tag:     Tag(r.Tag),
		})
	}
	for _, c := range doc.CreateEvents {
		tags := make([]Tag, len(c.Tags))
		for i, t := range c.Tags {
			tags[i] = Tag(t)
		}
		start, err := parseTime(c.Start)
		if err != nil {
			return nil, fmt.Errorf("create-event: %w", err)
		}
		p.InsertCreateEvent(CreateEvent{
			Event: EventRef(c.Event),
			Start: start,
			Tags:  tags,
		})
	}

	return p, nil
}

// formatTime renders a timestamp for the wire. Times are second precision
// after NormalizeTime, so this always yields the plain "Z" form.
func formatTime(t time.Time) string {
	return NormalizeTime(t).Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", raw, err)
	}
	return t, nil
}

// parseRefs converts a wire parents list to a RefSet. An absent list maps
// to nil so that "omitted" and "empty" stay interchangeable.
func parseRefs(raw []string) (RefSet, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	s := make(RefSet, len(raw))
	for _, v := range raw {
		r, err := ParseRef(v)
		if err != nil {
			return nil, fmt.Errorf("parse parent ref %q: %w", v, err)
		}
		s.Add(r)
	}
	return s, nil
}
