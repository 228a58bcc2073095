package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tempus/internal/patch"
)

// Scenario defines a convergence test scenario.
// Scenarios build a set of labeled patches, replay them in several orders
// and assert that every order produces the identical timesheet.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Patches are the labeled patch definitions. Labels stand in for
	// patch refs wherever a parent or a removal target is cited, so
	// scenarios stay readable.
	Patches []PatchSpec `yaml:"patches"`

	// Orders lists the apply orders to exercise, by label. When empty,
	// the declared order and its reverse are used.
	Orders [][]string `yaml:"orders,omitempty"`

	// WantConflicts are substrings that must each match at least one
	// flatten conflict. An empty list requires a clean flatten.
	WantConflicts []string `yaml:"want_conflicts,omitempty"`
}

// PatchSpec is one labeled patch in a scenario.
type PatchSpec struct {
	Label string `yaml:"label"`

	// ID fixes the patch ref for deterministic output. Required.
	ID string `yaml:"id"`

	CreateEvents []CreateEventSpec `yaml:"create-event,omitempty"`
	AddStarts    []AddStartSpec    `yaml:"add-start,omitempty"`
	RemoveStarts []RemoveStartSpec `yaml:"remove-start,omitempty"`
	AddTags      []AddTagSpec      `yaml:"add-tag,omitempty"`
	RemoveTags   []RemoveTagSpec   `yaml:"remove-tag,omitempty"`
}

// CreateEventSpec mirrors the create-event instruction.
type CreateEventSpec struct {
	Event string   `yaml:"event"`
	Start string   `yaml:"start"`
	Tags  []string `yaml:"tags"`
}

// AddStartSpec mirrors the add-start instruction. Parents cite labels.
type AddStartSpec struct {
	Parents []string `yaml:"parents,omitempty"`
	Event   string   `yaml:"event"`
	Time    string   `yaml:"time"`
}

// RemoveStartSpec mirrors the remove-start instruction. Patch cites a label.
type RemoveStartSpec struct {
	Parents []string `yaml:"parents,omitempty"`
	Patch   string   `yaml:"patch"`
	Event   string   `yaml:"event"`
	Time    string   `yaml:"time"`
}

// AddTagSpec mirrors the add-tag instruction.
type AddTagSpec struct {
	Parents []string `yaml:"parents,omitempty"`
	Event   string   `yaml:"event"`
	Tag     string   `yaml:"tag"`
}

// RemoveTagSpec mirrors the remove-tag instruction.
type RemoveTagSpec struct {
	Parents []string `yaml:"parents,omitempty"`
	Patch   string   `yaml:"patch"`
	Event   string   `yaml:"event"`
	Tag     string   `yaml:"tag"`
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadScenarios reads every .yaml scenario under dir, sorted by filename.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if len(s.Patches) == 0 {
		return fmt.Errorf("no patches")
	}

	labels := make(map[string]struct{}, len(s.Patches))
	for _, p := range s.Patches {
		if p.Label == "" {
			return fmt.Errorf("patch without label")
		}
		if _, dup := labels[p.Label]; dup {
			return fmt.Errorf("duplicate label %q", p.Label)
		}
		if _, err := patch.ParseRef(p.ID); err != nil {
			return fmt.Errorf("patch %q: bad id: %w", p.Label, err)
		}
		labels[p.Label] = struct{}{}
	}

	for _, order := range s.Orders {
		if len(order) != len(s.Patches) {
			return fmt.Errorf("order %v does not cover all %d patches", order, len(s.Patches))
		}
		for _, label := range order {
			if _, ok := labels[label]; !ok {
				return fmt.Errorf("order cites unknown label %q", label)
			}
		}
	}
	return nil
}

// build turns the declarations into real patches, resolving labels to refs.
func (s *Scenario) build() (map[string]*patch.Patch, error) {
	refs := make(map[string]patch.Ref, len(s.Patches))
	for _, ps := range s.Patches {
		ref, err := patch.ParseRef(ps.ID)
		if err != nil {
			return nil, err
		}
		refs[ps.Label] = ref
	}

	resolve := func(label string) (patch.Ref, error) {
		ref, ok := refs[label]
		if !ok {
			return patch.Ref{}, fmt.Errorf("unknown label %q", label)
		}
		return ref, nil
	}

	patches := make(map[string]*patch.Patch, len(s.Patches))
	for _, ps := range s.Patches {
		p := patch.WithID(refs[ps.Label])

		for _, c := range ps.CreateEvents {
			start, err := parseScenarioTime(c.Start)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			tags := make([]patch.Tag, len(c.Tags))
			for i, t := range c.Tags {
				tags[i] = patch.Tag(t)
			}
			p.CreateEvent(patch.EventRef(c.Event), start, tags)
		}
		for _, a := range ps.AddStarts {
			t, err := parseScenarioTime(a.Time)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			parents, err := resolveAll(a.Parents, resolve)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			p.InsertAddStart(patch.AddStart{
				Parents: parents,
				Event:   patch.EventRef(a.Event),
				Time:    t,
			})
		}
		for _, r := range ps.RemoveStarts {
			t, err := parseScenarioTime(r.Time)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			target, err := resolve(r.Patch)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			parents, err := resolveAll(r.Parents, resolve)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			p.InsertRemoveStart(patch.RemoveStart{
				Parents: parents,
				Patch:   target,
				Event:   patch.EventRef(r.Event),
				Time:    t,
			})
		}
		for _, a := range ps.AddTags {
			parents, err := resolveAll(a.Parents, resolve)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			p.InsertAddTag(patch.AddTag{
				Parents: parents,
				Event:   patch.EventRef(a.Event),
				Tag:     patch.Tag(a.Tag),
			})
		}
		for _, r := range ps.RemoveTags {
			target, err := resolve(r.Patch)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			parents, err := resolveAll(r.Parents, resolve)
			if err != nil {
				return nil, fmt.Errorf("patch %q: %w", ps.Label, err)
			}
			p.InsertRemoveTag(patch.RemoveTag{
				Parents: parents,
				Patch:   target,
				Event:   patch.EventRef(r.Event),
				Tag:     patch.Tag(r.Tag),
			})
		}

		patches[ps.Label] = p
	}
	return patches, nil
}

// orders returns the apply orders to exercise: the declared ones, or the
// spec order plus its reverse when none are given.
func (s *Scenario) orders() [][]string {
	if len(s.Orders) > 0 {
		return s.Orders
	}

	forward := make([]string, len(s.Patches))
	for i, p := range s.Patches {
		forward[i] = p.Label
	}
	backward := make([]string, len(forward))
	for i, label := range forward {
		backward[len(forward)-1-i] = label
	}
	return [][]string{forward, backward}
}

func resolveAll(labels []string, resolve func(string) (patch.Ref, error)) (patch.RefSet, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	set := make(patch.RefSet, len(labels))
	for _, l := range labels {
		ref, err := resolve(l)
		if err != nil {
			return nil, err
		}
		set.Add(ref)
	}
	return set, nil
}

func parseScenarioTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q: %w", s, err)
	}
	return t, nil
}
