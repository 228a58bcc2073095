package patch

import (
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalCreateEvent(t *testing.T) {
	record := `
id = "e39076fe-6b5a-4a7f-b927-7fc1df5ba275"

[[create-event]]
event = "a"
start = "2019-07-24T14:00:00+00:00"
tags = ["work", "coding"]
`
	got, err := Unmarshal([]byte(record))
	require.NoError(t, err)

	want := WithID(mustRef(t, "e39076fe-6b5a-4a7f-b927-7fc1df5ba275")).
		CreateEvent("a", time.Date(2019, 7, 24, 14, 0, 0, 0, time.UTC), []Tag{"work", "coding"})

	assert.True(t, want.Equal(got))
}

func TestUnmarshalRemoveStartWithParents(t *testing.T) {
	record := `
id = "e39076fe-6b5a-4a7f-b927-7fc1df5ba275"

[[remove-start]]
parents = ["fa5de1d9-aa11-49fa-b064-8128281a7d91", "0c435b19-4504-440c-abc7-f4e4d6a7d25f"]
patch = "fa5de1d9-aa11-49fa-b064-8128281a7d91"
event = "a"
time = "2019-07-24T14:00:00+00:00"
`
	got, err := Unmarshal([]byte(record))
	require.NoError(t, err)

	want := WithID(mustRef(t, "e39076fe-6b5a-4a7f-b927-7fc1df5ba275"))
	want.InsertRemoveStart(RemoveStart{
		Parents: NewRefSet(
			mustRef(t, "fa5de1d9-aa11-49fa-b064-8128281a7d91"),
			mustRef(t, "0c435b19-4504-440c-abc7-f4e4d6a7d25f"),
		),
		Patch: mustRef(t, "fa5de1d9-aa11-49fa-b064-8128281a7d91"),
		Event: "a",
		Time:  time.Date(2019, 7, 24, 14, 0, 0, 0, time.UTC),
	})

	assert.True(t, want.Equal(got))
	assert.Equal(t, 2, got.RemoveStarts()[0].Parents.Len())
}

func TestRoundTripAllInstructionKinds(t *testing.T) {
	parent := mustRef(t, "fa5de1d9-aa11-49fa-b064-8128281a7d91")
	when := time.Date(2019, 7, 24, 14, 0, 0, 0, time.UTC)

	p := WithID(mustRef(t, "2a226f4d-60f2-493d-9e9a-d6c71d98b515")).
		AddStart(parent, "a", when).
		RemoveStart(parent, "a", when).
		AddTag(parent, "a", "work").
		RemoveTag(parent, "a", "coding").
		CreateEvent("a", when, []Tag{"work", "coding"})

	data, err := Marshal(p)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, p.Equal(got), "round trip must preserve the full patch")
}

func TestMarshalOmitsEmptyInstructionSets(t *testing.T) {
	p := WithID(mustRef(t, "e39076fe-6b5a-4a7f-b927-7fc1df5ba275"))

	data, err := Marshal(p)
	require.NoError(t, err)
	record := string(data)

	assert.Contains(t, record, "e39076fe-6b5a-4a7f-b927-7fc1df5ba275")
	for _, kind := range []string{"add-start", "remove-start", "add-tag", "remove-tag", "create-event"} {
		assert.NotContains(t, record, kind, "empty instruction sets must be omitted from the record")
	}

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, p.Equal(got))
}

func TestMarshalWritesQuotedTimes(t *testing.T) {
	parent := mustRef(t, "fa5de1d9-aa11-49fa-b064-8128281a7d91")
	when := time.Date(2019, 7, 24, 14, 0, 0, 0, time.UTC)

	p := WithID(mustRef(t, "2a226f4d-60f2-493d-9e9a-d6c71d98b515")).
		AddStart(parent, "a", when).
		CreateEvent("a", when, []Tag{"work"})

	data, err := Marshal(p)
	require.NoError(t, err)

	// Timestamps go out as quoted RFC 3339 strings so the records stay
	// byte-compatible with logs written by older clients. Decoding into
	// untyped maps makes a native TOML datetime show up as time.Time.
	var doc map[string]any
	require.NoError(t, toml.Unmarshal(data, &doc))

	starts, ok := doc["add-start"].([]any)
	require.True(t, ok)
	require.Len(t, starts, 1)
	at, ok := starts[0].(map[string]any)["time"].(string)
	require.True(t, ok, "add-start time must be a quoted string, not a TOML datetime")
	assert.Equal(t, "2019-07-24T14:00:00Z", at)

	creates, ok := doc["create-event"].([]any)
	require.True(t, ok)
	require.Len(t, creates, 1)
	start, ok := creates[0].(map[string]any)["start"].(string)
	require.True(t, ok, "create-event start must be a quoted string, not a TOML datetime")
	assert.Equal(t, "2019-07-24T14:00:00Z", start)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, p.Equal(got))
}

func TestMarshalIsDeterministic(t *testing.T) {
	parent := mustRef(t, "fa5de1d9-aa11-49fa-b064-8128281a7d91")
	id := mustRef(t, "2a226f4d-60f2-493d-9e9a-d6c71d98b515")
	when := time.Date(2019, 7, 24, 14, 0, 0, 0, time.UTC)
	_ = when

	build := func(order []Tag) *Patch {
		p := WithID(id)
		for _, tag := range order {
			p.AddTag(parent, "a", tag)
		}
		return p
	}

	a, err := Marshal(build([]Tag{"work", "coding", "review"}))
	require.NoError(t, err)
	b, err := Marshal(build([]Tag{"review", "work", "coding"}))
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b), "serialization must not depend on insertion order")
}

func TestUnmarshalRejectsBadRefs(t *testing.T) {
	_, err := Unmarshal([]byte(`id = "not-a-uuid"`))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not-a-uuid"))

	record := `
id = "e39076fe-6b5a-4a7f-b927-7fc1df5ba275"

[[remove-tag]]
patch = "nope"
event = "a"
tag = "work"
`
	_, err = Unmarshal([]byte(record))
	require.Error(t, err)
}
