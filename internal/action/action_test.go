package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

func TestCatalog_UniqueAndScoped(t *testing.T) {
	seen := make(map[Type]bool)
	for _, typ := range All() {
		assert.False(t, seen[typ], "duplicate action type %q", typ)
		seen[typ] = true
		assert.NotEmpty(t, typ.Feature(), "feature for %q", typ)
		assert.NotEmpty(t, typ.Intent(), "intent for %q", typ)
		assert.True(t, Known(typ))
	}
}

func TestIndex_RejectsDuplicates(t *testing.T) {
	err := index([]Type{GetTasks, GetTasks}, map[Type]struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestIndex_RejectsUnscopedTag(t *testing.T) {
	err := index([]Type{"GET_TASKS"}, map[Type]struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature/intent")
}

func TestKnown_Unknown(t *testing.T) {
	assert.False(t, Known("tasks/delete"))
	assert.False(t, Known(""))
}

func TestType_FeatureIntent(t *testing.T) {
	assert.Equal(t, "tasks", GetTasks.Feature())
	assert.Equal(t, "get", GetTasks.Intent())
	assert.Equal(t, "authentication", Logout.Feature())
	assert.Equal(t, "", Type("bare").Feature())
}

func TestAll_ReturnsCopy(t *testing.T) {
	types := All()
	types[0] = "mutated/type"
	assert.Equal(t, Login, All()[0])
}

func TestClone_DetachesPayload(t *testing.T) {
	a := New(GetTasks, Payload{"token": "t1"})
	b := a.Clone()
	b.Payload["token"] = "t2"

	assert.Equal(t, "t1", a.Text("token"))
	assert.Equal(t, "t2", b.Text("token"))
}

func TestClone_DetachesNestedValues(t *testing.T) {
	a := New(Login, Payload{
		"credentials": map[string]any{"username": "alice"},
		"tags":        []any{"x", map[string]any{"k": "v"}},
		"meta":        Payload{"n": 1},
	})
	b := a.Clone()

	b.Payload["credentials"].(map[string]any)["username"] = "mallory"
	b.Payload["tags"].([]any)[1].(map[string]any)["k"] = "changed"
	b.Payload["meta"].(Payload)["n"] = 2

	assert.Equal(t, "alice", a.Payload["credentials"].(map[string]any)["username"])
	assert.Equal(t, "v", a.Payload["tags"].([]any)[1].(map[string]any)["k"])
	assert.Equal(t, 1, a.Payload["meta"].(Payload)["n"])
}

func TestClone_NilPayload(t *testing.T) {
	assert.Nil(t, New(GetUsers, nil).Clone().Payload)
}

func TestText(t *testing.T) {
	a := New(GetAccount, Payload{"id": "42", "n": 7})
	assert.Equal(t, "42", a.Text("id"))
	assert.Equal(t, "", a.Text("n"), "non-string value")
	assert.Equal(t, "", a.Text("missing"))
}

func TestDecode_Typed(t *testing.T) {
	a := New(AddTask, Payload{"task": note{Title: "milk"}})
	got, err := Decode[note](a, "task")
	require.NoError(t, err)
	assert.Equal(t, note{Title: "milk"}, got)
}

func TestDecode_FromGenericMap(t *testing.T) {
	a := New(AddTask, Payload{"task": map[string]any{"title": "shed", "done": true}})
	got, err := Decode[note](a, "task")
	require.NoError(t, err)
	assert.Equal(t, note{Title: "shed", Done: true}, got)
}

func TestDecode_Missing(t *testing.T) {
	_, err := Decode[note](New(AddTask, nil), "task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"task" missing`)
}

func TestDecode_WrongShape(t *testing.T) {
	_, err := Decode[note](New(AddTask, Payload{"task": []any{1, 2}}), "task")
	require.Error(t, err)
}

func TestCountingGenerator(t *testing.T) {
	g := NewCountingGenerator("")
	assert.Equal(t, "action-1", g.Generate())
	assert.Equal(t, "action-2", g.Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
