package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Canonical(t *testing.T) {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Kind: KindAction, ID: "act-1", Seq: 1, Action: "users/get", Payload: map[string]any{"token": "t1"}},
		{Kind: KindSignal, Store: "users", State: "failed", Error: "get users: boom"},
		{Kind: KindAction, ID: "act-2", Seq: 2, Action: "authentication/logout"},
		{Kind: KindSignal, Store: "authentication", State: "ready", Value: map[string]any{"username": "", "token": ""}},
	}

	got, err := Snapshot("snap", r)
	require.NoError(t, err)

	want := `{"scenario":"snap","trace":[` +
		`{"id":"act-1","kind":"action","payload":{"token":"t1"},"seq":1,"type":"users/get"},` +
		`{"error":"get users: boom","kind":"signal","state":"failed","store":"users"},` +
		`{"id":"act-2","kind":"action","seq":2,"type":"authentication/logout"},` +
		`{"kind":"signal","state":"ready","store":"authentication","value":{"token":"","username":""}}]}`
	assert.Equal(t, want, string(got))
}

func TestSnapshot_NumbersFromService(t *testing.T) {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Kind: KindSignal, Store: "tasks", State: "ready", Value: []any{map[string]any{"n": json.Number("2")}}},
	}

	got, err := Snapshot("nums", r)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario":"nums","trace":[{"kind":"signal","state":"ready","store":"tasks","value":[{"n":2}]}]}`, string(got))
}

func TestSnapshot_EmptyTrace(t *testing.T) {
	got, err := Snapshot("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"scenario":"empty","trace":[]}`, string(got))
}
