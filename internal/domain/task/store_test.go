package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	running := New("a", "CCO", KindProperty, nil, start)
	_, _ = running.Apply(Ticked{})
	done := New("b", "c1ccccc1", KindToxicity, &Settings{Model: "ultra", StrictMode: true}, start)
	_, _ = done.Apply(Succeeded{Result: json.RawMessage(`{"moleculeName":"benzene","riskScore":40}`)})
	failed := New("c", "", KindSynthesis, &Settings{MaxRoutes: 5}, start)
	_, _ = failed.Apply(Failed{})

	in := []*Task{running, done, failed}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Status, out[i].Status)
		assert.Equal(t, in[i].Progress, out[i].Progress)
		assert.Equal(t, in[i].Settings, out[i].Settings)
		assert.Equal(t, in[i].StartTime, out[i].StartTime)
		assert.Equal(t, in[i].HasResult(), out[i].HasResult())
	}
	assert.JSONEq(t, string(done.Result), string(out[1].Result))
}

func TestEncode_NilIsEmptyArray(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{"{", `{"id":"x"}`, "not json", `[{"id":1}]`} {
		_, err := Decode([]byte(raw))
		require.Error(t, err, raw)
		assert.True(t, errors.IsCode(err, errors.ErrCodeTaskStateCorrupt), raw)
	}
}

func TestDecode_DropsEmptyEntries(t *testing.T) {
	out, err := Decode([]byte(`[null, {"molecule":"CCO"}, {"id":"k","type":"toxicity"}]`))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "k", out[0].ID)
	assert.Equal(t, StatusRunning, out[0].Status)
}

func TestDecode_RepairsInvariants(t *testing.T) {
	raw := `[
		{"id":"no-result","status":"completed","progress":140},
		{"id":"stray-result","status":"failed","progress":-3,"result":{"summary":"x"}},
		{"id":"overshoot","status":"running","progress":250},
		{"id":"done","status":"completed","progress":40,"result":{"summary":"ok"}},
		{"id":"odd","status":"paused","progress":10},
		{"id":"done","status":"running","progress":1}
	]`
	out, err := Decode([]byte(raw))
	require.NoError(t, err)
	require.Len(t, out, 5)

	byID := make(map[string]*Task, len(out))
	for _, tk := range out {
		assert.Equal(t, tk.Status == StatusCompleted, tk.HasResult(), tk.ID)
		assert.GreaterOrEqual(t, tk.Progress, 0.0, tk.ID)
		assert.LessOrEqual(t, tk.Progress, 100.0, tk.ID)
		byID[tk.ID] = tk
	}
	assert.Equal(t, StatusFailed, byID["no-result"].Status)
	assert.Equal(t, 100.0, byID["no-result"].Progress)
	assert.Equal(t, StatusFailed, byID["stray-result"].Status)
	assert.Zero(t, byID["stray-result"].Progress)
	assert.Equal(t, StatusRunning, byID["overshoot"].Status)
	assert.Less(t, byID["overshoot"].Progress, 100.0)
	assert.Equal(t, StatusCompleted, byID["done"].Status)
	assert.Equal(t, 100.0, byID["done"].Progress)
	assert.Equal(t, StatusFailed, byID["odd"].Status)
}

func TestDecode_OriginalBrowserShape(t *testing.T) {
	// Entries written by the web client carry free-form settings and may omit progress.
	raw := `[{"id":"1717","molecule":"CCO","status":"running","type":"synthesis","startTime":"2025-01-01T00:00:00.000Z","settings":{"model":"ChemXGen-Ultra","maxRoutes":5}}]`
	out, err := Decode([]byte(raw))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Zero(t, out[0].Progress)
	assert.Equal(t, 5, out[0].Settings.MaxRoutes)
}

func TestLifecycleEvent(t *testing.T) {
	tk := New("t9", "CCO", KindSimilarity, nil, time.Now())
	ev := NewLifecycleEvent(LifecycleSubmitted, tk, time.Date(2025, 1, 1, 0, 0, 0, 0, time.FixedZone("x", 3600)))
	assert.Equal(t, "task.submitted", ev.EventType())
	assert.Equal(t, "t9", ev.TaskID)
	assert.Equal(t, time.UTC, ev.At.Location())

	cleared := NewLifecycleEvent(LifecycleCleared, nil, time.Now())
	assert.Empty(t, cleared.TaskID)
}
