package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/pkg/client"
)

// fakeAPI records the last task request and serves canned responses.
type fakeAPI struct {
	mu       sync.Mutex
	lastReq  client.TaskRequest
	cleared  bool
	polls    int
	lastAuth string
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/tasks":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastReq))
			w.WriteHeader(http.StatusCreated)
			_ = enc.Encode(task.New(f.lastReq.ID, f.lastReq.Molecule, f.lastReq.Tool, f.lastReq.Settings, time.Now()))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/tasks":
			done := task.New("t-2", "CCO", task.KindProperty, nil, time.Now())
			done.Status, done.Progress = task.StatusCompleted, 100
			_ = enc.Encode(client.TaskList{Tasks: []*task.Task{done}})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/tasks/"):
			f.polls++
			tk := task.New(strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/"), "CCO", task.KindToxicity, nil, time.Now())
			if f.polls >= 2 {
				tk.Status, tk.Progress = task.StatusCompleted, 100
				tk.Result = json.RawMessage(`{"overallRisk":"low"}`)
			}
			_ = enc.Encode(tk)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/tasks":
			f.cleared = true
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/v1/render/2d":
			_ = enc.Encode(client.RenderResult{State: "ok", SVG: "<svg/>", Formula: "C2H6O", Weight: 46.07})
		case r.URL.Path == "/api/v1/predict/reaction":
			w.WriteHeader(http.StatusBadRequest)
			_ = enc.Encode(map[string]string{"code": "GATEWAY_004", "message": "reactant2 is required"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func run(t *testing.T, api *fakeAPI, fs afero.Fs, args ...string) (string, string, error) {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	cmd := NewRootCommand(fs)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.Execute()
	if err != nil {
		PrintError(cmd, err)
	}
	return out.String(), errOut.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand(afero.NewMemMapFs())
	assert.Equal(t, "chemxgen", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"submit", "list", "get", "clear", "watch", "render", "predict", "generate", "version"} {
		assert.True(t, names[want], want)
	}
	for _, flag := range []string{"server", "token", "output", "timeout", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, &fakeAPI{}, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "chemxgen "+Version)
}

func TestSubmit_InlineWithSettings(t *testing.T) {
	api := &fakeAPI{}
	out, _, err := run(t, api, afero.NewMemMapFs(), "--token", "tok", "-o", "json",
		"submit", "--tool", "synthesis", "--molecule", "c1ccccc1O", "--routes", "3")
	require.NoError(t, err)

	assert.Equal(t, task.KindSynthesis, api.lastReq.Tool)
	assert.NotEmpty(t, api.lastReq.ID)
	require.NotNil(t, api.lastReq.Settings)
	assert.Equal(t, 3, api.lastReq.Settings.MaxRoutes)
	assert.Equal(t, "Bearer tok", api.lastAuth)

	var got task.Task
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, task.StatusRunning, got.Status)
}

func TestSubmit_FromFileAndWait(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mols/ethanol.smi", []byte("CCO"), 0o644))

	api := &fakeAPI{}
	out, _, err := run(t, api, fs, "submit", "--tool", "toxicity", "--file", "/mols/ethanol.smi", "--wait", "--poll", "10ms")
	require.NoError(t, err)
	assert.Equal(t, "CCO", api.lastReq.Molecule)
	assert.Nil(t, api.lastReq.Settings)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, `"overallRisk": "low"`)
}

func TestSubmit_Rejected(t *testing.T) {
	_, _, err := run(t, &fakeAPI{}, afero.NewMemMapFs(), "submit", "--tool", "docking", "--molecule", "C")
	assert.Error(t, err)

	_, _, err = run(t, &fakeAPI{}, afero.NewMemMapFs(), "submit", "--tool", "toxicity", "--molecule", "C", "--file", "x.mol")
	assert.Error(t, err)

	_, _, err = run(t, &fakeAPI{}, afero.NewMemMapFs(), "submit", "--tool", "toxicity", "--file", "missing.mol")
	assert.Error(t, err)
}

func TestList_Table(t *testing.T) {
	out, _, err := run(t, &fakeAPI{}, nil, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "t-2")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "0 running")
}

func TestClear_RequiresConfirmation(t *testing.T) {
	api := &fakeAPI{}
	_, _, err := run(t, api, nil, "clear")
	assert.Error(t, err)
	assert.False(t, api.cleared)

	out, _, err := run(t, api, nil, "clear", "--yes")
	require.NoError(t, err)
	assert.True(t, api.cleared)
	assert.Contains(t, out, "cleared")
}

func TestRender_WritesSVG(t *testing.T) {
	fs := afero.NewMemMapFs()
	out, _, err := run(t, &fakeAPI{}, fs, "render", "CCO", "--out", "/tmp/ethanol.svg")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote /tmp/ethanol.svg")

	data, err := afero.ReadFile(fs, "/tmp/ethanol.svg")
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))
}

func TestPredict_APIErrorPrinted(t *testing.T) {
	_, errOut, err := run(t, &fakeAPI{}, nil, "predict", "CCO", "")
	require.Error(t, err)
	assert.Contains(t, errOut, "reactant2 is required (GATEWAY_004)")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "CCO", oneLine("  CCO \n"))
	assert.Equal(t, "benzene (MOL block)", oneLine("benzene\n  ChemXGen\n"))
}
