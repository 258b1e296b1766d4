package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"deqcore/internal/qerr"
)

const bellT = `OPENQASM 2.0;
include "qelib1.inc";

qreg q[2];
creg c[2];

h q[0];
t q[0];
cx q[0], q[1];
`

type env struct {
	dir    string
	config string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`[logging]
level = "error"

[mitigation.quasi_probability]
samples = 20

[storage]
path = %q
`, filepath.Join(dir, "db"))
	path := filepath.Join(dir, "deqcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return env{dir: dir, config: path}
}

func (e env) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e env) run(args ...string) (string, string, error) {
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"analyze", "optimize", "convert", "history", "view"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	output := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "text", output.DefValue)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestAnalyzeJSON(t *testing.T) {
	e := newEnv(t)
	path := e.write(t, "bell.qasm", bellT)

	stdout, _, err := e.run("analyze", path, "-o", "json", "-p", "0.02")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			CircuitID string `json:"circuit_id"`
			Strategy  struct {
				Selected string `json:"selected"`
				Used     string `json:"used"`
			} `json:"strategy"`
			Results struct {
				Ideal struct {
					Expectation float64 `json:"expectation"`
				} `json:"ideal"`
			} `json:"results"`
			TranspiledCode map[string]string `json:"transpiled_code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "QuasiProbability", resp.Data.Strategy.Selected)
	assert.Zero(t, resp.Data.Results.Ideal.Expectation)
	assert.Len(t, resp.Data.CircuitID, 64)
	assert.Contains(t, resp.Data.TranspiledCode, "qiskit")
	assert.Contains(t, resp.Data.TranspiledCode, "cirq")
}

func TestAnalyzeText(t *testing.T) {
	e := newEnv(t)
	path := e.write(t, "bell.qasm", bellT)

	stdout, _, err := e.run("analyze", path, "--threshold", "10")
	require.NoError(t, err)
	for _, want := range []string{"Strategy  QuasiProbability", "mitigated", "--- qiskit ---", "--- cirq ---", "Optimized (local pass)"} {
		assert.Contains(t, stdout, want)
	}
}

func TestAnalyzeSaveAndHistory(t *testing.T) {
	e := newEnv(t)
	path := e.write(t, "bell.qasm", bellT)

	_, _, err := e.run("analyze", path, "--save", "--owner", "alice")
	require.NoError(t, err)
	_, _, err = e.run("optimize", path, "--save", "--owner", "alice")
	require.NoError(t, err)

	stdout, _, err := e.run("history", "--owner", "alice", "-o", "yaml")
	require.NoError(t, err)
	var resp struct {
		Status string `yaml:"status"`
		Data   []struct {
			Kind   string `yaml:"kind"`
			Owner  string `yaml:"owner"`
			Format string `yaml:"format"`
		} `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &resp), stdout)
	require.Len(t, resp.Data, 2)
	kinds := []string{resp.Data[0].Kind, resp.Data[1].Kind}
	assert.ElementsMatch(t, []string{"analyze", "optimize"}, kinds)
	assert.Equal(t, "alice", resp.Data[0].Owner)
	assert.Equal(t, "qasm", resp.Data[0].Format)

	stdout, _, err = e.run("history", "--owner", "bob")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No records for bob")
}

func TestOptimizeYAML(t *testing.T) {
	e := newEnv(t)
	path := e.write(t, "pair.qasm", "OPENQASM 2.0;\nqreg q[1];\nh q[0];\nh q[0];\nx q[0];\n")

	stdout, _, err := e.run("optimize", path, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "path: local")
	assert.Contains(t, stdout, "original_gate_count: 3")
	assert.Contains(t, stdout, "optimized_gate_count: 1")
}

func TestConvert(t *testing.T) {
	e := newEnv(t)
	path := e.write(t, "bell.qasm", bellT)

	stdout, _, err := e.run("convert", path, "--to", "cirq")
	require.NoError(t, err)
	assert.Contains(t, stdout, "import cirq")

	stdout, _, err = e.run("convert", path, "--to", "b", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"to": "b"`)
}

func TestExitCodes(t *testing.T) {
	e := newEnv(t)
	bell := e.write(t, "bell.qasm", bellT)
	garbage := e.write(t, "bad.qasm", "OPENQASM 2.0;\nqreg q[1];\nfoo q[0];\n")

	cases := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"unknown format", []string{"analyze", bell, "--format", "quil"}, ExitAnalysis, "UnsupportedFormatError"},
		{"malformed", []string{"analyze", garbage}, ExitAnalysis, "MalformedCircuitError"},
		{"noise out of range", []string{"analyze", bell, "-p", "2"}, ExitAnalysis, "MalformedCircuitError"},
		{"missing file", []string{"analyze", filepath.Join(e.dir, "nope.qasm")}, ExitFailure, "read"},
		{"bad output", []string{"convert", bell, "-o", "xml"}, ExitFailure, "output"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, stderr, err := e.run(tc.args...)
			require.Error(t, err)
			assert.Equal(t, tc.code, GetExitCode(err))
			assert.Contains(t, stderr, tc.want)
		})
	}
}

func TestErrorJSON(t *testing.T) {
	e := newEnv(t)
	bell := e.write(t, "bell.qasm", bellT)

	stdout, _, err := e.run("analyze", bell, "--format", "quil", "-o", "json")
	require.Error(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UnsupportedFormatError", resp.Error.Kind)
	assert.Equal(t, qerr.StageIngest, resp.Error.Stage)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitAnalysis, GetExitCode(qerr.Invalid(qerr.StageExecute, "too wide")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "open store", qerr.Invalid(qerr.StageExecute, "x"))))
	assert.Equal(t, ExitAnalysis, GetExitCode(errors.Wrap(qerr.UnsupportedFormat("quil"), "analyze")))
}

func TestFormatFor(t *testing.T) {
	e := newEnv(t)
	cirqPy := e.write(t, "c.py", "import cirq\n")
	qiskitPy := e.write(t, "q.py", "from qiskit import QuantumCircuit\n")

	assert.Equal(t, "qasm", formatFor("x.qasm", ""))
	assert.Equal(t, "cirq", formatFor(cirqPy, ""))
	assert.Equal(t, "qiskit", formatFor(qiskitPy, ""))
	assert.Equal(t, "a", formatFor("x.qasm", "a"))
	assert.Equal(t, "txt", formatFor("x.txt", ""))
}
