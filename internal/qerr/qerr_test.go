package qerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageCarriesStageAndReason(t *testing.T) {
	err := Malformed(StageIngest, "line %d: unknown gate %q", 4, "foo")
	assert.Equal(t, `ingest: MalformedCircuitError: line 4: unknown gate "foo"`, err.Error())
}

func TestIsMatchesByKind(t *testing.T) {
	err := errors.Wrap(Invalid(StageExecute, "zero qubits"), "run")

	assert.True(t, errors.Is(err, ErrInvalidCircuit))
	assert.False(t, errors.Is(err, ErrMalformedCircuit))
	assert.Equal(t, KindInvalidCircuit, KindOf(err))
	assert.Equal(t, StageExecute, StageOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, KindTensorShapeMismatch, StageOptimize, "qubit count changed")

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrTensorShapeMismatch))
	assert.Contains(t, err.Error(), "boom")
	assert.NoError(t, Wrap(nil, KindInvalidCircuit, StageIngest, "x"))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "", StageOf(errors.New("plain")))
	assert.Equal(t, "UnsupportedFormatError", KindUnsupportedFormat.String())
}
