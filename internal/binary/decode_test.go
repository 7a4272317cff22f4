package binary

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/testing/require"
)

// addWasmHex is the minimal module from internal/testing/spectest's "add"
// JSON fixture: one type, one function exported as "add", computing
// local.get 0 + local.get 1.
const addWasmHex = "0061736d0100000001070160027f7f017f030201000707010361646400000a09010700200020016a0b"

func TestDecodeModule_Add(t *testing.T) {
	raw, err := hex.DecodeString(addWasmHex)
	require.NoError(t, err)

	m, err := DecodeModule(bytes.NewReader(raw))
	require.NoError(t, err)

	require.Equal(t, 1, len(m.Types))
	require.Equal(t, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, m.Types[0].Params)
	require.Equal(t, []api.ValueType{api.ValueTypeI32}, m.Types[0].Results)

	require.Equal(t, 1, len(m.Functions))
	require.Equal(t, "", m.Functions[0].Name) // no name section in this fixture
	require.Equal(t, []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}, m.Functions[0].Body)

	require.Equal(t, 1, len(m.Exports))
	require.Equal(t, "add", m.Exports[0].Name)
	require.Equal(t, api.ExternTypeFunc, m.Exports[0].Type)
	require.Equal(t, uint32(0), m.Exports[0].Index)
}

// oobWasmHex additionally declares a one-page memory, exercising the
// memory section and its limits flag byte.
const oobWasmHex = "0061736d0100000001060160017f017f03020100050401010101070701036f6f6200000a0901070020002802000b"

func TestDecodeModule_Memory(t *testing.T) {
	raw, err := hex.DecodeString(oobWasmHex)
	require.NoError(t, err)

	m, err := DecodeModule(bytes.NewReader(raw))
	require.NoError(t, err)

	require.Equal(t, uint32(1), m.Memory.Limits.Min)
	require.Equal(t, uint32(1), *m.Memory.Limits.Max)
}

func TestDecodeModule_BadMagic(t *testing.T) {
	_, err := DecodeModule(bytes.NewReader([]byte{0, 0, 0, 0, 1, 0, 0, 0}))
	require.Error(t, err)
}

// importPlaceholdersWasmHex declares one import (env.get, type 0) and one
// local function of the same type, exported as "sum". Index 0 is the
// import's placeholder slot in Module.Functions; index 1 is the local
// function, matching the splicing convention documented on Module.Functions.
const importPlaceholdersWasmHex = "0061736d010000000105016000017f020b0103656e76036765740000030201000707010373756d00010a0601040041010b"

func TestDecodeModule_ImportPlaceholders(t *testing.T) {
	raw, err := hex.DecodeString(importPlaceholdersWasmHex)
	require.NoError(t, err)

	m, err := DecodeModule(bytes.NewReader(raw))
	require.NoError(t, err)

	require.Equal(t, 1, len(m.Imports))
	require.Equal(t, "env", m.Imports[0].Module)
	require.Equal(t, "get", m.Imports[0].Name)
	require.Equal(t, api.ExternTypeFunc, m.Imports[0].Type)

	require.Equal(t, 2, len(m.Functions))
	require.Nil(t, m.Functions[0].Body) // import placeholder
	require.Equal(t, []byte{0x41, 0x01, 0x0b}, m.Functions[1].Body)

	require.Equal(t, "sum", m.Exports[0].Name)
	require.Equal(t, uint32(1), m.Exports[0].Index)
}
