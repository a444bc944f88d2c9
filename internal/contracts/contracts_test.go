package contracts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedABIResolvesDefaultMethods(t *testing.T) {
	parsed, err := ParseABI(NFTABI)
	require.NoError(t, err)

	methods, err := DefaultMethods().Resolve(parsed)
	require.NoError(t, err)

	assert.Equal(t, "mintNFT", methods.Mint)
	assert.Equal(t, "safeTransferFrom", methods.Transfer)
	assert.Equal(t, "getTokensEnVenta", methods.ListedTokens)
	assert.True(t, parsed.Methods[methods.Buy].IsPayable())
	assert.NotNil(t, parsed.Constructor.Inputs)
}

func TestResolveOverloadedSignature(t *testing.T) {
	raw := []byte(`[
		{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
		{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]}
	]`)
	parsed, err := ParseABI(raw)
	require.NoError(t, err)

	key, err := lookup(parsed, "safeTransferFrom(address, address, uint256)")
	require.NoError(t, err)
	assert.Equal(t, "safeTransferFrom(address,address,uint256)", parsed.Methods[key].Sig)
}

func TestResolveMissingMethod(t *testing.T) {
	parsed, err := ParseABI(NFTABI)
	require.NoError(t, err)

	_, err = Methods{ListedTokens: "listedTokens"}.Resolve(parsed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listedTokens")
}

func TestLoadArtifactLayouts(t *testing.T) {
	dir := t.TempDir()
	abiJSON := `[{"type":"constructor","inputs":[{"name":"initialOwner","type":"address"}],"stateMutability":"nonpayable"}]`

	tests := []struct {
		name     string
		body     string
		wantCode []byte
	}{
		{
			name:     "hardhat",
			body:     `{"contractName":"MyNFT","abi":` + abiJSON + `,"bytecode":"0x6080"}`,
			wantCode: []byte{0x60, 0x80},
		},
		{
			name:     "foundry",
			body:     `{"abi":` + abiJSON + `,"bytecode":{"object":"0x6001"}}`,
			wantCode: []byte{0x60, 0x01},
		},
		{
			name: "abi only",
			body: `{"abi":` + abiJSON + `}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			art, err := LoadArtifact(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, art.Bytecode)
			assert.Len(t, art.ABI.Constructor.Inputs, 1)
		})
	}
}

func TestLoadArtifactErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadArtifact(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	path := filepath.Join(dir, "noabi.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bytecode":"0x00"}`), 0o600))
	_, err = LoadArtifact(path)
	require.Error(t, err)
}

func TestLoadABIAcceptsArrayAndArtifact(t *testing.T) {
	dir := t.TempDir()
	renamed := strings.ReplaceAll(string(NFTABI), `"buyNFT"`, `"purchase"`)

	arrayPath := filepath.Join(dir, "market.abi.json")
	require.NoError(t, os.WriteFile(arrayPath, []byte(renamed), 0o600))
	artifactPath := filepath.Join(dir, "Market.json")
	require.NoError(t, os.WriteFile(artifactPath, []byte(`{"contractName":"Market","abi":`+renamed+`}`), 0o600))

	for _, path := range []string{arrayPath, artifactPath} {
		parsed, err := LoadABI(path)
		require.NoError(t, err, path)

		methods, err := Methods{Buy: "purchase"}.Resolve(parsed)
		require.NoError(t, err, path)
		assert.Equal(t, "purchase", methods.Buy)
		assert.True(t, parsed.Methods["purchase"].IsPayable())
	}

	_, err := LoadABI(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"type":"function","name":`), 0o600))
	_, err = LoadABI(bad)
	assert.Error(t, err)
}
