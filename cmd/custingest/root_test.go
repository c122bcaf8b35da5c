package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.Equal(t, "serve", serve.Name())

	imp, _, err := root.Find([]string{"import"})
	require.NoError(t, err)
	for _, name := range []string{"file", "user", "batch-size", "workers", "policy"} {
		require.NotNil(t, imp.Flags().Lookup(name), "flag %s", name)
	}
	require.Equal(t, "1000", imp.Flags().Lookup("batch-size").DefValue)
	require.Equal(t, "batch", imp.Flags().Lookup("policy").DefValue)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, importOutput{File: "c.csv", DurationMS: 5}))
	require.JSONEq(t, `{
		"file": "c.csv",
		"duration_ms": 5,
		"summary": {
			"totalProcessed": 0, "totalSkipped": 0, "totalFailed": 0,
			"errorSummary": {"validation": 0, "duplicates": 0, "failed": 0}
		}
	}`, buf.String())
}
