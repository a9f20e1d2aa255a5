package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/assistant-chat/internal/segment"
)

const reply = "before\n```js\nconst x=1;\n```\nmiddle\n```\nSELECT 1\n```"

func TestPrintSegments(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printSegments(&out, segment.Split(reply))

	assert.Equal(t, "[1] prose\nbefore\n[2] code js\nconst x=1;\n[3] prose\nmiddle\n[4] code sql (detected)\nSELECT 1\n", out.String())
}

func TestSegmentCmd_JSON(t *testing.T) {
	path := t.TempDir() + "/reply.md"
	require.NoError(t, os.WriteFile(path, []byte(reply), 0o600))

	var out bytes.Buffer
	cmd := segmentCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json", path})
	require.NoError(t, cmd.Execute())

	var segs []segment.Segment
	require.NoError(t, json.Unmarshal(out.Bytes(), &segs))
	require.Len(t, segs, 4)
	assert.Equal(t, "js", segs[1].Language)
	assert.Equal(t, segment.DefaultLanguage, segs[3].Language)
}
