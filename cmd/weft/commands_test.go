package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/elementmap"
	"github.com/aretw0/weft/pkg/export"
)

const router = `name: router
statements:
  - elementclass: Buffered
    formals: ["$cap=64"]
    body:
      - element: q
        class: Queue
        config: $cap
      - chain: [input, q, output]
  - chain: ["src :: FromDevice(eth0)", "b :: Buffered", "dst :: ToDevice(eth1)"]
`

const broken = `name: broken
statements:
  - chain: ["src :: FromDevice", "dst :: ToDevice"]
`

func newEnv(t *testing.T) *env {
	t.Helper()
	c, err := weft.New("", weft.WithElementMap(elementmap.New(
		domain.Traits{Name: "FromDevice", PortCount: "0/1", Processing: "h/h"},
		domain.Traits{Name: "Queue", PortCount: "1/1", Processing: "h/l"},
		domain.Traits{Name: "ToDevice", PortCount: "1/0", Processing: "l/l"},
	)))
	require.NoError(t, err)
	return &env{compiler: c, logger: logging.NewNop(), close: func() {}}
}

func newCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetContext(context.Background())
	return cmd, &out, &errOut
}

func TestFlatten(t *testing.T) {
	cmd, out, _ := newCmd()
	require.NoError(t, runFlatten(cmd, newEnv(t), []byte(router), export.YAML))

	doc, err := export.Decode(out.Bytes(), export.YAML)
	require.NoError(t, err)
	assert.Equal(t, "router", doc.Name)
	assert.Len(t, doc.Elements, 3)
	assert.Len(t, doc.Connections, 2)
}

func TestFlatten_Errors(t *testing.T) {
	cmd, out, errOut := newCmd()
	err := runFlatten(cmd, newEnv(t), []byte(broken), export.JSON)
	require.Error(t, err)
	assert.Empty(t, out.String(), "nothing is written for a failed compilation")
	assert.Contains(t, errOut.String(), string(diag.DisciplineContradiction))
}

func TestCheck(t *testing.T) {
	cmd, out, _ := newCmd()
	require.NoError(t, runCheck(cmd, newEnv(t), []byte(router), false))
	assert.Contains(t, out.String(), "router: 3 elements, configuration is valid")

	cmd, out, _ = newCmd()
	err := runCheck(cmd, newEnv(t), []byte(broken), false)
	assert.ErrorIs(t, err, errCheckFailed)
	assert.Contains(t, out.String(), "error: ")

	cmd, out, _ = newCmd()
	require.NoError(t, runCheck(cmd, newEnv(t), []byte(router), true))
	assert.Contains(t, out.String(), "# router")
	assert.Contains(t, out.String(), "`b/q`")
}

func TestGraph(t *testing.T) {
	cmd, out, _ := newCmd()
	require.NoError(t, runGraph(cmd, newEnv(t), []byte(router)))
	assert.True(t, strings.HasPrefix(out.String(), "graph LR\n"))
	assert.Contains(t, out.String(), `subgraph sg_b["b"]`)
}

func TestOverlayFor(t *testing.T) {
	doc := &export.Document{
		Elements: []export.Element{
			{Name: "a", Location: "x.yaml:1"},
			{Name: "b", Location: "x.yaml:2"},
			{Name: "c", Location: "x.yaml:3"},
		},
		Diagnostics: []diag.Diagnostic{
			diag.Warnf(diag.UnconnectedPort, domain.Location{File: "x.yaml", Line: 1}, "w"),
			diag.Warnf(diag.UnconnectedPort, domain.Location{File: "x.yaml", Line: 2}, "w"),
			diag.Errorf(diag.PortCount, domain.Location{File: "x.yaml", Line: 2}, "e"),
		},
	}
	o := overlayFor(doc)
	require.NotNil(t, o)
	assert.Equal(t, []string{"b"}, o.Errors)
	assert.Equal(t, []string{"a"}, o.Warnings)
	assert.Nil(t, overlayFor(&export.Document{}))
}

func TestClasses(t *testing.T) {
	cmd, out, _ := newCmd()
	require.NoError(t, runDescribe(cmd, newEnv(t), "Queue"))
	assert.Contains(t, out.String(), `"processing": "h/l"`)

	cmd, _, _ = newCmd()
	assert.Error(t, runDescribe(cmd, newEnv(t), "Nope"))
}

func TestPrerequisites(t *testing.T) {
	src := `statements:
  - elementclass: Inner
    body:
      - chain: [input, output]
  - elementclass: Outer
    body:
      - element: i
        class: Inner
      - chain: [input, i, output]
  - element: o
    class: Outer
`
	path := filepath.Join(t.TempDir(), "nested.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cmd, out, _ := newCmd()
	require.NoError(t, runPrerequisites(cmd, newEnv(t), path))
	assert.Equal(t, "Inner[1 input, 1 output]\ta/a\ta/[a]\n"+
		"Outer[1 input, 1 output]\ta/a\ta/[a]\n", out.String())
}

func TestVersion(t *testing.T) {
	cmd, out, _ := newCmd()
	cmd.Flags().Bool("banner", false, "")
	versionCmd.Run(cmd, nil)
	assert.Equal(t, "weft version "+weft.Version+"\n", out.String())
}
