package patterns

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanex/spanex/matcher"
	"github.com/spanex/spanex/pkg/errors"
	"github.com/spanex/spanex/pkg/types"
)

const sampleFile = `
patterns:
  - id: role
    label: ROLE
    tokens:
      - channel: lower
        in: [senior, junior]
        op: "?"
      - channel: lower
        in: [engineer, developer]
  - id: versions
    label: VERSION
    tokens:
      - channel: lower
        regex: "v[0-9]+"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPatternFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "patterns.yaml", sampleFile)

	ps, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, "role", ps[0].ID)
	assert.Equal(t, "ROLE", ps[0].Label)
	require.Len(t, ps[0].Constraints, 2)
	assert.Equal(t, matcher.OpOptional, ps[0].Constraints[0].Op)
	assert.Equal(t, []string{"senior", "junior"}, ps[0].Constraints[0].In)

	assert.Equal(t, "v[0-9]+", ps[1].Constraints[0].Regex)
}

func TestLoadedPatternsMatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "patterns.yaml", sampleFile)
	ps, err := Load(path)
	require.NoError(t, err)

	e := matcher.New()
	require.NoError(t, e.Register(ps...))

	matches, err := e.FindMatches(types.NewDocFromWords("hiring a senior engineer for v2"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "ROLE", matches[0].Label)
	assert.Equal(t, [2]int{2, 4}, [2]int{matches[0].Start, matches[0].End})
	assert.Equal(t, "VERSION", matches[1].Label)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePatternFileRead))
}

func TestLoadUnknownOp(t *testing.T) {
	path := writeFile(t, t.TempDir(), "patterns.yaml", `
patterns:
  - id: bad
    tokens:
      - channel: lower
        in: [x]
        op: "++"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePatternFileInvalid))
}

func TestLoadRangeOp(t *testing.T) {
	path := writeFile(t, t.TempDir(), "patterns.yaml", `
patterns:
  - id: digits
    tokens:
      - channel: is_digit
        in: ["true"]
        op: range
        min: 2
        max: 3
`)
	ps, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	c := ps[0].Constraints[0]
	assert.Equal(t, matcher.OpRange, c.Op)
	assert.Equal(t, 2, c.Min)
	assert.Equal(t, 3, c.Max)
}

func TestSourceReloadReplacesSet(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "patterns.yaml", sampleFile)

	e := matcher.New()
	src := NewSource(path, e)
	require.NoError(t, src.Reload())
	assert.Equal(t, 2, e.Len())

	writeFile(t, dir, "patterns.yaml", `
patterns:
  - id: only
    tokens:
      - channel: lower
        in: [one]
`)
	require.NoError(t, src.Reload())
	assert.Equal(t, 1, e.Len())
}

func TestSourceReloadKeepsOldSetOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "patterns.yaml", sampleFile)

	e := matcher.New()
	src := NewSource(path, e)
	require.NoError(t, src.Reload())

	writeFile(t, dir, "patterns.yaml", `
patterns:
  - id: broken
    tokens: []
`)
	require.Error(t, src.Reload())
	assert.Equal(t, 2, e.Len())
}

func TestSourceWatchAppliesFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "patterns.yaml", sampleFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := matcher.New()
	src := NewSource(path, e)
	require.NoError(t, src.Watch(ctx))
	assert.Equal(t, 2, e.Len())

	writeFile(t, dir, "patterns.yaml", `
patterns:
  - id: swapped
    tokens:
      - channel: lower
        in: [swapped]
`)
	assert.Eventually(t, func() bool {
		return e.Len() == 1
	}, 5*time.Second, 20*time.Millisecond)
}
