package critical

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/docc-lab/pythia/internal/model"
)

func TestRenderIndentsByHierarchicalDepth(t *testing.T) {
	assert := assert.New(t)
	root := uuid.New()
	child := uuid.New()

	// root: Entry(0) Entry-child(1) Exit-child(2) Exit(3)
	nodes := []model.Event{
		evt("root", root, model.Entry, 0),
		evt("child", child, model.Entry, 1),
		evt("child", child, model.Exit, 2),
		evt("root", root, model.Exit, 3),
	}
	edges := make([]model.DAGEdge, 0, len(nodes)-1)
	for i := 0; i+1 < len(nodes); i++ {
		edges = append(edges, model.DAGEdge{From: i, To: i + 1, Duration: 0, Variant: model.ChildOf})
	}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, len(nodes)-1)

	cp, err := ExtractCriticalPath(tr)
	assert.NoError(err)
	hp := BuildHierarchical(cp)

	out := hp.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(lines, 4)
	assert.False(strings.HasPrefix(lines[0], "  "))
	assert.True(strings.HasPrefix(lines[1], "  "))
	assert.True(strings.HasPrefix(lines[2], "  "))
	assert.False(strings.HasPrefix(lines[3], "  "))
	assert.Contains(lines[0], ": S")
	assert.Contains(lines[3], ": E")
}

func TestRenderWrapsLongTracepointIDs(t *testing.T) {
	assert := assert.New(t)
	long := strings.Repeat("a", wrapWidth+10)
	n := model.Event{TracepointID: model.Intern(long), Variant: model.Entry}
	out := renderNode(n)
	assert.Contains(out, "-\n")
}
