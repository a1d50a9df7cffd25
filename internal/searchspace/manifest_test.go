package searchspace

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docc-lab/pythia/internal/model"
)

func TestAddRequestTypeTracepointsMatchesByPattern(t *testing.T) {
	assert := assert.New(t)
	m := NewManifest()
	patterns := []*regexp.Regexp{regexp.MustCompile(`^api\.`)}

	tr := linearTrace("api.CreateServer", "db.insert", "api.CreateServer")
	m.AddRequestTypeTracepoints(tr, patterns)

	// linearTrace gives each name an Entry and an Exit node, so the two
	// api.CreateServer spans contribute four matching nodes.
	assert.Len(m.RequestTypeTracepoints, 4)
	for _, tp := range m.RequestTypeTracepoints {
		assert.Regexp(`^api\.`, tp.String())
	}
}

func TestAddRequestTypeTracepointsNoopWithoutPatterns(t *testing.T) {
	assert := assert.New(t)
	m := NewManifest()
	m.AddRequestTypeTracepoints(linearTrace("a", "b"), nil)
	assert.Empty(m.RequestTypeTracepoints)
}

func TestSkeletonUnionsRequestTypeTracepoints(t *testing.T) {
	assert := assert.New(t)
	m := NewManifest()
	space := m.SearchSpaceFor("req")
	space.AddTrace(linearTrace("a", "b"), false)
	m.RequestTypeTracepoints = []model.TracepointID{model.Intern("a"), model.Intern("discriminator")}

	skeleton := m.Skeleton()
	names := make(map[string]bool)
	for _, tp := range skeleton {
		names[tp.String()] = true
	}
	assert.True(names["a"])
	assert.True(names["discriminator"])
}
