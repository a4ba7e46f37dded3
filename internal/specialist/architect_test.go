package specialist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/convene/internal/agent"
)

func TestArchitect_ReportsImportCycle(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"a.py": "from .b import thing\n",
		"b.py": "from .a import other\n",
	})

	insights := runAgent(t, NewArchitect(ws))
	require.Len(t, insights, 1)
	assert.Equal(t, agent.SeverityError, insights[0].Severity)
	assert.Equal(t, CategoryArchitecture, insights[0].Category)
	assert.Equal(t, "import cycle: a.py -> b.py", insights[0].Title)
	assert.Equal(t, []string{"a.py", "b.py"}, insights[0].Data["cycle"])
}

func TestArchitect_CleanRepoYieldsSummary(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"a.py": "from .b import thing\n",
		"b.py": "x = 1\n",
	})

	insights := runAgent(t, NewArchitect(ws))
	require.Len(t, insights, 1)
	assert.Equal(t, agent.SeverityInfo, insights[0].Severity)
	assert.Equal(t, "no import cycles across 2 files", insights[0].Title)
}

func TestArchitect_FlagsHighFanIn(t *testing.T) {
	files := map[string]string{
		"shared.py": "x = 1\n",
	}
	for i := 0; i < hubFanInThreshold; i++ {
		files[fmt.Sprintf("c%d.py", i)] = "from .shared import x\n"
	}
	ws := newWorkspace(t, files)

	insights := runAgent(t, NewArchitect(ws))

	var hub *agent.Insight
	for i := range insights {
		if insights[i].Data["fanIn"] != nil {
			hub = &insights[i]
			break
		}
	}
	require.NotNil(t, hub, "shared.py should be reported as a hub")
	assert.Equal(t, agent.SeverityWarning, hub.Severity)
	assert.Equal(t, "shared.py", hub.Data["file"])
	assert.Equal(t, hubFanInThreshold, hub.Data["fanIn"])
}
