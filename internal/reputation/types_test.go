package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestVerdict_MaxScore(t *testing.T) {
	assert.Equal(t, 0, Verdict{}.MaxScore())
	assert.Equal(t, 0, Verdict{{}}.MaxScore())
	assert.Equal(t, 80, Verdict{{Score: intPtr(30)}, {Score: intPtr(80)}, {}}.MaxScore())
}
