package block

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wbrown/janus-eve/eve"
)

func TestPatternChecker_MatchesTagAndAttribute(t *testing.T) {
	age := eve.NewAttribute("age")
	checker := NewPatternChecker([]Pattern{
		{Tag: "person", Attribute: &age},
	})

	ok := checker.Check(nil, 1, []eve.Value{"person"}, eve.NewId("e1"), age, int64(30))
	assert.True(t, ok)
}

func TestPatternChecker_MismatchedAttributeRejected(t *testing.T) {
	age := eve.NewAttribute("age")
	checker := NewPatternChecker([]Pattern{
		{Tag: "person", Attribute: &age},
	})

	name := eve.NewAttribute("name")
	ok := checker.Check(nil, 1, []eve.Value{"person"}, eve.NewId("e1"), name, "Alice")
	assert.False(t, ok)
}

func TestPatternChecker_UnconstrainedAttributeMatchesAny(t *testing.T) {
	checker := NewPatternChecker([]Pattern{
		{Tag: "person", Attribute: nil},
	})

	ok := checker.Check(nil, 1, []eve.Value{"person"}, eve.NewId("e1"), eve.NewAttribute("anything"), "x")
	assert.True(t, ok)
}

func TestPatternChecker_NoMatchingTagRejected(t *testing.T) {
	age := eve.NewAttribute("age")
	checker := NewPatternChecker([]Pattern{
		{Tag: "person", Attribute: &age},
	})

	ok := checker.Check(nil, 1, []eve.Value{"robot"}, eve.NewId("e1"), age, int64(5))
	assert.False(t, ok)
}

func TestPatternChecker_MultipleTagsOneMatches(t *testing.T) {
	age := eve.NewAttribute("age")
	checker := NewPatternChecker([]Pattern{
		{Tag: "person", Attribute: &age},
	})

	ok := checker.Check(nil, 1, []eve.Value{"robot", "person"}, eve.NewId("e1"), age, int64(5))
	assert.True(t, ok)
}
