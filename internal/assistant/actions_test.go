package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura-backend/internal/views"
)

func TestComputeActionsIsPure(t *testing.T) {
	for _, tag := range AllIntents {
		t.Run(string(tag), func(t *testing.T) {
			a := ComputeActions(tag)
			b := ComputeActions(tag)
			require.NotEmpty(t, a)
			assert.Equal(t, a, b)

			a[0].Title = "mutated"
			assert.NotEqual(t, "mutated", ComputeActions(tag)[0].Title)
		})
	}
}

func TestComputeActionsUnknownTag(t *testing.T) {
	assert.Equal(t, ComputeActions(IntentFallback), ComputeActions(IntentTag("nope")))
}

func TestNavigationTargetsAreRoutable(t *testing.T) {
	for _, tag := range AllIntents {
		for _, a := range ComputeActions(tag) {
			switch a.Invoke.Kind {
			case InvokeNavigate:
				assert.True(t, views.Exists(a.Invoke.Target), "%s -> %s", a.ID, a.Invoke.Target)
			case InvokePrompt:
				assert.NotEmpty(t, a.Invoke.Target, a.ID)
			default:
				t.Errorf("unexpected invoke kind %q on %s", a.Invoke.Kind, a.ID)
			}
		}
	}
}

func TestPromptActionsReachTheirIntent(t *testing.T) {
	// Canned follow-ups must not land on fallback.
	for _, tag := range AllIntents {
		for _, a := range ComputeActions(tag) {
			if a.Invoke.Kind == InvokePrompt {
				assert.NotEqual(t, IntentFallback, Classify(a.Invoke.Target), a.Invoke.Target)
			}
		}
	}
}

func TestDropAppendsOneCustomAction(t *testing.T) {
	e := newTestEngine(EngineOptions{})
	s, _ := e.Dispatch(context.Background(), NewSession("s"), "show top suppliers")
	before := e.Panel(s)

	s, ca, err := e.Drop(s, "  Follow up with MedSource on pricing  ")
	require.NoError(t, err)
	assert.Equal(t, "  Follow up with MedSource on pricing  ", ca.Content)

	after := e.Panel(s)
	assert.Equal(t, before.Actions, after.Actions)
	require.Len(t, after.Custom, len(before.Custom)+1)
	assert.Equal(t, ca, after.Custom[len(after.Custom)-1])

	// Duplicates are kept.
	s, _, err = e.Drop(s, "  Follow up with MedSource on pricing  ")
	require.NoError(t, err)
	assert.Len(t, e.Panel(s).Custom, 2)
}

func TestDropRejectsBlank(t *testing.T) {
	e := newTestEngine(EngineOptions{})
	s := NewSession("s")
	next, _, err := e.Drop(s, " \n\t")
	assert.ErrorIs(t, err, ErrEmptyDrop)
	assert.Empty(t, next.Custom)
}

func TestDropEvictsOldestBeyondLimit(t *testing.T) {
	e := newTestEngine(EngineOptions{MaxCustom: 2})
	s := NewSession("s")
	var err error
	for _, c := range []string{"a", "b", "c"} {
		s, _, err = e.Drop(s, c)
		require.NoError(t, err)
	}
	require.Len(t, s.Custom, 2)
	assert.Equal(t, "b", s.Custom[0].Content)
	assert.Equal(t, "c", s.Custom[1].Content)
}

func TestPanelFollowsLastTag(t *testing.T) {
	e := newTestEngine(EngineOptions{})
	assert.Equal(t, IntentFallback, e.Panel(NewSession("s")).Tag)
	assert.Equal(t, IntentFallback, e.Panel(Session{}).Tag)

	s, _ := e.Dispatch(context.Background(), NewSession("s"), "research vaccines")
	p := e.Panel(s)
	assert.Equal(t, IntentResearchRequest, p.Tag)
	assert.Equal(t, ComputeActions(IntentResearchRequest), p.Actions)
}
