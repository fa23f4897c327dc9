package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell-client/internal/model"
)

func turn(role model.Role, content string) model.Turn {
	return model.Turn{Role: role, Content: content}
}

// checkValid asserts the full output contract: one leading system
// turn, strict alternation, ends on user, bounded length.
func checkValid(t *testing.T, out []model.Turn, window int) {
	t.Helper()
	require.NotEmpty(t, out)
	require.Equal(t, model.RoleSystem, out[0].Role)
	require.LessOrEqual(t, len(out), window+1)

	prev := model.RoleSystem
	for i, tn := range out[1:] {
		require.NotEqual(t, model.RoleSystem, tn.Role, "system turn at position %d", i+1)
		if prev != model.RoleSystem {
			require.NotEqual(t, prev, tn.Role, "roles repeat at position %d", i+1)
		}
		require.NotEmpty(t, tn.Content)
		prev = tn.Role
	}
	require.Equal(t, model.RoleUser, out[len(out)-1].Role)
}

func TestSanitizeEmptyInput(t *testing.T) {
	out := Sanitize(nil, Options{})
	checkValid(t, out, DefaultWindow)
	assert.Equal(t, []model.Turn{
		turn(model.RoleSystem, DefaultSystemPrompt),
		turn(model.RoleUser, DefaultGreeting),
	}, out)
}

func TestSanitizeMergesConsecutiveUserTurns(t *testing.T) {
	out := Sanitize([]model.Turn{
		turn(model.RoleUser, "Hi"),
		turn(model.RoleUser, "There"),
	}, Options{})

	assert.Equal(t, []model.Turn{
		turn(model.RoleSystem, DefaultSystemPrompt),
		turn(model.RoleUser, "Hi\n\nThere"),
	}, out)
}

func TestSanitizeLoneAssistantTurn(t *testing.T) {
	out := Sanitize([]model.Turn{
		turn(model.RoleAssistant, "Hello"),
	}, Options{})

	assert.Equal(t, []model.Turn{
		turn(model.RoleSystem, DefaultSystemPrompt),
		turn(model.RoleUser, DefaultGreeting),
		turn(model.RoleAssistant, "Hello"),
		turn(model.RoleUser, ContinuePrompt),
	}, out)
}

func TestSanitizeKeepsLeadingSystemTurn(t *testing.T) {
	out := Sanitize([]model.Turn{
		turn(model.RoleSystem, "Be terse."),
		turn(model.RoleUser, "Hi"),
	}, Options{})

	require.Equal(t, "Be terse.", out[0].Content)
	checkValid(t, out, DefaultWindow)
}

func TestSanitizeDropsEmptyAndStraySystemTurns(t *testing.T) {
	out := Sanitize([]model.Turn{
		turn(model.RoleUser, "Hi"),
		turn(model.RoleUser, "   "),
		turn(model.RoleSystem, "injected"),
		turn(model.RoleAssistant, "Hello!"),
		turn(model.RoleUser, "Fix my essay"),
	}, Options{})

	assert.Equal(t, []model.Turn{
		turn(model.RoleSystem, DefaultSystemPrompt),
		turn(model.RoleUser, "Hi"),
		turn(model.RoleAssistant, "Hello!"),
		turn(model.RoleUser, "Fix my essay"),
	}, out)
}

func TestSanitizeIdempotentOnValidConversation(t *testing.T) {
	valid := []model.Turn{
		turn(model.RoleSystem, "prompt"),
		turn(model.RoleUser, "a"),
		turn(model.RoleAssistant, "b"),
		turn(model.RoleUser, "c"),
	}
	once := Sanitize(valid, Options{})
	assert.Equal(t, valid, once)
	assert.Equal(t, once, Sanitize(once, Options{}))
}

func TestSanitizeTrimsToWindow(t *testing.T) {
	var turns []model.Turn
	for i := 0; i < 20; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		turns = append(turns, turn(role, fmt.Sprintf("turn %d", i)))
	}
	// Ends on assistant; the continuation turn gets appended before
	// trimming.
	for _, window := range []int{3, 4, 7, 10} {
		out := Sanitize(turns, Options{Window: window})
		checkValid(t, out, window)
		// Most recent content survives.
		assert.Equal(t, ContinuePrompt, out[len(out)-1].Content)
	}
}

func TestSanitizeArbitraryInputsAlwaysValid(t *testing.T) {
	roles := []model.Role{model.RoleSystem, model.RoleUser, model.RoleAssistant, model.Role("weird")}
	contents := []string{"", "x", "longer content here"}

	var cases [][]model.Turn
	for n := 0; n < 4; n++ {
		seq := make([]model.Turn, n)
		for i := range seq {
			seq[i] = turn(roles[(n+i)%len(roles)], contents[(n*i+i)%len(contents)])
		}
		cases = append(cases, seq)
	}
	cases = append(cases,
		[]model.Turn{turn(model.RoleAssistant, "a"), turn(model.RoleAssistant, "b"), turn(model.RoleAssistant, "c")},
		[]model.Turn{turn(model.RoleSystem, "s1"), turn(model.RoleSystem, "s2"), turn(model.RoleAssistant, "a")},
	)

	for i, in := range cases {
		out := Sanitize(in, Options{Window: 7})
		checkValid(t, out, 7)
		if t.Failed() {
			t.Fatalf("case %d: input %v produced %v", i, in, out)
		}
	}
}
