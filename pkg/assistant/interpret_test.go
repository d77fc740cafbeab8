package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsmith/flowsmith/pkg/models"
)

func priorDefinition() *models.Definition {
	return &models.Definition{
		Steps: []*models.Step{
			{ID: "aaaaaaaaaa", Type: models.StepTypeTrigger, Next: []string{"bbbbbbbbbb"}},
			{ID: "bbbbbbbbbb", Type: models.StepTypeEnd},
		},
	}
}

func TestInterpret_FencedJSON(t *testing.T) {
	raw := "```json\n{\"text\":\"hi\",\"definition\":{\"steps\":[]}}\n```"

	reply := Interpret(raw, nil)

	assert.Equal(t, "hi", reply.Text)
	require.NotNil(t, reply.Definition)
	assert.Empty(t, reply.Definition.Steps)
}

func TestInterpret_LeadingProse(t *testing.T) {
	prior := priorDefinition()

	reply := Interpret("Sure, here it is: {\"text\":\"ok\"}", prior)

	assert.Equal(t, "ok", reply.Text)
	assert.Same(t, prior, reply.Definition)
}

func TestInterpret_PlainText(t *testing.T) {
	prior := priorDefinition()

	reply := Interpret("I need more detail", prior)

	assert.Equal(t, "I need more detail", reply.Text)
	assert.Same(t, prior, reply.Definition)
}

func TestInterpret_DirectJSONWithDefinition(t *testing.T) {
	raw := `{"text":"added a step","definition":{"steps":[{"id":"cccccccccc","type":"end"}]},"followUpQuestions":["Anything else?"]}`

	reply := Interpret(raw, priorDefinition())

	assert.Equal(t, "added a step", reply.Text)
	require.NotNil(t, reply.Definition)
	require.Len(t, reply.Definition.Steps, 1)
	assert.Equal(t, "cccccccccc", reply.Definition.Steps[0].ID)
	assert.Equal(t, []string{"Anything else?"}, reply.FollowUpQuestions)
}

func TestInterpret_ContentEnvelope(t *testing.T) {
	prior := priorDefinition()
	raw := `{"content":{"text":"wrapped","definition":{"steps":[{"id":"dddddddddd","type":"end"}]}}}`

	reply := Interpret(raw, prior)

	assert.Equal(t, "wrapped", reply.Text)
	require.NotNil(t, reply.Definition)
	require.Len(t, reply.Definition.Steps, 1)
	assert.Equal(t, "dddddddddd", reply.Definition.Steps[0].ID)
}

func TestInterpret_StringContentEnvelope(t *testing.T) {
	prior := priorDefinition()

	reply := Interpret(`{"content":"just words"}`, prior)

	assert.Equal(t, "just words", reply.Text)
	assert.Same(t, prior, reply.Definition)
}

func TestInterpret_UnrecognizedShapeStringified(t *testing.T) {
	prior := priorDefinition()

	reply := Interpret(`{"something":"else"}`, prior)

	assert.Contains(t, reply.Text, "something")
	assert.Same(t, prior, reply.Definition)
}

func TestInterpret_MalformedDefinitionKeepsPrior(t *testing.T) {
	prior := priorDefinition()

	reply := Interpret(`{"text":"oops","definition":"not a graph"}`, prior)

	assert.Equal(t, "oops", reply.Text)
	assert.Same(t, prior, reply.Definition)
}

func TestInterpret_FenceResidueStripped(t *testing.T) {
	reply := Interpret("```json\nthis is not json\n```", nil)

	assert.Equal(t, "this is not json", reply.Text)
	assert.Nil(t, reply.Definition)
}

func TestInterpret_FencedBlockWinsOverTrailingProse(t *testing.T) {
	raw := "Here you go:\n```json\n{\"text\":\"fenced\"}\n```\nLet me know!"

	reply := Interpret(raw, nil)

	assert.Equal(t, "fenced", reply.Text)
}
