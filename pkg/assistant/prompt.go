package assistant

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/flowsmith/flowsmith/pkg/models"
)

// RuntimeContext carries the scoping identifiers of one authoring turn.
type RuntimeContext struct {
	AccountID      string
	OrganizationID *string
	UserID         string
	TemplateID     string
	SessionID      string
}

const authoringRules = `You are a workflow template authoring assistant. You help users build and
refine workflow definitions through conversation.

Rules:
- A definition is a directed graph of steps. Step types: trigger, action, condition, end.
- Every step id is exactly 10 characters from [A-Za-z0-9_-]. Use the generate-short-id tool for new ids; never invent ids yourself.
- trigger and action steps route through "next" (a list of step ids). condition steps route through "onConditionPass" and "onConditionFail" (one step id each).
- Every referenced step id must exist in the definition. Validate your work with the validate-definition tool before answering.
- Always return the complete definition, not a partial edit. The whole document replaces the previous one.
- Use list-available-linked-forms and list-fact-catalog-for-form to discover what a trigger can bind to.
- Respond with a JSON object: {"text": "<your message to the user>", "definition": {...}, "followUpQuestions": [...], "followUpOptions": [...]}.`

const definitionSchema = `Definition schema:
{
  "steps": [
    {
      "id": "<10 chars>",
      "type": "trigger|action|condition|end",
      "capability": "<capability identifier>",
      "label": "<display label>",
      "params": {},
      "next": ["<step id>"],
      "onConditionPass": "<step id>",
      "onConditionFail": "<step id>"
    }
  ]
}`

const exampleDefinition = `Example definition:
{
  "steps": [
    {"id": "tr_form_01", "type": "trigger", "capability": "form.submitted", "params": {"formId": "form-42"}, "next": ["ac_notify1"]},
    {"id": "ac_notify1", "type": "action", "capability": "notify.email", "params": {"to": "manager"}, "next": ["end_done01"]},
    {"id": "end_done01", "type": "end"}
  ]
}`

// BuildSystemPrompt assembles the static authoring rules, the target schema,
// an example, the serialized current definition and the runtime context.
func BuildSystemPrompt(current *models.Definition, rc RuntimeContext, now func() time.Time) string {
	var b strings.Builder

	b.WriteString(authoringRules)
	b.WriteString("\n\n")
	b.WriteString(definitionSchema)
	b.WriteString("\n\n")
	b.WriteString(exampleDefinition)

	if current != nil {
		serialized, err := json.Marshal(current)
		if err == nil {
			b.WriteString("\n\nCurrent definition (replace as a whole on every change):\n")
			b.Write(serialized)
		}
	}

	b.WriteString("\n\nContext:")
	b.WriteString("\n- account: " + rc.AccountID)

	if rc.OrganizationID != nil {
		b.WriteString("\n- organization: " + *rc.OrganizationID)
	}

	if rc.UserID != "" {
		b.WriteString("\n- user: " + rc.UserID)
	}

	if rc.TemplateID != "" {
		b.WriteString("\n- template: " + rc.TemplateID)
	}

	b.WriteString("\n- current time: " + now().UTC().Format(time.RFC3339))

	return b.String()
}
