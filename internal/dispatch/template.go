package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opsdeck/opsdeck-go/internal/alerting"
	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

// renderTemplate substitutes template variables in the title/message strings.
// Falls back to a default if the template is empty.
func renderTemplate(tmpl string, rule *entities.AlertRule, snapshot alerting.Snapshot) string {
	if tmpl == "" {
		return defaultTemplate(rule)
	}
	pairs := []string{
		"{{rule_name}}", rule.Name,
		"{{category}}", rule.Category,
		"{{priority}}", rule.Priority,
	}
	for k, v := range snapshot {
		pairs = append(pairs, fmt.Sprintf("{{%s}}", k), fmt.Sprintf("%v", v))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func defaultTemplate(rule *entities.AlertRule) string {
	return fmt.Sprintf("Alert: %s", rule.Name)
}

// renderContent renders the title and body for a fired rule from its first
// action (lowest sort order). Rules without actions get defaults.
func renderContent(rule *entities.AlertRule, snapshot alerting.Snapshot) (title, body string) {
	if len(rule.Actions) == 0 {
		return defaultTemplate(rule), defaultTemplate(rule)
	}
	actions := make([]entities.AlertAction, len(rule.Actions))
	copy(actions, rule.Actions)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].SortOrder < actions[j].SortOrder })
	action := &actions[0]
	return renderTemplate(action.TemplateTitle, rule, snapshot),
		renderTemplate(action.TemplateMessage, rule, snapshot)
}
