package guidance

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

// Severity of an action line
const (
	SeverityOK      = "ok"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Action is one immediate action line
type Action struct {
	Text     string `json:"text"`
	Severity string `json:"severity"`
}

// Guidance is the rendered advice for one situation
type Guidance struct {
	Label      models.Label      `json:"label,omitempty"`
	Confidence models.Confidence `json:"confidence,omitempty"`
	Headline   string            `json:"headline,omitempty"`
	Situation  []string          `json:"situation,omitempty"`
	Evidence   string            `json:"evidence,omitempty"`
	Actions    []Action          `json:"immediate_actions"`
	Solutions  []string          `json:"solutions"`
	Priorities []string          `json:"priorities"`
}

type situationBlock struct {
	headline string
	bullets  []string
}

var situations = map[models.Label]situationBlock{
	models.LabelFlood: {
		headline: "Flood Emergency Detected",
		bullets: []string{
			"Water hazard identified in video",
			"Immediate evacuation recommended",
			"Avoid electrical equipment and vehicles",
			"Do not attempt to walk through flood water",
		},
	},
	models.LabelFire: {
		headline: "Fire Emergency Detected",
		bullets: []string{
			"Fire/smoke hazard identified",
			"Exit building immediately via nearest safe route",
			"Stay low to avoid smoke inhalation",
			"Do not use elevators during fire",
		},
	},
	models.LabelPowerOutage: {
		headline: "Power Outage/Dark Environment Detected",
		bullets: []string{
			"Dark conditions detected in video",
			"Use flashlight or phone light carefully",
			"Stay in safe location until power restored",
			"Conserve phone battery for emergencies",
		},
	},
	models.LabelEarthquake: {
		headline: "Earthquake Detected",
		bullets: []string{
			"Seismic activity indicated",
			"Take cover under sturdy furniture immediately",
			"Stay away from windows and heavy objects",
			"Do not run outside during active shaking",
		},
	},
	models.LabelAccident: {
		headline: "Accident Scene Detected",
		bullets: []string{
			"Accident/injury situation identified",
			"Call emergency services immediately",
			"Provide first aid only if properly trained",
			"Secure accident scene from further danger",
		},
	},
	models.LabelGeneral: {
		headline: "General Emergency",
		bullets: []string{
			"Emergency situation detected",
			"Assess immediate dangers in your environment",
			"Follow general safety protocols",
		},
	},
}

// Render builds the advice for a classification. A nil result means no
// analysis is available, and only the baseline advice is returned.
func Render(result *models.ClassificationResult, ctx Context) Guidance {
	ctx = Normalize(ctx)
	if result == nil {
		return baseline(ctx)
	}

	g := RenderLabel(result.Label, ctx)
	g.Confidence = result.Confidence
	g.Evidence = result.Summary()
	return g
}

// RenderLabel builds the advice for a label without analysis evidence
func RenderLabel(label models.Label, ctx Context) Guidance {
	ctx = Normalize(ctx)
	block, ok := situations[label]
	if !ok {
		label = models.LabelGeneral
		block = situations[label]
	}

	return Guidance{
		Label:      label,
		Headline:   block.headline,
		Situation:  block.bullets,
		Actions:    immediateActions(label, ctx),
		Solutions:  solutions(label, ctx.Location),
		Priorities: priorities(label, ctx.PeopleCount),
	}
}

func immediateActions(label models.Label, ctx Context) []Action {
	var actions []Action

	if hasResource(ctx, ResourcePhone) {
		actions = append(actions, Action{Text: "Call 112 for help", Severity: SeverityOK})
		switch label {
		case models.LabelFire:
			actions = append(actions, Action{Text: "Call Fire Department: 101", Severity: SeverityOK})
		case models.LabelAccident:
			actions = append(actions, Action{Text: "Call Ambulance: 108", Severity: SeverityOK})
		}
	} else {
		actions = append(actions, Action{Text: "Find communication method urgently", Severity: SeverityError})
	}

	if label == models.LabelFlood {
		actions = append(actions, Action{Text: "Avoid flood water - contaminated", Severity: SeverityWarning})
	} else if hasResource(ctx, ResourceWater) {
		actions = append(actions, Action{Text: "Stay hydrated", Severity: SeverityOK})
	}

	return actions
}

func solutions(label models.Label, location string) []string {
	switch location {
	case LocationHome:
		switch label {
		case models.LabelFire:
			return []string{"Exit home immediately", "Use nearest safe exit"}
		case models.LabelFlood:
			return []string{"Move to highest floor", "Avoid basement/ground floor"}
		default:
			return []string{"Stay indoors if safe"}
		}
	case LocationOutdoors:
		if label == models.LabelEarthquake {
			return []string{"Stay in open area", "Away from buildings"}
		}
		return []string{"Find shelter immediately"}
	default:
		return []string{}
	}
}

func priorities(label models.Label, people int) []string {
	switch label {
	case models.LabelFire:
		return []string{
			"Exit building NOW",
			"Call 101 (Fire)",
			"Don't use elevators",
			fmt.Sprintf("Account for %d people", people),
		}
	case models.LabelFlood:
		return []string{
			"Move to higher ground",
			"Call 112 for rescue",
			"Avoid walking in water",
			fmt.Sprintf("Keep %d people together", people),
		}
	default:
		return []string{
			"Ensure immediate safety",
			"Call for help (112)",
			"Secure shelter",
			fmt.Sprintf("Plan for %d people", people),
		}
	}
}

func baseline(ctx Context) Guidance {
	var g Guidance

	if hasResource(ctx, ResourcePhone) {
		g.Actions = append(g.Actions, Action{Text: "Call 112 for help", Severity: SeverityOK})
	} else {
		g.Actions = append(g.Actions, Action{Text: "Find communication method", Severity: SeverityError})
	}
	if hasResource(ctx, ResourceWater) {
		g.Actions = append(g.Actions, Action{Text: "Ration water supply", Severity: SeverityOK})
	} else {
		g.Actions = append(g.Actions, Action{Text: "Find clean water source", Severity: SeverityWarning})
	}

	switch ctx.Location {
	case LocationHome:
		g.Solutions = []string{"Stay indoors if safe", "Turn off utilities if needed"}
	case LocationOutdoors:
		g.Solutions = []string{"Find shelter immediately", "Signal for help"}
	default:
		g.Solutions = []string{}
	}

	g.Priorities = []string{
		"Ensure safety",
		"Call for help",
		"Secure shelter",
		fmt.Sprintf("Plan for %d people", ctx.PeopleCount),
	}
	return g
}
