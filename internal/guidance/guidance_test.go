package guidance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

func actionTexts(actions []Action) []string {
	texts := make([]string, len(actions))
	for i, a := range actions {
		texts[i] = a.Text
	}
	return texts
}

func TestNormalizeAndValidate(t *testing.T) {
	ctx := Normalize(Context{Language: " English "})
	assert.Equal(t, LanguageEnglish, ctx.Language)
	assert.Equal(t, LocationHome, ctx.Location)
	assert.Equal(t, 1, ctx.PeopleCount)
	require.NoError(t, Validate(ctx))

	tests := []struct {
		name string
		ctx  Context
	}{
		{"negative people", Context{Language: "english", Location: "Home", PeopleCount: -1}},
		{"unknown location", Context{Language: "english", Location: "Boat", PeopleCount: 1}},
		{"unknown resource", Context{Language: "english", Location: "Home", PeopleCount: 1, Resources: []string{"Generator"}}},
		{"unknown language", Context{Language: "french", Location: "Home", PeopleCount: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(Validate(tt.ctx), ErrInvalidContext))
		})
	}
}

func TestRenderEveryLabelHasSituation(t *testing.T) {
	for _, label := range models.Labels {
		g := RenderLabel(label, Context{})
		assert.Equal(t, label, g.Label)
		assert.NotEmpty(t, g.Headline, label)
		assert.NotEmpty(t, g.Situation, label)
		assert.Len(t, g.Priorities, 4, label)
	}
}

func TestRenderUnknownLabelFallsBackToGeneral(t *testing.T) {
	g := RenderLabel(models.Label("tsunami"), Context{})
	assert.Equal(t, models.LabelGeneral, g.Label)
	assert.Equal(t, "General Emergency", g.Headline)
}

func TestRenderFireWithPhone(t *testing.T) {
	result := &models.ClassificationResult{
		Label:      models.LabelFire,
		Confidence: models.ConfidenceHigh,
		Counts:     models.IndicatorCounts{FireFrames: 6, SampledFrames: 15},
	}
	g := Render(result, Context{
		Resources:   []string{ResourcePhone, ResourceWater},
		Location:    LocationHome,
		PeopleCount: 3,
	})

	assert.Equal(t, models.ConfidenceHigh, g.Confidence)
	assert.Equal(t, "Fire Emergency Detected", g.Headline)
	assert.Equal(t, []string{"Call 112 for help", "Call Fire Department: 101", "Stay hydrated"}, actionTexts(g.Actions))
	assert.Equal(t, []string{"Exit home immediately", "Use nearest safe exit"}, g.Solutions)
	assert.Equal(t, "Account for 3 people", g.Priorities[3])
	assert.Equal(t, "Water/Muddy=0, Fire=6, Motion=0, Dark=0/15", g.Evidence)
}

func TestRenderFloodWithoutPhone(t *testing.T) {
	result := &models.ClassificationResult{Label: models.LabelFlood, Confidence: models.ConfidenceHigh}
	g := Render(result, Context{
		Resources:   []string{ResourceWater},
		Location:    LocationHome,
		PeopleCount: 2,
	})

	require.Len(t, g.Actions, 2)
	assert.Equal(t, Action{Text: "Find communication method urgently", Severity: SeverityError}, g.Actions[0])
	assert.Equal(t, Action{Text: "Avoid flood water - contaminated", Severity: SeverityWarning}, g.Actions[1])
	assert.Equal(t, []string{"Move to highest floor", "Avoid basement/ground floor"}, g.Solutions)
	assert.Equal(t, "Keep 2 people together", g.Priorities[3])
}

func TestRenderAccidentAndOutdoors(t *testing.T) {
	g := RenderLabel(models.LabelAccident, Context{Resources: []string{ResourcePhone}, Location: LocationOutdoors})
	assert.Equal(t, []string{"Call 112 for help", "Call Ambulance: 108"}, actionTexts(g.Actions))
	assert.Equal(t, []string{"Find shelter immediately"}, g.Solutions)

	g = RenderLabel(models.LabelEarthquake, Context{Location: LocationOutdoors})
	assert.Equal(t, []string{"Stay in open area", "Away from buildings"}, g.Solutions)

	g = RenderLabel(models.LabelEarthquake, Context{Location: LocationVehicle})
	assert.Empty(t, g.Solutions)
	assert.Equal(t, "Plan for 1 people", g.Priorities[3])
}

func TestRenderWithoutAnalysis(t *testing.T) {
	g := Render(nil, Context{Location: LocationOutdoors, PeopleCount: 4})

	assert.Empty(t, g.Label)
	assert.Empty(t, g.Headline)
	assert.Equal(t, []string{"Find communication method", "Find clean water source"}, actionTexts(g.Actions))
	assert.Equal(t, []string{"Find shelter immediately", "Signal for help"}, g.Solutions)
	assert.Equal(t, []string{"Ensure safety", "Call for help", "Secure shelter", "Plan for 4 people"}, g.Priorities)

	g = Render(nil, Context{Resources: []string{ResourcePhone, ResourceWater}})
	assert.Equal(t, []string{"Call 112 for help", "Ration water supply"}, actionTexts(g.Actions))
	assert.Equal(t, []string{"Stay indoors if safe", "Turn off utilities if needed"}, g.Solutions)
}

func TestDisasterInfo(t *testing.T) {
	t.Run("english volcano", func(t *testing.T) {
		a, err := DisasterInfo("english", DisasterVolcano)
		require.NoError(t, err)
		assert.Equal(t, "Safety Measures for Volcano", a.Heading)
		assert.Equal(t, "Measures for volcanic eruptions", a.Title)
		require.Len(t, a.Sections, 3)
		assert.Equal(t, "Before a Volcanic Eruption", a.Sections[0].Title)
		assert.Empty(t, a.Hint)
	})

	t.Run("hindi flood", func(t *testing.T) {
		a, err := DisasterInfo("Hindi", DisasterFloodsHindi)
		require.NoError(t, err)
		assert.Equal(t, "बाढ़ से बचाव के उपाय", a.Heading)
		require.Len(t, a.Sections, 3)
	})

	t.Run("cross language", func(t *testing.T) {
		a, err := DisasterInfo("english", DisasterFloodsHindi)
		require.NoError(t, err)
		assert.Empty(t, a.Sections)
		assert.Equal(t, "Please select 'floods' for English", a.Hint)

		a, err = DisasterInfo("hindi", DisasterVolcano)
		require.NoError(t, err)
		assert.Equal(t, "कृपया हिंदी में 'ज्वालामुखी' चुनें", a.Hint)
	})

	t.Run("none", func(t *testing.T) {
		a, err := DisasterInfo("english", DisasterNone)
		require.NoError(t, err)
		assert.Equal(t, "Select a disaster type to see safety measures", a.Hint)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := DisasterInfo("french", DisasterVolcano)
		assert.ErrorIs(t, err, ErrUnknownLanguage)
		_, err = DisasterInfo("english", "tornado")
		assert.ErrorIs(t, err, ErrUnknownDisaster)
	})
}

func TestFirstAid(t *testing.T) {
	p, err := FirstAid("heart-attack")
	require.NoError(t, err)
	assert.Equal(t, FirstAidHeartAttack, p.Kind)
	assert.Equal(t, "Call 108 immediately", p.Steps[0])

	for _, kind := range FirstAidKinds {
		p, err := FirstAid(kind)
		require.NoError(t, err)
		assert.Len(t, p.Steps, 4)
	}

	_, err = FirstAid("snake bite")
	assert.ErrorIs(t, err, ErrUnknownFirstAid)
}

func TestReferenceContent(t *testing.T) {
	contacts := EmergencyContacts()
	assert.Equal(t, Contact{Service: "Police", Number: "100"}, contacts[0])

	seen := map[string]bool{}
	for _, c := range contacts {
		assert.False(t, seen[c.Service], "duplicate contact %s", c.Service)
		seen[c.Service] = true
	}

	assert.NotEmpty(t, SafetyTips())
	assert.Len(t, Overview(), 7)
}
