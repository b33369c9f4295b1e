// Package guidance renders the safety advice shown next to an analysis.
// Everything here is a pure function of its arguments.
package guidance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

// Context is the caller's situation
type Context = models.SituationContext

// Resources a caller can report having
const (
	ResourceWater      = "Water"
	ResourceFood       = "Food"
	ResourceFlashlight = "Flashlight"
	ResourceFirstAid   = "First aid"
	ResourcePhone      = "Phone"
	ResourceRope       = "Rope"
	ResourceBlankets   = "Blankets"
)

// Locations a caller can report being at
const (
	LocationHome     = "Home"
	LocationOffice   = "Office"
	LocationOutdoors = "Outdoors"
	LocationVehicle  = "Vehicle"
)

// Languages with disaster articles
const (
	LanguageEnglish = "english"
	LanguageHindi   = "hindi"
)

// Resources lists the accepted resources
var Resources = []string{
	ResourceWater, ResourceFood, ResourceFlashlight, ResourceFirstAid,
	ResourcePhone, ResourceRope, ResourceBlankets,
}

// Locations lists the accepted locations
var Locations = []string{LocationHome, LocationOffice, LocationOutdoors, LocationVehicle}

// ErrInvalidContext is returned by Validate
var ErrInvalidContext = errors.New("invalid situation context")

// Normalize fills defaults: english, Home and one person
func Normalize(ctx Context) Context {
	ctx.Language = strings.ToLower(strings.TrimSpace(ctx.Language))
	if ctx.Language == "" {
		ctx.Language = LanguageEnglish
	}
	if ctx.Location == "" {
		ctx.Location = LocationHome
	}
	if ctx.PeopleCount == 0 {
		ctx.PeopleCount = 1
	}
	return ctx
}

// Validate checks the context against the accepted values
func Validate(ctx Context) error {
	if ctx.PeopleCount < 1 {
		return fmt.Errorf("%w: people must be at least 1, got %d", ErrInvalidContext, ctx.PeopleCount)
	}
	if !contains(Locations, ctx.Location) {
		return fmt.Errorf("%w: unknown location %q", ErrInvalidContext, ctx.Location)
	}
	for _, r := range ctx.Resources {
		if !contains(Resources, r) {
			return fmt.Errorf("%w: unknown resource %q", ErrInvalidContext, r)
		}
	}
	switch ctx.Language {
	case LanguageEnglish, LanguageHindi:
	default:
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidContext, ctx.Language)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func hasResource(ctx Context, resource string) bool {
	return contains(ctx.Resources, resource)
}
