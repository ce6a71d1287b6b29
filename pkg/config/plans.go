package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFreeNoteLimit is the number of notes a free tenant may hold.
const DefaultFreeNoteLimit = 3

// Plans maps a subscription plan name to its note limit. A limit of zero or
// less means unlimited.
type Plans struct {
	limits map[string]int
}

// NewPlans builds a plan table from explicit limits.
func NewPlans(limits map[string]int) *Plans {
	copied := make(map[string]int, len(limits))
	for name, limit := range limits {
		copied[strings.ToLower(name)] = limit
	}
	return &Plans{limits: copied}
}

// DefaultPlans returns free=3, pro=unlimited.
func DefaultPlans() *Plans {
	return NewPlans(map[string]int{"free": DefaultFreeNoteLimit, "pro": 0})
}

// NoteLimit returns the limit for plan and whether the plan is limited at all.
// Unknown plans are treated as the free plan.
func (p *Plans) NoteLimit(plan string) (int, bool) {
	limit, ok := p.limits[strings.ToLower(plan)]
	if !ok {
		limit = p.limits["free"]
	}
	return limit, limit > 0
}

// LoadPlans reads plan limits from a yaml file. An empty path searches
// plans.yml in the working directory and /etc/notes-service; a missing file
// yields the defaults. NOTES_PLANS_FREE_NOTE_LIMIT style env vars override.
func LoadPlans(path string) (*Plans, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("plans")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/notes-service")
	}

	v.SetEnvPrefix("NOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("plans.free.note_limit", DefaultFreeNoteLimit)
	v.SetDefault("plans.pro.note_limit", 0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read plans config: %w", err)
		}
	}

	free := v.GetInt("plans.free.note_limit")
	if free <= 0 {
		return nil, fmt.Errorf("plans.free.note_limit must be positive, got %d", free)
	}

	return NewPlans(map[string]int{
		"free": free,
		"pro":  v.GetInt("plans.pro.note_limit"),
	}), nil
}
