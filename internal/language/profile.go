package language

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Profile binds a language code to the patterns that detect it in audio track
// metadata and the tags written into sidecars when it is detected.
type Profile struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	SearchPatterns []string `json:"search_patterns"`
	TagsToAdd      []string `json:"tags_to_add"`
}

// ErrUnknownLanguage is returned by Registry.Lookup for codes without a profile.
var ErrUnknownLanguage = errors.New("unknown language")

var builtinProfiles = []Profile{
	{
		Code:           "de",
		Name:           "German",
		SearchPatterns: []string{"German", "Deutsch", "DE", "De "},
		TagsToAdd:      []string{"German", "Deutsch"},
	},
	{
		Code:           "en",
		Name:           "English",
		SearchPatterns: []string{"English", "Englisch"},
		TagsToAdd:      []string{"English"},
	},
	{
		Code:           "fr",
		Name:           "French",
		SearchPatterns: []string{"French", "Français", "Francais", "VFF", "VFQ"},
		TagsToAdd:      []string{"French", "Français"},
	},
	{
		Code:           "es",
		Name:           "Spanish",
		SearchPatterns: []string{"Spanish", "Español", "Espanol", "Castellano"},
		TagsToAdd:      []string{"Spanish", "Español"},
	},
	{
		Code:           "it",
		Name:           "Italian",
		SearchPatterns: []string{"Italian", "Italiano"},
		TagsToAdd:      []string{"Italian", "Italiano"},
	},
}

// Builtin returns copies of the built-in profiles.
func Builtin() []Profile {
	out := make([]Profile, len(builtinProfiles))
	for i, p := range builtinProfiles {
		out[i] = p.clone()
	}
	return out
}

func (p Profile) clone() Profile {
	p.SearchPatterns = append([]string(nil), p.SearchPatterns...)
	p.TagsToAdd = append([]string(nil), p.TagsToAdd...)
	return p
}

// Matches reports whether text contains any of the profile's search patterns,
// compared with Unicode case folding.
func (p Profile) Matches(text string) bool {
	_, ok := p.MatchingPattern(text)
	return ok
}

// MatchingPattern returns the first search pattern contained in text.
func (p Profile) MatchingPattern(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	folder := cases.Fold()
	haystack := folder.String(text)
	for _, pattern := range p.SearchPatterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(haystack, folder.String(pattern)) {
			return pattern, true
		}
	}
	return "", false
}

// Registry holds the immutable set of profiles for a run.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds a registry from the built-in profiles plus overrides.
// An override for a built-in code replaces only the fields it sets; an
// override for a new code must set search patterns and tags, and its name
// defaults to the code's display name.
func NewRegistry(overrides ...Profile) (*Registry, error) {
	profiles := make(map[string]Profile, len(builtinProfiles)+len(overrides))
	for _, p := range builtinProfiles {
		profiles[p.Code] = p.clone()
	}
	for _, o := range overrides {
		code := strings.ToLower(strings.TrimSpace(o.Code))
		if code == "" {
			return nil, errors.New("language profile: empty code")
		}
		base, exists := profiles[code]
		if !exists {
			base = Profile{Code: code, Name: DisplayName(code)}
		}
		if name := strings.TrimSpace(o.Name); name != "" {
			base.Name = name
		}
		if len(o.SearchPatterns) > 0 {
			base.SearchPatterns = append([]string(nil), o.SearchPatterns...)
		}
		if len(o.TagsToAdd) > 0 {
			base.TagsToAdd = append([]string(nil), o.TagsToAdd...)
		}
		if len(base.SearchPatterns) == 0 {
			return nil, fmt.Errorf("language profile %q: search_patterns is required", code)
		}
		if len(base.TagsToAdd) == 0 {
			return nil, fmt.Errorf("language profile %q: tags_to_add is required", code)
		}
		profiles[code] = base
	}
	return &Registry{profiles: profiles}, nil
}

// Lookup resolves code (any form ToISO2 accepts, or a custom profile code)
// to its profile.
func (r *Registry) Lookup(code string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(code))
	if p, ok := r.profiles[key]; ok {
		return p.clone(), nil
	}
	if iso2 := ToISO2(key); iso2 != "" {
		if p, ok := r.profiles[iso2]; ok {
			return p.clone(), nil
		}
	}
	return Profile{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownLanguage, code, strings.Join(r.Codes(), ", "))
}

// Codes returns the registered profile codes in sorted order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.profiles))
	for code := range r.profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Profiles returns every registered profile sorted by code.
func (r *Registry) Profiles() []Profile {
	codes := r.Codes()
	out := make([]Profile, 0, len(codes))
	for _, code := range codes {
		out = append(out, r.profiles[code].clone())
	}
	return out
}
