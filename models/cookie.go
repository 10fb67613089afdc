package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CookieParam is one cookie ready to be installed in a browser context.
type CookieParam struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// CookieSpec is the caller-supplied cookie input. On the wire it is either a
// raw "a=1; b=2" header string or a list of CookieParam objects.
type CookieSpec struct {
	Raw  string
	List []CookieParam
}

// UnmarshalJSON accepts a JSON string, a JSON array of cookie objects, or null.
func (s *CookieSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = CookieSpec{}
		return nil
	}

	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*s = CookieSpec{Raw: raw}
		return nil
	}

	var list []CookieParam
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("cookies must be a string or a list of {name, value} objects: %w", err)
	}
	*s = CookieSpec{List: list}
	return nil
}

func (s CookieSpec) MarshalJSON() ([]byte, error) {
	switch {
	case s.List != nil:
		return json.Marshal(s.List)
	case s.Raw != "":
		return json.Marshal(s.Raw)
	default:
		return []byte("null"), nil
	}
}

// IsEmpty reports whether the spec carries no cookie input at all.
func (s *CookieSpec) IsEmpty() bool {
	return s == nil || (s.Raw == "" && len(s.List) == 0)
}

// NormalizeCookies turns either cookie form into a list of CookieParam.
// List entries pass through with a missing domain filled from fallbackDomain
// and a missing path set to "/". Entries with an empty name or value are
// dropped. It never fails; absent input yields an empty list.
func NormalizeCookies(spec *CookieSpec, fallbackDomain string) []CookieParam {
	if spec.IsEmpty() {
		return []CookieParam{}
	}
	if spec.List == nil {
		return ParseCookieString(spec.Raw, fallbackDomain)
	}

	out := make([]CookieParam, 0, len(spec.List))
	for _, c := range spec.List {
		if c.Name == "" || c.Value == "" {
			continue
		}
		if c.Domain == "" {
			c.Domain = fallbackDomain
		}
		if c.Path == "" {
			c.Path = "/"
		}
		out = append(out, c)
	}
	return out
}

// ParseCookieString parses a "name=value; name2=value2" header string.
// Only the first "=" of a pair separates name from value.
func ParseCookieString(raw, domain string) []CookieParam {
	out := []CookieParam{}
	for _, pair := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		out = append(out, CookieParam{Name: name, Value: value, Domain: domain, Path: "/"})
	}
	return out
}

// Fingerprint is a stable textual form of the normalized cookies, used for
// cache keys.
func (s *CookieSpec) Fingerprint() string {
	if s.IsEmpty() {
		return ""
	}
	var b strings.Builder
	for _, c := range NormalizeCookies(s, "") {
		b.WriteString(c.Domain)
		b.WriteByte('|')
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
		b.WriteByte(';')
	}
	return b.String()
}
