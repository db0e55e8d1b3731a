package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ClaimSet is the decoded JWT payload of a validated token.
type ClaimSet map[string]any

// String returns the string value of a claim, or "" if absent or not a string.
func (c ClaimSet) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Time returns a NumericDate claim as a time.Time. JSON numbers decode as
// float64; string-encoded timestamps are not accepted.
func (c ClaimSet) Time(key string) (time.Time, bool) {
	v, ok := c[key]
	if !ok {
		return time.Time{}, false
	}
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0), true
	case int64:
		return time.Unix(n, 0), true
	case json.Number:
		sec, err := n.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(sec, 0), true
	default:
		return time.Time{}, false
	}
}

// Audiences returns the aud claim normalized to a slice. The claim may be a
// single string or an array of strings.
func (c ClaimSet) Audiences() []string {
	switch aud := c["aud"].(type) {
	case string:
		if aud == "" {
			return nil
		}
		return []string{aud}
	case []any:
		out := make([]string, 0, len(aud))
		for _, v := range aud {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return aud
	default:
		return nil
	}
}

// Subject returns the sub claim.
func (c ClaimSet) Subject() string { return c.String("sub") }

// Issuer returns the iss claim.
func (c ClaimSet) Issuer() string { return c.String("iss") }

// Policy returns the policy claim: tfp, falling back to acr.
func (c ClaimSet) Policy() string {
	if tfp := c.String("tfp"); tfp != "" {
		return tfp
	}
	return c.String("acr")
}

// Decode projects the claim set into a caller-defined struct via JSON
// round-trip. Unknown fields are ignored; type mismatches fail.
func (c ClaimSet) Decode(out any) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode claims: %w", err)
	}
	return nil
}
