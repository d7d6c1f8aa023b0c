package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidPayload is returned when a decoded QR code does not name a connector.
var ErrInvalidPayload = errors.New("scanner: invalid QR payload")

// Target is the connector identity carried by a charging QR code.
type Target struct {
	SiteID string `json:"siteId"`
	GunID  string `json:"gunId"`
}

// ParsePayload extracts siteId and gunId from a decoded QR payload.
//
// Accepted forms:
//
//	siteId=123,gunId=456
//	siteId=123&gunId=456
//	https://host/charging?siteId=123&gunId=456
//	{"siteId":"123","gunId":"456"}
func ParsePayload(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	var (
		target Target
		err    error
	)
	switch {
	case strings.HasPrefix(raw, "{"):
		target, err = parseJSONPayload(raw)
	case strings.Contains(raw, "://"):
		target, err = parseURLPayload(raw)
	default:
		target = parsePairs(raw)
	}
	if err != nil {
		return Target{}, err
	}

	if target.SiteID == "" || target.GunID == "" {
		return Target{}, fmt.Errorf("%w: siteId and gunId are required", ErrInvalidPayload)
	}
	return target, nil
}

func parseJSONPayload(raw string) (Target, error) {
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Target{
		SiteID: stringify(body["siteId"]),
		GunID:  stringify(body["gunId"]),
	}, nil
}

func parseURLPayload(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	q := u.Query()
	return Target{
		SiteID: strings.TrimSpace(q.Get("siteId")),
		GunID:  strings.TrimSpace(q.Get("gunId")),
	}, nil
}

func parsePairs(raw string) Target {
	var target Target
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '&' || r == ';' })
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "siteId":
			target.SiteID = value
		case "gunId":
			target.GunID = value
		}
	}
	return target
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}
