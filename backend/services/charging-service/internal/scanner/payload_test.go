package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	cases := map[string]Target{
		"siteId=123,gunId=456":                               {SiteID: "123", GunID: "456"},
		" siteId=1 & gunId=DC-001 ":                          {SiteID: "1", GunID: "DC-001"},
		"https://evcharge.example/charging?siteId=2&gunId=7": {SiteID: "2", GunID: "7"},
		`{"siteId":"3","gunId":"AC-003"}`:                    {SiteID: "3", GunID: "AC-003"},
		`{"siteId":3,"gunId":"AC-003"}`:                      {SiteID: "3", GunID: "AC-003"},
	}
	for raw, want := range cases {
		got, err := ParsePayload(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParsePayloadRejectsIncompleteCodes(t *testing.T) {
	for _, raw := range []string{"", "hello world", "siteId=123", `{"gunId":"1"}`, `{broken`, "https://example.com/?gunId=1"} {
		_, err := ParsePayload(raw)
		assert.ErrorIs(t, err, ErrInvalidPayload, raw)
	}
}
