package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	t.Run("Should accept user@domain.tld shapes", func(t *testing.T) {
		for _, s := range []string{"a@b.co", "farmer@example.com", "first.last@mail.example.org", "x+tag@d.in"} {
			assert.True(t, ValidEmail(s), s)
		}
	})

	t.Run("Should reject strings without @ or a later dot", func(t *testing.T) {
		for _, s := range []string{"", "farmer", "farmer.example.com", "farmer@example", "a@@b.co", "a b@c.de", "@b.co", "a@b."} {
			assert.False(t, ValidEmail(s), s)
		}
	})
}

func TestValidateRequest(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("Should accept a minimal request once defaults are filled", func(t *testing.T) {
		req := StartRequest{Location: " Nashik ", FarmerEmail: "a@b.co"}.withDefaults(cfg)
		require.NoError(t, validateRequest(req))
		assert.Equal(t, "Nashik", req.Location)
		assert.Equal(t, DefaultUserQuery, req.UserQuery)
		assert.Equal(t, 30, req.DaysAhead)
		assert.Equal(t, 75, req.ConfidenceThreshold)
		assert.Equal(t, 2, req.MaxIterations)
	})

	t.Run("Should keep caller overrides", func(t *testing.T) {
		req := StartRequest{
			Location: "Pune", FarmerEmail: "a@b.co", DaysAhead: 7,
			ConfidenceThreshold: 90, MaxIterations: 4, UserQuery: "Frost?",
		}.withDefaults(cfg)
		assert.Equal(t, 7, req.DaysAhead)
		assert.Equal(t, 90, req.ConfidenceThreshold)
		assert.Equal(t, 4, req.MaxIterations)
		assert.Equal(t, "Frost?", req.UserQuery)
	})

	t.Run("Should name the failing field and rule", func(t *testing.T) {
		cases := []struct {
			name   string
			req    StartRequest
			field  string
			reason string
		}{
			{"location", StartRequest{FarmerEmail: "a@b.co"}, "Location", "is required"},
			{"email missing", StartRequest{Location: "Pune"}, "FarmerEmail", "is required"},
			{"email invalid", StartRequest{Location: "Pune", FarmerEmail: "nope"}, "FarmerEmail", "must be a valid email address"},
			{"phone short", StartRequest{Location: "Pune", FarmerEmail: "a@b.co", FarmerPhone: "12345"}, "FarmerPhone", "must be at least 10"},
			{"iterations", StartRequest{Location: "Pune", FarmerEmail: "a@b.co", MaxIterations: 6}, "MaxIterations", "must be at most 5"},
			{"confidence", StartRequest{Location: "Pune", FarmerEmail: "a@b.co", ConfidenceThreshold: 101}, "ConfidenceThreshold", "must be at most 100"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				err := validateRequest(tc.req.withDefaults(cfg))
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tc.field, verr.Field)
				assert.Equal(t, tc.reason, verr.Reason)
			})
		}
	})

	t.Run("Should validate forecast requests the same way", func(t *testing.T) {
		err := validateRequest(ForecastRequest{Location: "Pune", FarmerEmail: "bad"}.withDefaults(cfg))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "FarmerEmail", verr.Field)
	})
}
