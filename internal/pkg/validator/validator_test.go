package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidTimeOfDay(t *testing.T) {
	valid := []string{"00:00", "09:00", "13:30", "23:59"}
	invalid := []string{"24:00", "9:00", "09:60", "0900", "", "09:00:00"}
	for _, s := range valid {
		if !IsValidTimeOfDay(s) {
			t.Errorf("IsValidTimeOfDay(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidTimeOfDay(s) {
			t.Errorf("IsValidTimeOfDay(%q) = true, want false", s)
		}
	}
}

func TestIsValidIPOrPrefix(t *testing.T) {
	valid := []string{"10.0.0.7", "192.168.0.0/24", "::1", "2001:db8::/32"}
	invalid := []string{"10.0.0", "10.0.0.0/33", "office", ""}
	for _, s := range valid {
		if !IsValidIPOrPrefix(s) {
			t.Errorf("IsValidIPOrPrefix(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidIPOrPrefix(s) {
			t.Errorf("IsValidIPOrPrefix(%q) = true, want false", s)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b"))
	assert.True(t, IsValidUUID("123e4567-e89b-12d3-a456-426614174000"))
	assert.False(t, IsValidUUID("g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b"))
	assert.False(t, IsValidUUID(""))
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	assert.True(t, IsInSlice("a", slice))
	assert.False(t, IsInSlice("d", slice))
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "member_id", Message: "is required"},
		{Field: "event_type", Message: "is invalid"},
	}
	assert.Equal(t, "member_id: is required; event_type: is invalid", errs.Error())
	assert.Equal(t, map[string]string{"member_id": "is required", "event_type": "is invalid"}, errs.ToMap())
	assert.Error(t, errs.Err())
	assert.NoError(t, ValidationErrors(nil).Err())
}

type sampleRequest struct {
	MemberID  string `json:"member_id" validate:"required,uuid"`
	EventType string `json:"event_type" validate:"required,oneof=EVT001 EVT002"`
	Start     string `json:"start" validate:"omitempty,hhmm"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		errs := Struct(sampleRequest{
			MemberID:  "0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
			EventType: "EVT001",
			Start:     "09:00",
		})
		assert.Empty(t, errs)
	})

	t.Run("reports json field names", func(t *testing.T) {
		errs := Struct(sampleRequest{EventType: "EVT999", Start: "9am"})
		require.Len(t, errs, 3)
		m := errs.ToMap()
		assert.Equal(t, "is required", m["member_id"])
		assert.Equal(t, "must be one of [EVT001 EVT002]", m["event_type"])
		assert.Equal(t, "must be in HH:mm format", m["start"])
	})
}
