package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Modern Villa", "modern-villa"},
		{"Smart Office", "smart-office"},
		{"  Palm   Jumeirah  Residence ", "palm-jumeirah-residence"},
		{"Villa -- Project", "villa-project"},
		{"Dubai Marina: Penthouse #2!", "dubai-marina-penthouse-2"},
		{"smart_home v2.0", "smart_home-v20"},
		{"-Leading and trailing-", "leading-and-trailing"},
		{"Tab\tand\nnewline", "tab-and-newline"},
		{"Café Automation", "caf-automation"},
		{"!!!", DefaultSlug},
		{"", DefaultSlug},
		{"مشروع", DefaultSlug},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveSlug(tt.title))
		})
	}
}

func TestDeriveSlug_ShapeInvariants(t *testing.T) {
	shape := regexp.MustCompile(`^[a-z0-9_]+(-[a-z0-9_]+)*$`)
	titles := []string{
		"Modern Villa", "  -- ", "A - B - C", "Home Cinema & Lighting", "X", "2024 Showcase",
		"UPPER lower MiXeD", "multi space", "----a----", "a_b c-d",
	}

	for _, title := range titles {
		got := DeriveSlug(title)
		assert.Regexp(t, shape, got, "title %q", title)
		assert.Equal(t, got, DeriveSlug(title), "derive must be deterministic")
		assert.Equal(t, got, DeriveSlug(got), "a slug is its own slug")
	}
}

func TestSlugCandidate(t *testing.T) {
	assert.Equal(t, "villa", slugCandidate("villa", 1))
	assert.Equal(t, "villa-2", slugCandidate("villa", 2))
	assert.Equal(t, "villa-10", slugCandidate("villa", 10))
}
