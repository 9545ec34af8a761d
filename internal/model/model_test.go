package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDesignation(t *testing.T) {
	tests := []struct {
		in   string
		want Designation
		ok   bool
	}{
		{"Chair Person", DesignationChairPerson, true},
		{"Principal", DesignationPrincipal, true},
		{"Vice-Chancellor", DesignationViceChancellor, true},
		{"Council Member", DesignationCouncilMember, true},
		{"chair person", "", false},
		{"Dean", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDesignation(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDesignationAffiliationRules(t *testing.T) {
	assert.True(t, DesignationChairPerson.RequiresCollegeID())
	assert.True(t, DesignationPrincipal.RequiresCollegeID())
	assert.False(t, DesignationViceChancellor.RequiresCollegeID())
	assert.False(t, DesignationCouncilMember.RequiresCollegeID())

	assert.True(t, DesignationViceChancellor.ResolvesCollegeByName())
	assert.False(t, DesignationChairPerson.ResolvesCollegeByName())
	assert.False(t, DesignationCouncilMember.ResolvesCollegeByName())
}

func TestValidReason(t *testing.T) {
	assert.True(t, ValidReason(ReasonInternship))
	assert.True(t, ValidReason(ReasonTextbook))
	assert.True(t, ValidReason(ReasonResearchPaper))
	assert.False(t, ValidReason("To network"))
	assert.False(t, ValidReason(""))
}
