package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachdesk/core/listing"
)

func TestCourse_SearchFields(t *testing.T) {
	c := Course{Name: "Music"}
	assert.Equal(t, []string{"Music"}, c.SearchFields())

	c.Description = null.StringFrom("Piano and guitar")
	assert.Equal(t, []string{"Music", "Piano and guitar"}, c.SearchFields())
}

func TestCourse_absentDescriptionNeverMatches(t *testing.T) {
	courses := []Course{
		{Name: "Music"},
		{Name: "Maths", Description: null.StringFrom("")},
		{Name: "Art", Description: null.StringFrom("null")},
	}

	assert.Equal(t, []Course{courses[2]}, listing.Filter(courses, "null"))
	assert.Empty(t, listing.Filter(courses, "undefined"))
	assert.Equal(t, courses, listing.Filter(courses, ""))
}
