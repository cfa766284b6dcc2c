package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skilltrack/core/record"
)

func TestMarshalItem(t *testing.T) {
	usr := record.NewDefaultUser("student@test.cd")
	item, err := marshalItem(userPrefix+usr.Email, usr)
	require.NoError(t, err)

	// the composite id is the table key; the email lives only there
	assert.Equal(t, "USER#student@test.cd", itemID(item))
	assert.NotContains(t, item, "Email")

	// roles persist as a native string set
	roles, ok := item["Roles"].(*types.AttributeValueMemberSS)
	require.True(t, ok, "Roles = %T; want a string set", item["Roles"])
	assert.Equal(t, []string{record.RoleStudent}, roles.Value)

	// empty sets are omitted, dynamodb rejects them
	assert.NotContains(t, item, "TeachingTheseCourses")
}

func TestMarshalItem_roundTrip(t *testing.T) {
	crs := record.Course{
		ID:         "NRS-210-2026",
		CourseName: "NRS 210",
		Skills:     map[string]string{"PPE": "Donning and doffing"},
		Teachers:   record.NewStringSet("teacher@test.cd"),
	}
	item, err := marshalItem(coursePrefix+crs.ID, crs)
	require.NoError(t, err)
	assert.Equal(t, "COURSE#NRS-210-2026", itemID(item))

	var got record.Course
	require.NoError(t, attributevalue.UnmarshalMap(item, &got))
	got.ID = crs.ID // the id attribute is not a record field
	assert.Equal(t, crs, got)
}

func TestKeyHelpers(t *testing.T) {
	k := key("USER#student@test.cd")
	v, ok := k[idAttr].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "USER#student@test.cd", v.Value)

	assert.Empty(t, itemID(map[string]types.AttributeValue{}))

	ss := stringSet("a", "b")
	assert.Equal(t, []string{"a", "b"}, ss.Value)
}
